package httpclient

import (
	"fmt"
	"sort"
)

// Transitional option names.
const (
	OptionSilentJSONParsing   = "silentJSONParsing"
	OptionForcedJSONParsing   = "forcedJSONParsing"
	OptionClarifyTimeoutError = "clarifyTimeoutError"
)

// transitionalOptions maps each recognized option to its default.
var transitionalOptions = map[string]bool{
	OptionSilentJSONParsing:   true,
	OptionForcedJSONParsing:   true,
	OptionClarifyTimeoutError: false,
}

// validateTransitional rejects unknown option names and non-boolean values.
func validateTransitional(cfg *Config) error {
	keys := make([]string, 0, len(cfg.Transitional))
	for k := range cfg.Transitional {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if _, known := transitionalOptions[k]; !known {
			return NewError(fmt.Sprintf("Unknown option %s", k), ErrCodeBadOption, cfg, nil, nil)
		}
		if _, ok := cfg.Transitional[k].(bool); !ok {
			return NewError(fmt.Sprintf("option %s must be bool", k), ErrCodeBadOption, cfg, nil, nil)
		}
	}
	return nil
}

// transitional returns the effective value of a transitional option.
func (c *Config) transitional(name string) bool {
	if v, ok := c.Transitional[name].(bool); ok {
		return v
	}
	return transitionalOptions[name]
}
