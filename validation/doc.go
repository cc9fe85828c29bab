// Package validation checks loaded settings, either through `validate`
// struct tags or programmatically with a Validator.
//
// # Struct Tags
//
//	type Settings struct {
//	    BaseURL string        `mapstructure:"base_url" validate:"omitempty,url"`
//	    Timeout time.Duration `mapstructure:"timeout" validate:"gte=0"`
//	}
//	err := validation.Struct(&s)
//
// Field paths in errors use mapstructure names, then json names, then the
// snake_cased Go name.
//
// # Programmatic Checks
//
//	v := validation.New()
//	v.Required("client.proxy.host", p.Host)
//	err := v.Err()
package validation
