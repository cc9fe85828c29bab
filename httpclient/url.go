package httpclient

import (
	"encoding/json"
	"fmt"
	"net/url"
	"reflect"
	"regexp"
	"sort"
	"strings"
	"time"
)

var absoluteURL = regexp.MustCompile(`(?i)^([a-z][a-z\d+\-.]*:)?//`)

// IsAbsoluteURL reports whether u has a scheme or is protocol-relative.
func IsAbsoluteURL(u string) bool {
	return absoluteURL.MatchString(u)
}

// CombineURLs joins baseURL and relativeURL with exactly one slash.
func CombineURLs(baseURL, relativeURL string) string {
	if relativeURL == "" {
		return baseURL
	}
	return strings.TrimRight(baseURL, "/") + "/" + strings.TrimLeft(relativeURL, "/")
}

// BuildFullPath prefixes requestedURL with baseURL unless it is absolute.
func BuildFullPath(baseURL, requestedURL string) string {
	if baseURL != "" && !IsAbsoluteURL(requestedURL) {
		return CombineURLs(baseURL, requestedURL)
	}
	return requestedURL
}

// BuildURL appends params to u as a query string. A serializer, when given,
// renders the params instead of the default encoding. Any fragment in u is
// dropped when a query string is added.
func BuildURL(u string, params map[string]any, serializer ParamsSerializer) (string, error) {
	if len(params) == 0 {
		return u, nil
	}

	var serialized string
	if serializer != nil {
		serialized = serializer(params)
	} else {
		var err error
		if serialized, err = encodeParams(params); err != nil {
			return "", err
		}
	}
	if serialized == "" {
		return u, nil
	}

	if i := strings.IndexByte(u, '#'); i >= 0 {
		u = u[:i]
	}
	sep := "?"
	if strings.Contains(u, "?") {
		sep = "&"
	}
	return u + sep + serialized, nil
}

// encodeParams renders params sorted by key. Nil values are skipped, slices
// repeat the key with a "[]" suffix, times use ISO 8601 in UTC and maps or
// structs are JSON-encoded.
func encodeParams(params map[string]any) (string, error) {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var parts []string
	for _, key := range keys {
		val := params[key]
		if val == nil {
			continue
		}

		values := []any{val}
		if rv := reflect.ValueOf(val); isList(rv) {
			key += "[]"
			values = make([]any, rv.Len())
			for i := range values {
				values[i] = rv.Index(i).Interface()
			}
		}

		for _, v := range values {
			s, err := paramString(v)
			if err != nil {
				return "", fmt.Errorf("encode param %q: %w", key, err)
			}
			parts = append(parts, encodeParam(key)+"="+encodeParam(s))
		}
	}
	return strings.Join(parts, "&"), nil
}

func isList(rv reflect.Value) bool {
	switch rv.Kind() {
	case reflect.Slice:
		return rv.Type().Elem().Kind() != reflect.Uint8
	case reflect.Array:
		return true
	}
	return false
}

func paramString(v any) (string, error) {
	switch t := v.(type) {
	case nil:
		return "", nil
	case string:
		return t, nil
	case time.Time:
		return t.UTC().Format("2006-01-02T15:04:05.000Z07:00"), nil
	case fmt.Stringer:
		return t.String(), nil
	}

	switch reflect.Indirect(reflect.ValueOf(v)).Kind() {
	case reflect.Map, reflect.Struct, reflect.Slice, reflect.Array:
		raw, err := json.Marshal(v)
		if err != nil {
			return "", err
		}
		return string(raw), nil
	}
	return fmt.Sprint(v), nil
}

// paramUnescaper restores characters that stay readable in query strings.
var paramUnescaper = strings.NewReplacer(
	"%3A", ":",
	"%24", "$",
	"%2C", ",",
	"%5B", "[",
	"%5D", "]",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

func encodeParam(s string) string {
	return paramUnescaper.Replace(url.QueryEscape(s))
}
