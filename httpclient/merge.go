package httpclient

import (
	"reflect"
	"slices"
	"strings"

	"dario.cat/mergo"
)

// Merge combines base and override into a new Config. Neither input is
// modified and the result shares no maps or slices with them.
//
// Fields follow four rules:
//   - URL, Method and Data come from override only.
//   - Headers, Auth, Proxy, Params, Transitional and Extra are deep-merged:
//     nested maps merge key by key with override winning, slices are replaced.
//   - Every other option takes the override value when defined, else base.
//   - ValidateStatus takes override when set, else base.
func Merge(base, override *Config) *Config {
	if base == nil {
		base = &Config{}
	}
	if override == nil {
		override = &Config{}
	}

	out := &Config{
		URL:    override.URL,
		Method: override.Method,
		Data:   cloneBody(override.Data),
	}

	out.Headers = mergeHeaders(base.Headers, override.Headers)
	out.Params = deepMerge(base.Params, override.Params)
	out.Transitional = deepMerge(base.Transitional, override.Transitional)
	out.Extra = deepMerge(base.Extra, override.Extra)
	out.Auth = mergeStruct(base.Auth, override.Auth, cloneAuth)
	out.Proxy = mergeStruct(base.Proxy, override.Proxy, cloneProxy)

	out.BaseURL = either(override.BaseURL, base.BaseURL)
	out.TimeoutErrorMessage = either(override.TimeoutErrorMessage, base.TimeoutErrorMessage)
	out.Timeout = either(override.Timeout, base.Timeout)
	out.ResponseType = either(override.ResponseType, base.ResponseType)
	out.XSRFCookieName = either(override.XSRFCookieName, base.XSRFCookieName)
	out.XSRFHeaderName = either(override.XSRFHeaderName, base.XSRFHeaderName)
	out.MaxContentLength = either(override.MaxContentLength, base.MaxContentLength)
	out.MaxBodyLength = either(override.MaxBodyLength, base.MaxBodyLength)
	out.SocketPath = either(override.SocketPath, base.SocketPath)
	out.CancelToken = either(override.CancelToken, base.CancelToken)
	out.WithCredentials = clonePtr(either(override.WithCredentials, base.WithCredentials))
	out.Decompress = clonePtr(either(override.Decompress, base.Decompress))
	out.MaxRedirects = clonePtr(either(override.MaxRedirects, base.MaxRedirects))

	out.TransformRequest = slices.Clone(override.TransformRequest)
	if override.TransformRequest == nil {
		out.TransformRequest = slices.Clone(base.TransformRequest)
	}
	out.TransformResponse = slices.Clone(override.TransformResponse)
	if override.TransformResponse == nil {
		out.TransformResponse = slices.Clone(base.TransformResponse)
	}

	out.ParamsSerializer = override.ParamsSerializer
	if out.ParamsSerializer == nil {
		out.ParamsSerializer = base.ParamsSerializer
	}
	out.OnUploadProgress = override.OnUploadProgress
	if out.OnUploadProgress == nil {
		out.OnUploadProgress = base.OnUploadProgress
	}
	out.OnDownloadProgress = override.OnDownloadProgress
	if out.OnDownloadProgress == nil {
		out.OnDownloadProgress = base.OnDownloadProgress
	}
	out.Transport = override.Transport
	if out.Transport == nil {
		out.Transport = base.Transport
	}

	out.ValidateStatus = override.ValidateStatus
	if out.ValidateStatus == nil {
		out.ValidateStatus = base.ValidateStatus
	}

	return out
}

// either returns o when it is non-zero, else b.
func either[T comparable](o, b T) T {
	var zero T
	if o != zero {
		return o
	}
	return b
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// mergeStruct deep-merges two optional structs with override winning on
// every non-zero field.
func mergeStruct[T any](base, override *T, clone func(*T) *T) *T {
	switch {
	case base == nil:
		return clone(override)
	case override == nil:
		return clone(base)
	}
	dst := clone(base)
	if err := mergo.Merge(dst, clone(override), mergo.WithOverride); err != nil {
		return clone(override)
	}
	return dst
}

func cloneAuth(a *BasicAuth) *BasicAuth {
	return clonePtr(a)
}

func cloneProxy(p *ProxyConfig) *ProxyConfig {
	if p == nil {
		return nil
	}
	cp := *p
	cp.Auth = cloneAuth(p.Auth)
	return &cp
}

// deepMerge returns a fresh map holding base overlaid with override, or nil
// when both are nil.
func deepMerge[M ~map[string]any](base, override M) map[string]any {
	if base == nil && override == nil {
		return nil
	}
	out := make(map[string]any, len(base)+len(override))
	mergeInto(out, map[string]any(base))
	mergeInto(out, map[string]any(override))
	return out
}

// mergeHeaders deep-merges header maps like deepMerge, folding names case
// insensitively.
func mergeHeaders(base, override Headers) Headers {
	if base == nil && override == nil {
		return nil
	}
	out := make(Headers, len(base)+len(override))
	mergeHeadersInto(out, base)
	mergeHeadersInto(out, override)
	return out
}

// mergeHeadersInto is mergeInto for headers: a written name replaces every
// dst entry equal to it ignoring case.
func mergeHeadersInto(dst, src map[string]any) {
	for k, sv := range src {
		sm, ok := asPlainMap(sv)
		if !ok {
			for existing := range dst {
				if existing != k && strings.EqualFold(existing, k) {
					delete(dst, existing)
				}
			}
			dst[k] = cloneValue(sv)
			continue
		}
		dm, ok := dst[k].(map[string]any)
		if !ok {
			dm = make(map[string]any, len(sm))
			dst[k] = dm
		}
		mergeHeadersInto(dm, sm)
	}
}

// mergeInto deep-merges src into dst. Nested maps in dst must be owned by
// dst; every nested map written is a fresh copy.
func mergeInto(dst, src map[string]any) {
	for k, sv := range src {
		sm, ok := asPlainMap(sv)
		if !ok {
			dst[k] = cloneValue(sv)
			continue
		}
		dm, ok := dst[k].(map[string]any)
		if !ok {
			dm = make(map[string]any, len(sm))
			dst[k] = dm
		}
		mergeInto(dm, sm)
	}
}

// asPlainMap reports whether v is a string-keyed map and returns it as one.
func asPlainMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case Headers:
		return map[string]any(m), true
	case map[string]string:
		out := make(map[string]any, len(m))
		for k, s := range m {
			out[k] = s
		}
		return out, true
	default:
		return nil, false
	}
}

// cloneValue deep-copies maps and slices. Elements of typed slices are
// copied shallowly. Other values, functions included, are returned as-is.
func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, x := range t {
			out[k] = cloneValue(x)
		}
		return out
	case Headers:
		out := make(Headers, len(t))
		for k, x := range t {
			out[k] = cloneValue(x)
		}
		return out
	case map[string]string:
		out := make(map[string]string, len(t))
		for k, s := range t {
			out[k] = s
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, x := range t {
			out[i] = cloneValue(x)
		}
		return out
	case []string:
		return slices.Clone(t)
	}

	if rv := reflect.ValueOf(v); rv.Kind() == reflect.Slice && !rv.IsNil() {
		cp := reflect.MakeSlice(rv.Type(), rv.Len(), rv.Len())
		reflect.Copy(cp, rv)
		return cp.Interface()
	}
	return v
}
