package httpclient

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// Header names set by the default transforms.
const (
	HeaderAccept      = "Accept"
	HeaderContentType = "Content-Type"
	HeaderUserAgent   = "User-Agent"
)

// Header group keys. A configuration's Headers may hold one nested map per
// group; the dispatcher folds them into a flat map before sending.
const (
	GroupCommon = "common"
)

// headerGroups lists every nested group removed after flattening.
var headerGroups = []string{"delete", "get", "head", "options", "post", "put", "patch", GroupCommon}

// Headers holds request or response headers. Values are strings, except for
// group keys ("common" and lower-case method names) which hold nested maps.
type Headers map[string]any

// Get returns the first value whose name matches name case-insensitively.
func (h Headers) Get(name string) string {
	if v, ok := h[name]; ok {
		return headerString(v)
	}
	for k, v := range h {
		if strings.EqualFold(k, name) {
			return headerString(v)
		}
	}
	return ""
}

// Has reports whether a header with the exact name is set.
func (h Headers) Has(name string) bool {
	_, ok := h[name]
	return ok
}

// Set stores value under name.
func (h Headers) Set(name, value string) {
	h[name] = value
}

// Del removes every header matching name case-insensitively.
func (h Headers) Del(name string) {
	for k := range h {
		if strings.EqualFold(k, name) {
			delete(h, k)
		}
	}
}

// Group returns the nested header group stored under key, if any.
func (h Headers) Group(key string) map[string]any {
	m, _ := asPlainMap(h[key])
	return m
}

// Flat returns the non-group headers as strings, sorted by name for
// deterministic iteration by transports.
func (h Headers) Flat() [][2]string {
	out := make([][2]string, 0, len(h))
	for k, v := range h {
		if _, nested := asPlainMap(v); nested || v == nil {
			continue
		}
		out = append(out, [2]string{k, headerString(v)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i][0] < out[j][0] })
	return out
}

// HeadersFrom converts a net/http header map into Headers, keeping the first
// value of each field.
func HeadersFrom(h http.Header) Headers {
	out := make(Headers, len(h))
	for k, v := range h {
		if len(v) > 0 {
			out[k] = v[0]
		}
	}
	return out
}

// flattenHeaders merges, in ascending priority, the common group, the group
// for method and the top-level headers, then drops every group key.
func flattenHeaders(h Headers, method string) Headers {
	out := make(Headers, len(h))
	mergeHeadersInto(out, h.Group(GroupCommon))
	mergeHeadersInto(out, h.Group(strings.ToLower(method)))
	mergeHeadersInto(out, h)
	for _, g := range headerGroups {
		delete(out, g)
	}
	return out
}

// normalizeHeaderName renames any header equal to canonical ignoring case.
func normalizeHeaderName(h Headers, canonical string) {
	for k, v := range h {
		if k != canonical && strings.EqualFold(k, canonical) {
			h[canonical] = v
			delete(h, k)
		}
	}
}

func setContentTypeIfUnset(h Headers, value string) {
	if h == nil {
		return
	}
	if _, ok := h[HeaderContentType]; !ok {
		h[HeaderContentType] = value
	}
}

func headerString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case []string:
		return strings.Join(s, ", ")
	default:
		return fmt.Sprint(v)
	}
}
