package httpclient

import (
	"encoding/json"
	"errors"
	"net/url"
)

const (
	contentTypeJSON = "application/json"
	contentTypeForm = "application/x-www-form-urlencoded;charset=utf-8"
)

// TransformData threads data through fns in order. Each function may also
// mutate headers.
func TransformData(cfg *Config, data any, headers Headers, fns []TransformFunc) (any, error) {
	for _, fn := range fns {
		var err error
		data, err = fn(cfg, data, headers)
		if err != nil {
			return nil, err
		}
	}
	return data, nil
}

// DefaultTransformRequest prepares a request Body for the wire. Binary,
// stream and multipart payloads pass through; buffer views unwrap to their
// buffer; url-encoded params and JSON values are serialized to TextBody.
func DefaultTransformRequest(_ *Config, data any, headers Headers) (any, error) {
	normalizeHeaderName(headers, HeaderAccept)
	normalizeHeaderName(headers, HeaderContentType)

	switch b := NewBody(data).(type) {
	case nil:
		return nil, nil
	case BinaryBody, StreamBody, *FormBody:
		return b, nil
	case BufferView:
		return BinaryBody(b.Buffer), nil
	case ParamsBody:
		setContentTypeIfUnset(headers, contentTypeForm)
		return TextBody(url.Values(b).Encode()), nil
	case JSONBody:
		setContentTypeIfUnset(headers, contentTypeJSON)
		raw, err := json.Marshal(b.Value)
		if err != nil {
			return nil, err
		}
		return TextBody(raw), nil
	case TextBody:
		if headers.Get(HeaderContentType) == contentTypeJSON {
			raw, err := json.Marshal(string(b))
			if err != nil {
				return nil, err
			}
			return TextBody(raw), nil
		}
		return b, nil
	default:
		return b, nil
	}
}

// DefaultTransformResponse parses JSON payloads. Parsing is strict when
// silentJSONParsing is off and ResponseType is json; a strict failure
// returns an E_JSON_PARSE error. Otherwise non-empty text is parsed when
// forcedJSONParsing is on and left unchanged if it is not valid JSON.
func DefaultTransformResponse(cfg *Config, data any, _ Headers) (any, error) {
	silent := cfg.transitional(OptionSilentJSONParsing)
	forced := cfg.transitional(OptionForcedJSONParsing)
	strict := !silent && cfg.ResponseType == ResponseTypeJSON

	var raw []byte
	switch d := data.(type) {
	case string:
		raw = []byte(d)
	case []byte:
		if cfg.ResponseType == ResponseTypeArrayBuffer {
			return data, nil
		}
		raw = d
	default:
		return data, nil
	}

	if !strict && !(forced && len(raw) > 0) {
		return data, nil
	}

	var parsed any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		var syntaxErr *json.SyntaxError
		if strict && errors.As(err, &syntaxErr) {
			e := NewError(err.Error(), ErrCodeJSONParse, cfg, nil, nil)
			e.Err = err
			return nil, e
		}
		return data, nil
	}
	return parsed, nil
}
