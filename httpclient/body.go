package httpclient

import (
	"bytes"
	"io"
	"mime/multipart"
	"net/textproto"
	"net/url"
	"slices"
)

// Body is a request payload. The set of variants is closed; the default
// request transform dispatches on the concrete type.
type Body interface {
	isBody()
}

// TextBody is a plain string payload.
type TextBody string

// BinaryBody is a raw byte payload sent unchanged.
type BinaryBody []byte

// StreamBody is a payload read from an io.Reader and sent unchanged.
type StreamBody struct {
	Reader io.Reader
	// Size is the payload length when known, or -1.
	Size int64
}

// BufferView is a typed view over part of a larger buffer. The default
// request transform unwraps it to the whole underlying buffer.
type BufferView struct {
	Buffer []byte
	Offset int
	Length int
}

// ParamsBody is a set of url-encoded parameters.
type ParamsBody url.Values

// JSONBody is a value that is serialized as JSON before sending.
type JSONBody struct {
	Value any
}

// FormBody represents a multipart/form-data request body.
type FormBody struct {
	// Fields are simple key-value form fields.
	Fields map[string]string
	// Files are file upload fields.
	Files []FileField
}

// FileField represents a file to upload in a multipart request.
type FileField struct {
	// FieldName is the form field name (e.g., "file", "audio").
	FieldName string
	// FileName is the file name sent to the server.
	FileName string
	// ContentType is the MIME type. If empty, uses application/octet-stream.
	ContentType string
	// Data is the file content. Used if Reader is nil.
	Data []byte
	// Reader is an alternative to Data for large files.
	Reader io.Reader
}

func (TextBody) isBody()   {}
func (BinaryBody) isBody() {}
func (StreamBody) isBody() {}
func (BufferView) isBody() {}
func (ParamsBody) isBody() {}
func (JSONBody) isBody()   {}
func (*FormBody) isBody()  {}

// JSON wraps v as a JSONBody.
func JSON(v any) JSONBody { return JSONBody{Value: v} }

// View returns the bytes the view covers.
func (v BufferView) View() []byte {
	end := v.Offset + v.Length
	if v.Offset < 0 || end > len(v.Buffer) || v.Length < 0 {
		return nil
	}
	return v.Buffer[v.Offset:end]
}

// NewBody classifies a Go value into a Body variant. It is applied once
// at the call boundary so later stages never probe payload types.
func NewBody(v any) Body {
	switch b := v.(type) {
	case nil:
		return nil
	case Body:
		return b
	case string:
		return TextBody(b)
	case []byte:
		return BinaryBody(b)
	case url.Values:
		return ParamsBody(b)
	case io.Reader:
		return StreamBody{Reader: b, Size: -1}
	default:
		return JSONBody{Value: v}
	}
}

// cloneBody copies slice-backed and map-backed variants so a merged
// configuration never shares payload storage with its inputs.
func cloneBody(b Body) Body {
	switch v := b.(type) {
	case BinaryBody:
		return BinaryBody(bytes.Clone(v))
	case ParamsBody:
		cp := make(ParamsBody, len(v))
		for k, vals := range v {
			cp[k] = slices.Clone(vals)
		}
		return cp
	case JSONBody:
		return JSONBody{Value: cloneValue(v.Value)}
	case *FormBody:
		if v == nil {
			return v
		}
		cp := &FormBody{Files: append([]FileField(nil), v.Files...)}
		if v.Fields != nil {
			cp.Fields = make(map[string]string, len(v.Fields))
			for k, f := range v.Fields {
				cp.Fields[k] = f
			}
		}
		return cp
	default:
		return b
	}
}

// encode builds the multipart body and returns the reader and content-type header.
func (m *FormBody) encode() (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for k, v := range m.Fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, "", err
		}
	}

	for _, f := range m.Files {
		var part io.Writer
		var err error
		if f.ContentType != "" {
			header := make(textproto.MIMEHeader)
			header.Set("Content-Disposition",
				`form-data; name="`+escapeQuotes(f.FieldName)+`"; filename="`+escapeQuotes(f.FileName)+`"`)
			header.Set(HeaderContentType, f.ContentType)
			part, err = w.CreatePart(header)
		} else {
			part, err = w.CreateFormFile(f.FieldName, f.FileName)
		}
		if err != nil {
			return nil, "", err
		}
		switch {
		case f.Data != nil:
			_, err = part.Write(f.Data)
		case f.Reader != nil:
			_, err = io.Copy(part, f.Reader)
		}
		if err != nil {
			return nil, "", err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

func escapeQuotes(s string) string {
	var buf bytes.Buffer
	for _, b := range []byte(s) {
		if b == '"' || b == '\\' {
			buf.WriteByte('\\')
		}
		buf.WriteByte(b)
	}
	return buf.String()
}
