package httpclient

// Response is the result of a request that reached a transport.
type Response struct {
	// Data is the response payload after inbound transforms: a string or
	// []byte as delivered by the transport, or the parsed JSON value.
	Data any
	// Status is the HTTP status code. Zero for transports without one.
	Status int
	// StatusText is the reason phrase (e.g. "200 OK").
	StatusText string
	// Headers are the response headers, one value per name.
	Headers Headers
	// Config is the configuration the request was sent with.
	Config *Config
	// Request is the transport's raw request handle (*http.Request for
	// HTTPTransport).
	Request any
}

// IsSuccess returns true if the status code is 2xx.
func (r *Response) IsSuccess() bool {
	return r.Status >= 200 && r.Status < 300
}

// IsError returns true if the status code is 4xx or 5xx.
func (r *Response) IsError() bool {
	return r.Status >= 400
}
