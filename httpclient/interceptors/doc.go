// Package interceptors provides request and response interceptors for
// httpclient: request IDs, bearer and JWT authentication, logging and retry.
//
//	c.Interceptors.Request.Use(interceptors.RequestID(""), nil, httpclient.Synchronous())
//	c.Interceptors.Request.Use(interceptors.JWT(signer), nil)
//	c.Interceptors.Response.Use(nil, interceptors.Retry(c, interceptors.RetryConfig{}))
package interceptors
