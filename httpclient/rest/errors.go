package rest

import (
	"net/http"

	"github.com/kbukum/relay/httpclient"
)

func statusOf(err error) int {
	if r := httpclient.ResponseOf(err); r != nil {
		return r.Status
	}
	return 0
}

// IsNotFound checks if the error is a 404 response.
func IsNotFound(err error) bool { return statusOf(err) == http.StatusNotFound }

// IsAuth checks if the error is a 401 or 403 response.
func IsAuth(err error) bool {
	s := statusOf(err)
	return s == http.StatusUnauthorized || s == http.StatusForbidden
}

// IsRateLimit checks if the error is a 429 response.
func IsRateLimit(err error) bool { return statusOf(err) == http.StatusTooManyRequests }

// IsServerError checks if the error is a 5xx response.
func IsServerError(err error) bool { return statusOf(err) >= http.StatusInternalServerError }

// IsRetryable checks if repeating the request could succeed.
func IsRetryable(err error) bool {
	return httpclient.IsNetworkError(err) || httpclient.IsTimeout(err) || IsRateLimit(err) || IsServerError(err)
}
