package httpclient

import "fmt"

// Settle classifies a completed exchange. It returns nil when the status is
// zero, when no validator is configured, or when the validator accepts the
// status; otherwise an ERR_BAD_STATUS error carrying the response.
func Settle(resp *Response) error {
	var validate StatusValidator
	if resp.Config != nil {
		validate = resp.Config.ValidateStatus
	}
	if resp.Status == 0 || validate == nil || validate(resp.Status) {
		return nil
	}
	return NewError(
		fmt.Sprintf("Request failed with status code %d", resp.Status),
		ErrCodeBadStatus,
		resp.Config,
		resp.Request,
		resp,
	)
}
