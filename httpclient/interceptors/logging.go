package interceptors

import (
	"context"

	"github.com/kbukum/relay/httpclient"
	"github.com/kbukum/relay/logger"
)

// LogRequest logs each outgoing request at debug level.
func LogRequest(log *logger.Logger) httpclient.FulfilledFunc[*httpclient.Config] {
	return func(_ context.Context, cfg *httpclient.Config) (*httpclient.Config, error) {
		log.Debug("request", logger.Fields(
			logger.FieldMethod, cfg.Method,
			logger.FieldURL, httpclient.BuildFullPath(cfg.BaseURL, cfg.URL),
			logger.FieldRequestID, cfg.Headers.Get(HeaderRequestID),
		))
		return cfg, nil
	}
}

// LogResponse returns a handler pair logging responses at debug level and
// failures at error level. Neither handler changes the outcome.
func LogResponse(log *logger.Logger) (httpclient.FulfilledFunc[*httpclient.Response], httpclient.RejectedFunc[*httpclient.Response]) {
	fulfilled := func(_ context.Context, resp *httpclient.Response) (*httpclient.Response, error) {
		fields := logger.Fields(logger.FieldStatus, resp.Status)
		if resp.Config != nil {
			fields[logger.FieldMethod] = resp.Config.Method
			fields[logger.FieldURL] = httpclient.BuildFullPath(resp.Config.BaseURL, resp.Config.URL)
		}
		log.Debug("response", fields)
		return resp, nil
	}
	rejected := func(_ context.Context, err error) (*httpclient.Response, error) {
		fields := logger.Fields(
			logger.FieldCode, string(httpclient.CodeOf(err)),
			logger.FieldError, err.Error(),
		)
		if r := httpclient.ResponseOf(err); r != nil {
			fields[logger.FieldStatus] = r.Status
		}
		log.Error("request failed", fields)
		return nil, err
	}
	return fulfilled, rejected
}
