// Package observability wires OpenTelemetry tracing and metrics for relay.
//
// Tracing:
//
//	tp, err := observability.InitTracer(ctx, observability.DefaultTracerConfig("relay"))
//	defer tp.Shutdown(ctx)
//
// Metrics:
//
//	mp, err := observability.InitMeter(ctx, observability.DefaultMeterConfig("relay"))
//	defer mp.Shutdown(ctx)
//
//	metrics, err := observability.NewClientMetrics(observability.Meter("relay"))
//	transport = httpclient.Chain(transport, httpclient.WithMetrics(metrics))
package observability
