// Package observability wires OpenTelemetry tracing and metrics into
// HTTP clients.
//
// Tracing and metrics export over OTLP/HTTP:
//
//	tp, err := observability.InitTracer(ctx, observability.DefaultTracerConfig("my-service"))
//	defer tp.Shutdown(ctx)
//
//	mp, err := observability.InitMeter(ctx, observability.DefaultMeterConfig("my-service"))
//	defer mp.Shutdown(ctx)
//
// HTTPObserver plugs into a client and opens one client span per exchange,
// propagates the trace context in the request headers and records the
// http.client.* instruments:
//
//	obs, err := observability.NewHTTPObserver()
//	client := httpclient.NewClient(exec, httpclient.WithObserver(obs))
package observability
