// Package observability provides OpenTelemetry tracing and metrics setup
// for reqkit clients.
//
// Tracing:
//
//	tp, err := observability.InitTracer(ctx, observability.DefaultTracerConfig("my-service"))
//	defer tp.Shutdown(ctx)
//
//	ctx, span := observability.StartClientSpan(ctx, nil, req)
//	observability.InjectHeaders(ctx, req.Header)
//	defer span.End()
//
// Metrics:
//
//	mp, err := observability.InitMeter(ctx, &cfg)
//	defer mp.Shutdown(ctx)
//
//	m, err := observability.NewClientMetrics(observability.Meter("reqkit"), "payments")
//	m.RecordEnd(ctx, "GET", "api.example.com", 200, "", elapsed)
package observability
