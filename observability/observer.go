package observability

import (
	"context"
	"errors"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/anyhttp/httpclient"
)

// HTTPObserver traces and measures client exchanges.
type HTTPObserver struct {
	tracer     trace.Tracer
	metrics    *Metrics
	propagator propagation.TextMapPropagator
}

var _ httpclient.Observer = (*HTTPObserver)(nil)

type observerOptions struct {
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
	propagator     propagation.TextMapPropagator
}

// ObserverOption configures NewHTTPObserver.
type ObserverOption func(*observerOptions)

// WithTracerProvider overrides the global tracer provider.
func WithTracerProvider(tp trace.TracerProvider) ObserverOption {
	return func(o *observerOptions) { o.tracerProvider = tp }
}

// WithMeterProvider overrides the global meter provider.
func WithMeterProvider(mp metric.MeterProvider) ObserverOption {
	return func(o *observerOptions) { o.meterProvider = mp }
}

// WithPropagator overrides the global propagator. Pass a no-op composite
// to stop injecting trace headers.
func WithPropagator(p propagation.TextMapPropagator) ObserverOption {
	return func(o *observerOptions) { o.propagator = p }
}

// NewHTTPObserver creates an observer on the global providers unless
// overridden.
func NewHTTPObserver(opts ...ObserverOption) (*HTTPObserver, error) {
	o := observerOptions{
		tracerProvider: otel.GetTracerProvider(),
		meterProvider:  otel.GetMeterProvider(),
		propagator:     otel.GetTextMapPropagator(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	metrics, err := NewMetrics(o.meterProvider.Meter(instrumentationName))
	if err != nil {
		return nil, err
	}
	return &HTTPObserver{
		tracer:     o.tracerProvider.Tracer(instrumentationName),
		metrics:    metrics,
		propagator: o.propagator,
	}, nil
}

// ExchangeStarted opens a client span and injects its context into the
// request headers.
func (h *HTTPObserver) ExchangeStarted(ctx context.Context, req *httpclient.Request) context.Context {
	method := req.Method.String()
	attrs := []attribute.KeyValue{
		attribute.String(AttrMethod, method),
		attribute.String(AttrURL, req.URL.Redacted()),
		attribute.String(AttrServer, req.URL.Hostname()),
	}
	if id := req.Header.Get(httpclient.HeaderRequestID); id != "" {
		attrs = append(attrs, attribute.String(AttrRequestID, id))
	}
	ctx, _ = h.tracer.Start(ctx, "HTTP "+method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...),
	)
	h.propagator.Inject(ctx, headerCarrier{h: &req.Header})
	h.metrics.ExchangeStarted(ctx, method)
	return ctx
}

// ExchangeFinished closes the span opened by ExchangeStarted.
func (h *HTTPObserver) ExchangeFinished(ctx context.Context, req *httpclient.Request, resp *httpclient.Response, err error, elapsed time.Duration) {
	span := trace.SpanFromContext(ctx)
	method := req.Method.String()
	span.SetAttributes(attribute.Int64(AttrDurationMs, elapsed.Milliseconds()))

	if err != nil {
		kind := errorType(err)
		span.SetAttributes(attribute.String(AttrErrorType, kind))
		span.RecordError(err)
		span.SetStatus(codes.Error, kind)
		span.End()
		h.metrics.ExchangeFinished(ctx, method, 0, kind, elapsed)
		return
	}

	span.SetAttributes(attribute.Int(AttrStatus, resp.StatusCode))
	if resp.StatusCode >= 400 {
		span.SetAttributes(attribute.String(AttrErrorType, strconv.Itoa(resp.StatusCode)))
		span.SetStatus(codes.Error, "")
	}
	span.End()
	h.metrics.ExchangeFinished(ctx, method, resp.StatusCode, "", elapsed)
}

// errorType names the failure class of err.
func errorType(err error) string {
	var e *httpclient.Error
	if !errors.As(err, &e) {
		return "other"
	}
	switch {
	case e.Timeout:
		return "timeout"
	case e.Canceled:
		return "canceled"
	default:
		return e.Code.String()
	}
}

// headerCarrier adapts httpclient.Header to propagation.TextMapCarrier.
type headerCarrier struct {
	h *httpclient.Header
}

func (c headerCarrier) Get(key string) string { return c.h.Get(key) }

func (c headerCarrier) Set(key, value string) { c.h.Set(key, value) }

func (c headerCarrier) Keys() []string { return c.h.Names() }
