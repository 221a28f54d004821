package observability

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/runtime"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/zatekoja/slotbooking"

// Metrics holds all application metrics. A nil *Metrics is valid and records nothing.
type Metrics struct {
	RequestCount    metric.Int64Counter
	RequestDuration metric.Float64Histogram

	SlotsGenerated   metric.Int64Counter
	BookingsCreated  metric.Int64Counter
	BookingConflicts metric.Int64Counter
	BookingsPaid     metric.Int64Counter
	Reclaimed        metric.Int64Counter
	ReclaimFailures  metric.Int64Counter
	ReclaimDuration  metric.Float64Histogram
}

// Setup installs OTLP/gRPC trace and metric exporters plus Go runtime metrics
func Setup(ctx context.Context, serviceName, serviceVersion, endpoint string) (func(context.Context) error, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(serviceVersion),
		),
	)
	if err != nil {
		return nil, err
	}

	traceExporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	tracerProvider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tracerProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	metricExporter, err := otlpmetricgrpc.New(ctx,
		otlpmetricgrpc.WithEndpoint(endpoint),
		otlpmetricgrpc.WithInsecure(),
	)
	if err != nil {
		_ = tracerProvider.Shutdown(ctx)
		return nil, err
	}

	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter, sdkmetric.WithInterval(15*time.Second))),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(meterProvider)

	if err := runtime.Start(runtime.WithMeterProvider(meterProvider)); err != nil {
		_ = tracerProvider.Shutdown(ctx)
		_ = meterProvider.Shutdown(ctx)
		return nil, err
	}

	shutdown := func(ctx context.Context) error {
		return errors.Join(tracerProvider.Shutdown(ctx), meterProvider.Shutdown(ctx))
	}
	return shutdown, nil
}

// InitMetrics creates the application instruments on the global meter provider
func InitMetrics() (*Metrics, error) {
	meter := otel.Meter(instrumentationName)
	m := &Metrics{}
	var err error

	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
	}{
		{&m.RequestCount, "http.server.request.count", "Number of HTTP requests"},
		{&m.SlotsGenerated, "slots.generated", "Time slots created by generation"},
		{&m.BookingsCreated, "booking.created", "Bookings created"},
		{&m.BookingConflicts, "booking.conflict", "Booking attempts that lost the race for a slot"},
		{&m.BookingsPaid, "payment.paid", "Payment intents marked paid"},
		{&m.Reclaimed, "booking.reclaimed", "Stale unpaid bookings reclaimed"},
		{&m.ReclaimFailures, "booking.reclaim.failed", "Bookings the reclaimer failed to reclaim"},
	}
	for _, c := range counters {
		if *c.dst, err = meter.Int64Counter(c.name, metric.WithDescription(c.desc)); err != nil {
			return nil, err
		}
	}

	if m.RequestDuration, err = meter.Float64Histogram(
		"http.server.request.duration",
		metric.WithDescription("HTTP request duration in milliseconds"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, err
	}

	if m.ReclaimDuration, err = meter.Float64Histogram(
		"booking.reclaim.duration",
		metric.WithDescription("Duration of one reclaim sweep in milliseconds"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, err
	}

	return m, nil
}

// StartSpan starts a new trace span
func StartSpan(ctx context.Context, spanName string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	tracer := otel.Tracer(instrumentationName)
	return tracer.Start(ctx, spanName, trace.WithAttributes(attrs...))
}

// RecordError records an error in the span and marks it failed
func RecordError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// RecordRequestMetric records an HTTP request
func (m *Metrics) RecordRequestMetric(ctx context.Context, method, route string, statusCode int, duration time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("http.method", method),
		attribute.String("http.route", route),
		attribute.Int("http.status_code", statusCode),
	)
	m.RequestCount.Add(ctx, 1, attrs)
	m.RequestDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
}

// Add increments counter by n when metrics are enabled
func (m *Metrics) Add(ctx context.Context, counter func(*Metrics) metric.Int64Counter, n int64, attrs ...attribute.KeyValue) {
	if m == nil || n == 0 {
		return
	}
	counter(m).Add(ctx, n, metric.WithAttributes(attrs...))
}

// RecordReclaim records one reclaim sweep
func (m *Metrics) RecordReclaim(ctx context.Context, reclaimed, failed int, duration time.Duration) {
	if m == nil {
		return
	}
	m.Reclaimed.Add(ctx, int64(reclaimed))
	m.ReclaimFailures.Add(ctx, int64(failed))
	m.ReclaimDuration.Record(ctx, float64(duration.Milliseconds()))
}

// Counter selectors for Add
var (
	SlotsGenerated   = func(m *Metrics) metric.Int64Counter { return m.SlotsGenerated }
	BookingsCreated  = func(m *Metrics) metric.Int64Counter { return m.BookingsCreated }
	BookingConflicts = func(m *Metrics) metric.Int64Counter { return m.BookingConflicts }
	BookingsPaid     = func(m *Metrics) metric.Int64Counter { return m.BookingsPaid }
)
