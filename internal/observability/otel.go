package observability

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.34.0"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"resumescore/internal/errors"
)

// Business event names recorded through RecordBusinessEvent.
const (
	EventUserRegistered = "user_registered"
	EventUserLoggedIn   = "user_logged_in"
	EventHistorySaved   = "history_saved"
	EventHistoryDeleted = "history_deleted"
	EventChatAnswered   = "chat_answered"
	EventResumeBuilt    = "resume_built"
	EventRateLimitHit   = "rate_limit_hit"
)

// Metrics holds the custom instruments. Every method is safe on a zero Metrics.
type Metrics struct {
	ScoringOperations metric.Int64Counter
	ScoringDuration   metric.Float64Histogram
	ScoreValue        metric.Float64Histogram
	ModelReloads      metric.Int64Counter
	BusinessEvents    metric.Int64Counter

	AIRequests   metric.Int64Counter
	AIDuration   metric.Float64Histogram
	AITokenUsage metric.Int64Histogram
}

// Manager manages OpenTelemetry setup
type Manager struct {
	config           Config
	tracerProvider   oteltrace.TracerProvider
	meterProvider    *sdkmetric.MeterProvider
	metrics          *Metrics
	shutdownFuncs    []func(context.Context) error
	prometheusServer *http.Server
	logger           *errors.Logger
}

// NewManager creates a new observability manager. A disabled config yields a manager whose
// tracer is a no-op and whose metrics record nothing.
func NewManager(cfg Config, logger *errors.Logger) (*Manager, error) {
	if logger == nil {
		logger = errors.Discard()
	}
	om := &Manager{
		config:         cfg,
		tracerProvider: noop.NewTracerProvider(),
		metrics:        &Metrics{},
		logger:         logger,
	}
	if !cfg.Enabled {
		return om, nil
	}

	res, err := om.newResource()
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	if cfg.TracingEnabled {
		if err := om.initTracing(res); err != nil {
			return nil, fmt.Errorf("failed to initialize tracing: %w", err)
		}
	}

	if cfg.MetricsEnabled {
		if err := om.initMetrics(res); err != nil {
			return nil, fmt.Errorf("failed to initialize metrics: %w", err)
		}
	}

	return om, nil
}

func (om *Manager) newResource() (*resource.Resource, error) {
	instance := om.config.ServiceInstance
	if instance == "" {
		instance = om.config.ServiceName + "-1"
	}
	return resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(om.config.ServiceName),
			semconv.ServiceVersion(om.config.ServiceVersion),
			semconv.ServiceInstanceID(instance),
		),
	)
}

// initTracing sets up OpenTelemetry tracing
func (om *Manager) initTracing(res *resource.Resource) error {
	var exporter trace.SpanExporter
	var err error

	switch {
	case om.config.ConsoleOutput:
		exporter, err = stdouttrace.New(stdouttrace.WithPrettyPrint())
	case om.config.OTLP.Enabled:
		exporter, err = om.createOTLPExporter()
	default:
		exporter = noOpSpanExporter{}
	}
	if err != nil {
		return fmt.Errorf("failed to create trace exporter: %w", err)
	}

	tp := trace.NewTracerProvider(
		trace.WithBatcher(exporter),
		trace.WithResource(res),
		trace.WithSampler(trace.ParentBased(trace.TraceIDRatioBased(om.config.SampleRate))),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	om.tracerProvider = tp
	om.shutdownFuncs = append(om.shutdownFuncs, tp.Shutdown)
	return nil
}

// initMetrics sets up OpenTelemetry metrics
func (om *Manager) initMetrics(res *resource.Resource) error {
	readers, err := om.setupMetricReaders()
	if err != nil {
		return err
	}

	opts := []sdkmetric.Option{sdkmetric.WithResource(res)}
	for _, reader := range readers {
		opts = append(opts, sdkmetric.WithReader(reader))
	}

	mp := sdkmetric.NewMeterProvider(opts...)
	otel.SetMeterProvider(mp)
	om.meterProvider = mp
	om.shutdownFuncs = append(om.shutdownFuncs, mp.Shutdown)

	metrics, err := newMetrics(mp.Meter(om.config.ServiceName))
	if err != nil {
		return err
	}
	om.metrics = metrics
	return nil
}

// setupMetricReaders sets up all metric readers based on configuration
func (om *Manager) setupMetricReaders() ([]sdkmetric.Reader, error) {
	var readers []sdkmetric.Reader

	if om.config.ConsoleOutput {
		exporter, err := stdoutmetric.New()
		if err != nil {
			return nil, fmt.Errorf("failed to create console metric exporter: %w", err)
		}
		readers = append(readers, sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(om.collectionInterval())))
	}

	if om.config.OTLP.Enabled {
		reader, err := om.createOTLPMetricsReader()
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP metrics reader: %w", err)
		}
		readers = append(readers, reader)
	}

	if om.config.Prometheus.Enabled {
		reader, mux, err := SetupPrometheusExporter(om.config.Prometheus)
		if err != nil {
			return nil, err
		}
		readers = append(readers, reader)
		om.prometheusServer = StartPrometheusServer(mux, om.config.Prometheus.Port, om.logger)
		om.shutdownFuncs = append(om.shutdownFuncs, om.prometheusServer.Shutdown)
	}

	// keep instruments live even without an exporter
	if len(readers) == 0 {
		readers = append(readers, sdkmetric.NewManualReader())
	}

	return readers, nil
}

// newMetrics creates the custom instruments on meter
func newMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	m.ScoringOperations, err = meter.Int64Counter(
		"resumescore.scoring.operations",
		metric.WithDescription("Number of scoring requests by mode and status"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create scoring operations metric: %w", err)
	}

	m.ScoringDuration, err = meter.Float64Histogram(
		"resumescore.scoring.duration",
		metric.WithDescription("Time spent scoring a resume"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create scoring duration metric: %w", err)
	}

	m.ScoreValue, err = meter.Float64Histogram(
		"resumescore.scoring.score",
		metric.WithDescription("Distribution of final scores by mode"),
		metric.WithExplicitBucketBoundaries(10, 20, 30, 40, 50, 60, 70, 80, 90, 100),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create score metric: %w", err)
	}

	m.ModelReloads, err = meter.Int64Counter(
		"resumescore.model.reloads",
		metric.WithDescription("Number of similarity artifact reloads"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create model reload metric: %w", err)
	}

	m.BusinessEvents, err = meter.Int64Counter(
		"resumescore.business.events",
		metric.WithDescription("Account, history, chat and builder events"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create business events metric: %w", err)
	}

	m.AIRequests, err = meter.Int64Counter(
		"resumescore.ai.requests",
		metric.WithDescription("Number of advisor requests"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create AI request metric: %w", err)
	}

	m.AIDuration, err = meter.Float64Histogram(
		"resumescore.ai.duration",
		metric.WithDescription("Time spent waiting for the advisor"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create AI duration metric: %w", err)
	}

	m.AITokenUsage, err = meter.Int64Histogram(
		"resumescore.ai.tokens",
		metric.WithDescription("Token usage for advisor requests (input, output, total)"),
		metric.WithUnit("tokens"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create AI token usage metric: %w", err)
	}

	return m, nil
}

// Metrics returns the instruments
func (om *Manager) Metrics() *Metrics {
	if om == nil || om.metrics == nil {
		return &Metrics{}
	}
	return om.metrics
}

// HTTPMiddleware returns HTTP middleware with OpenTelemetry instrumentation
func (om *Manager) HTTPMiddleware() func(http.Handler) http.Handler {
	if !om.config.Enabled {
		return func(h http.Handler) http.Handler { return h }
	}

	opts := []otelhttp.Option{otelhttp.WithTracerProvider(om.tracerProvider)}
	if om.meterProvider != nil {
		opts = append(opts, otelhttp.WithMeterProvider(om.meterProvider))
	}
	return otelhttp.NewMiddleware(om.config.ServiceName, opts...)
}

// Tracer returns a tracer for the service
func (om *Manager) Tracer(name string) oteltrace.Tracer {
	return om.tracerProvider.Tracer(name)
}

// Shutdown gracefully shuts down all observability components
func (om *Manager) Shutdown(ctx context.Context) error {
	for _, shutdown := range om.shutdownFuncs {
		if err := shutdown(ctx); err != nil {
			return err
		}
	}
	return nil
}

// RecordScoring records one scoring request. mode is empty when scoring failed before a mode was chosen.
func (m *Metrics) RecordScoring(ctx context.Context, mode string, score float64, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	attrs := metric.WithAttributes(
		attribute.String("mode", mode),
		attribute.String("status", status),
	)

	if m.ScoringOperations != nil {
		m.ScoringOperations.Add(ctx, 1, attrs)
	}
	if m.ScoringDuration != nil {
		m.ScoringDuration.Record(ctx, duration.Seconds(), attrs)
	}
	if err == nil && m.ScoreValue != nil {
		m.ScoreValue.Record(ctx, score, metric.WithAttributes(attribute.String("mode", mode)))
	}
}

// RecordModelReload records an artifact reload attempt
func (m *Metrics) RecordModelReload(ctx context.Context, success bool) {
	if m.ModelReloads != nil {
		m.ModelReloads.Add(ctx, 1, metric.WithAttributes(attribute.Bool("success", success)))
	}
}

// RecordBusinessEvent records business-specific events
func (m *Metrics) RecordBusinessEvent(ctx context.Context, event string, success bool, attributes ...attribute.KeyValue) {
	if m.BusinessEvents == nil {
		return
	}
	attrs := append([]attribute.KeyValue{
		attribute.String("event", event),
		attribute.Bool("success", success),
	}, attributes...)
	m.BusinessEvents.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// AIOperationResult holds the result of an AI operation including token usage
type AIOperationResult struct {
	Error      error
	TokenUsage *TokenUsage
}

// TokenUsage represents token usage information from AI responses
type TokenUsage struct {
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
}

// TrackAIOperation instruments an advisor call with a span, metrics and token usage
func (m *Metrics) TrackAIOperation(ctx context.Context, tracer oteltrace.Tracer, operation string, fn func(context.Context) *AIOperationResult) error {
	ctx, span := tracer.Start(ctx, "ai."+operation)
	defer span.End()

	start := time.Now()
	result := fn(ctx)
	duration := time.Since(start).Seconds()

	var err error
	if result != nil {
		err = result.Error
	}

	attrs := []attribute.KeyValue{
		attribute.String("operation", operation),
		attribute.Bool("success", err == nil),
	}
	span.SetAttributes(attrs...)

	if m.AIRequests != nil {
		m.AIRequests.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
	if m.AIDuration != nil {
		m.AIDuration.Record(ctx, duration, metric.WithAttributes(attrs...))
	}
	if result != nil && result.TokenUsage != nil {
		m.recordTokenUsage(ctx, operation, result.TokenUsage)
		span.SetAttributes(
			attribute.Int64("ai.tokens.input", result.TokenUsage.InputTokens),
			attribute.Int64("ai.tokens.output", result.TokenUsage.OutputTokens),
			attribute.Int64("ai.tokens.total", result.TokenUsage.TotalTokens),
		)
	}

	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.Bool("error", true))
	}
	return err
}

func (m *Metrics) recordTokenUsage(ctx context.Context, operation string, usage *TokenUsage) {
	if m.AITokenUsage == nil {
		return
	}
	for _, tt := range []struct {
		tokenType string
		value     int64
	}{
		{"input", usage.InputTokens},
		{"output", usage.OutputTokens},
		{"total", usage.TotalTokens},
	} {
		m.AITokenUsage.Record(ctx, tt.value, metric.WithAttributes(
			attribute.String("operation", operation),
			attribute.String("token_type", tt.tokenType),
		))
	}
}

// noOpSpanExporter drops spans when neither console nor OTLP output is configured
type noOpSpanExporter struct{}

func (noOpSpanExporter) ExportSpans(context.Context, []trace.ReadOnlySpan) error { return nil }

func (noOpSpanExporter) Shutdown(context.Context) error { return nil }

// createOTLPExporter creates an OTLP HTTP trace exporter
func (om *Manager) createOTLPExporter() (trace.SpanExporter, error) {
	otlpConfig := om.config.OTLP

	opts := []otlptracehttp.Option{
		otlptracehttp.WithEndpointURL(otlpConfig.Endpoint),
	}
	if otlpConfig.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	if len(otlpConfig.Headers) > 0 {
		opts = append(opts, otlptracehttp.WithHeaders(otlpConfig.Headers))
	}

	exporter, err := otlptracehttp.New(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP trace exporter: %w", err)
	}
	return exporter, nil
}

// createOTLPMetricsReader creates an OTLP HTTP metrics reader
func (om *Manager) createOTLPMetricsReader() (sdkmetric.Reader, error) {
	otlpConfig := om.config.OTLP

	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpointURL(otlpConfig.Endpoint),
	}
	if otlpConfig.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	if len(otlpConfig.Headers) > 0 {
		opts = append(opts, otlpmetrichttp.WithHeaders(otlpConfig.Headers))
	}

	exporter, err := otlpmetrichttp.New(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP metrics exporter: %w", err)
	}

	return sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(om.collectionInterval())), nil
}

func (om *Manager) collectionInterval() time.Duration {
	if om.config.CollectionInterval > 0 {
		return om.config.CollectionInterval
	}
	return 15 * time.Second
}
