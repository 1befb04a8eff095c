package observability

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.27.0"

	"github.com/yungbote/cookgpt-backend/internal/platform/envutil"
	"github.com/yungbote/cookgpt-backend/internal/platform/logger"
)

type OtelConfig struct {
	Enabled     bool
	ServiceName string
	Environment string
	Version     string
	// Endpoint is the OTLP/HTTP collector. Empty exports to stdout.
	Endpoint    string
	Headers     map[string]string
	Insecure    bool
	SampleRatio float64
}

// LoadOtelConfig reads OTEL_ENABLED, OTEL_SERVICE_NAME, OTEL_SAMPLER_RATIO
// and the OTEL_EXPORTER_OTLP_* variables.
func LoadOtelConfig(log *logger.Logger) OtelConfig {
	cfg := OtelConfig{
		Enabled:     envutil.Bool("OTEL_ENABLED", false, log),
		ServiceName: envutil.String("OTEL_SERVICE_NAME", "cookgpt", log),
		Environment: envutil.String("APP_ENV", "development", log),
		Version:     envutil.String("APP_VERSION", "", log),
		Endpoint:    envutil.String("OTEL_EXPORTER_OTLP_ENDPOINT", "", log),
		Headers:     parseHeaders(envutil.String("OTEL_EXPORTER_OTLP_HEADERS", "", log)),
		Insecure:    envutil.Bool("OTEL_EXPORTER_OTLP_INSECURE", false, log),
		SampleRatio: envutil.Float("OTEL_SAMPLER_RATIO", 0.1, log),
	}
	cfg.SampleRatio = min(max(cfg.SampleRatio, 0), 1)
	return cfg
}

// parseHeaders reads "k1=v1,k2=v2".
func parseHeaders(raw string) map[string]string {
	headers := map[string]string{}
	for _, part := range strings.Split(raw, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		k, v = strings.TrimSpace(k), strings.TrimSpace(v)
		if !ok || k == "" || v == "" {
			continue
		}
		headers[k] = v
	}
	if len(headers) == 0 {
		return nil
	}
	return headers
}

// InitOTel installs the global tracer provider and propagators. The
// returned func flushes and stops the provider; it is a no-op when tracing
// is disabled.
func InitOTel(ctx context.Context, log *logger.Logger, cfg OtelConfig) func(context.Context) error {
	noop := func(context.Context) error { return nil }
	if !cfg.Enabled {
		return noop
	}
	res, err := resource.New(ctx, resource.WithAttributes(
		semconv.ServiceNameKey.String(cfg.ServiceName),
		semconv.ServiceVersionKey.String(cfg.Version),
		attribute.String("deployment.environment", cfg.Environment),
	))
	if err != nil {
		log.Warn("otel resource init failed (continuing)", "error", err)
	}

	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRatio))),
		sdktrace.WithResource(res),
	}
	exporter, err := buildTraceExporter(ctx, log, cfg)
	if err != nil {
		log.Warn("otel exporter init failed (continuing)", "error", err)
	} else {
		opts = append(opts, sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(5*time.Second)))
	}
	tp := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	log.Info("otel tracing initialized", "service", cfg.ServiceName, "endpoint", cfg.Endpoint, "sample_ratio", cfg.SampleRatio)
	return tp.Shutdown
}

func buildTraceExporter(ctx context.Context, log *logger.Logger, cfg OtelConfig) (sdktrace.SpanExporter, error) {
	if cfg.Endpoint == "" {
		log.Warn("otel using stdout exporter (no OTLP endpoint configured)")
		return stdouttrace.New(stdouttrace.WithPrettyPrint())
	}
	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	if cfg.Headers != nil {
		opts = append(opts, otlptracehttp.WithHeaders(cfg.Headers))
	}
	return otlptracehttp.New(ctx, opts...)
}
