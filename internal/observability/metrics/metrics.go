package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes application-level instruments.
type Metrics struct {
	authzDecisions  metric.Int64Counter
	orderEvents     metric.Int64Counter
	matchEvents     metric.Int64Counter
	loginAttempts   metric.Int64Counter
	rateLimitDenied metric.Int64Counter
	jobRuns         metric.Int64Counter
	jobDuration     metric.Float64Histogram
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "gymcore"
	}
	meter := provider.Meter(name)

	authzDecisions, err := meter.Int64Counter("gymcore_authorization_decisions_total")
	if err != nil {
		return nil, err
	}
	orderEvents, err := meter.Int64Counter("gymcore_order_events_total")
	if err != nil {
		return nil, err
	}
	matchEvents, err := meter.Int64Counter("gymcore_trainer_match_events_total")
	if err != nil {
		return nil, err
	}
	loginAttempts, err := meter.Int64Counter("gymcore_login_attempts_total")
	if err != nil {
		return nil, err
	}
	rateLimitDenied, err := meter.Int64Counter("gymcore_rate_limit_denied_total")
	if err != nil {
		return nil, err
	}

	jobRuns, err := meter.Int64Counter("gymcore_scheduler_job_runs_total")
	if err != nil {
		return nil, err
	}
	jobDuration, err := meter.Float64Histogram("gymcore_scheduler_job_duration_seconds")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		authzDecisions:  authzDecisions,
		orderEvents:     orderEvents,
		matchEvents:     matchEvents,
		loginAttempts:   loginAttempts,
		rateLimitDenied: rateLimitDenied,
		jobRuns:         jobRuns,
		jobDuration:     jobDuration,
	}, nil
}

// RecordAuthorization counts an allow or deny decision.
func (m *Metrics) RecordAuthorization(ctx context.Context, resource, action string, allowed bool) {
	if m == nil {
		return
	}
	decision := "deny"
	if allowed {
		decision = "allow"
	}
	attrs := FilterAttributes(
		attribute.String("resource", resource),
		attribute.String("action", action),
		attribute.String("decision", decision),
	)
	m.authzDecisions.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordOrderEvent counts order creations and status transitions.
func (m *Metrics) RecordOrderEvent(ctx context.Context, eventType string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("event_type", strings.TrimSpace(eventType)))
	m.orderEvents.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordMatchEvent counts trainer match lifecycle events.
func (m *Metrics) RecordMatchEvent(ctx context.Context, eventType string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("event_type", strings.TrimSpace(eventType)))
	m.matchEvents.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordLoginAttempt counts logins by outcome.
func (m *Metrics) RecordLoginAttempt(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("reason", strings.TrimSpace(reason)))
	m.loginAttempts.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordRateLimitDenied increments rate limit deny counts.
func (m *Metrics) RecordRateLimitDenied(ctx context.Context, endpoint, reason string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("endpoint", strings.TrimSpace(endpoint)),
		attribute.String("reason", strings.TrimSpace(reason)),
	)
	m.rateLimitDenied.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordJobRun counts a maintenance job run by outcome and observes how long
// it took.
func (m *Metrics) RecordJobRun(ctx context.Context, job, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	jobAttr := attribute.String("job", strings.TrimSpace(job))
	attrs := FilterAttributes(jobAttr, attribute.String("outcome", strings.TrimSpace(outcome)))
	m.jobRuns.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.jobDuration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(FilterAttributes(jobAttr)...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"resource":    {},
	"action":      {},
	"decision":    {},
	"event_type":  {},
	"endpoint":    {},
	"status_code": {},
	"reason":      {},
	"job":         {},
	"outcome":     {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
