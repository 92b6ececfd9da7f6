package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
)

func TestFilterAttributesDropsForbiddenLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("resource", "orders"),
		attribute.String("user_id", "456"),
		attribute.String("decision", "deny"),
	)
	require.Len(t, attrs, 2)
	keys := []attribute.Key{attrs[0].Key, attrs[1].Key}
	assert.Contains(t, keys, attribute.Key("resource"))
	assert.Contains(t, keys, attribute.Key("decision"))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	ctx := context.Background()
	m.RecordAuthorization(ctx, "orders", "read", true)
	m.RecordOrderEvent(ctx, "created")
	m.RecordMatchEvent(ctx, "ended")
	m.RecordLoginAttempt(ctx, "success")
	m.RecordRateLimitDenied(ctx, "login", "throttled")
	m.RecordJobRun(ctx, "purge_sessions", "ok", time.Second)
}

func TestNewWithNoopProvider(t *testing.T) {
	m, err := New(Config{ServiceName: "test"}, noop.NewMeterProvider())
	require.NoError(t, err)
	m.RecordAuthorization(context.Background(), "orders", "read", false)
}
