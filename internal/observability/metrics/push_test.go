package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang/snappy"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/prometheus/prompb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testRegistry(t *testing.T) *prometheus.Registry {
	t.Helper()
	reg := prometheus.NewRegistry()
	logins := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gymcore_test_logins_total",
		Help: "test",
	}, []string{"outcome"})
	latency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name: "gymcore_test_latency_seconds",
		Help: "test",
	})
	require.NoError(t, reg.Register(logins))
	require.NoError(t, reg.Register(latency))
	logins.WithLabelValues("ok").Add(3)
	latency.Observe(0.2)
	return reg
}

func TestNewPusherDisabled(t *testing.T) {
	log := zap.NewNop()
	assert.Nil(t, NewPusher(PushConfig{}, log))
	assert.Nil(t, NewPusher(PushConfig{Exporter: ExporterRemoteWrite}, log))
	assert.Nil(t, NewPusher(PushConfig{Exporter: ExporterRemoteWrite, Endpoint: "not a url"}, log))
	assert.Nil(t, NewPusher(PushConfig{Exporter: "statsd", Endpoint: "http://localhost:9125"}, log))

	assert.IsType(t, &RemoteWritePusher{}, NewPusher(PushConfig{Exporter: " Prometheus_Remote_Write ", Endpoint: "http://localhost:9090/api/v1/write"}, nil))
	assert.IsType(t, &PushgatewayPusher{}, NewPusher(PushConfig{Exporter: ExporterPushgateway, Endpoint: "http://localhost:9091", Job: "gymcore"}, nil))
}

func TestBuildRemoteWriteSeriesSkipsHistograms(t *testing.T) {
	families, err := testRegistry(t).Gather()
	require.NoError(t, err)

	series := buildRemoteWriteSeries(families, 1000)
	require.Len(t, series, 1)
	assert.Equal(t, []prompb.Label{
		{Name: "__name__", Value: "gymcore_test_logins_total"},
		{Name: "outcome", Value: "ok"},
	}, series[0].Labels)
	assert.Equal(t, []prompb.Sample{{Value: 3, Timestamp: 1000}}, series[0].Samples)
}

func TestRemoteWritePusherSendsSnappyProtobuf(t *testing.T) {
	var received prompb.WriteRequest
	var headers http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers = r.Header.Clone()
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		raw, err := snappy.Decode(nil, body)
		require.NoError(t, err)
		require.NoError(t, received.Unmarshal(raw))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	pusher := NewRemoteWritePusher(srv.URL, "secret")
	pusher.now = func() time.Time { return time.UnixMilli(42) }
	require.NoError(t, pusher.Push(context.Background(), testRegistry(t)))

	assert.Equal(t, "snappy", headers.Get("Content-Encoding"))
	assert.Equal(t, "Bearer secret", headers.Get("Authorization"))
	require.Len(t, received.Timeseries, 1)
	assert.Equal(t, int64(42), received.Timeseries[0].Samples[0].Timestamp)
}

func TestRemoteWritePusherReportsRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	err := NewRemoteWritePusher(srv.URL, "").Push(context.Background(), testRegistry(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
}

func TestPushgatewayPusherUsesJobAndGrouping(t *testing.T) {
	var method, path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		path = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	pusher := NewPushgatewayPusher(srv.URL, "gymcore", map[string]string{"instance": "node-a", "": "ignored"})
	require.NoError(t, pusher.Push(context.Background(), testRegistry(t)))

	assert.Equal(t, http.MethodPut, method)
	assert.Equal(t, "/metrics/job/gymcore/instance/node-a", path)
}

func TestPushgatewayPusherRequiresJob(t *testing.T) {
	err := NewPushgatewayPusher("http://localhost:9091", " ", nil).Push(context.Background(), prometheus.NewRegistry())
	assert.EqualError(t, err, "pushgateway job is required")
}
