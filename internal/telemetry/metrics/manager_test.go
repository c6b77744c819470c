package metrics_test

import (
	"testing"

	"github.com/2beens/fitlog/internal/telemetry/metrics"

	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewManager_Registers(t *testing.T) {
	m, reg := metrics.NewTestManagerAndRegistry()

	m.CounterPersistenceRequests.WithLabelValues("sessions", "List", "200").Inc()
	m.CounterPersistenceRequests.WithLabelValues("sessions", "List", "200").Inc()
	m.CounterAuthEvents.WithLabelValues("signin", "ok").Inc()
	m.GaugeLifeSignal.Set(1)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.CounterPersistenceRequests.WithLabelValues("sessions", "List", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.GaugeLifeSignal))

	families, err := reg.Gather()
	require.NoError(t, err)

	byName := map[string]*dto.MetricFamily{}
	for _, f := range families {
		byName[f.GetName()] = f
	}
	require.Contains(t, byName, "backend_test_server_persistence_requests")
	require.Contains(t, byName, "backend_test_server_auth_events")
	assert.Equal(t, dto.MetricType_COUNTER, byName["backend_test_server_auth_events"].GetType())
}

func TestSetupPrometheus(t *testing.T) {
	reg := metrics.SetupPrometheus(nil)
	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}
