package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Record(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.Send("reply", "ok")
	m.Send("reply", "ok")
	m.Send("reply", "failed")
	m.Inbound("matched")
	m.Enrichment("first_reply", "ok")
	m.FlushFailure()
	m.SetActiveThreads(3)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.sends.WithLabelValues("reply", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sends.WithLabelValues("reply", "failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.inbound.WithLabelValues("matched")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.flushFailures))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.activeThreads))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.Len(t, families, 5)
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Send("reply", "ok")
		m.Inbound("matched")
		m.Enrichment("on_demand", "ok")
		m.FlushFailure()
		m.SetActiveThreads(1)
	})
}
