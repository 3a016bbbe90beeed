package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCollector_Registers(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	require.NotNil(t, c)

	c.RecordMatch("assigned")
	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)

	// Registering twice on the same registry panics.
	assert.Panics(t, func() { NewCollector(reg) })
}

func TestCollector_Counters(t *testing.T) {
	c := NewCollector(prometheus.NewRegistry())

	c.RecordOffer("expired")
	c.RecordOffer("expired")
	c.RecordOffer("accepted")
	c.RecordTransition("assigned")
	c.RecordConflict()
	c.RecordManualIntervention()

	assert.Equal(t, 2.0, testutil.ToFloat64(c.offers.WithLabelValues("expired")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.offers.WithLabelValues("accepted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.transitions.WithLabelValues("assigned")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.conflicts))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.manualInterventions))
}

func TestCollector_DispatchGauge(t *testing.T) {
	c := NewCollector(prometheus.NewRegistry())

	doneA := c.DispatchStarted()
	doneB := c.DispatchStarted()
	assert.Equal(t, 2.0, testutil.ToFloat64(c.active))

	doneA(3 * time.Second)
	doneB(40 * time.Second)
	assert.Equal(t, 0.0, testutil.ToFloat64(c.active))
	assert.Equal(t, 1, testutil.CollectAndCount(c.dispatchDuration))
}

func TestCollector_NilSafe(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.RecordOffer("declined")
		c.RecordMatch("no_coverage")
		c.RecordTransition("pending")
		c.RecordConflict()
		c.RecordManualIntervention()
		c.DispatchStarted()(time.Second)
	})
}
