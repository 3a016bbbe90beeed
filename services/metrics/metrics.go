// Package metrics exposes dispatch metrics to Prometheus.
//
//	dispatch_offers_total{outcome}        offers by final state
//	dispatch_matches_total{outcome}       requestMatch outcomes
//	dispatch_transitions_total{to}        successful booking transitions
//	dispatch_conflicts_total              failed compare-and-set attempts
//	dispatch_manual_interventions_total   bookings that exhausted their retries
//	dispatch_duration_seconds             time from confirmed to the end of the offer loop
//	dispatch_active                       offer loops currently running
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector holds the dispatch metrics. A nil *Collector is valid and
// records nothing.
type Collector struct {
	offers              *prometheus.CounterVec
	matches             *prometheus.CounterVec
	transitions         *prometheus.CounterVec
	conflicts           prometheus.Counter
	manualInterventions prometheus.Counter
	dispatchDuration    prometheus.Histogram
	active              prometheus.Gauge
}

// NewCollector creates the metrics and registers them on reg. A nil reg
// means prometheus.DefaultRegisterer.
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	c := &Collector{
		offers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dispatch_offers_total",
			Help: "Offers made to providers, by final state",
		}, []string{"outcome"}),
		matches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dispatch_matches_total",
			Help: "Match runs, by outcome",
		}, []string{"outcome"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dispatch_transitions_total",
			Help: "Successful booking status transitions, by target status",
		}, []string{"to"}),
		conflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dispatch_conflicts_total",
			Help: "Compare-and-set attempts that lost to a concurrent writer",
		}),
		manualInterventions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dispatch_manual_interventions_total",
			Help: "Bookings parked after exhausting automatic retries",
		}),
		dispatchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "dispatch_duration_seconds",
			Help:    "Duration of a booking's offer loop",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}),
		active: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dispatch_active",
			Help: "Offer loops currently running",
		}),
	}
	reg.MustRegister(c.offers, c.matches, c.transitions, c.conflicts, c.manualInterventions, c.dispatchDuration, c.active)
	return c
}

func (c *Collector) RecordOffer(outcome string) {
	if c == nil {
		return
	}
	c.offers.WithLabelValues(outcome).Inc()
}

func (c *Collector) RecordMatch(outcome string) {
	if c == nil {
		return
	}
	c.matches.WithLabelValues(outcome).Inc()
}

func (c *Collector) RecordTransition(to string) {
	if c == nil {
		return
	}
	c.transitions.WithLabelValues(to).Inc()
}

func (c *Collector) RecordConflict() {
	if c == nil {
		return
	}
	c.conflicts.Inc()
}

func (c *Collector) RecordManualIntervention() {
	if c == nil {
		return
	}
	c.manualInterventions.Inc()
}

// DispatchStarted marks one more running offer loop and returns the func
// that records its end.
func (c *Collector) DispatchStarted() func(d time.Duration) {
	if c == nil {
		return func(time.Duration) {}
	}
	c.active.Inc()
	return func(d time.Duration) {
		c.active.Dec()
		c.dispatchDuration.Observe(d.Seconds())
	}
}
