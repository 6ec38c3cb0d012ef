package scheduler

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the prometheus collectors of the scheduler. A nil *Metrics records nothing.
type Metrics struct {
	plans        *prometheus.CounterVec
	fallbacks    *prometheus.CounterVec
	staleSkips   *prometheus.CounterVec
	outcomes     *prometheus.CounterVec
	publishFails *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with `reg`.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		plans: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "planner",
			Name:      "plans_total",
			Help:      "Trajectories published, by robot and the planner that produced them.",
		}, []string{"robot", "planner"}),
		fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "planner",
			Name:      "fallbacks_total",
			Help:      "Planning attempts that fell back to the safe planner, by robot and reason.",
		}, []string{"robot", "reason"}),
		staleSkips: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "planner",
			Name:      "stale_skips_total",
			Help:      "Cycles skipped because the robot was not visible or perception was stale.",
		}, []string{"robot"}),
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "planner",
			Name:      "goal_outcomes_total",
			Help:      "Finished goals, by robot and outcome.",
		}, []string{"robot", "outcome"}),
		publishFails: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "planner",
			Name:      "publish_failures_total",
			Help:      "Trajectories or setpoints that could not be published.",
		}, []string{"robot", "kind"}),
	}
	if reg != nil {
		reg.MustRegister(m.plans, m.fallbacks, m.staleSkips, m.outcomes, m.publishFails)
	}
	return m
}

func robotLabel(robotID int) string {
	return strconv.Itoa(robotID)
}

func (m *Metrics) planned(robotID int, planner string) {
	if m == nil {
		return
	}
	m.plans.WithLabelValues(robotLabel(robotID), planner).Inc()
}

func (m *Metrics) fellBack(robotID int, reason string) {
	if m == nil {
		return
	}
	m.fallbacks.WithLabelValues(robotLabel(robotID), reason).Inc()
}

func (m *Metrics) skippedStale(robotID int) {
	if m == nil {
		return
	}
	m.staleSkips.WithLabelValues(robotLabel(robotID)).Inc()
}

func (m *Metrics) finished(robotID int, outcome Outcome) {
	if m == nil {
		return
	}
	m.outcomes.WithLabelValues(robotLabel(robotID), outcome.String()).Inc()
}

func (m *Metrics) publishFailed(robotID int, kind string) {
	if m == nil {
		return
	}
	m.publishFails.WithLabelValues(robotLabel(robotID), kind).Inc()
}
