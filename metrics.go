package bloodliner

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exports engine activity. Register Observe with Engine.Subscribe.
type Metrics struct {
	changes   *prometheus.CounterVec
	finalized prometheus.Counter
	prs       prometheus.Counter
	ghost     prometheus.Gauge
	streak    prometheus.Gauge
	level     prometheus.Gauge
	total     *prometheus.GaugeVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		changes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bloodliner",
			Name:      "changes_total",
			Help:      "Persisted season changes by kind.",
		}, []string{"kind"}),
		finalized: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bloodliner",
			Name:      "days_finalized_total",
			Help:      "Days finalized.",
		}),
		prs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bloodliner",
			Name:      "personal_records_total",
			Help:      "Days finalized as a personal record.",
		}),
		ghost: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "bloodliner",
			Name:      "ghost_distance",
			Help:      "Current ghost distance.",
		}),
		streak: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "bloodliner",
			Name:      "streak",
			Help:      "Consecutive finalized days.",
		}),
		level: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "bloodliner",
			Name:      "level",
			Help:      "Current level.",
		}),
		total: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "bloodliner",
			Name:      "day_total_score",
			Help:      "Total score of the most recently changed day.",
		}, []string{"status"}),
	}
	reg.MustRegister(m.changes, m.finalized, m.prs, m.ghost, m.streak, m.level, m.total)
	return m
}

// Observe records a change.
func (m *Metrics) Observe(c Change) {
	m.changes.WithLabelValues(string(c.Kind)).Inc()
	if c.Season == nil {
		return
	}
	m.ghost.Set(c.Season.Ghost)
	m.streak.Set(float64(c.Season.Streak))
	m.level.Set(float64(c.Season.Level))
	if d := c.Season.Day(c.Day); d != nil {
		m.total.WithLabelValues(string(d.Status)).Set(d.Scores.Total)
		if c.Kind == ChangeFinalize {
			m.finalized.Inc()
			if d.PR {
				m.prs.Inc()
			}
		}
	}
}
