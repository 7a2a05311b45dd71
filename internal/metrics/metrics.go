package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/danielpatrickdp/trackreward/go-controller/internal/reward"
)

// Outcome labels for trackreward_evaluations_total.
const (
	OutcomeOnTrack     = "on_track"
	OutcomeOffTrack    = "off_track"
	OutcomeLapComplete = "lap_complete"
)

// Collector holds the reward service metrics.
type Collector struct {
	evaluations *prometheus.CounterVec
	rewards     prometheus.Histogram
	duration    prometheus.Histogram
	decodeErrs  prometheus.Counter
}

// NewCollector registers the collectors on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	f := promauto.With(reg)
	return &Collector{
		evaluations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "trackreward_evaluations_total",
			Help: "Total reward evaluations by outcome",
		}, []string{"outcome"}),
		rewards: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "trackreward_reward",
			Help:    "Distribution of returned rewards",
			Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 110},
		}),
		duration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "trackreward_evaluation_duration_seconds",
			Help:    "Reward evaluation duration",
			Buckets: []float64{0.000001, 0.00001, 0.0001, 0.001, 0.01},
		}),
		decodeErrs: f.NewCounter(prometheus.CounterOpts{
			Name: "trackreward_decode_errors_total",
			Help: "Requests rejected because the parameters could not be decoded",
		}),
	}
}

// Observe records one evaluation.
func (c *Collector) Observe(s reward.Snapshot, r float64, d time.Duration) {
	c.evaluations.WithLabelValues(Outcome(s)).Inc()
	c.rewards.Observe(r)
	c.duration.Observe(d.Seconds())
}

// DecodeError records a rejected request.
func (c *Collector) DecodeError() {
	c.decodeErrs.Inc()
}

// Outcome classifies a snapshot for the evaluations counter.
// Off track wins over lap completion, matching the reward override.
func Outcome(s reward.Snapshot) string {
	switch {
	case !s.AllWheelsOnTrack:
		return OutcomeOffTrack
	case s.LapComplete():
		return OutcomeLapComplete
	default:
		return OutcomeOnTrack
	}
}
