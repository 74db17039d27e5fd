package pipeline

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the conversion counters and timings.
type Metrics struct {
	conversions    *prometheus.CounterVec
	renderDuration prometheus.Histogram
	slides         prometheus.Histogram
}

// NewMetrics creates the pipeline collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		conversions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "deckstamp_conversions_total",
				Help: "Conversions processed, by outcome.",
			},
			[]string{"outcome"},
		),
		renderDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "deckstamp_render_duration_seconds",
			Help:    "Time spent in the PDF conversion engine.",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		}),
		slides: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "deckstamp_deck_slides",
			Help:    "Slides per successfully annotated deck.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 9),
		}),
	}
	for _, c := range []prometheus.Collector{m.conversions, m.renderDuration, m.slides} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) observeOutcome(err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = strings.ToLower(string(KindOf(err)))
	}
	m.conversions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) observeRender(d time.Duration) {
	if m == nil {
		return
	}
	m.renderDuration.Observe(d.Seconds())
}

func (m *Metrics) observeSlides(n int) {
	if m == nil {
		return
	}
	m.slides.Observe(float64(n))
}
