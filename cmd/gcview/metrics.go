package main

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/leftmike/toolpath/viewer"
)

type metrics struct {
	passes       prometheus.Counter
	segments     *prometheus.CounterVec
	hidden       prometheus.Counter
	dropped      prometheus.Counter
	passDuration prometheus.Histogram
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		passes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gcview_passes_total",
			Help: "Number of interpretation passes",
		}),
		segments: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gcview_segments_total",
				Help: "Number of segments produced, by color",
			},
			[]string{"color"},
		),
		hidden: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gcview_hidden_segments_total",
			Help: "Number of segments produced but not drawn",
		}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gcview_dropped_arcs_total",
			Help: "Number of arcs which could not be resolved",
		}),
		passDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "gcview_pass_duration_seconds",
			Help:    "Time to interpret and draw a pass",
			Buckets: prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(m.passes, m.segments, m.hidden, m.dropped, m.passDuration)
	return m
}

func (m *metrics) observe(res viewer.Result, d time.Duration) {
	m.passes.Inc()
	for _, seg := range res.Segments {
		m.segments.WithLabelValues(seg.Tag().String()).Inc()
	}
	m.hidden.Add(float64(res.Stats.Hidden))
	m.dropped.Add(float64(res.Stats.Dropped))
	m.passDuration.Observe(d.Seconds())
}
