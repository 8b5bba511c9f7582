package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
)

// Recorder is what the upstream clients and the store report into.
type Recorder interface {
	ObserveUpstream(source, outcome string, elapsed time.Duration)
	ObserveStoreLookup(hit bool)
}

type nopRecorder struct{}

func (nopRecorder) ObserveUpstream(string, string, time.Duration) {}
func (nopRecorder) ObserveStoreLookup(bool)                       {}

// Nop discards every observation.
var Nop Recorder = nopRecorder{}

// OrNop returns r, or Nop when r is nil.
func OrNop(r Recorder) Recorder {
	if r == nil {
		return Nop
	}
	return r
}

type Manager struct {
	registry         *prometheus.Registry
	upstreamTotal    *prometheus.CounterVec
	upstreamDuration *prometheus.HistogramVec
	storeLookups     *prometheus.CounterVec
}

func NewManager() *Manager {
	registry := prometheus.NewRegistry()

	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Manager{
		registry: registry,
		upstreamTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "anime",
			Subsystem: "upstream",
			Name:      "requests_total",
			Help:      "Total number of requests to external sources by outcome",
		}, []string{"source", "outcome"}),
		upstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "anime",
			Subsystem: "upstream",
			Name:      "request_duration_seconds",
			Help:      "Latency of requests to external sources",
			Buckets:   prometheus.DefBuckets,
		}, []string{"source"}),
		storeLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "anime",
			Subsystem: "store",
			Name:      "lookups_total",
			Help:      "Anime record lookups served locally (hit) or via the catalog (miss)",
		}, []string{"result"}),
	}

	registry.MustRegister(m.upstreamTotal, m.upstreamDuration, m.storeLookups)

	log.Info().Msg("Metrics manager initialized")
	return m
}

func (m *Manager) GetRegistry() *prometheus.Registry {
	return m.registry
}

func (m *Manager) ObserveUpstream(source, outcome string, elapsed time.Duration) {
	m.upstreamTotal.WithLabelValues(source, outcome).Inc()
	m.upstreamDuration.WithLabelValues(source).Observe(elapsed.Seconds())
}

func (m *Manager) ObserveStoreLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.storeLookups.WithLabelValues(result).Inc()
}
