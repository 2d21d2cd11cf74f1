package replay

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts resolutions and fixture failures. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	Resolutions     *prometheus.CounterVec
	LoadFailures    *prometheus.CounterVec
	PersistFailures prometheus.Counter
	Persisted       prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg, which may
// be nil to skip registration.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "replay_resolutions_total",
			Help: "Requests resolved, by source (handler, fixture-load, fixture-record, network, none)",
		}, []string{"source"}),
		LoadFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "replay_fixture_load_failures_total",
			Help: "Fixtures found on disk that could not be loaded, by reason",
		}, []string{"reason"}),
		PersistFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "replay_fixture_persist_failures_total",
			Help: "Network responses that could not be recorded",
		}),
		Persisted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "replay_fixtures_persisted_total",
			Help: "Network responses recorded as fixtures",
		}),
	}
	if reg == nil {
		return m, nil
	}
	for _, c := range []prometheus.Collector{m.Resolutions, m.LoadFailures, m.PersistFailures, m.Persisted} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) resolved(source Source) {
	if m != nil {
		m.Resolutions.WithLabelValues(string(source)).Inc()
	}
}

func (m *Metrics) loadFailed(reason string) {
	if m != nil {
		m.LoadFailures.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) persisted(err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.PersistFailures.Inc()
		return
	}
	m.Persisted.Inc()
}
