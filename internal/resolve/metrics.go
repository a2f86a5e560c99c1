package resolve

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts resolution outcomes per resolver and status.
type Metrics struct {
	resolved   *prometheus.CounterVec
	unresolved prometheus.Counter
	panics     prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		resolved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "faultdesk",
			Name:      "resolutions_total",
			Help:      "Failures resolved, by resolver and response status.",
		}, []string{"resolver", "status"}),
		unresolved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "faultdesk",
			Name:      "unresolved_total",
			Help:      "Failures no resolver claimed, rendered by the fallback.",
		}),
		panics: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "faultdesk",
			Name:      "handler_panics_total",
			Help:      "Panics recovered from request handlers.",
		}),
	}

	reg.MustRegister(m.resolved, m.unresolved, m.panics)
	return m
}

func (m *Metrics) Resolved(resolver string, status int) {
	m.resolved.WithLabelValues(resolver, strconv.Itoa(status)).Inc()
}

func (m *Metrics) Unresolved() {
	m.unresolved.Inc()
}

func (m *Metrics) PanicRecovered() {
	m.panics.Inc()
}
