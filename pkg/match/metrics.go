package match

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Resolution outcome labels.
const (
	outcomeEmpty     = "empty"     // empty query string
	outcomeReference = "reference" // literal #N hit
	outcomeExact     = "exact"     // first pass matched
	outcomeRetry     = "retry"     // second pass matched
	outcomeNone      = "none"      // nothing matched
)

// Metrics holds Prometheus metric descriptors for the search pipeline.
// All methods are nil-safe so a Resolver without metrics pays nothing.
type Metrics struct {
	gatherer prometheus.Gatherer

	resolutions     *prometheus.CounterVec
	directivesTotal prometheus.Counter
	ordinalPicked   prometheus.Counter
	ordinalOverflow prometheus.Counter
	objectsTotal    prometheus.Gauge
}

// NewMetrics creates and registers the search metrics. A nil registry
// uses the process-wide default one.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "objsearch_resolutions_total",
			Help: "Resolutions by outcome.",
		}, []string{"outcome"}),
		directivesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "objsearch_multimatch_directives_total",
			Help: "Queries that carried a multimatch directive.",
		}),
		ordinalPicked: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "objsearch_ordinal_selected_total",
			Help: "Multimatch sets narrowed to one object by ordinal.",
		}),
		ordinalOverflow: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "objsearch_ordinal_overflow_total",
			Help: "Ordinals past the end of the match set.",
		}),
		objectsTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "objsearch_objects_total",
			Help: "Objects in the backing store.",
		}),
	}

	collectors := []prometheus.Collector{
		m.resolutions,
		m.directivesTotal,
		m.ordinalPicked,
		m.ordinalOverflow,
		m.objectsTotal,
	}
	if reg == nil {
		prometheus.MustRegister(collectors...)
		m.gatherer = prometheus.DefaultGatherer
	} else {
		reg.MustRegister(collectors...)
		m.gatherer = reg
	}
	return m
}

// Update refreshes gauge metrics from the store. Stores that expose a
// Len method report their object count; others are left alone.
func (m *Metrics) Update(store Storage) {
	if m == nil {
		return
	}
	if s, ok := store.(interface{ Len() int }); ok {
		m.objectsTotal.Set(float64(s.Len()))
	}
}

// Handler returns an http.Handler that updates metrics before serving
// them.
func (m *Metrics) Handler(store Storage) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.Update(store)
		promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{}).ServeHTTP(w, r)
	})
}

func (m *Metrics) observe(outcome string) {
	if m == nil {
		return
	}
	m.resolutions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) countDirective() {
	if m == nil {
		return
	}
	m.directivesTotal.Inc()
}

func (m *Metrics) countOrdinalPick() {
	if m == nil {
		return
	}
	m.ordinalPicked.Inc()
}

func (m *Metrics) countOrdinalOverflow() {
	if m == nil {
		return
	}
	m.ordinalOverflow.Inc()
}
