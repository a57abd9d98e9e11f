// Package promhook exports cache hook events as Prometheus counters.
package promhook

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/unkn0wn-root/refcache"
)

// Hooks counts events. Register it with a prometheus.Registerer; it
// implements prometheus.Collector.
type Hooks struct {
	readFailed    *prometheus.CounterVec
	writeFailed   *prometheus.CounterVec
	writeRejected *prometheus.CounterVec
	malformed     *prometheus.CounterVec
	resolved      *prometheus.CounterVec
	refErrors     prometheus.Counter
}

var (
	_ refcache.Hooks       = (*Hooks)(nil)
	_ prometheus.Collector = (*Hooks)(nil)
)

// New builds the counters under namespace (e.g. "myapp") with subsystem
// "refcache". constLabels are attached to every series.
func New(namespace string, constLabels prometheus.Labels) *Hooks {
	opts := func(name, help string) prometheus.CounterOpts {
		return prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "refcache",
			Name:        name,
			Help:        help,
			ConstLabels: constLabels,
		}
	}
	return &Hooks{
		readFailed:    prometheus.NewCounterVec(opts("read_failures_total", "Store reads that failed and were served as misses."), []string{"op"}),
		writeFailed:   prometheus.NewCounterVec(opts("write_failures_total", "Store writes that failed with an error."), []string{"op"}),
		writeRejected: prometheus.NewCounterVec(opts("write_rejections_total", "Store writes refused without an error."), []string{"op"}),
		malformed:     prometheus.NewCounterVec(opts("malformed_total", "Stored entries that could not be decoded."), []string{"reason"}),
		resolved:      prometheus.NewCounterVec(opts("group_lookups_total", "Grouped lookups by resolved state."), []string{"state"}),
		refErrors:     prometheus.NewCounter(opts("ref_errors_total", "Reference token generation failures.")),
	}
}

// MustRegister registers h with r and returns h.
func (h *Hooks) MustRegister(r prometheus.Registerer) *Hooks {
	r.MustRegister(h)
	return h
}

func (h *Hooks) Describe(ch chan<- *prometheus.Desc) {
	h.readFailed.Describe(ch)
	h.writeFailed.Describe(ch)
	h.writeRejected.Describe(ch)
	h.malformed.Describe(ch)
	h.resolved.Describe(ch)
	h.refErrors.Describe(ch)
}

func (h *Hooks) Collect(ch chan<- prometheus.Metric) {
	h.readFailed.Collect(ch)
	h.writeFailed.Collect(ch)
	h.writeRejected.Collect(ch)
	h.malformed.Collect(ch)
	h.resolved.Collect(ch)
	h.refErrors.Collect(ch)
}

func (h *Hooks) ReadFailed(op string, _ int, _ error) { h.readFailed.WithLabelValues(op).Inc() }
func (h *Hooks) WriteFailed(op string, _ int, _ error) {
	h.writeFailed.WithLabelValues(op).Inc()
}
func (h *Hooks) WriteRejected(op string, _ int) { h.writeRejected.WithLabelValues(op).Inc() }

// Malformed drops the key; it would blow up label cardinality.
func (h *Hooks) Malformed(_ string, reason string) { h.malformed.WithLabelValues(reason).Inc() }

func (h *Hooks) GroupResolved(_ string, s refcache.State) {
	h.resolved.WithLabelValues(s.String()).Inc()
}
func (h *Hooks) RefError(string, error) { h.refErrors.Inc() }
