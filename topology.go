package hashring

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Topology publishes ring snapshots for concurrent readers.
//
// Readers call Current and keep using the returned ring for as long as they like.
// Writers never touch a published ring: each change clones the current snapshot,
// mutates the clone and swaps it in. Writers are serialised.
type Topology[N Node] struct {
	mu      sync.Mutex
	current atomic.Pointer[Ring[N]]
	options options
	metrics *topologyMetrics
}

// topologyMetrics are registered only when a registerer is configured.
type topologyMetrics struct {
	nodes   prometheus.Gauge
	vnodes  prometheus.Gauge
	changes *prometheus.CounterVec
}

func newTopologyMetrics(o options) *topologyMetrics {
	if o.registerer == nil {
		return nil
	}

	var factory = promauto.With(o.registerer)
	return &topologyMetrics{
		nodes: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: o.namespace,
			Subsystem: "topology",
			Name:      "nodes",
			Help:      "Number of physical nodes in the current ring snapshot.",
		}),
		vnodes: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: o.namespace,
			Subsystem: "topology",
			Name:      "vnodes",
			Help:      "Number of virtual positions in the current ring snapshot.",
		}),
		changes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: o.namespace,
			Subsystem: "topology",
			Name:      "changes_total",
			Help:      "Membership changes applied to the topology, by operation and result.",
		}, []string{"op", "result"}),
	}
}

// NewTopology publishes a clone of initial as the first snapshot.
// A nil initial is not allowed.
func NewTopology[N Node](initial *Ring[N], opts ...Option) *Topology[N] {
	var options = initial.options
	for _, opt := range opts {
		opt(&options)
	}

	var t = &Topology[N]{
		options: options,
		metrics: newTopologyMetrics(options),
	}

	var snapshot = initial.Clone()
	t.current.Store(snapshot)
	t.observe(snapshot)

	return t
}

// Current returns the published snapshot. Callers must treat it as read-only.
func (t *Topology[N]) Current() *Ring[N] {
	return t.current.Load()
}

// Update applies fn to a clone of the current snapshot and publishes the clone if fn
// succeeds. It returns the snapshot that was current before the call, which is the
// reference ring for FindSources.
func (t *Topology[N]) Update(fn func(next *Ring[N]) error) (*Ring[N], error) {
	return t.update("update", fn, false)
}

// Add publishes a snapshot with node added.
func (t *Topology[N]) Add(node N) (*Ring[N], error) {
	return t.update("add", func(next *Ring[N]) error {
		return next.Add(node)
	}, false)
}

// Remove publishes a snapshot with node removed.
func (t *Topology[N]) Remove(node N) (*Ring[N], error) {
	return t.update("remove", func(next *Ring[N]) error {
		return next.Remove(node)
	}, false)
}

// BatchAdd publishes a snapshot with every addable node of the batch added. Like
// Ring.BatchAdd it is best-effort: the snapshot is published even when some nodes fail.
func (t *Topology[N]) BatchAdd(nodes ...N) (*Ring[N], error) {
	return t.update("batch_add", func(next *Ring[N]) error {
		return next.BatchAdd(nodes...)
	}, true)
}

func (t *Topology[N]) update(op string, fn func(*Ring[N]) error, publishOnError bool) (*Ring[N], error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var (
		previous = t.current.Load()
		next     = previous.Clone()
		err      = fn(next)
	)

	if err != nil && !publishOnError {
		t.count(op, "error")
		t.options.logger.Warn("topology change rejected",
			"op", op,
			"error", err)
		return previous, fmt.Errorf("failed to %s: %w", op, err)
	}

	t.current.Store(next)
	t.observe(next)

	var result = "ok"
	if err != nil {
		result = "partial"
		err = fmt.Errorf("failed to %s: %w", op, err)
	}
	t.count(op, result)

	t.options.logger.Info("topology updated",
		"op", op,
		"result", result,
		"nodes", next.Len(),
		"vnodes", next.VLen())

	return previous, err
}

func (t *Topology[N]) observe(ring *Ring[N]) {
	if t.metrics == nil {
		return
	}
	t.metrics.nodes.Set(float64(ring.Len()))
	t.metrics.vnodes.Set(float64(ring.VLen()))
}

func (t *Topology[N]) count(op, result string) {
	if t.metrics == nil {
		return
	}
	t.metrics.changes.WithLabelValues(op, result).Inc()
}
