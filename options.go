package hashring

import (
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// DefaultReplicas is the replica count used by the CLI when none is configured.
	DefaultReplicas = 2
	// DefaultVNodes is the virtual node count used by the CLI when none is configured.
	DefaultVNodes = 200
)

// options configures the Ring behavior (internal only).
type options struct {
	hasher     Hasher
	logger     *slog.Logger
	registerer prometheus.Registerer
	namespace  string
}

// defaultOptions returns sensible defaults.
func defaultOptions() options {
	return options{
		hasher:    XXHasher{},
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		namespace: "hashring",
	}
}

// Option is a functional option for configuring a Ring or a Topology.
type Option func(*options)

// WithHasher sets the hash function used for vnode positions and keys.
// Rings that are compared with FindSources must use the same hasher.
// DEFAULT: XXHasher
func WithHasher(h Hasher) Option {
	return func(o *options) {
		if h != nil {
			o.hasher = h
		}
	}
}

// WithLogger sets the logger for the ring.
// If the logger is nil, the ring will use a no-op logger.
// DEFAULT: A no-op logger
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger == nil {
			o.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
			return
		}

		o.logger = logger
	}
}

// WithRegisterer registers Topology metrics with reg. Rings ignore it.
// DEFAULT: metrics are not registered
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) {
		o.registerer = reg
	}
}

// WithMetricsNamespace sets the namespace of Topology metrics.
// DEFAULT: "hashring"
func WithMetricsNamespace(namespace string) Option {
	return func(o *options) {
		o.namespace = namespace
	}
}
