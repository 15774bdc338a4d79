package cluster

import (
	"io"
	"log/slog"

	hashring "go-hashring"
)

// options configures the Cluster behavior (internal only).
type options struct {
	factory     StoreFactory
	logger      *slog.Logger
	ringOptions []hashring.Option
}

// defaultOptions returns sensible defaults.
func defaultOptions() options {
	return options{
		factory: MemoryStoreFactory,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// Option is a functional option for configuring a Cluster.
type Option func(*options)

// WithStoreFactory sets how node stores are created.
// DEFAULT: MemoryStoreFactory
func WithStoreFactory(factory StoreFactory) Option {
	return func(o *options) {
		if factory != nil {
			o.factory = factory
		}
	}
}

// WithLogger sets the logger for the cluster and its ring.
// If the logger is nil, the cluster will use a no-op logger.
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

// WithRingOptions passes options to the underlying ring and topology.
// Clusters that synchronize with each other must use the same hasher.
func WithRingOptions(opts ...hashring.Option) Option {
	return func(o *options) {
		o.ringOptions = append(o.ringOptions, opts...)
	}
}
