package main

import (
	"fmt"
	"log/slog"
	"strings"

	hashring "go-hashring"
	"go-hashring/cluster"

	"github.com/spf13/viper"
)

// config is resolved from flags, HASHRING_* environment variables and an optional
// config file, in that order of precedence.
type config struct {
	Replicas int      `mapstructure:"replicas"`
	VNodes   int      `mapstructure:"vnodes"`
	Hasher   string   `mapstructure:"hasher"`
	Nodes    []string `mapstructure:"nodes"`
	Verbose  bool     `mapstructure:"verbose"`
}

func newViper() *viper.Viper {
	var v = viper.New()
	v.SetEnvPrefix("HASHRING")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

func loadConfig(v *viper.Viper) (config, error) {
	if file := v.GetString("config"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return config{}, fmt.Errorf("failed to read config file %s: %w", file, err)
		}
	}

	var cfg config
	if err := v.Unmarshal(&cfg); err != nil {
		return config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}

func (c config) nodeIDs() []cluster.NodeID {
	var ids = make([]cluster.NodeID, 0, len(c.Nodes))
	for _, n := range c.Nodes {
		if n = strings.TrimSpace(n); n != "" {
			ids = append(ids, cluster.NodeID(n))
		}
	}
	return ids
}

func (c config) ringOptions(logger *slog.Logger) ([]hashring.Option, error) {
	var hasher, err = hashring.ParseHasher(c.Hasher)
	if err != nil {
		return nil, err
	}
	return []hashring.Option{hashring.WithHasher(hasher), hashring.WithLogger(logger)}, nil
}

// buildRing creates the ring described by the config with all configured nodes.
func (c config) buildRing(logger *slog.Logger) (*hashring.Ring[cluster.NodeID], error) {
	var opts, err = c.ringOptions(logger)
	if err != nil {
		return nil, err
	}

	var ring = hashring.NewRing[cluster.NodeID](c.Replicas, c.VNodes, opts...)
	if err := ring.BatchAdd(c.nodeIDs()...); err != nil {
		return nil, fmt.Errorf("failed to build ring: %w", err)
	}
	return ring, nil
}
