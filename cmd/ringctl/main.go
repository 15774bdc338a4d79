package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	hashring "go-hashring"
	"go-hashring/cluster"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func main() {
	if err := newRootCmd(newViper()).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd(v *viper.Viper) *cobra.Command {
	var rootCmd = &cobra.Command{
		Use:   "ringctl",
		Short: "Inspect consistent hashing rings and plan replication",
		Long: `Ringctl builds a consistent hashing ring from a list of nodes and answers
questions about it: which nodes own a key, how the hash space is partitioned and
which ranges every node has to copy after the membership changes.

Settings are read from flags, HASHRING_* environment variables or a config file.`,
		SilenceUsage: true,
	}

	var flags = rootCmd.PersistentFlags()
	flags.String("config", "", "Config file (yaml, json or toml)")
	flags.Int("replicas", hashring.DefaultReplicas, "Number of replicas besides the primary")
	flags.Int("vnodes", hashring.DefaultVNodes, "Number of virtual nodes per node")
	flags.String("hasher", "xxhash", "Hash function (xxhash or murmur3)")
	flags.StringSlice("nodes", nil, "Comma separated list of nodes")
	flags.BoolP("verbose", "v", false, "Log debug output to stderr")

	// Bind Flags to config
	if err := v.BindPFlags(flags); err != nil {
		panic(err)
	}

	rootCmd.AddCommand(
		newLocateCmd(v),
		newRangesCmd(v),
		newShowCmd(v),
		newDiffCmd(v),
		newNodesCmd(),
		newInteractiveCmd(v),
	)

	return rootCmd
}

// setup loads the config and builds the configured ring.
func setup(v *viper.Viper, cmd *cobra.Command) (config, *slog.Logger, *hashring.Ring[cluster.NodeID], error) {
	var cfg, err = loadConfig(v)
	if err != nil {
		return config{}, nil, nil, err
	}

	var level = slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	var logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: level,
	}))

	ring, err := cfg.buildRing(logger)
	if err != nil {
		return config{}, nil, nil, err
	}

	logger.Debug("ring ready",
		"nodes", ring.Len(),
		"vnodes", ring.VLen(),
		"replicas", ring.Replicas(),
		"hasher", cfg.Hasher)

	return cfg, logger, ring, nil
}

func newLocateCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "locate KEY...",
		Short: "Print the nodes responsible for each key",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var _, _, ring, err = setup(v, cmd)
			if err != nil {
				return err
			}

			var out = cmd.OutOrStdout()
			for _, key := range args {
				fmt.Fprintf(out, "%-20s @%-20d %v\n", key, ring.Hash([]byte(key)), ring.GetString(key))
			}
			return nil
		},
	}
}

func newRangesCmd(v *viper.Viper) *cobra.Command {
	var share bool

	var cmd = &cobra.Command{
		Use:   "ranges",
		Short: "Print the hash ranges of the ring and their replicas as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			var _, _, ring, err = setup(v, cmd)
			if err != nil {
				return err
			}

			if share {
				return writeJSON(cmd.OutOrStdout(), ring.PrimaryShare())
			}
			return writeJSON(cmd.OutOrStdout(), ring.GetHashRanges())
		},
	}

	cmd.Flags().BoolVar(&share, "share", false, "Print the share of the hash space each node owns as primary instead")
	return cmd
}

func newShowCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Render the ring topology",
		RunE: func(cmd *cobra.Command, args []string) error {
			var _, _, ring, err = setup(v, cmd)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), ring.String())
			return nil
		},
	}
}

// transfer is the replication plan of a single node.
type transfer struct {
	Target       cluster.NodeID                      `json:"target"`
	Instructions []hashring.Replicas[cluster.NodeID] `json:"instructions"`
}

func newDiffCmd(v *viper.Viper) *cobra.Command {
	var (
		add    []string
		remove []string
	)

	var cmd = &cobra.Command{
		Use:   "diff",
		Short: "Print which ranges every node must copy after adding or removing nodes",
		RunE: func(cmd *cobra.Command, args []string) error {
			var _, _, before, err = setup(v, cmd)
			if err != nil {
				return err
			}

			var after = before.Clone()
			for _, n := range add {
				if err := after.Add(cluster.NodeID(n)); err != nil {
					return err
				}
			}
			for _, n := range remove {
				if err := after.Remove(cluster.NodeID(n)); err != nil {
					return err
				}
			}

			return writeJSON(cmd.OutOrStdout(), plan(before, after))
		},
	}

	cmd.Flags().StringSliceVar(&add, "add", nil, "Nodes joining the ring")
	cmd.Flags().StringSliceVar(&remove, "remove", nil, "Nodes leaving the ring")
	return cmd
}

// plan lists the copies needed to move from before to after. Only nodes still
// present in after are used as sources.
func plan(before, after *hashring.Ring[cluster.NodeID]) []transfer {
	var (
		available = after.Nodes()
		transfers []transfer
	)
	for _, target := range available {
		var instructions = after.FindSources(target, before, available)
		if len(instructions) == 0 {
			continue
		}
		transfers = append(transfers, transfer{Target: target, Instructions: instructions})
	}
	return transfers
}

func newNodesCmd() *cobra.Command {
	var (
		count  int
		prefix string
	)

	var cmd = &cobra.Command{
		Use:   "nodes",
		Short: "Generate random node names for use with --nodes",
		RunE: func(cmd *cobra.Command, args []string) error {
			for range count {
				fmt.Fprintln(cmd.OutOrStdout(), generateNode(prefix))
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&count, "generate", 3, "Number of node names to generate")
	cmd.Flags().StringVar(&prefix, "prefix", "node", "Prefix of generated node names")
	return cmd
}

func generateNode(prefix string) cluster.NodeID {
	return cluster.NodeID(fmt.Sprintf("%s-%s", prefix, uuid.New().String()[0:8]))
}

func writeJSON(w io.Writer, v any) error {
	var enc = json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	return nil
}
