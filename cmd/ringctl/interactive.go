package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	hashring "go-hashring"
	"go-hashring/cluster"

	"github.com/eiannone/keyboard"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newInteractiveCmd(v *viper.Viper) *cobra.Command {
	var prefix string

	var cmd = &cobra.Command{
		Use:   "interactive",
		Short: "Add and remove nodes with the keyboard and watch the ring change",
		RunE: func(cmd *cobra.Command, args []string) error {
			var _, logger, ring, err = setup(v, cmd)
			if err != nil {
				return err
			}

			var topology = hashring.NewTopology(ring, hashring.WithLogger(logger))
			return runInteractive(cmd.OutOrStdout(), topology, prefix)
		},
	}

	cmd.Flags().StringVar(&prefix, "prefix", "node", "Prefix of generated node names")
	return cmd
}

func runInteractive(out io.Writer, topology *hashring.Topology[cluster.NodeID], prefix string) error {
	// Set up signal handling for graceful shutdown
	var sigCh = make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	// Initialize keyboard
	if err := keyboard.Open(); err != nil {
		return fmt.Errorf("failed to initialize keyboard: %w", err)
	}
	defer keyboard.Close()

	// Keyboard input channel
	var keyCh = make(chan rune)
	go func() {
		for {
			char, _, err := keyboard.GetKey()
			if err != nil {
				return
			}
			keyCh <- char
		}
	}()

	printStatus(out, topology.Current(), nil)

	// Main loop
	for {
		select {
		case key := <-keyCh:
			var (
				previous *hashring.Ring[cluster.NodeID]
				err      error
			)

			switch key {
			case 'a', 'A':
				previous, err = topology.Add(generateNode(prefix))
			case 'r', 'R':
				var nodes = topology.Current().Nodes()
				if len(nodes) == 0 {
					continue
				}
				previous, err = topology.Remove(nodes[len(nodes)-1])
			case 'q', 'Q':
				fmt.Fprintf(out, "\n\nShutting down...\n")
				return nil
			default:
				continue
			}

			if err != nil {
				fmt.Fprintf(os.Stderr, "\n❌ %v\n", err)
				continue
			}
			printStatus(out, topology.Current(), plan(previous, topology.Current()))
		case sig := <-sigCh:
			fmt.Fprintf(out, "\n\nReceived signal %v, shutting down...\n", sig)
			return nil
		}
	}
}

func printStatus(out io.Writer, ring *hashring.Ring[cluster.NodeID], transfers []transfer) {
	fmt.Fprint(out, "\033[2J\033[H") // Clear screen and move cursor to top
	fmt.Fprintln(out, ring.String())

	if len(transfers) > 0 {
		fmt.Fprintf(out, "\nLast change requires:\n")
		for _, t := range transfers {
			var size uint64
			for _, instruction := range t.Instructions {
				size += instruction.Range.Size()
			}
			fmt.Fprintf(out, "  %-20s copies %d range(s), %.2f%% of the hash space\n",
				t.Target, len(t.Instructions), float64(size)/float64(hashring.FullRange.Size())*100)
		}
	}

	fmt.Fprintf(out, "\nControls:\n")
	fmt.Fprintf(out, "  [a] Add a generated node\n")
	fmt.Fprintf(out, "  [r] Remove the last node\n")
	fmt.Fprintf(out, "  [q] Quit\n")
}
