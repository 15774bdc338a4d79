package cluster

import (
	"context"
	"errors"
	"fmt"
	"sync"

	hashring "go-hashring"
)

var (
	// ErrUnknownNode is returned when a node has no store in the cluster.
	ErrUnknownNode = errors.New("unknown node")
)

// Cluster routes writes to the nodes a key belongs to and copies entries between nodes
// when the membership changes.
//
// Membership changes do not move data by themselves. Callers keep the ring returned by
// AddNode or DropNode and pass it to Rebalance once they are ready to copy.
type Cluster struct {
	topology *hashring.Topology[NodeID]
	options  options

	mu     sync.RWMutex
	stores map[NodeID]Store
}

// New creates a cluster of nodes, each with a store from the configured factory.
func New(replicas, vnodes int, nodes []NodeID, opts ...Option) (*Cluster, error) {
	var options = defaultOptions()
	for _, opt := range opts {
		opt(&options)
	}

	var (
		ringOptions = append([]hashring.Option{hashring.WithLogger(options.logger)}, options.ringOptions...)
		ring        = hashring.NewRing[NodeID](replicas, vnodes, ringOptions...)
	)
	if err := ring.BatchAdd(nodes...); err != nil {
		return nil, fmt.Errorf("failed to build ring: %w", err)
	}

	var c = &Cluster{
		topology: hashring.NewTopology(ring),
		options:  options,
		stores:   make(map[NodeID]Store, len(nodes)),
	}
	for _, node := range nodes {
		var store, err = options.factory(node)
		if err != nil {
			return nil, fmt.Errorf("failed to create store for %s: %w", node, err)
		}
		c.stores[node] = store
	}

	return c, nil
}

// Ring returns a copy of the current ring.
func (c *Cluster) Ring() *hashring.Ring[NodeID] {
	return c.topology.Current().Clone()
}

// Nodes returns the members of the cluster in ring order.
func (c *Cluster) Nodes() []NodeID {
	return c.topology.Current().Nodes()
}

// AddNode gives node an empty store and adds it to the ring.
// It returns the ring as it was before the change.
func (c *Cluster) AddNode(node NodeID) (*hashring.Ring[NodeID], error) {
	var store, err = c.options.factory(node)
	if err != nil {
		return nil, fmt.Errorf("failed to create store for %s: %w", node, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	previous, err := c.topology.Add(node)
	if err != nil {
		return nil, err
	}
	c.stores[node] = store

	c.options.logger.Info("node joined cluster",
		"node", node.String(),
		"nodes", previous.Len()+1)

	return previous, nil
}

// DropNode removes node from the ring and discards its store.
// It returns the ring as it was before the change.
func (c *Cluster) DropNode(ctx context.Context, node NodeID) (*hashring.Ring[NodeID], error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var previous, err = c.topology.Remove(node)
	if err != nil {
		return nil, err
	}

	var store = c.stores[node]
	delete(c.stores, node)
	if store != nil {
		if err := store.Drop(ctx); err != nil {
			return previous, fmt.Errorf("failed to drop store of %s: %w", node, err)
		}
	}

	c.options.logger.Info("node left cluster",
		"node", node.String(),
		"nodes", previous.Len()-1)

	return previous, nil
}

// Post stores key on every node responsible for it.
func (c *Cluster) Post(ctx context.Context, key, value string) error {
	var (
		ring  = c.topology.Current()
		entry = Entry{Key: key, Hash: ring.Hash([]byte(key)), Value: value}
	)

	for _, node := range ring.GetString(key) {
		var store, err = c.store(node)
		if err != nil {
			return err
		}
		if err := store.Put(ctx, entry); err != nil {
			return fmt.Errorf("failed to post %q to %s: %w", key, node, err)
		}
	}

	return nil
}

// Verify reads key from every node responsible for it and returns how many of them
// miss the key or hold a value different from the first one found.
func (c *Cluster) Verify(ctx context.Context, key string) (int, error) {
	var (
		value      *string
		mismatches int
	)

	for _, node := range c.topology.Current().GetString(key) {
		var store, err = c.store(node)
		if err != nil {
			mismatches++
			continue
		}

		entry, ok, err := store.Get(ctx, key)
		if err != nil {
			return 0, fmt.Errorf("failed to verify %q on %s: %w", key, node, err)
		}

		switch {
		case !ok:
			mismatches++
		case value == nil:
			value = &entry.Value
		case *value != entry.Value:
			mismatches++
		}
	}

	return mismatches, nil
}

// Rebalance copies entries inside the cluster after the ring changed from previous to
// its current state. Only nodes in available are read from; a nil available allows
// every node of previous. Nodes that left the cluster since previous are passed over in
// favor of the next replica holding the range. It returns the number of entries copied.
func (c *Cluster) Rebalance(ctx context.Context, previous *hashring.Ring[NodeID], available []NodeID) (int, error) {
	return c.replicate(ctx, previous, available, c.store)
}

// Synchronize copies every entry of from that this cluster is responsible for, for
// example into a freshly deployed cluster. Both clusters must hash with the same hasher.
func (c *Cluster) Synchronize(ctx context.Context, from *Cluster) (int, error) {
	var reference = from.topology.Current()
	return c.replicate(ctx, reference, reference.Nodes(), from.store)
}

// Utilization returns the number of entries held by each node.
func (c *Cluster) Utilization(ctx context.Context) (map[NodeID]int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var usage = make(map[NodeID]int, len(c.stores))
	for node, store := range c.stores {
		var n, err = store.Len(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to count entries of %s: %w", node, err)
		}
		usage[node] = n
	}
	return usage, nil
}

func (c *Cluster) replicate(
	ctx context.Context,
	reference *hashring.Ring[NodeID],
	available []NodeID,
	sourceStore func(NodeID) (Store, error),
) (int, error) {
	var (
		current = c.topology.Current()
		copied  int
	)

	for _, target := range current.Nodes() {
		var dst, err = c.store(target)
		if err != nil {
			return copied, err
		}

		for _, instruction := range current.FindSources(target, reference, available) {
			var source, src, err = firstSource(instruction.Nodes, sourceStore)
			if err != nil {
				return copied, err
			}
			if src == nil {
				c.options.logger.Warn("no source available for range",
					"target", target.String(),
					"hash_range", instruction.Range.String())
				continue
			}

			entries, err := src.Range(ctx, instruction.Range)
			if err != nil {
				return copied, fmt.Errorf("failed to read %s from %s: %w", instruction.Range, source, err)
			}

			for _, entry := range entries {
				if err := dst.Put(ctx, entry); err != nil {
					return copied, fmt.Errorf("failed to copy %q to %s: %w", entry.Key, target, err)
				}
			}
			copied += len(entries)

			c.options.logger.Debug("copied range",
				"target", target.String(),
				"source", source.String(),
				"hash_range", instruction.Range.String(),
				"entries", len(entries))
		}
	}

	c.options.logger.Info("replication finished",
		"nodes", current.Len(),
		"copied", copied)

	return copied, nil
}

// firstSource returns the first of nodes that still has a store. Nodes dropped since the
// reference ring was taken are skipped; a nil store means none of them is left.
func firstSource(nodes []NodeID, sourceStore func(NodeID) (Store, error)) (NodeID, Store, error) {
	for _, node := range nodes {
		var store, err = sourceStore(node)
		if errors.Is(err, ErrUnknownNode) {
			continue
		}
		if err != nil {
			return "", nil, err
		}
		return node, store, nil
	}
	return "", nil, nil
}

func (c *Cluster) store(node NodeID) (Store, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var store, ok = c.stores[node]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownNode, node)
	}
	return store, nil
}
