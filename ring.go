package hashring

import (
	"errors"
	"fmt"
	"maps"
	"math"
	"slices"
	"strings"
)

var (
	// ErrDuplicateNode is returned when adding a node that is already on the ring.
	ErrDuplicateNode = errors.New("node already exists in ring")

	// ErrNodeNotFound is returned when removing a node that is not on the ring.
	ErrNodeNotFound = errors.New("node not found in ring")

	// ErrDuplicateIdentity is returned when adding a node whose String() is already used
	// by a different node on the ring.
	ErrDuplicateIdentity = errors.New("node identity already used by another node")

	// ErrUnknownHasher is returned by ParseHasher for unsupported names.
	ErrUnknownHasher = errors.New("unknown hasher")
)

// NewRing creates an empty Ring.
// Every key is stored on replicas+1 nodes (replicas = 0 stores each key once) and every
// node is placed on the ring vnodes times. A higher vnodes spreads keys more evenly at the
// cost of more work per query. Negative replicas are treated as 0 and vnodes below 1 as 1.
func NewRing[N Node](replicas, vnodes int, opts ...Option) *Ring[N] {
	var options = defaultOptions()
	for _, opt := range opts {
		opt(&options)
	}

	return &Ring[N]{
		nodes:    make(map[N]int),
		ids:      make(map[string]N),
		vnodes:   make([]vnode[N], 0),
		replicas: max(replicas, 0),
		vnodeCnt: max(vnodes, 1),
		options:  options,
	}
}

// Clone returns an independent copy of the ring. Mutating either copy never affects
// the other, which is what makes before/after comparisons with FindSources possible.
func (r *Ring[N]) Clone() *Ring[N] {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return &Ring[N]{
		nodes:    maps.Clone(r.nodes),
		ids:      maps.Clone(r.ids),
		vnodes:   slices.Clone(r.vnodes),
		replicas: r.replicas,
		vnodeCnt: r.vnodeCnt,
		options:  r.options,
	}
}

// Len returns the number of physical nodes.
func (r *Ring[N]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.nodes)
}

// VLen returns the number of virtual positions.
func (r *Ring[N]) VLen() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.vnodes)
}

// IsEmpty reports whether the ring has no nodes.
func (r *Ring[N]) IsEmpty() bool {
	return r.VLen() == 0
}

// Replicas returns the configured replica count.
func (r *Ring[N]) Replicas() int {
	return r.replicas
}

// VNodeCount returns the configured number of virtual positions per node.
func (r *Ring[N]) VNodeCount() int {
	return r.vnodeCnt
}

// Contains reports whether node is on the ring.
func (r *Ring[N]) Contains(node N) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var _, exists = r.nodes[node]
	return exists
}

// Nodes returns the physical nodes ordered by identity.
func (r *Ring[N]) Nodes() []N {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var nodes = slices.Collect(maps.Keys(r.nodes))
	slices.SortFunc(nodes, func(a, b N) int {
		return strings.Compare(a.String(), b.String())
	})
	return nodes
}

// VNodes returns the virtual positions in ring order.
func (r *Ring[N]) VNodes() []VNode[N] {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var vnodes = make([]VNode[N], len(r.vnodes))
	for i, v := range r.vnodes {
		vnodes[i] = VNode[N]{Hash: v.hash, Node: v.node, Index: v.index}
	}
	return vnodes
}

// Hash returns the ring position of key.
func (r *Ring[N]) Hash(key []byte) uint64 {
	return r.options.hasher.Sum64(key)
}

// PrimaryShare returns, per node, the fraction of the hash space for which the node is
// the primary owner.
func (r *Ring[N]) PrimaryShare() map[N]float64 {
	var shares = make(map[N]float64)
	for _, rng := range r.GetHashRanges() {
		var primary, ok = rng.Source()
		if !ok {
			continue
		}
		shares[primary] += float64(rng.Range.Size()) / math.MaxUint64
	}
	return shares
}

// String returns a visual representation of the ring state.
func (r *Ring[N]) String() string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var b strings.Builder

	b.WriteString(fmt.Sprintf("Ring: replicas=%d vnodes=%d\n", r.replicas, r.vnodeCnt))
	b.WriteString(fmt.Sprintf("Nodes: %d | VNodes: %d\n", len(r.nodes), len(r.vnodes)))

	if len(r.vnodes) == 0 {
		b.WriteString("\n[Empty Ring]\n")
		return b.String()
	}

	b.WriteString("\nRing Topology:\n")
	b.WriteString("┌─────────────────────────────────────────────────────────────┐\n")

	for i, v := range r.vnodes {
		var prev uint64
		if i == 0 {
			prev = r.vnodes[len(r.vnodes)-1].hash
		} else {
			prev = r.vnodes[i-1].hash
		}

		var rangeStr string
		switch {
		case len(r.vnodes) == 1:
			rangeStr = "[0..max]"
		case i == 0:
			rangeStr = fmt.Sprintf("(%d..max,0..%d]", prev, v.hash)
		default:
			rangeStr = fmt.Sprintf("(%d..%d]", prev, v.hash)
		}

		b.WriteString(fmt.Sprintf("│ @%-20d  %-15s #%-3d %s\n", v.hash, v.id, v.index, rangeStr))
	}

	b.WriteString("└─────────────────────────────────────────────────────────────┘\n")

	b.WriteString("\nNode Summary:\n")
	var ids = make([]string, 0, len(r.nodes))
	for node := range r.nodes {
		ids = append(ids, node.String())
	}
	slices.Sort(ids)
	for _, id := range ids {
		b.WriteString(fmt.Sprintf("  %-15s  vnodes: %d\n", id, r.vnodeCnt))
	}

	return b.String()
}
