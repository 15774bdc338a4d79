package hashring

import (
	"fmt"
	"math"
	"slices"
	"sync"
)

// Node is a physical member of the ring.
// String must return a stable identity: it is the input to the vnode hash and the
// tie-break when two vnodes land on the same position. The ring rejects a node whose
// string is already used by another member with ErrDuplicateIdentity.
type Node interface {
	comparable
	String() string
}

// Ring represents the consistent hashing ring state.
type Ring[N Node] struct {
	mu       sync.RWMutex
	nodes    map[N]int    // Virtual position count per physical node
	ids      map[string]N // Node by String()
	vnodes   []vnode[N]   // Sorted by (hash, node id, index)
	replicas int
	vnodeCnt int
	options  options
}

// vnode represents a virtual node's position on the ring.
type vnode[N Node] struct {
	hash  uint64
	node  N
	id    string // node.String(), cached for ordering
	index int
}

// VNode is an exported, read-only view of a virtual position.
type VNode[N Node] struct {
	Hash  uint64 `json:"hash"`
	Node  N      `json:"node"`
	Index int    `json:"index"`
}

// HashRange is an inclusive interval [Start, End] of the ring's hash space.
type HashRange struct {
	Start uint64 `json:"start"`
	End   uint64 `json:"end"`
}

// FullRange spans the whole hash space.
var FullRange = HashRange{Start: 0, End: math.MaxUint64}

// Contains reports whether h falls inside the range.
func (r HashRange) Contains(h uint64) bool {
	return r.Start <= h && h <= r.End
}

// Size returns the number of hashes in the range. The full range saturates at MaxUint64.
func (r HashRange) Size() uint64 {
	if r.Start == 0 && r.End == math.MaxUint64 {
		return math.MaxUint64
	}
	return r.End - r.Start + 1
}

// intersect returns the overlap of two ranges, if any.
func (r HashRange) intersect(other HashRange) (HashRange, bool) {
	var (
		start = max(r.Start, other.Start)
		end   = min(r.End, other.End)
	)
	if start > end {
		return HashRange{}, false
	}
	return HashRange{Start: start, End: end}, true
}

func (r HashRange) String() string {
	return fmt.Sprintf("[%d..%d]", r.Start, r.End)
}

// Replicas pairs a hash range with the nodes that store keys hashing into it.
// The first node is the primary, the rest are replicas. As the output of
// FindSources, Nodes lists the nodes a range can be copied from.
type Replicas[N Node] struct {
	Range HashRange `json:"hash_range"`
	Nodes []N       `json:"nodes"`
}

// Source returns the node a replication instruction copies from by convention,
// the first entry. It reports false when no node is available.
func (r Replicas[N]) Source() (N, bool) {
	if len(r.Nodes) == 0 {
		var zero N
		return zero, false
	}
	return r.Nodes[0], true
}

// Has reports whether node is one of the range's nodes.
func (r Replicas[N]) Has(node N) bool {
	return slices.Contains(r.Nodes, node)
}
