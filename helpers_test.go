package hashring

import (
	"fmt"
	"slices"

	fuzz "github.com/google/gofuzz"
)

// testNode is the node type used throughout the package tests.
type testNode string

func (n testNode) String() string { return string(n) }

// hostNode identifies itself by host alone, so two ports on one host share a string.
type hostNode struct {
	host string
	port int
}

func (n hostNode) String() string { return n.host }

// fixedHasher pins chosen inputs to known positions so tests can assert exact
// layouts. Anything else falls back to xxhash.
type fixedHasher map[string]uint64

func (f fixedHasher) Sum64(data []byte) uint64 {
	if h, ok := f[string(data)]; ok {
		return h
	}
	return XXHasher{}.Sum64(data)
}

// randomNodes returns n distinct nodes with fuzzed names.
func randomNodes(seed int64, n int) []testNode {
	var (
		f     = fuzz.NewWithSeed(seed).NilChance(0)
		nodes = make([]testNode, 0, n)
	)
	for i := range n {
		var name string
		f.Fuzz(&name)
		nodes = append(nodes, testNode(fmt.Sprintf("%d-%s", i, name)))
	}
	return nodes
}

// randomKeys returns n fuzzed keys.
func randomKeys(seed int64, n int) [][]byte {
	var (
		f    = fuzz.NewWithSeed(seed).NilChance(0)
		keys = make([][]byte, 0, n)
	)
	for i := range n {
		var key []byte
		f.Fuzz(&key)
		keys = append(keys, append(key, byte(i), byte(i>>8), byte(i>>16)))
	}
	return keys
}

// rangeOwning returns the range of ranges containing h.
func rangeOwning(ranges []Replicas[testNode], h uint64) (Replicas[testNode], bool) {
	for _, r := range ranges {
		if r.Range.Contains(h) {
			return r, true
		}
	}
	return Replicas[testNode]{}, false
}

// breakpoints returns every range start of the given partitions, deduplicated.
func breakpoints(partitions ...[]Replicas[testNode]) []uint64 {
	var points []uint64
	for _, ranges := range partitions {
		for _, r := range ranges {
			points = append(points, r.Range.Start)
		}
	}
	slices.Sort(points)
	return slices.Compact(points)
}
