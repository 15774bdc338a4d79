package hashring

import (
	"cmp"
	"iter"
	"slices"
	"sort"
)

// compareVNodes is the ring order: position, then node identity, then vnode index.
// Two nodes hashing a vnode to the same position therefore always sort the same way,
// whatever order they were added in.
func compareVNodes[N Node](a, b vnode[N]) int {
	return cmp.Or(
		cmp.Compare(a.hash, b.hash),
		cmp.Compare(a.id, b.id),
		cmp.Compare(a.index, b.index),
	)
}

// expand computes the virtual positions of node.
func (r *Ring[N]) expand(node N) []vnode[N] {
	var (
		id     = node.String()
		vnodes = make([]vnode[N], 0, r.vnodeCnt)
	)
	for i := range r.vnodeCnt {
		vnodes = append(vnodes, vnode[N]{
			hash:  hashVNode(r.options.hasher, id, i),
			node:  node,
			id:    id,
			index: i,
		})
	}
	return vnodes
}

// insert adds vnodes and restores the ring order.
// Must be called with lock held.
func (r *Ring[N]) insert(vnodes ...vnode[N]) {
	r.vnodes = append(r.vnodes, vnodes...)
	slices.SortFunc(r.vnodes, compareVNodes[N])
}

// removeAll drops every vnode owned by node and returns how many were removed.
// count is the number of vnodes node is known to own.
// Must be called with lock held.
func (r *Ring[N]) removeAll(node N, count int) int {
	var kept = make([]vnode[N], 0, max(len(r.vnodes)-count, 0))
	for _, v := range r.vnodes {
		if v.node != node {
			kept = append(kept, v)
		}
	}

	var removed = len(r.vnodes) - len(kept)
	r.vnodes = kept
	return removed
}

// successor returns the index of the first vnode with position >= hash.
// Past the last vnode it wraps around to index 0. The ring must not be empty.
// Must be called with lock held.
func (r *Ring[N]) successor(hash uint64) int {
	var idx = sort.Search(len(r.vnodes), func(i int) bool {
		return r.vnodes[i].hash >= hash
	})

	if idx >= len(r.vnodes) {
		return 0
	}
	return idx
}

// walk yields the vnodes clockwise starting at index start and stops after exactly
// one revolution.
// Must be called with lock held.
func (r *Ring[N]) walk(start int) iter.Seq[vnode[N]] {
	var vnodes = r.vnodes
	return func(yield func(vnode[N]) bool) {
		for step := range len(vnodes) {
			if !yield(vnodes[(start+step)%len(vnodes)]) {
				return
			}
		}
	}
}
