package hashring

import (
	"cmp"
	"math"
	"slices"
	"sort"
)

// FindSources computes where target can copy the keys it is now responsible for.
//
// The receiver is the ring after a membership change and reference the ring before it
// (or a different deployment altogether). For every range target belongs to in the
// receiver, FindSources looks at the overlapping ranges of reference and returns the
// overlap together with the reference nodes that held it, restricted to available.
// Overlaps whose reference holders already include target need no copy and are left
// out, even when target itself is not in available.
// A nil available means every node of reference can serve as a source.
//
// The result is sorted by range start and touching ranges with the same sources are
// merged. An instruction with no nodes means none of the previous holders is available.
func (r *Ring[N]) FindSources(target N, reference *Ring[N], available []N) []Replicas[N] {
	if reference == nil {
		return nil
	}

	var (
		needed = r.GetHashRanges()
		supply = reference.GetHashRanges()
	)

	if available == nil {
		available = reference.Nodes()
	}

	var sources []Replicas[N]
	for _, need := range needed {
		if !need.Has(target) {
			continue
		}

		// supply is sorted and contiguous, skip straight to the first range that can overlap.
		var first = sort.Search(len(supply), func(i int) bool {
			return supply[i].Range.End >= need.Range.Start
		})

		for _, have := range supply[first:] {
			if have.Range.Start > need.Range.End {
				break
			}

			var overlap, ok = need.Range.intersect(have.Range)
			if !ok {
				continue
			}

			// target already held this overlap, whether or not it is available as a source.
			if have.Has(target) {
				continue
			}

			var nodes = make([]N, 0, len(have.Nodes))
			for _, n := range have.Nodes {
				if slices.Contains(available, n) {
					nodes = append(nodes, n)
				}
			}

			sources = append(sources, Replicas[N]{Range: overlap, Nodes: nodes})
		}
	}

	r.options.logger.Debug("computed replication sources",
		"target", target.String(),
		"instructions", len(sources))

	return MergeReplicas(sources)
}

// MergeReplicas sorts replicas by range start and joins ranges that touch and have the
// same nodes in the same order. The input is not modified.
func MergeReplicas[N Node](replicas []Replicas[N]) []Replicas[N] {
	if len(replicas) == 0 {
		return nil
	}

	var sorted = slices.Clone(replicas)
	slices.SortStableFunc(sorted, func(a, b Replicas[N]) int {
		return cmp.Compare(a.Range.Start, b.Range.Start)
	})

	var (
		merged  = make([]Replicas[N], 0, len(sorted))
		current = sorted[0]
	)
	for _, next := range sorted[1:] {
		if current.Range.End < math.MaxUint64 &&
			next.Range.Start == current.Range.End+1 &&
			slices.Equal(current.Nodes, next.Nodes) {
			current.Range.End = next.Range.End
			continue
		}

		merged = append(merged, current)
		current = next
	}
	merged = append(merged, current)

	return merged
}
