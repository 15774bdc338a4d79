package hashring

import "math"

// GetHashRanges partitions the whole hash space into ranges, each with the nodes that
// store keys hashing into it (primary first). The ranges are sorted by Start, never
// overlap and together cover [0, MaxUint64].
//
// Each distinct vnode position p ends a range (q, p] where q is the previous distinct
// position. The range wrapping past MaxUint64 is split in two: [0, first] and
// (last, MaxUint64]. Neighbouring ranges with the same nodes are not merged.
// A ring with a single node returns one range spanning the whole space.
func (r *Ring[N]) GetHashRanges() []Replicas[N] {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.vnodes) == 0 {
		return nil
	}

	if len(r.nodes) == 1 {
		return []Replicas[N]{{
			Range: FullRange,
			Nodes: []N{r.vnodes[0].node},
		}}
	}

	var (
		ranges = make([]Replicas[N], 0, len(r.vnodes)+1)
		start  uint64
	)

	for i, v := range r.vnodes {
		// A vnode sharing its position with the previous one never anchors a lookup:
		// successor always lands on the first vnode at a position.
		if i > 0 && v.hash == r.vnodes[i-1].hash {
			continue
		}

		ranges = append(ranges, Replicas[N]{
			Range: HashRange{Start: start, End: v.hash},
			Nodes: r.ownersFrom(i),
		})
		start = v.hash + 1
	}

	// Keys past the last position wrap around to the first vnode.
	var last = r.vnodes[len(r.vnodes)-1].hash
	if last < math.MaxUint64 {
		ranges = append(ranges, Replicas[N]{
			Range: HashRange{Start: last + 1, End: math.MaxUint64},
			Nodes: r.ownersFrom(0),
		})
	}

	return ranges
}
