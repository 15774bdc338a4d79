package hashring

import "slices"

// Get returns the nodes responsible for key: the primary first, then up to Replicas()
// distinct replicas in clockwise order. It returns fewer nodes when the ring has fewer
// than Replicas()+1 nodes and an empty result when the ring is empty.
func (r *Ring[N]) Get(key []byte) []N {
	return r.GetByHash(r.options.hasher.Sum64(key))
}

// GetString is Get for string keys.
func (r *Ring[N]) GetString(key string) []N {
	return r.Get([]byte(key))
}

// GetByHash returns the nodes responsible for a ring position.
func (r *Ring[N]) GetByHash(hash uint64) []N {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.vnodes) == 0 {
		return nil
	}

	return r.ownersFrom(r.successor(hash))
}

// ownersFrom walks clockwise from the vnode at index start and collects distinct nodes
// until replicas+1 are found or the ring is exhausted.
// Must be called with lock held.
func (r *Ring[N]) ownersFrom(start int) []N {
	var (
		limit  = min(r.replicas+1, len(r.nodes))
		owners = make([]N, 0, limit)
	)

	for v := range r.walk(start) {
		if slices.Contains(owners, v.node) {
			continue
		}

		owners = append(owners, v.node)
		if len(owners) == limit {
			break
		}
	}

	return owners
}
