package hashring

import (
	"errors"
	"fmt"
)

// BatchError lists the nodes BatchAdd could not add. The remaining nodes of the batch
// were added.
type BatchError[N Node] struct {
	Failed []N
	Errs   []error
}

func (e *BatchError[N]) Error() string {
	return fmt.Sprintf("failed to add %d node(s): %v", len(e.Failed), errors.Join(e.Errs...))
}

// Unwrap exposes the per-node errors to errors.Is and errors.As.
func (e *BatchError[N]) Unwrap() []error {
	return e.Errs
}

// Add places node on the ring at its virtual positions.
// It returns ErrDuplicateNode if the node is already present and ErrDuplicateIdentity if
// another node has the same string.
func (r *Ring[N]) Add(node N) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.admit(node); err != nil {
		return err
	}

	r.insert(r.expand(node)...)
	r.nodes[node] = r.vnodeCnt
	r.ids[node.String()] = node

	r.options.logger.Debug("added node to ring",
		"node", node.String(),
		"vnodes", r.vnodeCnt,
		"nodes", len(r.nodes))

	return nil
}

// BatchAdd adds every node of the batch that is not already present and sorts the ring
// once. It is best-effort: duplicates and identity clashes are skipped and reported through a *BatchError
// while the rest of the batch is still added.
func (r *Ring[N]) BatchAdd(nodes ...N) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var (
		added  []vnode[N]
		failed []N
		errs   []error
	)
	for _, node := range nodes {
		if err := r.admit(node); err != nil {
			failed = append(failed, node)
			errs = append(errs, err)
			continue
		}

		r.nodes[node] = r.vnodeCnt
		r.ids[node.String()] = node
		added = append(added, r.expand(node)...)
	}

	if len(added) > 0 {
		r.insert(added...)
	}

	r.options.logger.Debug("batch added nodes to ring",
		"requested", len(nodes),
		"failed", len(failed),
		"nodes", len(r.nodes))

	if len(failed) > 0 {
		return &BatchError[N]{Failed: failed, Errs: errs}
	}
	return nil
}

// Remove takes node and all of its virtual positions off the ring.
// It returns ErrNodeNotFound if the node is not present.
func (r *Ring[N]) Remove(node N) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var count, exists = r.nodes[node]
	if !exists {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, node)
	}

	delete(r.nodes, node)
	delete(r.ids, node.String())
	var removed = r.removeAll(node, count)

	r.options.logger.Debug("removed node from ring",
		"node", node.String(),
		"vnodes", removed,
		"nodes", len(r.nodes))

	return nil
}

// admit checks that node can join. Must be called with the write lock held.
func (r *Ring[N]) admit(node N) error {
	if _, exists := r.nodes[node]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateNode, node)
	}
	if other, taken := r.ids[node.String()]; taken {
		return fmt.Errorf("%w: %s is used by %v", ErrDuplicateIdentity, node, other)
	}
	return nil
}
