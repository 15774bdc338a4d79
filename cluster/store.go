package cluster

import (
	"cmp"
	"context"
	"slices"
	"sync"

	hashring "go-hashring"
)

// NodeID identifies a storage node of the cluster.
type NodeID string

func (n NodeID) String() string { return string(n) }

// Entry is a stored key/value pair together with the ring position of its key.
type Entry struct {
	Key   string
	Hash  uint64
	Value string
}

// Store holds the entries of a single node.
type Store interface {
	Put(ctx context.Context, entry Entry) error
	Get(ctx context.Context, key string) (Entry, bool, error)
	// Range returns the entries whose hash lies in r, ordered by hash.
	Range(ctx context.Context, r hashring.HashRange) ([]Entry, error)
	Len(ctx context.Context) (int, error)
	// Drop discards every entry. It is called when the node leaves the cluster.
	Drop(ctx context.Context) error
}

// StoreFactory creates the store of a node joining the cluster.
type StoreFactory func(node NodeID) (Store, error)

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]Entry)}
}

// MemoryStoreFactory gives every node its own MemoryStore.
func MemoryStoreFactory(NodeID) (Store, error) {
	return NewMemoryStore(), nil
}

func (s *MemoryStore) Put(_ context.Context, entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[entry.Key] = entry
	return nil
}

func (s *MemoryStore) Get(_ context.Context, key string) (Entry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var entry, ok = s.entries[key]
	return entry, ok, nil
}

func (s *MemoryStore) Range(_ context.Context, r hashring.HashRange) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var entries []Entry
	for _, entry := range s.entries {
		if r.Contains(entry.Hash) {
			entries = append(entries, entry)
		}
	}

	slices.SortFunc(entries, func(a, b Entry) int {
		return cmp.Or(cmp.Compare(a.Hash, b.Hash), cmp.Compare(a.Key, b.Key))
	})
	return entries, nil
}

func (s *MemoryStore) Len(context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.entries), nil
}

func (s *MemoryStore) Drop(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clear(s.entries)
	return nil
}
