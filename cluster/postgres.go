package cluster

import (
	"context"
	"fmt"

	hashring "go-hashring"
	"go-hashring/database"
)

// PostgresStore keeps the entries of one node in the shared entries table.
type PostgresStore struct {
	queries *database.Queries
	node    NodeID
}

// NewPostgresStore creates a store for node on top of queries.
// The table must have been created with database.Migrate.
func NewPostgresStore(queries *database.Queries, node NodeID) *PostgresStore {
	return &PostgresStore{
		queries: queries,
		node:    node,
	}
}

// PostgresStoreFactory gives every node a PostgresStore sharing queries.
func PostgresStoreFactory(queries *database.Queries) StoreFactory {
	return func(node NodeID) (Store, error) {
		return NewPostgresStore(queries, node), nil
	}
}

func (s *PostgresStore) Put(ctx context.Context, entry Entry) error {
	return s.queries.PutEntry(ctx, &database.EntryRecord{
		NodeID: s.node.String(),
		Key:    entry.Key,
		Hash:   entry.Hash,
		Value:  entry.Value,
	})
}

func (s *PostgresStore) Get(ctx context.Context, key string) (Entry, bool, error) {
	var record, err = s.queries.GetEntry(ctx, s.node.String(), key)
	if err != nil {
		return Entry{}, false, fmt.Errorf("failed to get %q from %s: %w", key, s.node, err)
	}
	if record == nil {
		return Entry{}, false, nil
	}
	return toEntry(record), true, nil
}

func (s *PostgresStore) Range(ctx context.Context, r hashring.HashRange) ([]Entry, error) {
	var records, err = s.queries.ListRange(ctx, s.node.String(), r.Start, r.End)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s from %s: %w", r, s.node, err)
	}

	var entries = make([]Entry, 0, len(records))
	for _, record := range records {
		entries = append(entries, toEntry(record))
	}
	return entries, nil
}

func (s *PostgresStore) Len(ctx context.Context) (int, error) {
	return s.queries.CountEntries(ctx, s.node.String())
}

func (s *PostgresStore) Drop(ctx context.Context) error {
	return s.queries.DeleteNode(ctx, s.node.String())
}

func toEntry(record *database.EntryRecord) Entry {
	return Entry{
		Key:   record.Key,
		Hash:  record.Hash,
		Value: record.Value,
	}
}
