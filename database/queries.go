package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
)

// DBTX is an interface that both sql.DB and sql.Tx implement.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Queries provides table-aware database operations.
type Queries struct {
	db        DBTX
	tableName string
}

// NewQueries creates a new Queries instance with the given table name.
func NewQueries(db DBTX, tableName string) *Queries {
	return &Queries{
		db:        db,
		tableName: tableName,
	}
}

var (
	putEntrySQL = `
INSERT INTO %s_entries (node_id, key, hash, value)
VALUES ($1, $2, $3, $4)
ON CONFLICT (node_id, key)
DO UPDATE SET
    hash = EXCLUDED.hash,
    value = EXCLUDED.value;`

	getEntrySQL = `
SELECT node_id, key, hash, value
FROM %s_entries
WHERE node_id = $1 AND key = $2;`

	listRangeSQL = `
SELECT node_id, key, hash, value
FROM %s_entries
WHERE node_id = $1 AND hash BETWEEN $2 AND $3
ORDER BY hash ASC, key ASC;`

	countEntriesSQL = `
SELECT COUNT(*)
FROM %s_entries
WHERE node_id = $1;`

	deleteNodeSQL = `
DELETE FROM %s_entries
WHERE node_id = $1;`
)

// PutEntry inserts or replaces an entry.
func (q *Queries) PutEntry(ctx context.Context, entry *EntryRecord) error {
	var query = fmt.Sprintf(putEntrySQL, q.tableName)
	_, err := q.db.ExecContext(ctx, query,
		entry.NodeID, entry.Key, encodeHash(entry.Hash), entry.Value,
	)
	if err != nil {
		return fmt.Errorf("failed to put entry: %w", err)
	}
	return nil
}

// GetEntry retrieves a single entry. It returns nil when the node does not hold key.
func (q *Queries) GetEntry(ctx context.Context, nodeID, key string) (*EntryRecord, error) {
	var (
		query = fmt.Sprintf(getEntrySQL, q.tableName)
		entry EntryRecord
		hash  int64
		err   = q.db.QueryRowContext(ctx, query, nodeID, key).Scan(
			&entry.NodeID, &entry.Key, &hash, &entry.Value,
		)
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get entry: %w", err)
	}

	entry.Hash = decodeHash(hash)
	return &entry, nil
}

// ListRange returns the entries of a node whose hash lies in [start, end], ordered by hash.
func (q *Queries) ListRange(ctx context.Context, nodeID string, start, end uint64) ([]*EntryRecord, error) {
	if start > end {
		return nil, nil
	}

	var (
		query     = fmt.Sprintf(listRangeSQL, q.tableName)
		rows, err = q.db.QueryContext(ctx, query, nodeID, encodeHash(start), encodeHash(end))
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list range: %w", err)
	}
	defer rows.Close()

	var entries []*EntryRecord
	for rows.Next() {
		var (
			entry EntryRecord
			hash  int64
		)
		if err := rows.Scan(&entry.NodeID, &entry.Key, &hash, &entry.Value); err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		entry.Hash = decodeHash(hash)
		entries = append(entries, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return entries, nil
}

// ListAll returns every entry of a node, ordered by hash.
func (q *Queries) ListAll(ctx context.Context, nodeID string) ([]*EntryRecord, error) {
	return q.ListRange(ctx, nodeID, 0, math.MaxUint64)
}

// CountEntries returns how many entries a node holds.
func (q *Queries) CountEntries(ctx context.Context, nodeID string) (int, error) {
	var (
		query = fmt.Sprintf(countEntriesSQL, q.tableName)
		count int
	)
	if err := q.db.QueryRowContext(ctx, query, nodeID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count entries: %w", err)
	}
	return count, nil
}

// DeleteNode removes every entry of a node.
func (q *Queries) DeleteNode(ctx context.Context, nodeID string) error {
	var query = fmt.Sprintf(deleteNodeSQL, q.tableName)
	_, err := q.db.ExecContext(ctx, query, nodeID)
	if err != nil {
		return fmt.Errorf("failed to delete node entries: %w", err)
	}
	return nil
}
