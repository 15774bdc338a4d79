package database

import (
	"database/sql"
	"fmt"
)

var (
	createEntriesTableSQL = `
CREATE TABLE IF NOT EXISTS %s_entries (
    node_id       VARCHAR       NOT NULL,
    key           VARCHAR       NOT NULL,
    hash          BIGINT        NOT NULL,
    value         TEXT          NOT NULL,

    PRIMARY KEY (node_id, key)
);`

	createEntriesHashIndexSQL = `
CREATE INDEX IF NOT EXISTS %s
ON %s_entries (node_id, hash);`
)

// Migrate creates the entries table with its hash index.
func Migrate(db *sql.DB, tableName string) error {
	if err := createEntriesTable(db, tableName); err != nil {
		return err
	}

	if err := createEntriesHashIndex(db, tableName); err != nil {
		return err
	}

	return nil
}

func createEntriesTable(db *sql.DB, tableName string) error {
	var query = fmt.Sprintf(createEntriesTableSQL, tableName)
	if _, err := db.Exec(query); err != nil {
		return fmt.Errorf("failed to create entries table: %w", err)
	}
	return nil
}

func createEntriesHashIndex(db *sql.DB, tableName string) error {
	var (
		indexName = fmt.Sprintf("%s_entries_hash_idx", tableName)
		query     = fmt.Sprintf(createEntriesHashIndexSQL, indexName, tableName)
	)
	if _, err := db.Exec(query); err != nil {
		return fmt.Errorf("failed to create entries hash index: %w", err)
	}
	return nil
}
