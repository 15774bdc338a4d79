package database

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueries(t *testing.T) {
	var (
		newDb = func(t *testing.T) *Queries {
			var db = SetupTestDatabase(t)
			err := Migrate(db, "test_hashring")
			require.NoError(t, err)
			return NewQueries(db, "test_hashring")
		}
		newCtx = func() context.Context {
			return context.Background()
		}
		newEntry = func(nodeID, key string, hash uint64) *EntryRecord {
			return &EntryRecord{
				NodeID: nodeID,
				Key:    key,
				Hash:   hash,
				Value:  "value-" + key,
			}
		}
	)

	t.Run("should put and get entry", func(t *testing.T) {
		// Arrange
		var (
			sut   = newDb(t)
			ctx   = newCtx()
			entry = newEntry("node-1", "key-1", 100)
		)

		// Act
		err := sut.PutEntry(ctx, entry)
		require.NoError(t, err)

		var retrieved, getErr = sut.GetEntry(ctx, "node-1", "key-1")

		// Assert
		require.NoError(t, getErr)
		require.NotNil(t, retrieved)
		assert.Equal(t, entry, retrieved)
	})

	t.Run("should return nil for non-existent entry", func(t *testing.T) {
		// Arrange
		var (
			sut = newDb(t)
			ctx = newCtx()
		)

		// Act
		var retrieved, err = sut.GetEntry(ctx, "node-1", "missing")

		// Assert
		require.NoError(t, err)
		assert.Nil(t, retrieved)
	})

	t.Run("should update existing entry on conflict", func(t *testing.T) {
		// Arrange
		var (
			sut    = newDb(t)
			ctx    = newCtx()
			first  = newEntry("node-1", "key-1", 100)
			second = &EntryRecord{NodeID: "node-1", Key: "key-1", Hash: 100, Value: "changed"}
		)

		// Act
		require.NoError(t, sut.PutEntry(ctx, first))
		require.NoError(t, sut.PutEntry(ctx, second))

		var retrieved, err = sut.GetEntry(ctx, "node-1", "key-1")

		// Assert
		require.NoError(t, err)
		require.NotNil(t, retrieved)
		assert.Equal(t, "changed", retrieved.Value)
	})

	t.Run("should list range in unsigned hash order", func(t *testing.T) {
		// Arrange
		var (
			sut     = newDb(t)
			ctx     = newCtx()
			entries = []*EntryRecord{
				newEntry("node-1", "top", math.MaxUint64),
				newEntry("node-1", "high", 1<<63),
				newEntry("node-1", "low", 5),
				newEntry("node-1", "mid", 1<<62),
				newEntry("node-2", "other", 1<<62),
			}
		)

		// Act - insert in random order
		for _, entry := range entries {
			require.NoError(t, sut.PutEntry(ctx, entry))
		}

		var (
			upper, upperErr = sut.ListRange(ctx, "node-1", 1<<62, math.MaxUint64)
			all, allErr     = sut.ListAll(ctx, "node-1")
		)

		// Assert - positions above 2^63 must sort after lower ones
		require.NoError(t, upperErr)
		require.Len(t, upper, 3)
		assert.Equal(t, "mid", upper[0].Key)
		assert.Equal(t, "high", upper[1].Key)
		assert.Equal(t, "top", upper[2].Key)
		assert.Equal(t, uint64(math.MaxUint64), upper[2].Hash)

		require.NoError(t, allErr)
		require.Len(t, all, 4)
		assert.Equal(t, "low", all[0].Key)
	})

	t.Run("should return nothing for an inverted range", func(t *testing.T) {
		// Arrange
		var (
			sut = newDb(t)
			ctx = newCtx()
		)
		require.NoError(t, sut.PutEntry(ctx, newEntry("node-1", "key-1", 50)))

		// Act
		var entries, err = sut.ListRange(ctx, "node-1", 100, 10)

		// Assert
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("should count and delete entries per node", func(t *testing.T) {
		// Arrange
		var (
			sut = newDb(t)
			ctx = newCtx()
		)
		require.NoError(t, sut.PutEntry(ctx, newEntry("node-1", "a", 1)))
		require.NoError(t, sut.PutEntry(ctx, newEntry("node-1", "b", 2)))
		require.NoError(t, sut.PutEntry(ctx, newEntry("node-2", "a", 1)))

		// Act
		var before, countErr = sut.CountEntries(ctx, "node-1")
		require.NoError(t, countErr)
		require.NoError(t, sut.DeleteNode(ctx, "node-1"))

		// Assert
		assert.Equal(t, 2, before)

		var after, err = sut.CountEntries(ctx, "node-1")
		require.NoError(t, err)
		assert.Equal(t, 0, after)

		var other, otherErr = sut.CountEntries(ctx, "node-2")
		require.NoError(t, otherErr)
		assert.Equal(t, 1, other, "other nodes must keep their entries")
	})
}

func TestEncodeHash(t *testing.T) {
	t.Run("should preserve unsigned order", func(t *testing.T) {
		var hashes = []uint64{0, 1, 1<<63 - 1, 1 << 63, math.MaxUint64}
		for i := 1; i < len(hashes); i++ {
			assert.Less(t, encodeHash(hashes[i-1]), encodeHash(hashes[i]))
		}
	})

	t.Run("should round trip", func(t *testing.T) {
		for _, h := range []uint64{0, 42, 1 << 63, math.MaxUint64} {
			assert.Equal(t, h, decodeHash(encodeHash(h)))
		}
	})
}
