package hashring

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindSources(t *testing.T) {
	var (
		n1, n2, n3, n4 = testNode("n1"), testNode("n2"), testNode("n3"), testNode("n4")

		span = func(start, end uint64, nodes ...testNode) Replicas[testNode] {
			if nodes == nil {
				nodes = []testNode{}
			}
			return Replicas[testNode]{Range: HashRange{Start: start, End: end}, Nodes: nodes}
		}
		newRings = func() (before, after *Ring[testNode]) {
			before = NewRing[testNode](1, 2, WithHasher(layout))
			require.NoError(t, before.BatchAdd(n1, n2, n3))
			after = before.Clone()
			require.NoError(t, after.Add(n4))
			return before, after
		}
	)

	t.Run("should copy the whole space between single node rings", func(t *testing.T) {
		// Arrange
		var (
			before = NewRing[testNode](0, 1, WithHasher(layout))
			after  = NewRing[testNode](0, 1, WithHasher(layout))
		)
		require.NoError(t, before.Add(n2))
		require.NoError(t, after.Add(n1))

		// Act
		var sources = after.FindSources(n1, before, []testNode{n2})

		// Assert
		assert.Equal(t, []Replicas[testNode]{span(0, math.MaxUint64, n2)}, sources)
	})

	t.Run("should find the ranges a new node takes over", func(t *testing.T) {
		// Arrange
		var before, after = newRings()

		// Act
		var sources = after.FindSources(n4, before, nil)

		// Assert
		assert.Equal(t, []Replicas[testNode]{
			span(0, 10, n3, n1),
			span(11, 15, n1, n2),
			span(21, 35, n2, n1),
			span(51, math.MaxUint64, n3, n1),
		}, sources)
	})

	t.Run("should find nothing for nodes that already hold their ranges", func(t *testing.T) {
		// Arrange
		var before, after = newRings()

		// Act & Assert
		for _, node := range []testNode{n1, n2, n3} {
			assert.Empty(t, after.FindSources(node, before, nil), "node %s", node)
		}
	})

	t.Run("should restrict sources to available nodes", func(t *testing.T) {
		// Arrange
		var before, after = newRings()

		// Act
		var sources = after.FindSources(n4, before, []testNode{n2})

		// Assert
		assert.Equal(t, []Replicas[testNode]{
			span(0, 10),
			span(11, 15, n2),
			span(21, 35, n2),
			span(51, math.MaxUint64),
		}, sources)

		var _, ok = sources[0].Source()
		assert.False(t, ok, "no available node held this range")
		var source, _ = sources[1].Source()
		assert.Equal(t, n2, source)
	})

	t.Run("should find where survivors copy from after a removal", func(t *testing.T) {
		// Arrange
		var before, _ = newRings()
		var after = before.Clone()
		require.NoError(t, after.Remove(n2))

		// Act
		var sources = after.FindSources(n3, before, after.Nodes())

		// Assert
		// Without n2 the ring is @10 n3, @20 n1, @50 n1, @60 n3; n3 gains (10..40].
		assert.Equal(t, []Replicas[testNode]{span(11, 40, n1)}, sources)
	})

	t.Run("should find nothing for unchanged ranges when the target is not available", func(t *testing.T) {
		// Arrange
		var (
			before, _ = newRings()
			after     = before.Clone()
		)

		// Act
		var sources = after.FindSources(n1, before, []testNode{n2, n3})

		// Assert
		assert.Empty(t, sources)
	})

	t.Run("should skip ranges the target held when it is not available", func(t *testing.T) {
		// Arrange
		var before, _ = newRings()
		var after = before.Clone()
		require.NoError(t, after.Remove(n2))

		// Act
		var sources = after.FindSources(n3, before, []testNode{n1})

		// Assert
		// n3 held (0..10] and (40..max] before, only (10..40] is new to it.
		assert.Equal(t, []Replicas[testNode]{span(11, 40, n1)}, sources)
	})

	t.Run("should return nothing for a target outside the ring", func(t *testing.T) {
		// Arrange
		var before, after = newRings()

		// Act & Assert
		assert.Empty(t, after.FindSources("n9", before, nil))
		assert.Empty(t, after.FindSources(n4, nil, nil))
	})

	t.Run("should return nothing when the reference ring is empty", func(t *testing.T) {
		// Arrange
		var (
			before   = NewRing[testNode](1, 2, WithHasher(layout))
			_, after = newRings()
		)

		// Act & Assert
		assert.Empty(t, after.FindSources(n4, before, nil))
	})

	t.Run("should pair every range gained by a new node with its prior owner", func(t *testing.T) {
		// Arrange
		var (
			nodes  = []testNode{"A", "B", "C"}
			before = NewRing[testNode](1, 2)
		)
		require.NoError(t, before.BatchAdd(nodes...))
		require.Len(t, before.GetString("foo"), 2)

		var after = before.Clone()
		require.NoError(t, after.Add("D"))

		// Act
		var sources = after.FindSources("D", before, nodes)

		// Assert
		require.NotEmpty(t, sources)
		var ranges = after.GetHashRanges()
		for _, source := range sources {
			var prior = before.GetByHash(source.Range.Start)
			assert.Equal(t, prior, source.Nodes, "range %s", source.Range)
			assert.Contains(t, after.GetByHash(source.Range.Start), testNode("D"))
			assert.Contains(t, after.GetByHash(source.Range.End), testNode("D"))

			var owning, found = rangeOwning(ranges, source.Range.Start)
			require.True(t, found)
			assert.True(t, owning.Has("D"))
		}
	})
}

func TestMergeReplicas(t *testing.T) {
	var span = func(start, end uint64, nodes ...testNode) Replicas[testNode] {
		return Replicas[testNode]{Range: HashRange{Start: start, End: end}, Nodes: nodes}
	}

	t.Run("should return nothing for no input", func(t *testing.T) {
		assert.Nil(t, MergeReplicas[testNode](nil))
	})

	t.Run("should merge touching ranges with identical nodes", func(t *testing.T) {
		// Arrange
		var input = []Replicas[testNode]{
			span(21, 30, "b", "a"),
			span(0, 10, "a"),
			span(11, 20, "a"),
			span(31, 40, "b", "a"),
			span(41, 50, "a", "b"),
		}

		// Act
		var merged = MergeReplicas(input)

		// Assert
		assert.Equal(t, []Replicas[testNode]{
			span(0, 20, "a"),
			span(21, 40, "b", "a"),
			span(41, 50, "a", "b"),
		}, merged)
		assert.Equal(t, span(21, 30, "b", "a"), input[0], "input must not be modified")
	})

	t.Run("should keep gaps between ranges", func(t *testing.T) {
		// Arrange
		var input = []Replicas[testNode]{span(0, 10, "a"), span(12, 20, "a")}

		// Act & Assert
		assert.Equal(t, input, MergeReplicas(input))
	})

	t.Run("should not wrap past the maximum", func(t *testing.T) {
		// Arrange
		var input = []Replicas[testNode]{span(0, 10, "a"), span(100, math.MaxUint64, "a")}

		// Act & Assert
		assert.Equal(t, input, MergeReplicas(input))
	})
}
