package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/juris/internal/core/domain"
	"github.com/custodia-labs/juris/internal/core/ports/driven"
)

func lexHits(ids ...string) []driven.LexicalHit {
	hits := make([]driven.LexicalHit, len(ids))
	for i, id := range ids {
		hits[i] = driven.LexicalHit{ChunkID: id, Score: float64(len(ids) - i)}
	}
	return hits
}

func denseHits(ids ...string) []driven.DenseHit {
	hits := make([]driven.DenseHit, len(ids))
	for i, id := range ids {
		hits[i] = driven.DenseHit{ChunkID: id, Similarity: 1 - float64(i)/10}
	}
	return hits
}

func candidateIDs(cs []domain.RankedCandidate) []string {
	ids := make([]string, len(cs))
	for i, c := range cs {
		ids[i] = c.ChunkID
	}
	return ids
}

func TestFuse_HandComputed(t *testing.T) {
	fused := Fuse(lexHits("A", "B", "C"), denseHits("B", "A", "D"), 60, 0)

	require.Len(t, fused, 4)
	// A and B both score 1/61 + 1/62; C and D both score 1/63.
	assert.Equal(t, []string{"A", "B", "C", "D"}, candidateIDs(fused))
	assert.InDelta(t, 1.0/61+1.0/62, fused[0].FusedScore, 1e-12)
	assert.InDelta(t, 1.0/61+1.0/62, fused[1].FusedScore, 1e-12)
	assert.InDelta(t, 1.0/63, fused[2].FusedScore, 1e-12)
	assert.InDelta(t, 1.0/63, fused[3].FusedScore, 1e-12)

	a := fused[0]
	assert.Equal(t, 1, a.LexicalRank)
	assert.Equal(t, 2, a.DenseRank)
	require.NotNil(t, a.LexicalScore)
	require.NotNil(t, a.DenseScore)
	assert.Equal(t, 1, a.FusedRank)
	assert.Nil(t, a.RerankScore)

	c, d := fused[2], fused[3]
	assert.Equal(t, 3, c.LexicalRank)
	assert.Zero(t, c.DenseRank)
	assert.Nil(t, c.DenseScore)
	assert.Equal(t, 3, d.DenseRank)
	assert.Nil(t, d.LexicalScore)
	assert.Equal(t, 4, d.FusedRank)
}

func TestFuse_TieBreakIndependentOfInputOrder(t *testing.T) {
	first := Fuse(lexHits("B", "A"), denseHits("A", "B"), 60, 0)
	second := Fuse(lexHits("A", "B"), denseHits("B", "A"), 60, 0)

	assert.Equal(t, []string{"A", "B"}, candidateIDs(first))
	assert.Equal(t, candidateIDs(first), candidateIDs(second))
}

func TestFuse_SingleList(t *testing.T) {
	fused := Fuse(lexHits("x", "y"), nil, 60, 0)

	require.Len(t, fused, 2)
	assert.Equal(t, []string{"x", "y"}, candidateIDs(fused))
	assert.InDelta(t, 1.0/61, fused[0].FusedScore, 1e-12)

	fused = Fuse(nil, denseHits("z"), 60, 0)
	require.Len(t, fused, 1)
	assert.Equal(t, 1, fused[0].DenseRank)
}

func TestFuse_Empty(t *testing.T) {
	assert.Empty(t, Fuse(nil, nil, 60, 10))
}

func TestFuse_TruncatesToWidth(t *testing.T) {
	fused := Fuse(lexHits("a", "b", "c", "d"), denseHits("e", "f"), 60, 3)

	require.Len(t, fused, 3)
	for i, c := range fused {
		assert.Equal(t, i+1, c.FusedRank)
	}
}

func TestFuse_IgnoresDuplicateHits(t *testing.T) {
	fused := Fuse(lexHits("a", "a", "b"), nil, 60, 0)

	require.Len(t, fused, 2)
	assert.InDelta(t, 1.0/61, fused[0].FusedScore, 1e-12)
	assert.Equal(t, 2, fused[1].LexicalRank)
}

func TestFuse_RRFKChangesScores(t *testing.T) {
	fused := Fuse(lexHits("a"), nil, 1, 0)
	assert.InDelta(t, 0.5, fused[0].FusedScore, 1e-12)
}
