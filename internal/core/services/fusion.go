package services

import (
	"sort"

	"github.com/custodia-labs/juris/internal/core/domain"
	"github.com/custodia-labs/juris/internal/core/ports/driven"
)

// Index names used in candidates, errors and logs.
const (
	sourceLexical = "lexical"
	sourceDense   = "dense"
)

// rankedList is the ordered output of one index.
type rankedList struct {
	source string
	ids    []string
	scores []float64
}

func lexicalList(hits []driven.LexicalHit) rankedList {
	l := rankedList{source: sourceLexical, ids: make([]string, len(hits)), scores: make([]float64, len(hits))}
	for i, h := range hits {
		l.ids[i], l.scores[i] = h.ChunkID, h.Score
	}
	return l
}

func denseList(hits []driven.DenseHit) rankedList {
	l := rankedList{source: sourceDense, ids: make([]string, len(hits)), scores: make([]float64, len(hits))}
	for i, h := range hits {
		l.ids[i], l.scores[i] = h.ChunkID, h.Similarity
	}
	return l
}

// filter keeps hits whose chunk is known and passes f, truncated to k.
// It also reports how many hits referenced chunks missing from the store.
func (l rankedList) filter(chunks map[string]domain.Chunk, f TemporalFilter, k int) (rankedList, int) {
	out := rankedList{source: l.source}
	missing := 0
	for i, id := range l.ids {
		if len(out.ids) == k {
			break
		}
		c, ok := chunks[id]
		if !ok {
			missing++
			continue
		}
		if !f.Covers(&c) {
			continue
		}
		out.ids = append(out.ids, id)
		out.scores = append(out.scores, l.scores[i])
	}
	return out, missing
}

// Fuse merges lexical and dense rankings with Reciprocal Rank Fusion.
//
// Each chunk scores sum(1 / (rrfK + rank)) over the lists containing it,
// with 1-based ranks. Ties are broken by chunk ID ascending so the order
// never depends on map iteration. The result is truncated to width
// (width <= 0 keeps everything).
func Fuse(lexical []driven.LexicalHit, dense []driven.DenseHit, rrfK, width int) []domain.RankedCandidate {
	return fuseLists(rrfK, width, lexicalList(lexical), denseList(dense))
}

func fuseLists(rrfK, width int, lists ...rankedList) []domain.RankedCandidate {
	byID := make(map[string]*domain.RankedCandidate)
	order := make([]string, 0)

	for _, list := range lists {
		seen := make(map[string]struct{}, len(list.ids))
		rank := 0
		for i, id := range list.ids {
			// Adapters promise unique IDs; a repeat would double count.
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			rank++

			c, ok := byID[id]
			if !ok {
				c = &domain.RankedCandidate{ChunkID: id}
				byID[id] = c
				order = append(order, id)
			}
			score := list.scores[i]
			switch list.source {
			case sourceLexical:
				c.LexicalScore, c.LexicalRank = &score, rank
			case sourceDense:
				c.DenseScore, c.DenseRank = &score, rank
			}
			c.FusedScore += 1.0 / float64(rrfK+rank)
		}
	}

	fused := make([]domain.RankedCandidate, 0, len(order))
	for _, id := range order {
		fused = append(fused, *byID[id])
	}

	sort.Slice(fused, func(i, j int) bool {
		if fused[i].FusedScore != fused[j].FusedScore {
			return fused[i].FusedScore > fused[j].FusedScore
		}
		return fused[i].ChunkID < fused[j].ChunkID
	})

	if width > 0 && len(fused) > width {
		fused = fused[:width]
	}
	for i := range fused {
		fused[i].FusedRank = i + 1
	}
	return fused
}
