package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/custodia-labs/juris/internal/core/domain"
	"github.com/custodia-labs/juris/internal/core/ports/driven"
)

// Ensure the indexes implement the interfaces.
var (
	_ driven.TemporalLexicalIndex = (*LexicalIndex)(nil)
	_ driven.TemporalDenseIndex   = (*DenseIndex)(nil)
)

// indexedChunk keeps the fields an index needs to filter by date.
type indexedChunk struct {
	chunk domain.Chunk
	terms map[string]int
}

// LexicalIndex is an in-memory term-frequency index.
// Scores are sum(tf * log(1 + N/df)) over the query terms.
type LexicalIndex struct {
	mu     sync.RWMutex
	chunks map[string]indexedChunk
	df     map[string]int
}

// NewLexicalIndex creates an empty lexical index.
func NewLexicalIndex() *LexicalIndex {
	return &LexicalIndex{
		chunks: make(map[string]indexedChunk),
		df:     make(map[string]int),
	}
}

// Index adds or replaces chunks.
func (x *LexicalIndex) Index(chunks ...domain.Chunk) {
	x.mu.Lock()
	defer x.mu.Unlock()
	for _, c := range chunks {
		if old, ok := x.chunks[c.ID]; ok {
			for t := range old.terms {
				x.df[t]--
			}
		}
		terms := termCounts(c.Text)
		for t := range terms {
			x.df[t]++
		}
		x.chunks[c.ID] = indexedChunk{chunk: c, terms: terms}
	}
}

// Search returns the k best chunks for the terms.
func (x *LexicalIndex) Search(ctx context.Context, terms []string, k int) ([]driven.LexicalHit, error) {
	return x.search(ctx, terms, k, nil)
}

// SearchAsAt returns the k best chunks in force on asAt.
func (x *LexicalIndex) SearchAsAt(
	ctx context.Context, terms []string, k int, asAt time.Time,
) ([]driven.LexicalHit, error) {
	return x.search(ctx, terms, k, &asAt)
}

func (x *LexicalIndex) search(ctx context.Context, terms []string, k int, asAt *time.Time) ([]driven.LexicalHit, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrIndexUnavailable, err)
	}
	if k <= 0 || len(terms) == 0 {
		return []driven.LexicalHit{}, nil
	}

	x.mu.RLock()
	defer x.mu.RUnlock()

	n := float64(len(x.chunks))
	hits := make([]driven.LexicalHit, 0)
	for id, ic := range x.chunks {
		if asAt != nil && !ic.chunk.Covers(*asAt) {
			continue
		}
		score := 0.0
		for _, t := range terms {
			if tf := ic.terms[t]; tf > 0 {
				score += float64(tf) * math.Log(1+n/float64(x.df[t]))
			}
		}
		if score > 0 {
			hits = append(hits, driven.LexicalHit{ChunkID: id, Score: score})
		}
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ChunkID < hits[j].ChunkID
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// DenseIndex is an in-memory exact cosine similarity index.
type DenseIndex struct {
	mu         sync.RWMutex
	dimensions int
	chunks     map[string]domain.Chunk
}

// NewDenseIndex creates an empty dense index for vectors of the given size.
func NewDenseIndex(dimensions int) *DenseIndex {
	return &DenseIndex{dimensions: dimensions, chunks: make(map[string]domain.Chunk)}
}

// Index adds or replaces chunks. Chunks without an embedding are skipped.
func (x *DenseIndex) Index(chunks ...domain.Chunk) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	for _, c := range chunks {
		if len(c.Embedding) == 0 {
			continue
		}
		if len(c.Embedding) != x.dimensions {
			return fmt.Errorf("%w: chunk %s has %d dimensions, index has %d",
				domain.ErrInvalidInput, c.ID, len(c.Embedding), x.dimensions)
		}
		x.chunks[c.ID] = c
	}
	return nil
}

// Search finds the k chunks most similar to the query vector.
func (x *DenseIndex) Search(ctx context.Context, embedding []float32, k int) ([]driven.DenseHit, error) {
	return x.search(ctx, embedding, k, nil)
}

// SearchAsAt finds the k most similar chunks in force on asAt.
func (x *DenseIndex) SearchAsAt(
	ctx context.Context, embedding []float32, k int, asAt time.Time,
) ([]driven.DenseHit, error) {
	return x.search(ctx, embedding, k, &asAt)
}

func (x *DenseIndex) search(ctx context.Context, embedding []float32, k int, asAt *time.Time) ([]driven.DenseHit, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrIndexUnavailable, err)
	}
	if len(embedding) != x.dimensions {
		return nil, fmt.Errorf("%w: query has %d dimensions, index has %d",
			domain.ErrInvalidInput, len(embedding), x.dimensions)
	}
	if k <= 0 {
		return []driven.DenseHit{}, nil
	}

	x.mu.RLock()
	defer x.mu.RUnlock()

	hits := make([]driven.DenseHit, 0, len(x.chunks))
	for id, c := range x.chunks {
		if asAt != nil && !c.Covers(*asAt) {
			continue
		}
		hits = append(hits, driven.DenseHit{ChunkID: id, Similarity: Cosine(embedding, c.Embedding)})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Similarity != hits[j].Similarity {
			return hits[i].Similarity > hits[j].Similarity
		}
		return hits[i].ChunkID < hits[j].ChunkID
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Cosine returns the cosine similarity of two equal-length vectors.
// A zero vector has similarity 0 with everything.
func Cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func termCounts(text string) map[string]int {
	counts := make(map[string]int)
	for _, t := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '§'
	}) {
		counts[t]++
	}
	return counts
}
