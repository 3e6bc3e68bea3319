// Package overlap provides an in-process rerank model that scores passages
// by how many distinct query terms they contain. It needs no service and
// is the default when no cross-encoder is configured.
package overlap

import (
	"context"
	"strings"
	"unicode"

	"github.com/custodia-labs/juris/internal/core/ports/driven"
)

// Ensure RerankModel implements the interface.
var _ driven.RerankModel = (*RerankModel)(nil)

// ModelName is reported in logs and results.
const ModelName = "term-overlap"

// ignored are words too common to say anything about relevance.
var ignored = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "are": {}, "was": {}, "were": {}, "with": {},
	"what": {}, "when": {}, "which": {}, "who": {}, "how": {}, "does": {}, "that": {},
	"this": {}, "from": {}, "has": {}, "have": {}, "its": {}, "shall": {}, "such": {},
}

// RerankModel scores passages by query term coverage.
// A passage containing every query term scores 1, one containing none scores 0.
type RerankModel struct{}

// NewRerankModel creates an overlap scorer.
func NewRerankModel() *RerankModel {
	return &RerankModel{}
}

// Score returns the fraction of distinct query terms found in each passage.
func (m *RerankModel) Score(ctx context.Context, query string, passages []string) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	terms := tokens(query)
	scores := make([]float64, len(passages))
	if len(terms) == 0 {
		return scores, nil
	}

	for i, p := range passages {
		present := tokens(p)
		hits := 0
		for t := range terms {
			if _, ok := present[t]; ok {
				hits++
			}
		}
		scores[i] = float64(hits) / float64(len(terms))
	}
	return scores, nil
}

// ModelName returns "term-overlap".
func (m *RerankModel) ModelName() string {
	return ModelName
}

// Ping always succeeds.
func (m *RerankModel) Ping(context.Context) error {
	return nil
}

func tokens(text string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, f := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '§'
	}) {
		if len([]rune(f)) < 3 && !strings.ContainsAny(f, "0123456789§") {
			continue
		}
		if _, skip := ignored[f]; skip {
			continue
		}
		out[f] = struct{}{}
	}
	return out
}
