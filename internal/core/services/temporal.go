package services

import (
	"time"

	"github.com/custodia-labs/juris/internal/core/domain"
)

// TemporalFilter restricts candidates to chunks in force on an as-at date.
// The zero value passes every chunk.
type TemporalFilter struct {
	asAt *time.Time
}

// NewTemporalFilter creates a filter for the given date. Nil disables filtering.
func NewTemporalFilter(asAt *time.Time) TemporalFilter {
	if asAt == nil {
		return TemporalFilter{}
	}
	day := domain.DateOnly(*asAt)
	return TemporalFilter{asAt: &day}
}

// Active returns true when an as-at date is set.
func (f TemporalFilter) Active() bool {
	return f.asAt != nil
}

// AsAt returns the filter date. Only valid when Active.
func (f TemporalFilter) AsAt() time.Time {
	if f.asAt == nil {
		return time.Time{}
	}
	return *f.asAt
}

// Covers reports whether the chunk passes the filter.
func (f TemporalFilter) Covers(c *domain.Chunk) bool {
	if f.asAt == nil {
		return true
	}
	return c.Covers(*f.asAt)
}

// RetrievalWidth returns how many hits to request from an index that cannot
// filter by date itself. Filtering downstream of a size-bounded query would
// otherwise starve the fused list, so k is multiplied by widening.
func (f TemporalFilter) RetrievalWidth(k, widening int) int {
	if f.asAt == nil || widening <= 1 {
		return k
	}
	return k * widening
}
