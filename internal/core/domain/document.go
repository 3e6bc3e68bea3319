package domain

import (
	"fmt"
	"strings"
	"time"
)

// SourceType is the kind of legal text a chunk or document comes from.
type SourceType string

const (
	// SourceStatute is legislation: acts, regulations, codes.
	SourceStatute SourceType = "statute"

	// SourceJudgment is case law: decisions and appeals.
	SourceJudgment SourceType = "judgment"
)

// ParseSourceType converts a string to a SourceType.
func ParseSourceType(s string) (SourceType, error) {
	switch SourceType(strings.ToLower(strings.TrimSpace(s))) {
	case SourceStatute:
		return SourceStatute, nil
	case SourceJudgment:
		return SourceJudgment, nil
	default:
		return "", fmt.Errorf("%w: unknown source type %q", ErrInvalidInput, s)
	}
}

// IsValid returns true for known source types.
func (t SourceType) IsValid() bool {
	return t == SourceStatute || t == SourceJudgment
}

// String returns the string form of the source type.
func (t SourceType) String() string {
	return string(t)
}

// Chunk is an immutable unit of retrievable legal text.
// Chunks are produced by an external ingestion run and never mutated here.
type Chunk struct {
	// ID is the stable, globally unique chunk identifier.
	ID string

	// ParentDocID is the parent reference declared by the ingestion run.
	// It may not match any authoritative document ID; resolve it through
	// the parent mapping instead of looking it up directly.
	ParentDocID string

	// Text is the passage content.
	Text string

	// EffectiveStart is the first day this version of the text is in force.
	EffectiveStart time.Time

	// EffectiveEnd is the last day in force. Nil means still in force.
	EffectiveEnd *time.Time

	// SourceType is statute or judgment.
	SourceType SourceType

	// Position is the ordinal position within the parent document.
	Position int

	// Embedding is the dense vector produced upstream.
	Embedding []float32
}

// Covers reports whether the chunk is in force on asAt.
// Comparison is by calendar day: start <= asAt <= end, with an open end
// treated as +infinity.
func (c *Chunk) Covers(asAt time.Time) bool {
	day := DateOnly(asAt)
	if day.Before(DateOnly(c.EffectiveStart)) {
		return false
	}
	if c.EffectiveEnd != nil && day.After(DateOnly(*c.EffectiveEnd)) {
		return false
	}
	return true
}

// ParentDocument is the statute or judgment that contains chunks.
// It is owned by the document store; the core only reads it.
type ParentDocument struct {
	// ID is the authoritative identifier in the document store.
	ID string

	// Title is the human-readable title.
	Title string

	// Citation is the formal citation (e.g. "Companies Act 2006, s.172").
	Citation string

	// SourceType is statute or judgment.
	SourceType SourceType

	// Jurisdiction is the issuing jurisdiction, when known.
	Jurisdiction string

	// Metadata contains arbitrary citation metadata.
	Metadata map[string]any

	// UpdatedAt is when the store last changed the document.
	UpdatedAt time.Time
}

// ParentLinks describes what the document store can verify about one
// authoritative document: the foreign IDs other processing runs used for it
// and the chunks known to belong to it.
type ParentLinks struct {
	// DocID is the authoritative document identifier.
	DocID string

	// Aliases are declared parent IDs that refer to DocID.
	Aliases []string

	// ChunkIDs are chunks verified to belong to DocID.
	ChunkIDs []string
}

// DateLayout is the calendar date format used for effective dates.
const DateLayout = "2006-01-02"

// DateOnly truncates t to midnight UTC of its calendar day.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q: %v", ErrInvalidInput, s, err)
	}
	return t, nil
}
