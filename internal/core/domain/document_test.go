package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := ParseDate(s)
	require.NoError(t, err)
	return d
}

// TestChunk_Covers tests the effective-date window of a chunk
func TestChunk_Covers(t *testing.T) {
	end := mustDate(t, "2015-12-31")
	bounded := Chunk{ID: "c", EffectiveStart: mustDate(t, "2010-01-01"), EffectiveEnd: &end}
	open := Chunk{ID: "o", EffectiveStart: mustDate(t, "2016-01-01")}

	tests := []struct {
		name     string
		chunk    Chunk
		asAt     string
		expected bool
	}{
		{name: "inside window", chunk: bounded, asAt: "2012-06-01", expected: true},
		{name: "first day", chunk: bounded, asAt: "2010-01-01", expected: true},
		{name: "last day", chunk: bounded, asAt: "2015-12-31", expected: true},
		{name: "day before start", chunk: bounded, asAt: "2009-12-31", expected: false},
		{name: "after end", chunk: bounded, asAt: "2020-01-01", expected: false},
		{name: "open end far future", chunk: open, asAt: "2099-01-01", expected: true},
		{name: "open end before start", chunk: open, asAt: "2015-12-31", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.chunk.Covers(mustDate(t, tt.asAt)))
		})
	}
}

func TestChunk_CoversIgnoresTimeOfDay(t *testing.T) {
	end := mustDate(t, "2015-12-31")
	c := Chunk{EffectiveStart: mustDate(t, "2010-01-01"), EffectiveEnd: &end}

	late := time.Date(2015, 12, 31, 23, 59, 59, 0, time.UTC)
	assert.True(t, c.Covers(late))
}

func TestParseSourceType(t *testing.T) {
	st, err := ParseSourceType(" Statute ")
	require.NoError(t, err)
	assert.Equal(t, SourceStatute, st)

	st, err = ParseSourceType("judgment")
	require.NoError(t, err)
	assert.Equal(t, SourceJudgment, st)
	assert.True(t, st.IsValid())

	_, err = ParseSourceType("regulation")
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.False(t, SourceType("").IsValid())
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2012-06-01")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2012, 6, 1, 0, 0, 0, 0, time.UTC), d)

	_, err = ParseDate("01/06/2012")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestDateOnly(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	in := time.Date(2020, 3, 4, 1, 30, 0, 0, loc)
	assert.Equal(t, time.Date(2020, 3, 4, 0, 0, 0, 0, time.UTC), DateOnly(in))
}
