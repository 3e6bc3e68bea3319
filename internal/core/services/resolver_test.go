package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/juris/internal/core/domain"
)

func TestParentResolver_Resolve(t *testing.T) {
	m, err := BuildMapping(context.Background(), divergentStore(t), time.Now())
	require.NoError(t, err)
	r := NewParentResolver(m)

	tests := []struct {
		name     string
		chunkID  string
		declared string
		want     string
		wantErr  bool
	}{
		{"declared alias", "ert-s86", legacyParent, ertAct, false},
		{"declared authoritative", "ert-s1", ertAct, ertAct, false},
		{"chunk link wins over declared", "polkey-1", legacyParent, judgment, false},
		{"chunk link without declared", "polkey-1", "", judgment, false},
		{"unknown declared", "x-1", "ffffffffffffffff", "", true},
		{"nothing declared", "x-2", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Resolve(tt.chunkID, tt.declared)
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrParentMappingMiss)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParentResolver_NeverReturnsDeclaredForeignID(t *testing.T) {
	m, err := BuildMapping(context.Background(), divergentStore(t), time.Now())
	require.NoError(t, err)

	got, err := NewParentResolver(m).Resolve("ert-s86", legacyParent)

	require.NoError(t, err)
	assert.NotEqual(t, legacyParent, got)
}

func TestParentResolver_NoMapping(t *testing.T) {
	_, err := NewParentResolver(nil).Resolve("c", ertAct)

	assert.ErrorIs(t, err, domain.ErrParentMappingMiss)
	assert.ErrorIs(t, err, domain.ErrMappingNotBuilt)
}

func TestParentExpander_Expand(t *testing.T) {
	store := &mockDocumentStore{DocumentStore: divergentStore(t)}
	m, err := BuildMapping(context.Background(), store, time.Now())
	require.NoError(t, err)

	items := []domain.ResultItem{
		{Chunk: domain.Chunk{ID: "ert-s86", ParentDocID: legacyParent}},
		{Chunk: domain.Chunk{ID: "ert-s98", ParentDocID: legacyParent}},
		{Chunk: domain.Chunk{ID: "polkey-1", ParentDocID: "stale-run-id"}},
		{Chunk: domain.Chunk{ID: "orphan", ParentDocID: "ffffffffffffffff"}},
	}

	unexpandable := NewParentExpander(store, 2).Expand(context.Background(), NewParentResolver(m), items)

	assert.Equal(t, 1, unexpandable)

	require.True(t, items[0].Expandable)
	assert.Equal(t, ertAct, items[0].ParentDocID)
	assert.Equal(t, "Employment Rights Act 1996", items[0].Parent.Title)
	assert.Same(t, items[0].Parent, items[1].Parent)

	require.True(t, items[2].Expandable)
	assert.Equal(t, judgment, items[2].Parent.ID)

	assert.False(t, items[3].Expandable)
	assert.Nil(t, items[3].Parent)
	assert.Empty(t, items[3].ParentDocID)

	// Each distinct parent is fetched once.
	assert.Equal(t, map[string]int{ertAct: 1, judgment: 1}, store.fetched)
}

func TestParentExpander_FetchMiss(t *testing.T) {
	store := &mockDocumentStore{DocumentStore: divergentStore(t), hidden: map[string]bool{ertAct: true}}
	m, err := BuildMapping(context.Background(), store, time.Now())
	require.NoError(t, err)

	items := []domain.ResultItem{{Chunk: domain.Chunk{ID: "ert-s86", ParentDocID: legacyParent}}}
	assert.Equal(t, 1, NewParentExpander(store, 0).Expand(context.Background(), NewParentResolver(m), items))

	assert.False(t, items[0].Expandable)
	assert.Nil(t, items[0].Parent)
	assert.Equal(t, ertAct, items[0].ParentDocID)
}

func TestParentExpander_NoMapping(t *testing.T) {
	items := []domain.ResultItem{{Chunk: domain.Chunk{ID: "ert-s86", ParentDocID: ertAct}}}

	assert.Equal(t, 1, NewParentExpander(divergentStore(t), 4).Expand(context.Background(), NewParentResolver(nil), items))
	assert.Zero(t, NewParentExpander(divergentStore(t), 4).Expand(context.Background(), NewParentResolver(nil), nil))

	assert.False(t, items[0].Expandable)
}
