package services

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/juris/internal/core/domain"
	"github.com/custodia-labs/juris/internal/core/ports/driven"
	"github.com/custodia-labs/juris/internal/logger"
)

// ParentResolver maps chunks to authoritative parent documents through a
// mapping snapshot. The declared parent ID on a chunk is never looked up
// in the document store directly; it may come from a different
// processing run than the stored documents.
type ParentResolver struct {
	mapping *Mapping
}

// NewParentResolver creates a resolver bound to one mapping snapshot.
func NewParentResolver(mapping *Mapping) *ParentResolver {
	return &ParentResolver{mapping: mapping}
}

// Resolve returns the authoritative parent ID for a chunk. The chunk-keyed
// entry wins over the declared-ID entry. Returns domain.ErrParentMappingMiss
// when neither exists.
func (r *ParentResolver) Resolve(chunkID, declared string) (string, error) {
	if r.mapping == nil {
		return "", fmt.Errorf("%w: %w", domain.ErrParentMappingMiss, domain.ErrMappingNotBuilt)
	}
	if docID, ok := r.mapping.LookupChunk(chunkID); ok {
		return docID, nil
	}
	if declared != "" {
		if docID, ok := r.mapping.LookupDeclared(declared); ok {
			return docID, nil
		}
	}
	return "", fmt.Errorf("%w: chunk %s declares %q", domain.ErrParentMappingMiss, chunkID, declared)
}

// ParentExpander fills ResultItems with their parent documents.
type ParentExpander struct {
	store       driven.DocumentStore
	concurrency int
}

// NewParentExpander creates an expander fetching at most concurrency parents at once.
func NewParentExpander(store driven.DocumentStore, concurrency int) *ParentExpander {
	if concurrency <= 0 {
		concurrency = domain.DefaultExpandConcurrency
	}
	return &ParentExpander{store: store, concurrency: concurrency}
}

// Expand resolves and fetches the parent of every item in place.
// Items that cannot be resolved or fetched are marked unexpandable and
// counted in the returned total; Expand itself never fails.
func (e *ParentExpander) Expand(ctx context.Context, resolver *ParentResolver, items []domain.ResultItem) int {
	if len(items) == 0 {
		return 0
	}
	defer logger.Stage("expand")()

	// Fetch each distinct parent once.
	wanted := make(map[string][]int)
	order := make([]string, 0, len(items))
	for i := range items {
		item := &items[i]
		item.Expandable = false
		item.Parent = nil

		docID, err := resolver.Resolve(item.Chunk.ID, item.Chunk.ParentDocID)
		if err != nil {
			logger.Warn("%v", err)
			continue
		}
		item.ParentDocID = docID
		if _, ok := wanted[docID]; !ok {
			order = append(order, docID)
		}
		wanted[docID] = append(wanted[docID], i)
	}

	parents := make([]*domain.ParentDocument, len(order))
	// Fetch failures only leave the item unexpandable, so no closure
	// returns an error.
	var g errgroup.Group
	g.SetLimit(e.concurrency)
	for n, docID := range order {
		g.Go(func() error {
			doc, err := e.store.GetParent(ctx, docID)
			switch {
			case errors.Is(err, domain.ErrNotFound):
				logger.Warn("parent %s resolved but not in document store", docID)
			case err != nil:
				logger.Warn("fetching parent %s: %v", docID, err)
			default:
				parents[n] = doc
			}
			return nil
		})
	}
	g.Wait()

	unexpandable := len(items)
	for n, docID := range order {
		if parents[n] == nil {
			continue
		}
		for _, i := range wanted[docID] {
			items[i].Parent = parents[n]
			items[i].Expandable = true
			unexpandable--
		}
	}
	return unexpandable
}
