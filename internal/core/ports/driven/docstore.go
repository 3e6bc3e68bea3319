package driven

import (
	"context"

	"github.com/custodia-labs/juris/internal/core/domain"
)

// DocumentStore gives read access to authoritative parent documents.
// Backed by SQLite.
type DocumentStore interface {
	// ListParentIDs returns every authoritative document ID.
	ListParentIDs(ctx context.Context) ([]string, error)

	// GetParent retrieves a parent document by its authoritative ID.
	// Returns domain.ErrNotFound when absent.
	GetParent(ctx context.Context, docID string) (*domain.ParentDocument, error)

	// ParentLinks returns the aliases and verified chunk IDs of a document.
	ParentLinks(ctx context.Context, docID string) (domain.ParentLinks, error)

	// Version returns a token that changes whenever parents, aliases or
	// chunk links change. Used to detect a stale parent mapping.
	Version(ctx context.Context) (string, error)
}

// ChunkStore gives read access to chunks.
type ChunkStore interface {
	// GetChunks returns the chunks with the given IDs, keyed by ID.
	// Missing IDs are absent from the map rather than an error.
	GetChunks(ctx context.Context, ids []string) (map[string]domain.Chunk, error)
}
