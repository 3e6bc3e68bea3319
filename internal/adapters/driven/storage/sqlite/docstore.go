package sqlite

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/custodia-labs/juris/internal/core/domain"
	"github.com/custodia-labs/juris/internal/core/ports/driven"
)

// ==================== Document Store ====================

// documentStore implements driven.DocumentStore.
type documentStore struct {
	store *Store
}

var _ driven.DocumentStore = (*documentStore)(nil)

// ListParentIDs returns every parent document ID, sorted.
func (s *documentStore) ListParentIDs(ctx context.Context) ([]string, error) {
	return s.store.queryStrings(ctx, "SELECT id FROM parent_documents ORDER BY id")
}

// GetParent retrieves a parent document by ID.
func (s *documentStore) GetParent(ctx context.Context, docID string) (*domain.ParentDocument, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, title, citation, source_type, jurisdiction, metadata, updated_at
		FROM parent_documents WHERE id = ?
	`, docID)

	return scanParent(row)
}

// ParentLinks returns the aliases and linked chunk IDs of a document.
func (s *documentStore) ParentLinks(ctx context.Context, docID string) (domain.ParentLinks, error) {
	var exists int
	if err := s.store.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM parent_documents WHERE id = ?", docID).Scan(&exists); err != nil {
		return domain.ParentLinks{}, fmt.Errorf("checking parent document: %w", err)
	}
	if exists == 0 {
		return domain.ParentLinks{}, domain.ErrNotFound
	}

	aliases, err := s.store.queryStrings(ctx,
		"SELECT alias FROM parent_aliases WHERE doc_id = ? ORDER BY alias", docID)
	if err != nil {
		return domain.ParentLinks{}, err
	}
	chunkIDs, err := s.store.queryStrings(ctx,
		"SELECT chunk_id FROM chunk_links WHERE doc_id = ? ORDER BY chunk_id", docID)
	if err != nil {
		return domain.ParentLinks{}, err
	}

	return domain.ParentLinks{DocID: docID, Aliases: aliases, ChunkIDs: chunkIDs}, nil
}

// Version returns the store version maintained by triggers.
func (s *documentStore) Version(ctx context.Context) (string, error) {
	var version int64
	if err := s.store.db.QueryRowContext(ctx,
		"SELECT version FROM store_version WHERE id = 1").Scan(&version); err != nil {
		return "", fmt.Errorf("reading store version: %w", err)
	}
	return strconv.FormatInt(version, 10), nil
}

// ==================== Chunk Store ====================

// chunkStore implements driven.ChunkStore.
type chunkStore struct {
	store *Store
}

var _ driven.ChunkStore = (*chunkStore)(nil)

// chunkBatch bounds the number of bound parameters per query.
const chunkBatch = 500

// GetChunks returns the stored chunks among ids.
func (s *chunkStore) GetChunks(ctx context.Context, ids []string) (map[string]domain.Chunk, error) {
	out := make(map[string]domain.Chunk, len(ids))
	for start := 0; start < len(ids); start += chunkBatch {
		batch := ids[start:min(start+chunkBatch, len(ids))]

		args := make([]any, len(batch))
		for i, id := range batch {
			args[i] = id
		}
		rows, err := s.store.db.QueryContext(ctx, `
			SELECT id, parent_doc_id, content, effective_start, effective_end,
				source_type, position, embedding
			FROM chunks WHERE id IN (`+placeholders(len(batch))+`)`, args...)
		if err != nil {
			return nil, fmt.Errorf("querying chunks: %w", err)
		}

		for rows.Next() {
			chunk, err := scanChunk(rows)
			if err != nil {
				rows.Close()
				return nil, err
			}
			out[chunk.ID] = *chunk
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, fmt.Errorf("iterating chunks: %w", err)
		}
	}
	return out, nil
}

// queryStrings runs a query returning one text column.
func (s *Store) queryStrings(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying: %w", err)
	}
	defer rows.Close()

	var out []string //nolint:prealloc // size unknown from query
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scanning: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating: %w", err)
	}
	return out, nil
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?,", n-1) + "?"
}
