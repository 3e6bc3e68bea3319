package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/juris/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/juris/internal/core/domain"
	"github.com/custodia-labs/juris/internal/core/ports/driven"
)

// DatabaseFile is the corpus database file name inside the data directory.
const DatabaseFile = "corpus.db"

// Store is a SQLite-based corpus store that provides access to the
// document, chunk and index ports through wrapper types.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.juris/data/corpus.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".juris", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, DatabaseFile)

	// WAL for concurrent readers; foreign keys must be on for every pooled connection.
	db, err := sql.Open("sqlite", dbPath+
		"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	// Run migrations
	if err := migrate(context.Background(), db, migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// DocumentStore returns a DocumentStore interface backed by this store.
func (s *Store) DocumentStore() driven.DocumentStore {
	return &documentStore{store: s}
}

// ChunkStore returns a ChunkStore interface backed by this store.
func (s *Store) ChunkStore() driven.ChunkStore {
	return &chunkStore{store: s}
}

// LexicalIndex returns the FTS5 lexical index backed by this store.
func (s *Store) LexicalIndex() driven.TemporalLexicalIndex {
	return &lexicalIndex{store: s}
}

// DenseIndex returns the embedding similarity index backed by this store.
func (s *Store) DenseIndex() driven.TemporalDenseIndex {
	return &denseIndex{store: s}
}

// ==================== Writes ====================

// SaveParent stores or updates a parent document.
func (s *Store) SaveParent(ctx context.Context, doc *domain.ParentDocument) error {
	if doc == nil || doc.ID == "" {
		return fmt.Errorf("%w: parent document id required", domain.ErrInvalidInput)
	}

	metadataJSON, err := json.Marshal(doc.Metadata)
	if err != nil {
		return fmt.Errorf("marshalling metadata: %w", err)
	}
	updatedAt := doc.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO parent_documents (id, title, citation, source_type, jurisdiction, metadata, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			citation = excluded.citation,
			source_type = excluded.source_type,
			jurisdiction = excluded.jurisdiction,
			metadata = excluded.metadata,
			updated_at = excluded.updated_at
	`, doc.ID, doc.Title, doc.Citation, doc.SourceType.String(), doc.Jurisdiction,
		string(metadataJSON), updatedAt)
	if err != nil {
		return fmt.Errorf("saving parent document: %w", err)
	}
	return nil
}

// DeleteParent removes a parent document with its aliases and chunk links.
func (s *Store) DeleteParent(ctx context.Context, docID string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM parent_documents WHERE id = ?", docID)
	if err != nil {
		return fmt.Errorf("deleting parent document: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// AddAlias records a declared ID under which docID was known to another run.
func (s *Store) AddAlias(ctx context.Context, docID, alias string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO parent_aliases (alias, doc_id) VALUES (?, ?)", alias, docID)
	if err != nil {
		return fmt.Errorf("adding alias: %w", mapConstraintError(err))
	}
	return nil
}

// LinkChunks records chunks verified to belong to docID.
func (s *Store) LinkChunks(ctx context.Context, docID string, chunkIDs ...string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx,
		"INSERT OR IGNORE INTO chunk_links (chunk_id, doc_id) VALUES (?, ?)")
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, id := range chunkIDs {
		if _, err := stmt.ExecContext(ctx, id, docID); err != nil {
			return fmt.Errorf("linking chunk %s: %w", id, mapConstraintError(err))
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// SaveChunks stores or replaces chunks.
func (s *Store) SaveChunks(ctx context.Context, chunks []domain.Chunk) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, parent_doc_id, content, effective_start, effective_end,
			source_type, position, embedding)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			parent_doc_id = excluded.parent_doc_id,
			content = excluded.content,
			effective_start = excluded.effective_start,
			effective_end = excluded.effective_end,
			source_type = excluded.source_type,
			position = excluded.position,
			embedding = excluded.embedding
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, c := range chunks {
		if c.ID == "" {
			return fmt.Errorf("%w: chunk id required", domain.ErrInvalidInput)
		}
		var end any
		if c.EffectiveEnd != nil {
			end = formatDate(*c.EffectiveEnd)
		}
		if _, err := stmt.ExecContext(ctx, c.ID, c.ParentDocID, c.Text, formatDate(c.EffectiveStart),
			end, c.SourceType.String(), c.Position, float32SliceToBytes(c.Embedding)); err != nil {
			return fmt.Errorf("saving chunk %s: %w", c.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// ==================== Helper Functions ====================

// float32SliceToBytes converts a []float32 to a byte slice for storage.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}

func formatDate(t time.Time) string {
	return domain.DateOnly(t).Format(domain.DateLayout)
}

func parseStoredDate(s string) (time.Time, error) {
	t, err := time.Parse(domain.DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing stored date %q: %w", s, err)
	}
	return t, nil
}

// mapConstraintError turns a foreign key violation into domain.ErrNotFound.
func mapConstraintError(err error) error {
	if err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed") {
		return fmt.Errorf("%w: %v", domain.ErrNotFound, err)
	}
	return err
}

// scanChunk scans a chunk from *sql.Rows.
func scanChunk(rows *sql.Rows) (*domain.Chunk, error) {
	var chunk domain.Chunk
	var start, sourceType string
	var end sql.NullString
	var embeddingBlob []byte

	if err := rows.Scan(&chunk.ID, &chunk.ParentDocID, &chunk.Text, &start, &end,
		&sourceType, &chunk.Position, &embeddingBlob); err != nil {
		return nil, fmt.Errorf("scanning chunk: %w", err)
	}

	var err error
	if chunk.EffectiveStart, err = parseStoredDate(start); err != nil {
		return nil, err
	}
	if end.Valid {
		e, err := parseStoredDate(end.String)
		if err != nil {
			return nil, err
		}
		chunk.EffectiveEnd = &e
	}
	chunk.SourceType = domain.SourceType(sourceType)
	chunk.Embedding = bytesToFloat32Slice(embeddingBlob)

	return &chunk, nil
}

// scanParent scans a single parent document row.
func scanParent(row *sql.Row) (*domain.ParentDocument, error) {
	var doc domain.ParentDocument
	var sourceType, metadataJSON string

	if err := row.Scan(&doc.ID, &doc.Title, &doc.Citation, &sourceType, &doc.Jurisdiction,
		&metadataJSON, &doc.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning parent document: %w", err)
	}
	doc.SourceType = domain.SourceType(sourceType)

	if metadataJSON != "" && metadataJSON != "null" {
		if err := json.Unmarshal([]byte(metadataJSON), &doc.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshaling metadata: %w", err)
		}
	}

	return &doc, nil
}
