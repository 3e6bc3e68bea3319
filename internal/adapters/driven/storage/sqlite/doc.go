// Package sqlite provides a SQLite-based implementation of the driven storage
// and index ports.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. A single database file backs:
//
//   - DocumentStore: parent documents, aliases and verified chunk links
//   - ChunkStore: chunk text, effective dates and embeddings
//   - LexicalIndex: FTS5 full-text search ranked by bm25()
//   - DenseIndex: exact cosine similarity over stored embeddings
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
// Triggers keep the FTS5 table in step with chunks and bump a store version on
// every parent, alias or link change; the parent mapping cache polls it.
//
// # Data Location
//
// By default, the database is stored at ~/.juris/data/corpus.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode.
package sqlite
