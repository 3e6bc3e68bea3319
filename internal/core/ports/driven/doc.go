// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the engine to function:
//
//   - DocumentStore: Parent documents and the links used to build the parent mapping
//   - ChunkStore: Chunk text and effective dates for hydration and date filtering
//
// # Optional Interfaces
//
// These can be nil - the engine degrades gracefully:
//
//   - LexicalIndex: BM25-style term search. Without it, dense results are used alone.
//   - DenseIndex: Vector similarity search. Without it, lexical results are used alone.
//   - EmbeddingService: Generates the query vector when the caller did not supply one.
//   - RerankModel: Cross-encoder scoring. Without it, fused order is final and the
//     confidence gate withholds composition.
//
// At least one of LexicalIndex and DenseIndex must be present.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
