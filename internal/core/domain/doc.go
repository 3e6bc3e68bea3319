// Package domain defines the core business entities for juris.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Chunk: An immutable retrievable passage of a statute or judgment
//   - ParentDocument: The statute or judgment a chunk belongs to
//   - QueryContext: Caller-supplied parameters of a single query
//   - RankedCandidate: Per-query ranking state of one chunk
//   - RankedResult: The ranked, expanded and labelled answer of a query
//   - EngineConfig: Pinned ranking constants and thresholds
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
