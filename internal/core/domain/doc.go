// Package domain defines the core business entities for mailrag.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: An email supplied by the ingestion collaborator
//   - Chunk: A bounded slice of a document field, the unit of retrieval
//   - Representation: The vector form of a chunk or query
//   - Manifest: Build-time metadata gating index reuse
//   - RetrievalResult / Answer: Per-query outputs
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
