// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - EmbeddingService: Raw text-to-vector model access
//   - Encoder: Variant abstraction (dense or late-interaction) over embeddings
//   - VectorIndex: Representation storage and similarity search
//   - ChunkStore: chunk_id -> text + source metadata sidecar
//
// # Optional Interfaces
//
// These can be nil - the pipeline degrades gracefully:
//
//   - GenerationService: Answer generation. Without it, queries return
//     a degraded answer carrying the retrieved sources.
//   - PromptStore: User-customisable prompt templates. Without it,
//     embedded defaults are used.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
