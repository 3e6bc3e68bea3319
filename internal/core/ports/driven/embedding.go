package driven

import "context"

// EmbeddingService generates vector embeddings from text.
// This is an optional service - when nil and the caller supplies no
// query vector, dense search is skipped for the query.
//
// Implementations may include:
//   - Ollama (nomic-embed-text, all-minilm)
//   - OpenAI-compatible embeddings endpoints
type EmbeddingService interface {
	// Embed generates a vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the embedding vector size.
	// This is determined by the model and must match the DenseIndex contents.
	Dimensions() int

	// ModelName returns the name of the embedding model being used.
	ModelName() string

	// Ping checks the service is reachable without running inference.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
