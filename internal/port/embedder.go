package port

import "context"

// Embedder generates vector embeddings for text.
type Embedder interface {
	// Embed generates embeddings for the given texts.
	// Returns a slice of vectors, one per input text.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the embedding vector dimension.
	Dimension() int

	// ModelName returns the name of the embedding model.
	ModelName() string
}

// Collection is a persistent, similarity-searchable key -> (vector, text, metadata) map.
type Collection interface {
	// Upsert writes all items atomically. Existing keys are replaced.
	Upsert(items []CollectionItem) error

	// Query returns the k entries nearest to vector, ascending by distance.
	Query(vector []float32, k int) ([]CollectionHit, error)

	// Delete removes entries by key. Unknown keys are ignored.
	Delete(ids []string) error

	// SourceIDs lists the keys currently stored for a source file.
	SourceIDs(source string) ([]string, error)

	// Count returns the number of entries in the collection.
	Count() (int, error)
}

// CollectionItem represents an entry to be stored.
type CollectionItem struct {
	ID       string            // Content-derived key
	Vector   []float32         // Embedding vector
	Text     string            // Chunk text
	Metadata map[string]string // source, page, chunk_index
}

// CollectionHit represents a query result.
type CollectionHit struct {
	ID       string
	Text     string
	Metadata map[string]string
	Distance float64 // Squared L2 distance (lower is closer)
}
