package port

import (
	"context"

	"importrag/internal/domain"
)

// Retriever defines the interface for searching indexed content.
type Retriever interface {
	// Search returns at most k chunks ordered by descending score.
	Search(ctx context.Context, query string, k int) ([]domain.ScoredChunk, error)
}
