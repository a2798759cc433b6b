package retriever

import (
	"context"
	"fmt"
	"math"
	"strconv"

	"importrag/internal/domain"
	"importrag/internal/port"
)

// Metadata keys stored alongside every collection entry.
const (
	MetaSource     = "source"
	MetaPage       = "page"
	MetaChunkIndex = "chunk_index"
)

// DenseRetriever searches a vector collection with an embedded query.
type DenseRetriever struct {
	collection port.Collection
	embedder   port.Embedder
}

func NewDenseRetriever(collection port.Collection, embedder port.Embedder) *DenseRetriever {
	return &DenseRetriever{
		collection: collection,
		embedder:   embedder,
	}
}

// Search embeds the query, takes the k nearest entries and converts each squared L2
// distance d into score 1/(1+d), rounded to four places.
func (r *DenseRetriever) Search(ctx context.Context, query string, k int) ([]domain.ScoredChunk, error) {
	if r.collection == nil || r.embedder == nil {
		return nil, fmt.Errorf("dense search: %w", domain.ErrEngineDisabled)
	}

	embeddings, err := r.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w: %w", domain.ErrEmbedding, err)
	}
	if len(embeddings) == 0 {
		return nil, fmt.Errorf("%w: empty result for query", domain.ErrEmbedding)
	}

	hits, err := r.collection.Query(embeddings[0], k)
	if err != nil {
		return nil, fmt.Errorf("collection query failed: %w", err)
	}

	chunks := make([]domain.ScoredChunk, 0, len(hits))
	for _, hit := range hits {
		chunks = append(chunks, domain.ScoredChunk{
			Chunk: ChunkFromHit(hit),
			Score: DistanceScore(hit.Distance),
		})
	}

	return chunks, nil
}

// DistanceScore maps a non-negative distance into (0, 1].
func DistanceScore(d float64) float64 {
	if d < 0 {
		d = 0
	}
	score := math.Round(1.0/(1.0+d)*1e4) / 1e4
	if score == 0 {
		// keep very distant matches inside (0, 1] after rounding
		return 1e-4
	}
	return score
}

// ChunkFromHit rebuilds chunk provenance from stored metadata.
func ChunkFromHit(hit port.CollectionHit) domain.Chunk {
	source := hit.Metadata[MetaSource]
	if source == "" {
		source = "unknown"
	}
	chunk := domain.Chunk{
		ID:     hit.ID,
		Text:   hit.Text,
		Source: source,
	}
	if p, err := strconv.Atoi(hit.Metadata[MetaPage]); err == nil && p > 0 {
		chunk.Page = domain.PageNumber(p)
	}
	if seq, err := strconv.Atoi(hit.Metadata[MetaChunkIndex]); err == nil {
		chunk.Seq = seq
	}
	return chunk
}
