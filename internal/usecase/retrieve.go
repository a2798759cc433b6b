package usecase

import (
	"context"
	"fmt"
	"strings"

	"importrag/internal/adapter/cache"
	"importrag/internal/domain"
	"importrag/internal/port"
)

// RetrieveUseCase validates search requests before they reach an engine.
type RetrieveUseCase struct {
	retriever         port.Retriever
	minScoreThreshold float64 // Filter results below this score (0 = disabled)
}

// NewRetrieveUseCase wraps r. A non-nil queryCache memoizes results; call Invalidate on it
// whenever the engine's content changes.
func NewRetrieveUseCase(r port.Retriever, queryCache *cache.QueryCache, minScoreThreshold float64) *RetrieveUseCase {
	if queryCache != nil {
		r = cache.NewCachedRetriever(r, queryCache)
	}
	return &RetrieveUseCase{
		retriever:         r,
		minScoreThreshold: minScoreThreshold,
	}
}

// Retrieve returns at most topK chunks, highest score first.
func (u *RetrieveUseCase) Retrieve(ctx context.Context, query string, topK int) ([]domain.ScoredChunk, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: query must not be empty", domain.ErrInvalidInput)
	}
	if topK <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", domain.ErrInvalidInput, topK)
	}

	results, err := u.retriever.Search(ctx, query, topK)
	if err != nil {
		return nil, err
	}

	if u.minScoreThreshold > 0 {
		results = u.filterByThreshold(results)
	}
	if results == nil {
		results = []domain.ScoredChunk{}
	}
	return results, nil
}

// filterByThreshold removes results below the minimum score threshold.
func (u *RetrieveUseCase) filterByThreshold(results []domain.ScoredChunk) []domain.ScoredChunk {
	filtered := make([]domain.ScoredChunk, 0, len(results))
	for _, r := range results {
		if r.Score >= u.minScoreThreshold {
			filtered = append(filtered, r)
		}
	}
	return filtered
}

// ProductQuery is a free-text product description with optional context.
type ProductQuery struct {
	Description string `json:"product_description"`
	Origin      string `json:"country_of_origin,omitempty"`
	Extra       string `json:"extra_details,omitempty"`
}

// Text joins the description with any extra details and origin, one per line.
func (q ProductQuery) Text() string {
	var sb strings.Builder
	sb.WriteString(strings.TrimSpace(q.Description))
	if extra := strings.TrimSpace(q.Extra); extra != "" {
		sb.WriteString("\nExtra: ")
		sb.WriteString(extra)
	}
	if origin := strings.TrimSpace(q.Origin); origin != "" {
		sb.WriteString("\nOrigin: ")
		sb.WriteString(origin)
	}
	return sb.String()
}
