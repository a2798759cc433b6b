package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"importrag/internal/adapter/cache"
	"importrag/internal/adapter/chunker"
	"importrag/internal/domain"
)

func TestRetrieveValidatesInput(t *testing.T) {
	u := NewRetrieveUseCase(NewSparseEngine(chunker.NewWindowChunker(600, 80)), nil, 0)

	_, err := u.Retrieve(context.Background(), "   ", 5)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = u.Retrieve(context.Background(), "toys", 0)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	results, err := u.Retrieve(context.Background(), "toys", 5)
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestRetrieveMinScore(t *testing.T) {
	e := NewSparseEngine(chunker.NewWindowChunker(600, 80))
	_, _ = e.IngestText("toys toys toys", "a.txt")
	_, _ = e.IngestText("toys lamps motors panels cables fittings", "b.txt")

	all, err := NewRetrieveUseCase(e, nil, 0).Retrieve(context.Background(), "toys", 5)
	require.NoError(t, err)
	require.Len(t, all, 2)

	filtered, err := NewRetrieveUseCase(e, nil, all[0].Score).Retrieve(context.Background(), "toys", 5)
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, "a.txt", filtered[0].Chunk.Source)
}

func TestRetrieveCacheInvalidatedOnIngest(t *testing.T) {
	e := NewSparseEngine(chunker.NewWindowChunker(600, 80))
	qc := cache.NewQueryCache(16, time.Minute)
	e.OnChange(qc.Invalidate)
	u := NewRetrieveUseCase(e, qc, 0)

	results, err := u.Retrieve(context.Background(), "solar", 5)
	require.NoError(t, err)
	assert.Empty(t, results)

	_, _ = e.IngestText("solar panels", "solar.txt")

	results, err = u.Retrieve(context.Background(), "solar", 5)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestProductQueryText(t *testing.T) {
	q := ProductQuery{Description: "  LED lamp ", Extra: " 12V ", Origin: "China"}
	assert.Equal(t, "LED lamp\nExtra: 12V\nOrigin: China", q.Text())

	assert.Equal(t, "LED lamp", ProductQuery{Description: "LED lamp", Origin: "  "}.Text())
}
