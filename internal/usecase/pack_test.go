package usecase

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"importrag/internal/domain"
)

func TestPackCitationsAndPreview(t *testing.T) {
	long := strings.Repeat("a", 100) + "\n" + strings.Repeat("b", 600)
	chunks := []domain.ScoredChunk{
		{Chunk: domain.Chunk{Text: long, Source: "a.txt"}, Score: 0.123456},
		{Chunk: domain.Chunk{Text: "short\ntext", Source: "b.pdf", Page: domain.PageNumber(3)}, Score: 0.1},
		{Chunk: domain.Chunk{Text: "third", Source: "c.txt"}, Score: 0.05},
	}

	packed := Pack("q", chunks)

	assert.Equal(t, "q", packed.Query)
	require.Len(t, packed.Citations, 3)
	assert.Equal(t, 0.123, packed.Citations[0].Score)
	assert.Equal(t, strings.Repeat("a", 100)+" "+strings.Repeat("b", 39)+"...", packed.Citations[0].Snippet)
	assert.Nil(t, packed.Citations[0].Page)
	assert.Equal(t, "short text...", packed.Citations[1].Snippet)
	assert.Equal(t, 3, *packed.Citations[1].Page)

	require.Len(t, packed.ContextPreview, 2)
	assert.True(t, strings.HasPrefix(packed.ContextPreview[0], "[a.txt] aaaa"))
	assert.Len(t, packed.ContextPreview[0], len("[a.txt] ")+520+len("..."))
	assert.Equal(t, "[b.pdf] short text...", packed.ContextPreview[1])
}

func TestPackEmpty(t *testing.T) {
	packed := Pack("q", nil)
	assert.NotNil(t, packed.Citations)
	assert.Empty(t, packed.Citations)
	assert.Empty(t, packed.ContextPreview)
}
