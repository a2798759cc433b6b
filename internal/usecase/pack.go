package usecase

import (
	"fmt"
	"math"
	"strings"

	"importrag/internal/domain"
)

const (
	snippetRunes = 140
	previewRunes = 520
	previewCount = 2
)

// Pack turns ranked chunks into citations plus a short context preview.
func Pack(query string, chunks []domain.ScoredChunk) domain.PackedContext {
	packed := domain.PackedContext{
		Query:          query,
		Citations:      make([]domain.Citation, 0, len(chunks)),
		ContextPreview: []string{},
	}

	for i, sc := range chunks {
		packed.Citations = append(packed.Citations, domain.Citation{
			Source:  sc.Chunk.Source,
			Page:    sc.Chunk.Page,
			Score:   math.Round(sc.Score*1000) / 1000,
			Snippet: excerpt(sc.Chunk.Text, snippetRunes) + "...",
		})
		if i < previewCount {
			packed.ContextPreview = append(packed.ContextPreview,
				fmt.Sprintf("[%s] %s...", sc.Chunk.Source, excerpt(sc.Chunk.Text, previewRunes)))
		}
	}

	return packed
}

// excerpt takes the first n characters of text on a single line.
func excerpt(text string, n int) string {
	r := []rune(text)
	if len(r) > n {
		r = r[:n]
	}
	return strings.TrimSpace(strings.ReplaceAll(string(r), "\n", " "))
}
