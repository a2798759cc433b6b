package chunker

import (
	"fmt"
	"regexp"
	"strings"

	"importrag/internal/domain"
)

var reExtraNewlines = regexp.MustCompile(`\n{3,}`)

// Chunk splits text into overlapping fixed-size character windows.
// Runs of three or more newlines are collapsed to two before windowing, each window is
// trimmed, and windows that are empty after trimming are dropped. The window advances by
// chunkSize-overlap characters, never less than one.
func Chunk(text string, chunkSize, overlap int) []string {
	if chunkSize <= 0 {
		return nil
	}
	normalized := reExtraNewlines.ReplaceAllString(strings.TrimSpace(text), "\n\n")
	runes := []rune(normalized)

	step := chunkSize - overlap
	if step < 1 {
		step = 1
	}

	var chunks []string
	for start := 0; start < len(runes); start += step {
		end := start + chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		window := strings.TrimSpace(string(runes[start:end]))
		if window != "" {
			chunks = append(chunks, window)
		}
	}

	return chunks
}

// WindowChunker produces provenance-tagged chunks with a fixed window configuration.
type WindowChunker struct {
	chunkSize int
	overlap   int
}

func NewWindowChunker(chunkSize, overlap int) *WindowChunker {
	return &WindowChunker{
		chunkSize: chunkSize,
		overlap:   overlap,
	}
}

// Chunk splits text and tags every window with its source, page and position within the page.
func (c *WindowChunker) Chunk(text, source string, page *int) []domain.Chunk {
	windows := Chunk(text, c.chunkSize, c.overlap)
	if len(windows) == 0 {
		return nil
	}

	pageNo := 0
	if page != nil {
		pageNo = *page
	}

	chunks := make([]domain.Chunk, 0, len(windows))
	for i, w := range windows {
		chunks = append(chunks, domain.Chunk{
			ID:     fmt.Sprintf("%s:%d:%d", source, pageNo, i),
			Text:   w,
			Source: source,
			Page:   page,
			Seq:    i,
		})
	}
	return chunks
}

func (c *WindowChunker) Size() int    { return c.chunkSize }
func (c *WindowChunker) Overlap() int { return c.overlap }
