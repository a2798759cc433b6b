package port

import "importrag/internal/domain"

type Chunker interface {
	Chunk(text, source string, page *int) []domain.Chunk
}
