package memstore

import (
	"sync"

	"importrag/internal/domain"
)

// Corpus is the ordered, append-only chunk store behind the sparse index.
// Insertion order is ingestion order; only Reset removes chunks.
type Corpus struct {
	mu     sync.RWMutex
	chunks []domain.Chunk
}

func NewCorpus() *Corpus {
	return &Corpus{}
}

func (s *Corpus) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks = nil
}

func (s *Corpus) Append(chunks ...domain.Chunk) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks = append(s.chunks, chunks...)
}

// Chunks returns a snapshot of the corpus in insertion order.
func (s *Corpus) Chunks() []domain.Chunk {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Chunk, len(s.chunks))
	copy(out, s.chunks)
	return out
}

func (s *Corpus) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks)
}

// Sources returns the distinct chunk sources in first-seen order.
func (s *Corpus) Sources() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[string]struct{})
	var sources []string
	for _, c := range s.chunks {
		if _, ok := seen[c.Source]; ok {
			continue
		}
		seen[c.Source] = struct{}{}
		sources = append(sources, c.Source)
	}
	return sources
}
