package usecase

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"importrag/internal/adapter/analyzer"
	"importrag/internal/adapter/fs"
	"importrag/internal/adapter/memstore"
	"importrag/internal/adapter/retriever"
	"importrag/internal/domain"
	"importrag/internal/port"
	applog "importrag/internal/platform/log"
)

// SparseEngine owns the in-memory corpus and its TF-IDF index. One mutex guards both, so a
// search never sees a corpus the index was not fitted on.
//
// Every ingest refits the index over the whole corpus, so ingest cost grows with the total
// amount of text held.
type SparseEngine struct {
	mu       sync.Mutex
	corpus   *memstore.Corpus
	index    *retriever.TFIDFIndex
	chunker  port.Chunker
	onChange []func()
}

func NewSparseEngine(c port.Chunker) *SparseEngine {
	return &SparseEngine{
		corpus:  memstore.NewCorpus(),
		index:   retriever.NewTFIDFIndex(analyzer.NewTokenizer()),
		chunker: c,
	}
}

// OnChange registers a hook run after every reset or ingest, outside the lock.
func (e *SparseEngine) OnChange(fn func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onChange = append(e.onChange, fn)
}

func (e *SparseEngine) Reset() {
	e.mu.Lock()
	e.corpus.Reset()
	e.index.Reset()
	hooks := e.onChange
	e.mu.Unlock()

	notify(hooks)
}

// IngestText chunks text, appends the chunks under source and refits the index.
// It returns the number of chunks added; text with no content adds none.
func (e *SparseEngine) IngestText(text, source string) (int, error) {
	if source == "" {
		return 0, domain.ErrInvalidInput
	}

	chunks := e.chunker.Chunk(text, source, nil)

	e.mu.Lock()
	offset := e.corpus.Len()
	for i := range chunks {
		chunks[i].ID = chunkID(source, offset+i)
	}
	e.corpus.Append(chunks...)
	start := time.Now()
	e.index.Fit(e.corpus.Chunks())
	total := e.corpus.Len()
	hooks := e.onChange
	e.mu.Unlock()

	applog.Debug("sparse index rebuilt",
		"source", source,
		"added", len(chunks),
		"chunks", total,
		"took", time.Since(start).String(),
	)
	notify(hooks)
	return len(chunks), nil
}

// Document is one source's text awaiting ingestion.
type Document struct {
	Source string
	Text   string
}

// Replace swaps the whole corpus for docs in one step. The new corpus and index are built
// outside the lock, so searches see either the previous corpus or the complete new one.
func (e *SparseEngine) Replace(docs []Document) (int, error) {
	corpus := memstore.NewCorpus()
	for _, d := range docs {
		if d.Source == "" {
			return 0, domain.ErrInvalidInput
		}
		chunks := e.chunker.Chunk(d.Text, d.Source, nil)
		offset := corpus.Len()
		for i := range chunks {
			chunks[i].ID = chunkID(d.Source, offset+i)
		}
		corpus.Append(chunks...)
	}

	start := time.Now()
	index := retriever.NewTFIDFIndex(analyzer.NewTokenizer())
	index.Fit(corpus.Chunks())
	took := time.Since(start)

	e.mu.Lock()
	e.corpus = corpus
	e.index = index
	hooks := e.onChange
	e.mu.Unlock()

	total := corpus.Len()
	applog.Debug("sparse index replaced",
		"documents", len(docs),
		"chunks", total,
		"took", took.String(),
	)
	notify(hooks)
	return total, nil
}

// IngestFile reads path best-effort and ingests it under its base name.
func (e *SparseEngine) IngestFile(path string) (int, error) {
	text, err := fs.ReadText(path)
	if err != nil {
		return 0, err
	}
	return e.IngestText(text, filepath.Base(path))
}

// Search scores the query against the current corpus. An empty corpus yields no results.
func (e *SparseEngine) Search(ctx context.Context, query string, k int) ([]domain.ScoredChunk, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.index.Search(ctx, query, k)
}

func (e *SparseEngine) Stats() domain.Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return domain.Stats{
		TotalChunks: e.corpus.Len(),
		TotalTerms:  e.index.VocabularySize(),
		Sources:     e.corpus.Sources(),
	}
}

func notify(hooks []func()) {
	for _, fn := range hooks {
		fn()
	}
}
