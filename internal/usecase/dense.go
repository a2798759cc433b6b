package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"importrag/internal/adapter/fs"
	"importrag/internal/adapter/retriever"
	"importrag/internal/domain"
	"importrag/internal/port"
	applog "importrag/internal/platform/log"
)

// DenseEngine embeds chunks into a persistent collection. Keys are derived from the file
// content, so ingesting identical bytes again rewrites the same entries.
type DenseEngine struct {
	collection   port.Collection
	embedder     port.Embedder
	extractor    port.PageExtractor
	chunker      port.Chunker
	retriever    *retriever.DenseRetriever
	replaceStale bool

	// writeMu holds an upsert and its stale purge together, so the last document
	// written for a file name is the one that survives.
	writeMu sync.Mutex

	mu       sync.Mutex
	onChange []func()
}

// DenseOptions configures a DenseEngine.
type DenseOptions struct {
	// ReplaceStale purges entries left by earlier content of the same file name.
	ReplaceStale bool
}

func NewDenseEngine(
	collection port.Collection,
	embedder port.Embedder,
	extractor port.PageExtractor,
	c port.Chunker,
	opts DenseOptions,
) *DenseEngine {
	return &DenseEngine{
		collection:   collection,
		embedder:     embedder,
		extractor:    extractor,
		chunker:      c,
		retriever:    retriever.NewDenseRetriever(collection, embedder),
		replaceStale: opts.ReplaceStale,
	}
}

func (e *DenseEngine) OnChange(fn func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onChange = append(e.onChange, fn)
}

// Ingest dispatches on the file extension.
func (e *DenseEngine) Ingest(ctx context.Context, data []byte, filename string) (int, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".txt":
		return e.IngestTextBytes(ctx, data, filename)
	case ".pdf":
		return e.IngestPDFBytes(ctx, data, filename)
	default:
		return 0, fmt.Errorf("%w: %s (expected .txt or .pdf)", domain.ErrUnsupportedFormat, filename)
	}
}

// IngestTextBytes treats data as one pageless UTF-8 document; invalid bytes are dropped.
func (e *DenseEngine) IngestTextBytes(ctx context.Context, data []byte, filename string) (int, error) {
	chunks := e.chunker.Chunk(fs.DecodeText(data), filename, nil)
	return e.store(ctx, data, filename, chunks)
}

// IngestPDFBytes chunks each page on its own. Pages without text contribute nothing.
func (e *DenseEngine) IngestPDFBytes(ctx context.Context, data []byte, filename string) (int, error) {
	if e.extractor == nil {
		return 0, fmt.Errorf("%w: no pdf extractor configured", domain.ErrUnsupportedFormat)
	}
	pages, err := e.extractor.ExtractPages(data)
	if err != nil {
		return 0, fmt.Errorf("failed to extract pdf %s: %w", filename, err)
	}

	var chunks []domain.Chunk
	for i, text := range pages {
		chunks = append(chunks, e.chunker.Chunk(text, filename, domain.PageNumber(i+1))...)
	}
	return e.store(ctx, data, filename, chunks)
}

// store embeds every chunk of one document and writes them in a single upsert, so a
// failure leaves nothing of this document behind.
func (e *DenseEngine) store(ctx context.Context, data []byte, filename string, chunks []domain.Chunk) (int, error) {
	if e.collection == nil || e.embedder == nil {
		return 0, fmt.Errorf("dense ingest: %w", domain.ErrEngineDisabled)
	}
	if len(chunks) == 0 {
		return 0, nil
	}

	fileID := fileHash(data)
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	vectors, err := e.embedder.Embed(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", domain.ErrEmbedding, err)
	}
	if len(vectors) != len(chunks) {
		return 0, fmt.Errorf("%w: got %d vectors for %d chunks", domain.ErrEmbedding, len(vectors), len(chunks))
	}

	items := make([]port.CollectionItem, len(chunks))
	keep := make(map[string]struct{}, len(chunks))
	for i, c := range chunks {
		id := chunkKey(fileID, c.Page, c.Seq)
		keep[id] = struct{}{}
		meta := map[string]string{
			retriever.MetaSource:     filename,
			retriever.MetaChunkIndex: strconv.Itoa(c.Seq),
		}
		if c.Page != nil {
			meta[retriever.MetaPage] = strconv.Itoa(*c.Page)
		}
		items[i] = port.CollectionItem{
			ID:       id,
			Vector:   vectors[i],
			Text:     c.Text,
			Metadata: meta,
		}
	}

	e.writeMu.Lock()
	if err := e.collection.Upsert(items); err != nil {
		e.writeMu.Unlock()
		return 0, fmt.Errorf("failed to upsert %s: %w", filename, err)
	}
	if e.replaceStale {
		e.purgeStale(filename, keep)
	}
	e.writeMu.Unlock()

	e.mu.Lock()
	hooks := e.onChange
	e.mu.Unlock()
	notify(hooks)

	applog.Info("dense ingest complete", "source", filename, "chunks", len(items), "file_id", fileID)
	return len(items), nil
}

// purgeStale drops entries of filename whose keys were not just written. Failures are
// logged only; the new content is already committed.
func (e *DenseEngine) purgeStale(filename string, keep map[string]struct{}) {
	ids, err := e.collection.SourceIDs(filename)
	if err != nil {
		applog.Warn("stale entry lookup failed", "source", filename, "error", err)
		return
	}

	var stale []string
	for _, id := range ids {
		if _, ok := keep[id]; !ok {
			stale = append(stale, id)
		}
	}
	if len(stale) == 0 {
		return
	}

	if err := e.collection.Delete(stale); err != nil {
		applog.Warn("stale entry purge failed", "source", filename, "entries", len(stale), "error", err)
		return
	}
	applog.Info("purged stale entries", "source", filename, "entries", len(stale))
}

func (e *DenseEngine) Search(ctx context.Context, query string, k int) ([]domain.ScoredChunk, error) {
	return e.retriever.Search(ctx, query, k)
}

func (e *DenseEngine) Count() (int, error) {
	if e.collection == nil {
		return 0, nil
	}
	return e.collection.Count()
}

// fileHash is the first 16 hex characters of the content's SHA-256.
func fileHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])[:16]
}

func chunkKey(fileID string, page *int, seq int) string {
	p := 0
	if page != nil {
		p = *page
	}
	return fmt.Sprintf("%s:%d:%d", fileID, p, seq)
}

// chunkID names sparse chunks by source and corpus position.
func chunkID(source string, pos int) string {
	return fmt.Sprintf("%s#%d", source, pos)
}
