package usecase

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"importrag/internal/adapter/fs"
	"importrag/internal/port"
	applog "importrag/internal/platform/log"
)

// KnowledgeBase is the directory of text files the sparse engine is rebuilt from.
// The files on disk are the source of truth; the engine holds no other state.
type KnowledgeBase struct {
	dir    string
	walker port.FileWalker
	engine *SparseEngine
	mu     sync.Mutex // serializes rebuilds
}

// RebuildResult summarises one rebuild.
type RebuildResult struct {
	Files    int
	Chunks   int
	Errors   []string
	Duration time.Duration
}

func NewKnowledgeBase(dir string, walker port.FileWalker, engine *SparseEngine) *KnowledgeBase {
	return &KnowledgeBase{
		dir:    dir,
		walker: walker,
		engine: engine,
	}
}

func (k *KnowledgeBase) Dir() string {
	return k.dir
}

// Rebuild reads every matching file in name order and replaces the engine's corpus with
// them in one swap. progress, when set, is called after each file is read.
func (k *KnowledgeBase) Rebuild(progress func(done, total int)) (*RebuildResult, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	start := time.Now()
	files, err := k.walker.Walk(k.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to walk knowledge base: %w", err)
	}

	result := &RebuildResult{}
	docs := make([]Document, 0, len(files))
	for i, f := range files {
		text, err := fs.ReadText(f.Path)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("failed to index %s: %v", f.Name, err))
		} else {
			docs = append(docs, Document{Source: filepath.Base(f.Path), Text: text})
			result.Files++
		}
		if progress != nil {
			progress(i+1, len(files))
		}
	}

	chunks, err := k.engine.Replace(docs)
	if err != nil {
		return nil, fmt.Errorf("failed to replace sparse corpus: %w", err)
	}
	result.Chunks = chunks
	result.Duration = time.Since(start)

	applog.Info("knowledge base rebuilt",
		"dir", k.dir,
		"files", result.Files,
		"chunks", result.Chunks,
		"took", result.Duration.String(),
	)
	return result, nil
}

// Save writes data under a sanitised name and rebuilds the engine.
// It returns the stored name and the number of files now indexed.
func (k *KnowledgeBase) Save(name string, data []byte) (string, int, error) {
	safe := SanitizeName(name)
	if safe == "" {
		safe = "uploaded.txt"
	}

	if err := os.MkdirAll(k.dir, 0755); err != nil {
		return "", 0, fmt.Errorf("failed to create knowledge base dir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(k.dir, safe), data, 0644); err != nil {
		return "", 0, fmt.Errorf("failed to save %s: %w", safe, err)
	}

	result, err := k.Rebuild(nil)
	if err != nil {
		return safe, 0, err
	}
	return safe, result.Files, nil
}

// List returns the names of the matching files, sorted.
func (k *KnowledgeBase) List() ([]string, error) {
	files, err := k.walker.Walk(k.dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(files))
	for _, f := range files {
		names = append(names, f.Name)
	}
	return names, nil
}

// SanitizeName flattens path separators so uploads land directly in the knowledge base dir.
func SanitizeName(name string) string {
	return strings.NewReplacer("/", "_", "\\", "_").Replace(name)
}
