package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Sparse.ChunkSize != 600 || cfg.Sparse.ChunkOverlap != 80 {
		t.Errorf("expected sparse chunking 600/80, got %d/%d", cfg.Sparse.ChunkSize, cfg.Sparse.ChunkOverlap)
	}
	if cfg.Dense.ChunkSize != 900 || cfg.Dense.ChunkOverlap != 150 {
		t.Errorf("expected dense chunking 900/150, got %d/%d", cfg.Dense.ChunkSize, cfg.Dense.ChunkOverlap)
	}
	if cfg.Embedding.Dimension != 384 {
		t.Errorf("expected Dimension=384, got %d", cfg.Embedding.Dimension)
	}
	if cfg.Retrieve.TopK != 5 {
		t.Errorf("expected TopK=5, got %d", cfg.Retrieve.TopK)
	}
	if cfg.Dense.Enabled {
		t.Error("expected dense engine to be disabled by default")
	}
}

func TestLoad_NonExistent(t *testing.T) {
	cfg, err := Load("/nonexistent/path/config.yaml")
	if err != nil {
		t.Errorf("expected no error for non-existent file, got %v", err)
	}
	if cfg == nil {
		t.Error("expected default config, got nil")
	}
}

func TestLoad_ValidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "importrag.yaml")

	content := `
sparse:
  chunk_size: 300
dense:
  enabled: true
  replace_stale: false
retrieve:
  top_k: 10
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Sparse.ChunkSize != 300 {
		t.Errorf("expected ChunkSize=300, got %d", cfg.Sparse.ChunkSize)
	}
	if cfg.Sparse.ChunkOverlap != 80 {
		t.Errorf("expected untouched ChunkOverlap=80, got %d", cfg.Sparse.ChunkOverlap)
	}
	if !cfg.Dense.Enabled || cfg.Dense.ReplaceStale {
		t.Errorf("expected dense enabled without stale replacement, got %+v", cfg.Dense)
	}
	if cfg.Retrieve.TopK != 10 {
		t.Errorf("expected TopK=10, got %d", cfg.Retrieve.TopK)
	}
}

func TestLoad_ZeroValuesFallBack(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "importrag.yaml")

	content := `
knowledge_base:
  dir: ""
retrieve:
  top_k: 0
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.KnowledgeBase.Dir != "knowledge_base" {
		t.Errorf("expected default dir, got %q", cfg.KnowledgeBase.Dir)
	}
	if cfg.Retrieve.TopK != 5 {
		t.Errorf("expected TopK fallback 5, got %d", cfg.Retrieve.TopK)
	}
}

func TestLoadFromDir(t *testing.T) {
	tmpDir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(tmpDir, ".importrag"), 0755); err != nil {
		t.Fatal(err)
	}
	configPath := filepath.Join(tmpDir, ".importrag", "config.yaml")

	content := `
server:
  port: 9090
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromDir(tmpDir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("expected Port=9090, got %d", cfg.Server.Port)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "importrag.yaml")
	cfg := DefaultConfig()
	cfg.Embedding.Provider = "mock"

	if err := cfg.Save(path); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Embedding.Provider != "mock" {
		t.Errorf("expected provider mock, got %s", loaded.Embedding.Provider)
	}
}

func TestPaths(t *testing.T) {
	cfg := DefaultConfig()

	got := cfg.CollectionDBPath("/srv/app")
	expected := filepath.Join("/srv/app", ".importrag", "collection.db")
	if got != expected {
		t.Errorf("expected %s, got %s", expected, got)
	}

	cfg.KnowledgeBase.Dir = "/data/kb"
	if got := cfg.KnowledgeBaseDir("/srv/app"); got != "/data/kb" {
		t.Errorf("expected absolute dir to be kept, got %s", got)
	}
}
