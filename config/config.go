package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for importrag.
type Config struct {
	KnowledgeBase KnowledgeBaseConfig `yaml:"knowledge_base"`
	Sparse        SparseConfig        `yaml:"sparse"`
	Dense         DenseConfig         `yaml:"dense"`
	Embedding     EmbeddingConfig     `yaml:"embedding"`
	Retrieve      RetrieveConfig      `yaml:"retrieve"`
	Server        ServerConfig        `yaml:"server"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// KnowledgeBaseConfig describes the directory of plain-text files the sparse index is built from.
type KnowledgeBaseConfig struct {
	Dir      string   `yaml:"dir"`
	Includes []string `yaml:"includes"`
	Excludes []string `yaml:"excludes"`
}

// SparseConfig holds TF-IDF chunking configuration.
type SparseConfig struct {
	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`
}

// DenseConfig holds the embedding-backed collection configuration.
type DenseConfig struct {
	Enabled      bool   `yaml:"enabled"`
	ChunkSize    int    `yaml:"chunk_size"`
	ChunkOverlap int    `yaml:"chunk_overlap"`
	DBPath       string `yaml:"db_path"`
	ReplaceStale bool   `yaml:"replace_stale"` // purge keys of older content for the same file name
}

// EmbeddingConfig holds embedding configuration.
type EmbeddingConfig struct {
	Provider  string `yaml:"provider"`    // "openai", "ollama", "mock"
	Model     string `yaml:"model"`       // e.g., "all-minilm"
	BaseURL   string `yaml:"base_url"`    // OpenAI-compatible endpoint
	APIKeyEnv string `yaml:"api_key_env"` // Environment variable for API key
	Dimension int    `yaml:"dimension"`
	BatchSize int    `yaml:"batch_size"`
}

// RetrieveConfig holds retrieval configuration.
type RetrieveConfig struct {
	TopK            int     `yaml:"top_k"`
	MinScore        float64 `yaml:"min_score"` // Filter results below this score (0 = disabled)
	CacheSize       int     `yaml:"cache_size"`
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host                string `yaml:"host"`
	Port                int    `yaml:"port"`
	ReadTimeoutSeconds  int    `yaml:"read_timeout_seconds"`
	WriteTimeoutSeconds int    `yaml:"write_timeout_seconds"`
	MaxUploadMB         int    `yaml:"max_upload_mb"`
	Watch               bool   `yaml:"watch"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		KnowledgeBase: KnowledgeBaseConfig{
			Dir:      "knowledge_base",
			Includes: []string{"*.txt"},
			Excludes: []string{".*"},
		},
		Sparse: SparseConfig{
			ChunkSize:    600,
			ChunkOverlap: 80,
		},
		Dense: DenseConfig{
			Enabled:      false, // Disabled by default (requires an embedding endpoint)
			ChunkSize:    900,
			ChunkOverlap: 150,
			DBPath:       filepath.Join(".importrag", "collection.db"),
			ReplaceStale: true,
		},
		Embedding: EmbeddingConfig{
			Provider:  "ollama",
			Model:     "all-minilm",
			BaseURL:   "http://localhost:11434/v1",
			APIKeyEnv: "OPENAI_API_KEY",
			Dimension: 384,
			BatchSize: 64,
		},
		Retrieve: RetrieveConfig{
			TopK:            5,
			CacheSize:       128,
			CacheTTLSeconds: 300,
		},
		Server: ServerConfig{
			Host:                "127.0.0.1",
			Port:                8000,
			ReadTimeoutSeconds:  30,
			WriteTimeoutSeconds: 120,
			MaxUploadMB:         20,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Return defaults if no config file
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)

	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for importrag.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "importrag.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, ".importrag", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	return DefaultConfig(), nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// applyDefaults fills zero values a partial YAML file leaves behind.
func applyDefaults(cfg *Config) {
	def := DefaultConfig()
	if cfg.KnowledgeBase.Dir == "" {
		cfg.KnowledgeBase.Dir = def.KnowledgeBase.Dir
	}
	if len(cfg.KnowledgeBase.Includes) == 0 {
		cfg.KnowledgeBase.Includes = def.KnowledgeBase.Includes
	}
	if cfg.Sparse.ChunkSize <= 0 {
		cfg.Sparse.ChunkSize = def.Sparse.ChunkSize
	}
	if cfg.Sparse.ChunkOverlap < 0 {
		cfg.Sparse.ChunkOverlap = 0
	}
	if cfg.Dense.ChunkSize <= 0 {
		cfg.Dense.ChunkSize = def.Dense.ChunkSize
	}
	if cfg.Dense.ChunkOverlap < 0 {
		cfg.Dense.ChunkOverlap = 0
	}
	if cfg.Dense.DBPath == "" {
		cfg.Dense.DBPath = def.Dense.DBPath
	}
	if cfg.Embedding.BatchSize <= 0 {
		cfg.Embedding.BatchSize = def.Embedding.BatchSize
	}
	if cfg.Embedding.APIKeyEnv == "" {
		cfg.Embedding.APIKeyEnv = def.Embedding.APIKeyEnv
	}
	if cfg.Retrieve.TopK <= 0 {
		cfg.Retrieve.TopK = def.Retrieve.TopK
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = def.Server.Port
	}
}

// KnowledgeBaseDir resolves the knowledge base directory against the root directory.
func (c *Config) KnowledgeBaseDir(root string) string {
	return resolve(root, c.KnowledgeBase.Dir)
}

// CollectionDBPath resolves the dense collection database path against the root directory.
func (c *Config) CollectionDBPath(root string) string {
	return resolve(root, c.Dense.DBPath)
}

func resolve(root, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, p)
}

// EnsureParentDir ensures the directory holding path exists.
func EnsureParentDir(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0755)
}
