package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"importrag/config"
	applog "importrag/internal/platform/log"
)

var (
	cfgFile  string
	cfg      *config.Config
	rootDir  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "importrag",
	Short: "Retrieval core for an import assistant",
	Long: `importrag ingests trade and compliance documents and retrieves the passages
most relevant to a product description.

Two engines are available: a sparse TF-IDF engine rebuilt from the knowledge base
directory, and a dense embedding engine backed by a persistent collection.

Example usage:
  importrag index                                   # Rebuild from ./knowledge_base
  importrag ingest notes.txt                        # Add a file to the knowledge base
  importrag query -q "LED lamps" --origin China     # Search with citations
  importrag serve --watch                           # HTTP API, reload on change`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error

		if rootDir == "" {
			rootDir, err = os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to get working directory: %w", err)
			}
		}

		if cfgFile != "" {
			cfg, err = config.Load(cfgFile)
		} else {
			cfg, err = config.LoadFromDir(rootDir)
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		level := cfg.Logging.Level
		if logLevel != "" {
			level = logLevel
		}
		applog.Init(applog.Config{
			Level:  level,
			Format: cfg.Logging.Format,
		})
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		applog.Sync()
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./importrag.yaml)")
	rootCmd.PersistentFlags().StringVarP(&rootDir, "dir", "d", "", "root directory (default is current directory)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level override (debug, info, warn, error)")
}

func GetConfig() *config.Config {
	return cfg
}

func GetRootDir() string {
	return rootDir
}
