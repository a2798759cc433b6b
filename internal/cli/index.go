package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"importrag/internal/adapter/fs"
)

var indexDense bool

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Rebuild the sparse index from the knowledge base",
	Long: `Rebuild the TF-IDF index from every matching file in the knowledge base directory
and report corpus statistics. With --dense, the same files plus any PDFs are also
embedded into the persistent collection.

Examples:
  importrag index
  importrag index --dense`,
	Args: cobra.NoArgs,
	RunE: runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)
	indexCmd.Flags().BoolVar(&indexDense, "dense", false, "also embed files into the dense collection")
}

func runIndex(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	a, err := buildApp(cfg, GetRootDir(), indexDense)
	if err != nil {
		return err
	}
	defer a.Close()

	kb := a.engines.Knowledge
	fmt.Printf("Scanning %s...\n", kb.Dir())

	result, err := kb.Rebuild(progressFunc("Indexing"))
	if err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}
	stats := a.engines.Sparse.Stats()

	fmt.Printf("\nIndexing complete:\n")
	fmt.Printf("  Files indexed:  %d\n", result.Files)
	fmt.Printf("  Chunks:         %d\n", stats.TotalChunks)
	fmt.Printf("  Vocabulary:     %d terms\n", stats.TotalTerms)
	fmt.Printf("  Took:           %s\n", formatDuration(result.Duration))

	if len(result.Errors) > 0 {
		fmt.Printf("\nWarnings:\n")
		for _, e := range result.Errors {
			fmt.Printf("  - %s\n", e)
		}
	}

	if !indexDense {
		return nil
	}

	walker := fs.NewWalker(append(append([]string{}, cfg.KnowledgeBase.Includes...), "*.pdf"), cfg.KnowledgeBase.Excludes)
	files, err := walker.Walk(kb.Dir())
	if err != nil {
		return fmt.Errorf("failed to walk knowledge base: %w", err)
	}

	fmt.Printf("\nEmbedding %d files with %s/%s...\n", len(files), cfg.Embedding.Provider, cfg.Embedding.Model)
	bar := newProgressBar(len(files), "Embedding")
	ctx := context.Background()
	var embedded int
	var failures []string
	for i, f := range files {
		data, err := os.ReadFile(f.Path)
		if err == nil {
			var n int
			n, err = a.engines.Dense.Ingest(ctx, data, f.Name)
			embedded += n
		}
		if err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", f.Name, err))
		}
		bar.Set(i + 1)
	}

	count, _ := a.engines.Dense.Count()
	fmt.Printf("\nEmbedding complete:\n")
	fmt.Printf("  Chunks embedded:    %d\n", embedded)
	fmt.Printf("  Collection entries: %d\n", count)
	for _, f := range failures {
		fmt.Printf("  - %s\n", f)
	}
	return nil
}
