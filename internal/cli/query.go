package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"importrag/internal/domain"
	"importrag/internal/usecase"
)

var (
	queryText   string
	queryOrigin string
	queryExtra  string
	queryTopK   int
	queryJSON   bool
	queryEngine string
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Search for passages relevant to a product",
	Long: `Search the knowledge base for passages relevant to a product description.
The sparse engine is rebuilt from the knowledge base directory first.

Examples:
  importrag query -q "decorative LED lamps" --origin China
  importrag query -q "solar modules" --engine dense --top-k 10 --json`,
	RunE: runQuery,
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.Flags().StringVarP(&queryText, "query", "q", "", "product description (required)")
	queryCmd.Flags().StringVar(&queryOrigin, "origin", "", "country of origin")
	queryCmd.Flags().StringVar(&queryExtra, "extra", "", "extra product details")
	queryCmd.Flags().IntVarP(&queryTopK, "top-k", "k", 0, "number of results (default from config)")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output as JSON")
	queryCmd.Flags().StringVarP(&queryEngine, "engine", "e", "sparse", "engine to search (sparse or dense)")
	queryCmd.MarkFlagRequired("query")
}

func runQuery(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	dense := strings.EqualFold(queryEngine, "dense")
	if !dense && !strings.EqualFold(queryEngine, "sparse") {
		return fmt.Errorf("unknown engine %q (expected sparse or dense)", queryEngine)
	}

	a, err := buildApp(cfg, GetRootDir(), dense)
	if err != nil {
		return err
	}
	defer a.Close()

	retrieve := a.engines.SparseRetrieve
	if dense {
		retrieve = a.engines.DenseRetrieve
	} else if _, err := a.engines.Knowledge.Rebuild(nil); err != nil {
		return err
	}

	topK := cfg.Retrieve.TopK
	if queryTopK > 0 {
		topK = queryTopK
	}

	q := usecase.ProductQuery{Description: queryText, Origin: queryOrigin, Extra: queryExtra}.Text()
	results, err := retrieve.Retrieve(context.Background(), q, topK)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if queryJSON {
		output, err := json.MarshalIndent(usecase.Pack(q, results), "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode results: %w", err)
		}
		fmt.Println(string(output))
		return nil
	}

	if len(results) == 0 {
		fmt.Println("No results found.")
		return nil
	}
	fmt.Printf("Found %d results for: %s\n\n", len(results), strings.ReplaceAll(q, "\n", " | "))
	for i, r := range results {
		fmt.Printf("--- [%d] %s (score: %.3f) ---\n", i+1, location(r.Chunk), r.Score)
		text := []rune(r.Chunk.Text)
		if len(text) > 500 {
			text = append(text[:500], []rune("...")...)
		}
		fmt.Println(string(text))
		fmt.Println()
	}
	return nil
}

func location(c domain.Chunk) string {
	if c.Page != nil {
		return fmt.Sprintf("%s p.%d", c.Source, *c.Page)
	}
	return c.Source
}
