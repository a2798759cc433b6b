package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

var ingestEngine string

var ingestCmd = &cobra.Command{
	Use:   "ingest <file>...",
	Short: "Add documents to an engine",
	Long: `Add documents to the knowledge base (sparse, .txt only) or embed them into the
dense collection (.txt and .pdf).

Examples:
  importrag ingest toys.txt solar.txt
  importrag ingest --engine dense tariff.pdf`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	ingestCmd.Flags().StringVarP(&ingestEngine, "engine", "e", "sparse", "target engine (sparse or dense)")
}

func runIngest(cmd *cobra.Command, args []string) error {
	dense := strings.EqualFold(ingestEngine, "dense")
	if !dense && !strings.EqualFold(ingestEngine, "sparse") {
		return fmt.Errorf("unknown engine %q (expected sparse or dense)", ingestEngine)
	}

	a, err := buildApp(GetConfig(), GetRootDir(), dense)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := context.Background()
	bar := newProgressBar(len(args), "Ingesting")
	var lines []string
	for i, path := range args {
		line, err := ingestOne(ctx, a, path, dense)
		if err != nil {
			line = fmt.Sprintf("  %s: %v", path, err)
		}
		lines = append(lines, line)
		bar.Set(i + 1)
	}

	fmt.Println()
	for _, l := range lines {
		fmt.Println(l)
	}
	return nil
}

func ingestOne(ctx context.Context, a *app, path string, dense bool) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	name := filepath.Base(path)

	if dense {
		n, err := a.engines.Dense.Ingest(ctx, data, name)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("  %s: %d chunks embedded", name, n), nil
	}

	if !strings.EqualFold(filepath.Ext(name), ".txt") {
		return "", fmt.Errorf("only .txt files can be added to the knowledge base")
	}
	saved, total, err := a.engines.Knowledge.Save(name, data)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("  %s: saved + indexed (%d knowledge files)", saved, total), nil
}
