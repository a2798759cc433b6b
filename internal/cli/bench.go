package cli

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"importrag/internal/adapter/chunker"
	"importrag/internal/usecase"
)

var (
	benchDocs    int
	benchWords   int
	benchQueries int
	benchSeed    int64
)

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Measure sparse ingest and search cost on a synthetic corpus",
	Long: `Ingest synthetic documents one by one into a fresh sparse engine and time each
ingest, then time searches against the final corpus. Each ingest refits the whole
index, so ingest latency grows with corpus size.

Examples:
  importrag bench --docs 500 --words 400`,
	Args: cobra.NoArgs,
	RunE: runBench,
}

func init() {
	rootCmd.AddCommand(benchCmd)
	benchCmd.Flags().IntVar(&benchDocs, "docs", 200, "number of synthetic documents")
	benchCmd.Flags().IntVar(&benchWords, "words", 300, "words per document")
	benchCmd.Flags().IntVar(&benchQueries, "queries", 50, "number of timed searches")
	benchCmd.Flags().Int64Var(&benchSeed, "seed", 1, "random seed")
}

var benchVocabulary = strings.Fields(`toy toys children plastic battery electric motor motors
generator solar panel photovoltaic module cell lamp lamps lighting decorative led fitting
certificate origin invoice packing customs tariff heading chapter duty import export
wireless bluetooth radio food spice supplement steel copper aluminium textile cotton
garment footwear leather rubber glass ceramic furniture wooden cable wire transformer`)

func runBench(cmd *cobra.Command, args []string) error {
	if benchDocs <= 0 || benchWords <= 0 {
		return fmt.Errorf("--docs and --words must be positive")
	}
	cfg := GetConfig()
	rng := rand.New(rand.NewSource(benchSeed))
	engine := usecase.NewSparseEngine(chunker.NewWindowChunker(cfg.Sparse.ChunkSize, cfg.Sparse.ChunkOverlap))

	bar := newProgressBar(benchDocs, "Ingesting")
	ingestTimes := make([]time.Duration, 0, benchDocs)
	for i := 0; i < benchDocs; i++ {
		text := syntheticText(rng, benchWords)
		start := time.Now()
		if _, err := engine.IngestText(text, fmt.Sprintf("doc-%04d.txt", i)); err != nil {
			return err
		}
		ingestTimes = append(ingestTimes, time.Since(start))
		bar.Set(i + 1)
	}

	ctx := context.Background()
	var searchTotal time.Duration
	var hits int
	for i := 0; i < benchQueries; i++ {
		q := syntheticText(rng, 4)
		start := time.Now()
		results, err := engine.Search(ctx, q, cfg.Retrieve.TopK)
		if err != nil {
			return err
		}
		searchTotal += time.Since(start)
		hits += len(results)
	}

	stats := engine.Stats()
	fmt.Printf("\nBenchmark results:\n")
	fmt.Printf("  Documents:          %d\n", benchDocs)
	fmt.Printf("  Chunks:             %d\n", stats.TotalChunks)
	fmt.Printf("  Vocabulary:         %d terms\n", stats.TotalTerms)
	fmt.Printf("  First ingest:       %s\n", formatDuration(ingestTimes[0]))
	fmt.Printf("  Median ingest:      %s\n", formatDuration(ingestTimes[len(ingestTimes)/2]))
	fmt.Printf("  Last ingest:        %s\n", formatDuration(ingestTimes[len(ingestTimes)-1]))
	if benchQueries > 0 {
		fmt.Printf("  Mean search:        %s\n", formatDuration(searchTotal/time.Duration(benchQueries)))
		fmt.Printf("  Mean results:       %.1f\n", float64(hits)/float64(benchQueries))
	}
	return nil
}

func syntheticText(rng *rand.Rand, words int) string {
	var sb strings.Builder
	for i := 0; i < words; i++ {
		if i > 0 {
			if rng.Intn(12) == 0 {
				sb.WriteString(".\n")
			} else {
				sb.WriteByte(' ')
			}
		}
		sb.WriteString(benchVocabulary[rng.Intn(len(benchVocabulary))])
	}
	return sb.String()
}
