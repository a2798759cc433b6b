package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var listDense bool

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List knowledge base files",
	Long: `List the files the sparse index is built from. With --dense, also show how many
collection entries each source holds.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(GetConfig(), GetRootDir(), listDense)
		if err != nil {
			return err
		}
		defer a.Close()

		files, err := a.engines.Knowledge.List()
		if err != nil {
			return err
		}
		fmt.Printf("%d knowledge files in %s\n", len(files), a.engines.Knowledge.Dir())
		for _, f := range files {
			fmt.Printf("  %s\n", f)
		}

		if listDense {
			counts := a.collection.CountBySource()
			fmt.Printf("\n%d sources in collection\n", len(counts))
			for _, src := range sortedKeys(counts) {
				fmt.Printf("  %-40s %d chunks\n", src, counts[src])
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().BoolVar(&listDense, "dense", false, "include dense collection sources")
}
