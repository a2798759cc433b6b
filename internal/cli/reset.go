package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear the dense collection",
	Long: `Remove every entry from the dense collection. The sparse index lives in memory
and is rebuilt from the knowledge base on each run, so it needs no reset here.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(GetConfig(), GetRootDir(), true)
		if err != nil {
			return err
		}
		defer a.Close()

		before, _ := a.collection.Count()
		if err := a.collection.Clear(); err != nil {
			return fmt.Errorf("failed to clear collection: %w", err)
		}
		fmt.Printf("Removed %d entries from the collection\n", before)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(resetCmd)
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
