package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/deusflow/newsdesk/internal/app"
	"github.com/deusflow/newsdesk/internal/config"
)

var flagStatsJSON bool

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show index and titles-seen statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromEnv()
		st, err := app.CollectStats(cmd.Context(), cfg)
		if err != nil {
			return fmt.Errorf("collecting stats: %w", err)
		}

		if flagStatsJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(st)
		}

		fmt.Printf("Data dir:     %s\n", cfg.DataDir)
		fmt.Printf("Articles:     %d / %d\n", st.Articles, cfg.IndexLimit)
		if !st.UpdatedAt.IsZero() {
			fmt.Printf("Updated:      %s\n", st.UpdatedAt.Local().Format("2006-01-02 15:04"))
		}
		if st.Newest != "" {
			fmt.Printf("Newest:       %s\n", st.Newest)
		}
		fmt.Printf("Titles seen:  %d / %d (%s)\n", st.TitlesSeen, cfg.TitlesLimit, st.TitlesStore)
		if st.IndexError != "" {
			fmt.Printf("Index error:  %s\n", st.IndexError)
		}

		if len(st.Categories) > 0 {
			fmt.Println("\nBy category:")
			for _, c := range st.CategoryNames() {
				fmt.Printf("  %-20s %d\n", c, st.Categories[c])
			}
		}
		if len(st.Languages) > 0 {
			fmt.Println("\nBy language:")
			for _, l := range st.LanguageNames() {
				fmt.Printf("  %-20s %d\n", l, st.Languages[l])
			}
		}
		return nil
	},
}

func init() {
	statsCmd.Flags().BoolVar(&flagStatsJSON, "json", false, "print as JSON")
}
