package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/deusflow/newsdesk/internal/news"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Exit codes: 1 for a failed run, 2 when no source produced usable items.
const (
	exitFailure = 1
	exitNoData  = 2
)

var rootCmd = &cobra.Command{
	Use:           "newsdesk",
	Short:         "News aggregation and publishing pipeline",
	Long:          "newsdesk collects stories from feeds, search APIs and scraped pages, groups and de-duplicates them, writes them up and publishes a bounded JSON index.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("newsdesk %s (commit: %s, built: %s)\n", version, commit, date)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(statsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	if errors.Is(err, news.ErrNoData) {
		return exitNoData
	}
	return exitFailure
}
