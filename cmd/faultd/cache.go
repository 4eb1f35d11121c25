package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/faultd/internal/cache"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the analysis cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache hit/miss counters and entry count",
	Long: `Show the cache's hit/miss/eviction counters and entry count.

The cache lives in process memory, so these counters cover the
current process only. In this one-shot CLI they start from zero on
every invocation; meaningful numbers come from a long-lived host
embedding the analysis pipeline as a library.`,
	RunE: runCacheStats,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Drop all cached embeddings, analyses, and predictions",
	RunE:  runCacheClear,
}

func init() {
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheClearCmd)
}

func runCacheStats(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer a.close()

	return printJSON(cacheStatsOutput{
		Stats: a.cache.Stats(),
		Scope: "current process",
	})
}

// cacheStatsOutput annotates the counters with their scope: the cache
// is process-local, so a one-shot invocation reports a fresh cache.
type cacheStatsOutput struct {
	cache.Stats
	Scope string `json:"scope"`
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer a.close()

	a.cache.Clear()
	fmt.Println("Cache cleared")
	return nil
}
