package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var numClusters int

var clusterCmd = &cobra.Command{
	Use:   "cluster [dataset.json]",
	Short: "Recompute error clusters over a batch",
	Long: `Run a full k-means recompute over a batch of errors and persist the
resulting cluster list. This replaces any previous clusters; cluster
identifiers are not preserved across runs.

Examples:
  # Cluster with the heuristic cluster count
  faultd cluster batch.json

  # Force an explicit cluster count
  faultd cluster --clusters 4 batch.json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCluster,
}

func init() {
	clusterCmd.Flags().IntVar(&numClusters, "clusters", 0, "explicit cluster count (0 = heuristic)")
}

func runCluster(cmd *cobra.Command, args []string) error {
	d, err := loadDataset(args)
	if err != nil {
		return err
	}
	records, _ := d.split()

	ctx := cmd.Context()
	a, err := newApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.close()

	clusters, err := a.clusters.Recompute(ctx, records, numClusters)
	if err != nil {
		return err
	}
	if err := a.blobs.SaveJSON(blobClusters, clusters); err != nil {
		return fmt.Errorf("persisting clusters: %w", err)
	}

	return printJSON(clusters)
}
