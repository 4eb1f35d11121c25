package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var trainCmd = &cobra.Command{
	Use:   "train [dataset.json]",
	Short: "Train the cause classifiers on labeled history",
	Long: `Train the statistical and KNN classifiers on a labeled dataset and
index the dataset's embeddings for similarity retrieval. The trained
model is persisted and loaded automatically by predict.

The dataset is a JSON object with a "samples" array; each sample holds
an error "record" and its resolved "cause".

Examples:
  # Train from a file
  faultd train history.json

  # Train from stdin
  cat history.json | faultd train -`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTrain,
}

func runTrain(cmd *cobra.Command, args []string) error {
	d, err := loadDataset(args)
	if err != nil {
		return err
	}
	records, causes := d.split()
	for i, cause := range causes {
		if cause == "" {
			return fmt.Errorf("sample %d has no cause; training requires labeled samples", i)
		}
	}

	ctx := cmd.Context()
	a, err := newApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.classifiers.Train(ctx, records, causes); err != nil {
		return err
	}
	if err := a.retriever.Index(ctx, records, causes); err != nil {
		return err
	}

	// Feed training history through the tracker so groups exist before
	// the first prediction.
	for _, rec := range records {
		a.tracker.Record(rec)
	}
	if err := a.saveGroups(); err != nil {
		a.logger.Warn("saving groups failed", zap.Error(err))
	}

	snap, err := a.classifiers.Snapshot()
	if err != nil {
		return err
	}
	if err := a.blobs.SaveJSON(blobClassifiers, snap); err != nil {
		return fmt.Errorf("persisting classifiers: %w", err)
	}

	a.predictor.BumpModelVersion()
	fmt.Printf("Trained on %d samples across %d causes\n", len(records), len(a.classifiers.Labels()))
	return nil
}
