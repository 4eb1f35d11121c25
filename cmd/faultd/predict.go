package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var withAssignment bool

var predictCmd = &cobra.Command{
	Use:   "predict [error.json]",
	Short: "Predict the probable cause of an error",
	Long: `Run the ensemble predictor on a single error record: the trained
statistical and KNN classifiers plus similarity retrieval over indexed
history, fused into a ranked cause list with confidence scores.

Requires a trained model ("faultd train") or indexed history.

Examples:
  # Predict from a file
  faultd predict error.json

  # Predict from stdin, including cluster assignment
  cat error.json | faultd predict --assign -`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPredict,
}

func init() {
	predictCmd.Flags().BoolVar(&withAssignment, "assign", false, "also assign the error to the nearest cluster")
}

func runPredict(cmd *cobra.Command, args []string) error {
	rec, err := loadRecord(args)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	a, err := newApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.close()

	group, _ := a.tracker.Record(rec)

	prediction, err := a.predictor.Predict(ctx, rec)
	if err != nil {
		return err
	}

	if err := a.saveGroups(); err != nil {
		a.logger.Warn("saving groups failed", zap.Error(err))
	}

	out := map[string]any{
		"group":      group,
		"prediction": prediction,
	}
	if withAssignment {
		assignment, err := a.clusters.Assign(ctx, rec)
		if err != nil {
			a.logger.Warn("cluster assignment unavailable", zap.Error(err))
		} else {
			out["cluster"] = assignment
		}
	}

	return printJSON(out)
}
