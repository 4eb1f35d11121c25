package main

import (
	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/faultd/internal/errordata"
	"github.com/fyrsmithlabs/faultd/internal/fingerprint"
)

var fingerprintCmd = &cobra.Command{
	Use:   "fingerprint [error.json]",
	Short: "Compute the deduplication fingerprint of an error",
	Long: `Compute the stable identity hash used to group an error, along with
the normalized message and the parsed stack frames that feed it.

Examples:
  # Fingerprint from a file
  faultd fingerprint error.json

  # Fingerprint from stdin
  cat error.json | faultd fingerprint -`,
	Args: cobra.MaximumNArgs(1),
	RunE: runFingerprint,
}

func runFingerprint(cmd *cobra.Command, args []string) error {
	rec, err := loadRecord(args)
	if err != nil {
		return err
	}

	engine := fingerprint.NewEngine(nil)
	result := fingerprint.ParseStack(rec.StackTrace)

	frames := rec.Frames
	if len(frames) == 0 && result.Parsed {
		frames = result.Frames
	}

	return printJSON(struct {
		Fingerprint       string                 `json:"fingerprint"`
		NormalizedMessage string                 `json:"normalized_message"`
		StackParsed       bool                   `json:"stack_parsed"`
		Frames            []errordata.StackFrame `json:"frames,omitempty"`
	}{
		Fingerprint:       engine.Fingerprint(rec),
		NormalizedMessage: fingerprint.NormalizeMessage(rec.Message),
		StackParsed:       result.Parsed || len(rec.Frames) > 0,
		Frames:            frames,
	})
}
