package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fyrsmithlabs/faultd/internal/errordata"
)

const maxInputSize = 256 * 1024 * 1024

// labeledSample is one historical error with its resolved cause.
type labeledSample struct {
	Record errordata.ErrorRecord `json:"record"`
	Cause  string                `json:"cause,omitempty"`
}

// dataset is the JSON input format for train and cluster: an array of
// labeled samples. Causes are required for training and ignored for
// clustering.
type dataset struct {
	Samples []labeledSample `json:"samples"`
}

func (d dataset) split() ([]errordata.ErrorRecord, []string) {
	records := make([]errordata.ErrorRecord, len(d.Samples))
	causes := make([]string, len(d.Samples))
	for i, s := range d.Samples {
		records[i] = s.Record
		causes[i] = s.Cause
	}
	return records, causes
}

// readInput reads a file argument, or stdin when the argument is
// missing or "-".
func readInput(args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(io.LimitReader(os.Stdin, maxInputSize))
		if err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", args[0], err)
	}
	return data, nil
}

func loadDataset(args []string) (dataset, error) {
	var d dataset
	data, err := readInput(args)
	if err != nil {
		return d, err
	}
	if err := json.Unmarshal(data, &d); err != nil {
		return d, fmt.Errorf("parsing dataset: %w", err)
	}
	if len(d.Samples) == 0 {
		return d, fmt.Errorf("dataset contains no samples")
	}
	return d, nil
}

func loadRecord(args []string) (errordata.ErrorRecord, error) {
	var rec errordata.ErrorRecord
	data, err := readInput(args)
	if err != nil {
		return rec, err
	}
	if err := json.Unmarshal(data, &rec); err != nil {
		return rec, fmt.Errorf("parsing error record: %w", err)
	}
	return rec, nil
}

// printJSON writes indented JSON to stdout.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
