package embeddings

import (
	"strings"

	"github.com/fyrsmithlabs/faultd/internal/errordata"
	"github.com/fyrsmithlabs/faultd/internal/fingerprint"
)

// PreprocessRecord builds the canonical embedding text for a record:
// error type, normalized message, and the top application stack frame.
// The same record always yields the same text, which makes embedding
// results content-addressable.
func PreprocessRecord(rec errordata.ErrorRecord) string {
	var sb strings.Builder

	if rec.Type != "" {
		sb.WriteString(rec.Type)
		sb.WriteString(": ")
	}
	sb.WriteString(fingerprint.NormalizeMessage(rec.Message))

	frames := rec.Frames
	if len(frames) == 0 {
		if result := fingerprint.ParseStack(rec.StackTrace); result.Parsed {
			frames = result.Frames
		}
	}
	if len(frames) > 0 {
		frame := frames[0]
		sb.WriteString(" at ")
		if frame.Function != "" {
			sb.WriteString(frame.Function)
			sb.WriteString(" in ")
		}
		sb.WriteString(frame.File)
	}

	if rec.Environment != "" {
		sb.WriteString(" [")
		sb.WriteString(rec.Environment)
		sb.WriteString("]")
	}

	return sb.String()
}
