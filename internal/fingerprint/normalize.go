package fingerprint

import (
	"regexp"
	"strings"
)

// Placeholders substituted for volatile message content so that dynamic
// payloads do not fracture identical bugs into different fingerprints.
const (
	placeholderUUID      = "<uuid>"
	placeholderTimestamp = "<timestamp>"
	placeholderNumber    = "<num>"
	placeholderString    = "<str>"
)

var (
	uuidRe = regexp.MustCompile(`[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}`)

	isoTimestampRe = regexp.MustCompile(`\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(?:\.\d+)?(?:Z|[+-]\d{2}:?\d{2})?`)

	// Numeric runs of 5+ digits are treated as payload (ids, ports,
	// epoch fragments), shorter runs as part of the message.
	longNumberRe = regexp.MustCompile(`\d{5,}`)

	longDoubleQuotedRe = regexp.MustCompile(`"[^"]{17,}"`)
	longSingleQuotedRe = regexp.MustCompile(`'[^']{17,}'`)
)

// NormalizeMessage scrubs volatile tokens from an error message:
// UUIDs, ISO-8601 timestamps, long numeric runs, and long quoted
// literals are replaced with fixed placeholders.
func NormalizeMessage(message string) string {
	msg := strings.TrimSpace(message)

	// UUIDs before numbers: a UUID contains digit runs of its own.
	msg = uuidRe.ReplaceAllString(msg, placeholderUUID)
	msg = isoTimestampRe.ReplaceAllString(msg, placeholderTimestamp)
	msg = longNumberRe.ReplaceAllString(msg, placeholderNumber)
	msg = longDoubleQuotedRe.ReplaceAllString(msg, placeholderString)
	msg = longSingleQuotedRe.ReplaceAllString(msg, placeholderString)

	return msg
}
