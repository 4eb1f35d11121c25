// Package fingerprint derives stable identity hashes for error records.
//
// Two records that describe the same bug (same throw site, same
// normalized message) hash identically; cosmetic differences such as
// embedded IDs, timestamps, and long literals are scrubbed before
// hashing. Fingerprinting is best-effort: it never fails, degrading to
// a weaker digest of the raw type and message when the stack trace
// cannot be parsed.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"hash/fnv"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/faultd/internal/errordata"
)

// Engine computes fingerprints. It is a pure function of its input and
// safe for concurrent use.
type Engine struct {
	logger *zap.Logger
}

// NewEngine creates a fingerprint engine.
func NewEngine(logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{logger: logger}
}

// Fingerprint derives the stable identity hash for a record.
//
// The hash input is "{errorType}|{frameSignature}|{normalizedMessage}|{urlPath}"
// with empty segments omitted. When neither pre-parsed frames nor the
// raw trace yield a frame, it falls back to an FNV digest of
// "{errorType}|{rawMessage}" so that ingest never surfaces an error.
func (e *Engine) Fingerprint(rec errordata.ErrorRecord) string {
	frames := rec.Frames
	if len(frames) == 0 {
		result := ParseStack(rec.StackTrace)
		if !result.Parsed {
			e.logger.Debug("stack unparsed, using fallback fingerprint",
				zap.String("error_id", rec.ID),
				zap.String("type", rec.Type))
			return fallbackFingerprint(rec)
		}
		frames = result.Frames
	}

	frame, ok := signatureFrame(frames)
	if !ok {
		return fallbackFingerprint(rec)
	}

	segments := make([]string, 0, 4)
	if rec.Type != "" {
		segments = append(segments, rec.Type)
	}
	segments = append(segments, frameSignature(frame))
	if msg := NormalizeMessage(rec.Message); msg != "" {
		segments = append(segments, msg)
	}
	if path := urlPath(rec.URL); path != "" {
		segments = append(segments, path)
	}

	sum := sha256.Sum256([]byte(strings.Join(segments, "|")))
	return hex.EncodeToString(sum[:])
}

// fallbackFingerprint hashes the raw type and message with FNV-64a.
// Weaker than the primary digest but always available.
func fallbackFingerprint(rec errordata.ErrorRecord) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(rec.Type))
	_, _ = h.Write([]byte{'|'})
	_, _ = h.Write([]byte(rec.Message))
	return strconv.FormatUint(h.Sum64(), 16)
}

func urlPath(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Path
}
