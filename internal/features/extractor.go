package features

import (
	"path"
	"strconv"
	"strings"

	"github.com/fyrsmithlabs/faultd/internal/errordata"
)

// Extract builds the sparse bag-of-features for a record: error type,
// status code, browser/OS/environment tags, message tokens, and
// file/function tokens from the stack frames.
func Extract(rec errordata.ErrorRecord) []Feature {
	feats := make([]Feature, 0, 16)

	if rec.Type != "" {
		feats = append(feats, Feature{Kind: KindErrorType, Key: rec.Type, Value: 1})
	}
	if rec.StatusCode != 0 {
		feats = append(feats, Feature{Kind: KindStatusCode, Key: strconv.Itoa(rec.StatusCode), Value: 1})
	}
	if rec.Browser != "" {
		feats = append(feats, Feature{Kind: KindBrowser, Key: strings.ToLower(rec.Browser), Value: 1})
	}
	if rec.OS != "" {
		feats = append(feats, Feature{Kind: KindOS, Key: strings.ToLower(rec.OS), Value: 1})
	}
	if rec.Environment != "" {
		feats = append(feats, Feature{Kind: KindEnvironment, Key: strings.ToLower(rec.Environment), Value: 1})
	}

	counts := map[string]int{}
	for _, token := range Tokenize(rec.Message) {
		counts[token]++
	}
	for token, n := range counts {
		feats = append(feats, Feature{Kind: KindMessageToken, Key: token, Value: float64(n)})
	}

	seenFiles := map[string]bool{}
	seenFuncs := map[string]bool{}
	for _, frame := range rec.Frames {
		if frame.File != "" {
			base := strings.ToLower(path.Base(frame.File))
			if !seenFiles[base] {
				seenFiles[base] = true
				feats = append(feats, Feature{Kind: KindFileToken, Key: base, Value: 1})
			}
		}
		if frame.Function != "" && !seenFuncs[frame.Function] {
			seenFuncs[frame.Function] = true
			feats = append(feats, Feature{Kind: KindFunctionToken, Key: frame.Function, Value: 1})
		}
	}

	return feats
}

// Tokenize splits text into lowercase terms, dropping stopwords and
// terms shorter than three characters.
func Tokenize(text string) []string {
	text = strings.ToLower(text)
	tokens := strings.FieldsFunc(text, func(r rune) bool {
		return !isAlphanumeric(r)
	})

	filtered := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if len(token) > 2 && !stopwords[token] {
			filtered = append(filtered, token)
		}
	}
	return filtered
}

func isAlphanumeric(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9') || r == '_'
}

var stopwords = map[string]bool{
	"the": true, "and": true, "for": true, "not": true, "was": true,
	"are": true, "has": true, "had": true, "but": true, "with": true,
	"from": true, "this": true, "that": true, "could": true, "cannot": true,
	"can": true, "does": true, "did": true, "will": true, "when": true,
	"while": true, "into": true, "your": true, "you": true,
}
