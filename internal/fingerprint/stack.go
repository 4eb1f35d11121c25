package fingerprint

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/fyrsmithlabs/faultd/internal/errordata"
)

// ParseResult is the outcome of parsing a raw stack trace. Parsed is
// false when no frame could be extracted; hashing has defined behavior
// for both variants.
type ParseResult struct {
	Parsed bool
	Frames []errordata.StackFrame
}

var (
	// V8 style: "    at fnName (file:line:col)" or "    at file:line:col"
	v8FrameRe = regexp.MustCompile(`^\s*at\s+(?:(.+?)\s+\()?(.+?):(\d+)(?::(\d+))?\)?\s*$`)

	// Gecko style: "fnName@file:line:col" or "@file:line:col"
	geckoFrameRe = regexp.MustCompile(`^\s*(.*?)@(.+?):(\d+)(?::(\d+))?\s*$`)
)

// ParseStack extracts stack frames from raw trace text. It understands
// V8 ("at fn (file:line:col)") and Gecko ("fn@file:line:col") frame
// shapes and skips lines that match neither.
func ParseStack(trace string) ParseResult {
	if strings.TrimSpace(trace) == "" {
		return ParseResult{}
	}

	var frames []errordata.StackFrame
	for _, line := range strings.Split(trace, "\n") {
		if frame, ok := parseFrameLine(line); ok {
			frames = append(frames, frame)
		}
	}

	if len(frames) == 0 {
		return ParseResult{}
	}
	return ParseResult{Parsed: true, Frames: frames}
}

func parseFrameLine(line string) (errordata.StackFrame, bool) {
	if m := v8FrameRe.FindStringSubmatch(line); m != nil {
		return buildFrame(m[1], m[2], m[3], m[4]), true
	}
	if m := geckoFrameRe.FindStringSubmatch(line); m != nil {
		return buildFrame(m[1], m[2], m[3], m[4]), true
	}
	return errordata.StackFrame{}, false
}

func buildFrame(fn, file, line, col string) errordata.StackFrame {
	frame := errordata.StackFrame{
		Function: strings.TrimSpace(fn),
		File:     strings.TrimSpace(file),
	}
	frame.Line, _ = strconv.Atoi(line)
	if col != "" {
		frame.Column, _ = strconv.Atoi(col)
	}
	return frame
}

// excludedPathMarkers lists path fragments that identify library,
// framework, bundler, and runtime-internal frames. Frames matching any
// marker are skipped when selecting the signature frame.
var excludedPathMarkers = []string{
	"node_modules/",
	"/vendor/",
	"webpack/bootstrap",
	"webpack/runtime",
	"internal/modules",
	"internal/process",
	"zone.js",
	"polyfill",
	"<anonymous>",
	"[native code]",
	"native code",
}

var excludedFunctionMarkers = []string{
	"__webpack_require__",
	"Module._compile",
	"Object.<anonymous>",
}

// isExcludedFrame reports whether the frame belongs to a known
// library/framework/internal location rather than application code.
func isExcludedFrame(frame errordata.StackFrame) bool {
	file := strings.ToLower(frame.File)
	for _, marker := range excludedPathMarkers {
		if strings.Contains(file, strings.ToLower(marker)) {
			return true
		}
	}
	for _, marker := range excludedFunctionMarkers {
		if strings.Contains(frame.Function, marker) {
			return true
		}
	}
	return false
}

// signatureFrame selects the first non-excluded frame, falling back to
// the first available frame when every frame is excluded.
func signatureFrame(frames []errordata.StackFrame) (errordata.StackFrame, bool) {
	if len(frames) == 0 {
		return errordata.StackFrame{}, false
	}
	for _, frame := range frames {
		if !isExcludedFrame(frame) {
			return frame, true
		}
	}
	return frames[0], true
}

// frameSignature renders a frame as "{basename}:{line}[:{function}]",
// stripping protocol and bundler prefixes from the file path.
func frameSignature(frame errordata.StackFrame) string {
	file := stripPathPrefixes(frame.File)
	if idx := strings.LastIndexAny(file, "/\\"); idx >= 0 {
		file = file[idx+1:]
	}

	sig := file + ":" + strconv.Itoa(frame.Line)
	if frame.Function != "" {
		sig += ":" + frame.Function
	}
	return sig
}

var pathPrefixes = []string{
	"webpack://",
	"webpack-internal:///",
	"http://",
	"https://",
	"file://",
}

func stripPathPrefixes(file string) string {
	for _, prefix := range pathPrefixes {
		if strings.HasPrefix(file, prefix) {
			file = strings.TrimPrefix(file, prefix)
			break
		}
	}
	// Drop query strings appended by bundlers (bundle.js?v=123).
	if idx := strings.IndexByte(file, '?'); idx >= 0 {
		file = file[:idx]
	}
	return file
}
