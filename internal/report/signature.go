package report

import (
	"crypto/sha256"
	"fmt"
	"regexp"
	"strings"
)

const (
	placeholderID   = ":id"
	placeholderUUID = ":uuid"
)

// Normalization regexes compiled once at package init.
var (
	reUUID      = regexp.MustCompile(`(?i)[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}`)
	reLocation  = regexp.MustCompile(`\s*\([^()]*\)\s*$`)
	reLeadingAt = regexp.MustCompile(`^at\s+`)
)

// Signature computes the 64-character SHA-256 dedup key for an error occurrence.
// It is a pure function of its inputs.
func Signature(message, stack, url string) string {
	sum := sha256.Sum256([]byte(message + "|" + NormalizeURL(url) + "|" + FirstFrame(stack)))
	return fmt.Sprintf("%x", sum)
}

// NormalizeURL strips the query string, then replaces all-digit path segments
// with ":id" and UUID-shaped spans with ":uuid". The order matters: an id in the
// query string must never influence the result.
func NormalizeURL(url string) string {
	if url == "" {
		return ""
	}
	if i := strings.IndexByte(url, '?'); i >= 0 {
		url = url[:i]
	}

	segments := strings.Split(url, "/")
	for i, seg := range segments {
		if isDigits(seg) {
			segments[i] = placeholderID
		}
	}
	url = strings.Join(segments, "/")

	return reUUID.ReplaceAllString(url, placeholderUUID)
}

// FirstFrame extracts the first meaningful stack frame: the second line of the
// stack (the first is the message), without its "(file:line)" suffix, its
// leading "at", or anything after the first colon.
func FirstFrame(stack string) string {
	lines := strings.Split(stack, "\n")
	if len(lines) < 2 {
		return ""
	}

	frame := strings.TrimSpace(lines[1])
	frame = reLocation.ReplaceAllString(frame, "")
	frame = reLeadingAt.ReplaceAllString(frame, "")
	if i := strings.IndexByte(frame, ':'); i >= 0 {
		frame = frame[:i]
	}
	return frame
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
