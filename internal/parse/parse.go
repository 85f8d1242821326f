// Package parse extracts the structured analysis from raw model output.
package parse

import (
	"strings"

	"go.uber.org/zap"
)

// Sentinel markers the model is instructed to wrap its answer in.
const (
	StartMarker = "---HTML_ANALYSIS_START---"
	EndMarker   = "---HTML_ANALYSIS_END---"
)

// ParsedAnalysis holds the two renderings of the extracted answer.
type ParsedAnalysis struct {
	HTMLFragment      string `json:"htmlFragment"`
	PlainTextFragment string `json:"plainTextFragment"`
}

// Analysis extracts the substring between the sentinel markers, unwraps an
// optional fenced code block, and derives a plain-text shadow copy. When the
// markers are missing or out of order the entire trimmed response is used
// instead; that is a degraded result, not a failure.
func Analysis(raw string) ParsedAnalysis {
	html, ok := between(raw, StartMarker, EndMarker)
	if !ok {
		zap.L().Warn("analysis markers missing, using full response",
			zap.Int("response_len", len(raw)),
		)
		html = strings.TrimSpace(raw)
	}

	html = stripFence(html)

	return ParsedAnalysis{
		HTMLFragment:      html,
		PlainTextFragment: StripTags(html),
	}
}

// between returns the trimmed substring strictly between the first occurrence
// of start and the first occurrence of end after it.
func between(s, start, end string) (string, bool) {
	i := strings.Index(s, start)
	if i < 0 {
		return "", false
	}
	rest := s[i+len(start):]
	j := strings.Index(rest, end)
	if j < 0 {
		return "", false
	}
	return strings.TrimSpace(rest[:j]), true
}

// stripFence removes a markdown code-fence wrapper if it encloses the whole
// fragment. The opening fence may carry a language tag ("```html").
func stripFence(s string) string {
	if !strings.HasPrefix(s, "```") || !strings.HasSuffix(s, "```") {
		return s
	}
	body := strings.TrimPrefix(s, "```")
	// Drop the language tag up to the first newline, if any.
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		body = body[nl+1:]
	} else {
		return s
	}
	body = strings.TrimSuffix(body, "```")
	return strings.TrimSpace(body)
}

// StripTags removes <...> runs and collapses the remaining whitespace. It is
// a lossy single pass, not an HTML parser: malformed or nested markup can
// leave artifacts, which is acceptable for the plain-text shadow copy.
func StripTags(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			if inTag {
				inTag = false
				b.WriteByte(' ')
			} else {
				b.WriteRune(r)
			}
		case !inTag:
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
