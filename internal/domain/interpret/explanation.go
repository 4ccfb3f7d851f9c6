package interpret

import (
	"regexp"
	"strings"
)

const (
	maxExplanationLines = 10
	maxExplanationRunes = 500
)

var (
	explanationHeadingRe = regexp.MustCompile(`(?im)^\W*(?:explanation|what changed|changes made|summary)\W*:?\W*$`)
	explanationLeadRe    = regexp.MustCompile(`(?i)(?:I changed|I fixed|The fix|This fixes|The issue)[^\n]*`)
)

// Explanation extracts the generator's description of its change. Code
// blocks are ignored. It prefers a labelled section, then a sentence that
// describes the fix, then the last paragraph.
func Explanation(response string) string {
	text := withoutFences(response)

	if loc := explanationHeadingRe.FindStringIndex(text); loc != nil {
		if body := firstLines(text[loc[1]:], maxExplanationLines); body != "" {
			return body
		}
	}
	if m := explanationLeadRe.FindString(text); m != "" {
		return strings.TrimSpace(m)
	}

	paragraphs := strings.Split(strings.TrimSpace(text), "\n\n")
	last := strings.TrimSpace(paragraphs[len(paragraphs)-1])
	if r := []rune(last); len(r) > maxExplanationRunes {
		last = string(r[:maxExplanationRunes])
	}
	return last
}

func withoutFences(response string) string {
	lines := splitResponse(response)
	fences := scanFences(lines)
	if len(fences) == 0 {
		return response
	}
	var kept []string
	next := 0
	for i, l := range lines {
		if next < len(fences) && i >= fences[next].start {
			if i == fences[next].end {
				next++
			}
			continue
		}
		kept = append(kept, l)
	}
	return strings.Join(kept, "\n")
}

func firstLines(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > n {
		lines = lines[:n]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
