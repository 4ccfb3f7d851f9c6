// Package classify assigns each failure a root-cause category using an
// ordered table of regular-expression rules.
package classify

import (
	"strings"

	"github.com/fixforward/fixforward/internal/domain"
)

const maxSummary = 120

// Classify returns the classification of a single failure. It is a pure
// function of the failure's message and raw excerpt.
func Classify(f domain.Failure) domain.Classification {
	text := f.Message + "\n" + f.RawExcerpt

	for _, r := range rules {
		loc := r.Pattern.FindStringSubmatchIndex(text)
		if loc == nil {
			continue
		}
		summary := string(r.Pattern.ExpandString(nil, r.Summary, text, loc))
		return domain.Classification{
			Failure:    f,
			Category:   r.Category,
			Confidence: r.Confidence,
			RuleID:     r.ID,
			Summary:    clip(summary),
		}
	}

	summary := "Unknown error"
	if m := strings.TrimSpace(f.Message); m != "" {
		summary = m
	}
	return domain.Classification{
		Failure:    f,
		Category:   domain.CategoryUnknown,
		Confidence: domain.UnknownConfidence,
		Summary:    clip(summary),
	}
}

// All classifies failures, preserving order.
func All(failures []domain.Failure) []domain.Classification {
	out := make([]domain.Classification, 0, len(failures))
	for _, f := range failures {
		out = append(out, Classify(f))
	}
	return out
}

// Confidence returns the classifier confidence for a failure.
func Confidence(f domain.Failure) float64 {
	return Classify(f).Confidence
}

func clip(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if r := []rune(s); len(r) > maxSummary {
		return string(r[:maxSummary-3]) + "..."
	}
	return s
}
