package verify

import "github.com/fixforward/fixforward/internal/domain"

// WeightedPolicy blends the fraction of resolved failures with the
// classifier confidence of what was resolved. Any regression caps the
// score and each regression costs RegressionPenalty on top.
type WeightedPolicy struct {
	MaxConfidence     float64
	RegressionCap     float64
	RegressionPenalty float64
}

// DefaultPolicy returns the policy used when no configuration overrides it.
func DefaultPolicy() WeightedPolicy {
	return PolicyFromConfig(domain.DefaultConfig().Scoring)
}

// PolicyFromConfig builds a WeightedPolicy from project configuration.
func PolicyFromConfig(c domain.ScoringConfig) WeightedPolicy {
	return WeightedPolicy{
		MaxConfidence:     c.MaxConfidence,
		RegressionCap:     c.RegressionCap,
		RegressionPenalty: c.RegressionPenalty,
	}
}

// Confidence implements domain.ScoringPolicy.
func (p WeightedPolicy) Confidence(in domain.ScoreInput) float64 {
	base := 1.0
	if len(in.Before) > 0 {
		rate := float64(len(in.Resolved)) / float64(len(in.Before))
		base = 0.5*rate + 0.5*weightedRate(in)
	}
	score := base * p.MaxConfidence

	if n := len(in.Regressed); n > 0 {
		score = min(score, p.RegressionCap) - p.RegressionPenalty*float64(n)
		score = max(0, score)
	}
	return round2(score)
}

// weightedRate is the share of classifier confidence carried by resolved
// failures. A failure without a weight counts as unknown.
func weightedRate(in domain.ScoreInput) float64 {
	var total, resolved float64
	for _, f := range in.Before {
		total += weight(in.Weights, f)
	}
	for _, f := range in.Resolved {
		resolved += weight(in.Weights, f)
	}
	if total == 0 {
		return 0
	}
	return resolved / total
}

func weight(w map[domain.FailureKey]float64, f domain.Failure) float64 {
	if v, ok := w[f.Key()]; ok {
		return v
	}
	return domain.UnknownConfidence
}
