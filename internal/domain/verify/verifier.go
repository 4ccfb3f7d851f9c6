// Package verify compares the failures of a test run before and after a
// patch and scores how confident fixforward is that the patch worked.
package verify

import (
	"math"

	"github.com/fixforward/fixforward/internal/domain"
	"github.com/fixforward/fixforward/internal/domain/classify"
)

// Scorer computes verification results under a scoring policy.
type Scorer struct {
	policy domain.ScoringPolicy
}

// NewScorer returns a Scorer using policy. A nil policy means the
// default WeightedPolicy.
func NewScorer(policy domain.ScoringPolicy) *Scorer {
	if policy == nil {
		policy = DefaultPolicy()
	}
	return &Scorer{policy: policy}
}

// Score matches failures by (TestName, FilePath) using the default policy.
func Score(before, after []domain.Failure) domain.VerificationResult {
	return NewScorer(nil).Score(before, after)
}

// Score matches failures by identity and scores the outcome. Resolved and
// Unresolved keep the order of before; Regressed keeps the order of after.
func (s *Scorer) Score(before, after []domain.Failure) domain.VerificationResult {
	before, after = unique(before), unique(after)
	inAfter := keys(after)
	inBefore := keys(before)

	res := domain.VerificationResult{
		BeforeFailures: before,
		AfterFailures:  after,
		Resolved:       []domain.Failure{},
		Regressed:      []domain.Failure{},
		Unresolved:     []domain.Failure{},
	}
	for _, f := range before {
		if inAfter[f.Key()] {
			res.Unresolved = append(res.Unresolved, f)
		} else {
			res.Resolved = append(res.Resolved, f)
		}
	}
	for _, f := range after {
		if !inBefore[f.Key()] {
			res.Regressed = append(res.Regressed, f)
		}
	}

	weights := make(map[domain.FailureKey]float64, len(before))
	for _, f := range before {
		weights[f.Key()] = classify.Confidence(f)
	}
	res.Confidence = s.policy.Confidence(domain.ScoreInput{
		Before:    before,
		Resolved:  res.Resolved,
		Regressed: res.Regressed,
		Weights:   weights,
	})
	return res
}

// unique drops later failures with an identity already seen.
func unique(failures []domain.Failure) []domain.Failure {
	seen := make(map[domain.FailureKey]bool, len(failures))
	out := make([]domain.Failure, 0, len(failures))
	for _, f := range failures {
		if seen[f.Key()] {
			continue
		}
		seen[f.Key()] = true
		out = append(out, f)
	}
	return out
}

func keys(failures []domain.Failure) map[domain.FailureKey]bool {
	m := make(map[domain.FailureKey]bool, len(failures))
	for _, f := range failures {
		m[f.Key()] = true
	}
	return m
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
