package domain

// VerificationResult compares the failure sets before and after a patch.
type VerificationResult struct {
	BeforeFailures []Failure `json:"before_failures"`
	AfterFailures  []Failure `json:"after_failures"`
	Resolved       []Failure `json:"resolved"`
	Regressed      []Failure `json:"regressed"`
	Unresolved     []Failure `json:"unresolved"`
	Confidence     float64   `json:"confidence"`
}

// AllResolved is true when nothing from before remains and nothing new broke.
func (v VerificationResult) AllResolved() bool {
	return len(v.Unresolved) == 0 && len(v.Regressed) == 0
}

// ScoreInput is what a scoring policy sees. Weights holds the classifier
// confidence of each before-failure, keyed by identity.
type ScoreInput struct {
	Before    []Failure
	Resolved  []Failure
	Regressed []Failure
	Weights   map[FailureKey]float64
}

// ScoringPolicy turns a before/after comparison into a confidence in [0, 1].
// Implementations must be monotonic: resolving strictly more failures
// without adding regressions never lowers the score.
type ScoringPolicy interface {
	Confidence(in ScoreInput) float64
}

// FixReport is the end-to-end record of one `fixforward run`.
type FixReport struct {
	RunID        string              `json:"run_id"`
	Diagnosis    *Diagnosis          `json:"diagnosis"`
	Candidates   []PatchCandidate    `json:"candidates,omitempty"`
	Strategy     Strategy            `json:"strategy,omitempty"`
	Explanation  string              `json:"explanation,omitempty"`
	Rollback     *RollbackState      `json:"rollback,omitempty"`
	Verification *VerificationResult `json:"verification,omitempty"`
	Outcome      RunOutcome          `json:"outcome"`
	// VerifyError is set when the re-run could not complete.
	VerifyError string `json:"verify_error,omitempty"`
	// Originals holds the current content of each modified candidate.
	Originals map[string]string `json:"-"`
}
