package domain

// Category is the root-cause family a failure was classified into.
type Category string

const (
	CategorySyntaxError Category = "syntax_error"
	CategoryDependency  Category = "dependency"
	CategoryAPIChange   Category = "api_change"
	CategoryAssertion   Category = "assertion"
	CategoryEnvMismatch Category = "env_mismatch"
	CategoryLint        Category = "lint"
	CategoryFlakyTest   Category = "flaky_test"
	CategoryUnknown     Category = "unknown"
)

// UnknownConfidence is assigned when no rule matches.
const UnknownConfidence = 0.30

// Classification attaches a category and confidence to one failure.
type Classification struct {
	Failure    Failure  `json:"failure"`
	Category   Category `json:"category"`
	Confidence float64  `json:"confidence"`
	RuleID     string   `json:"rule_id,omitempty"`
	Summary    string   `json:"summary"`
}

// Diagnosis is the result of running and classifying a project's tests.
type Diagnosis struct {
	ProjectPath     string           `json:"project_path"`
	Ecosystem       Ecosystem        `json:"ecosystem"`
	Run             *TestRun         `json:"run,omitempty"`
	Report          TestReport       `json:"report"`
	Classifications []Classification `json:"classifications"`
}

// Passing is true when the runner exited cleanly and nothing failed.
func (d *Diagnosis) Passing() bool {
	return len(d.Report.Failures) == 0 && (d.Run == nil || d.Run.ExitCode == 0)
}

// Failures returns the failures in extraction order.
func (d *Diagnosis) Failures() []Failure {
	return d.Report.Failures
}
