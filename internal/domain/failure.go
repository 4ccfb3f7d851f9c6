package domain

import "fmt"

// Ecosystem identifies the test runner family of a project.
type Ecosystem string

const (
	EcosystemPython Ecosystem = "python"
	EcosystemNode   Ecosystem = "node"
	EcosystemRust   Ecosystem = "rust"
)

// ValidEcosystems enumerates all supported ecosystems.
var ValidEcosystems = []Ecosystem{EcosystemPython, EcosystemNode, EcosystemRust}

// ParseEcosystem converts a user-supplied tag into an Ecosystem.
func ParseEcosystem(s string) (Ecosystem, error) {
	for _, e := range ValidEcosystems {
		if string(e) == s {
			return e, nil
		}
	}
	return "", fmt.Errorf("unknown ecosystem %q (valid: python, node, rust)", s)
}

// UnparsedTestName names the synthetic failure emitted when the runner
// reports failures that no grammar could structure.
const UnparsedTestName = "<unparsed>"

// Failure is one failing test extracted from runner output.
// FilePath is empty and Line is zero when the location is unknown.
type Failure struct {
	TestName   string    `json:"test_name"`
	FilePath   string    `json:"file_path,omitempty"`
	Line       int       `json:"line,omitempty"`
	Message    string    `json:"message"`
	RawExcerpt string    `json:"raw_excerpt,omitempty"`
	Ecosystem  Ecosystem `json:"ecosystem"`
}

// FailureKey is the identity of a failure across two test runs.
type FailureKey struct {
	TestName string `json:"test_name"`
	FilePath string `json:"file_path,omitempty"`
}

func (f Failure) Key() FailureKey {
	return FailureKey{TestName: f.TestName, FilePath: f.FilePath}
}

// Location renders "file:line", "file" or "" depending on what is known.
func (f Failure) Location() string {
	switch {
	case f.FilePath == "":
		return ""
	case f.Line > 0:
		return fmt.Sprintf("%s:%d", f.FilePath, f.Line)
	default:
		return f.FilePath
	}
}

// IsSynthetic reports whether the failure stands in for unparseable output.
func (f Failure) IsSynthetic() bool {
	return f.TestName == UnparsedTestName
}

// TestReport is what the extractor recovers from one run's output:
// the structured failures plus the counts the runner printed.
type TestReport struct {
	Failures []Failure `json:"failures"`
	Passed   int       `json:"passed"`
	Failed   int       `json:"failed"`
	Total    int       `json:"total"`
}

// ReportsFailures is true when the runner's own summary admits failures.
func (r TestReport) ReportsFailures() bool {
	return r.Failed > 0
}
