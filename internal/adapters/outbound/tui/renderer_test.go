package tui_test

import (
	"errors"
	"testing"

	"github.com/fixforward/fixforward/internal/adapters/outbound/tui"
	"github.com/fixforward/fixforward/internal/domain"
	"github.com/stretchr/testify/assert"
)

func sampleDiagnosis() *domain.Diagnosis {
	f := domain.Failure{TestName: "test_divide", FilePath: "test_app.py", Line: 19, Message: "assert 3.3333333333333335 == 3"}
	return &domain.Diagnosis{
		ProjectPath: "/work/calc",
		Ecosystem:   domain.EcosystemPython,
		Run:         &domain.TestRun{ExitCode: 1},
		Report:      domain.TestReport{Failures: []domain.Failure{f}, Passed: 4, Failed: 1, Total: 5},
		Classifications: []domain.Classification{{
			Failure: f, Category: domain.CategoryAssertion, Confidence: 0.85, Summary: "Assertion: value mismatch",
		}},
	}
}

func TestRenderDiagnosis_ContainsFailures(t *testing.T) {
	output := tui.RenderDiagnosis(sampleDiagnosis())

	assert.Contains(t, output, "fixforward")
	assert.Contains(t, output, "1 failing")
	assert.Contains(t, output, "4 passed")
	assert.Contains(t, output, "test_divide")
	assert.Contains(t, output, "test_app.py:19")
	assert.Contains(t, output, "assertion")
	assert.Contains(t, output, "0.85")
	assert.Contains(t, output, "Assertion: value mismatch")
}

func TestRenderDiagnosis_Passing(t *testing.T) {
	output := tui.RenderDiagnosis(&domain.Diagnosis{Ecosystem: domain.EcosystemRust, Run: &domain.TestRun{}})

	assert.Contains(t, output, "All tests passing")
}

func TestRenderVerification_Groups(t *testing.T) {
	v := &domain.VerificationResult{
		Resolved:   []domain.Failure{{TestName: "test_divide", FilePath: "test_app.py"}},
		Regressed:  []domain.Failure{{TestName: "test_add", FilePath: "test_app.py", Line: 4}},
		Unresolved: []domain.Failure{},
		Confidence: 0.4,
	}

	output := tui.RenderVerification(v)

	assert.Contains(t, output, "resolved")
	assert.Contains(t, output, "regressed")
	assert.NotContains(t, output, "still failing")
	assert.Contains(t, output, "test_app.py:4")
	assert.Contains(t, output, "0.40")
}

func TestRenderFixReport_Outcomes(t *testing.T) {
	tests := []struct {
		outcome domain.RunOutcome
		want    string
	}{
		{domain.OutcomeAllPassing, "Nothing to fix"},
		{domain.OutcomeNoPatch, "no usable file edits"},
		{domain.OutcomeDeclined, "Patch declined"},
		{domain.OutcomeDryRun, "dry run"},
	}
	for _, tt := range tests {
		t.Run(string(tt.outcome), func(t *testing.T) {
			output := tui.RenderFixReport(&domain.FixReport{Outcome: tt.outcome})
			assert.Contains(t, output, tt.want)
		})
	}
}

func TestRenderFixReport_Applied(t *testing.T) {
	r := &domain.FixReport{
		Outcome: domain.OutcomeApplied,
		Rollback: &domain.RollbackState{
			OriginalBranch: "main",
			AutoBranchName: "fixforward/fix-20261019-120000",
			PatchedFiles:   []domain.FileSnapshot{{Path: "app.py", PreviousContent: []byte("x")}},
		},
		Verification: &domain.VerificationResult{
			Resolved:   []domain.Failure{{TestName: "test_divide"}},
			Confidence: 0.95,
		},
	}

	output := tui.RenderFixReport(r)

	assert.Contains(t, output, "Applied 1 file(s)")
	assert.Contains(t, output, "fixforward/fix-20261019-120000")
	assert.Contains(t, output, "0.95")
	assert.Contains(t, output, "fixforward rollback")
}

func TestRenderFixReport_Unverified(t *testing.T) {
	r := &domain.FixReport{
		Outcome:     domain.OutcomeUnverified,
		Rollback:    &domain.RollbackState{OriginalBranch: "main", AutoBranchName: "fixforward/fix-1"},
		VerifyError: "test run [pytest] timed out",
	}

	output := tui.RenderFixReport(r)

	assert.Contains(t, output, "unverified")
	assert.Contains(t, output, "timed out")
}

func TestRenderHistory_Empty(t *testing.T) {
	assert.Contains(t, tui.RenderHistory(nil), "No run history found")
}

func TestRenderHistory_Entries(t *testing.T) {
	entries := []domain.RunEntry{
		{Timestamp: "2026-10-19T09:30:00Z", Outcome: domain.OutcomeApplied, FailuresBefore: 2, FailuresAfter: 0, Confidence: 0.95},
		{Timestamp: "2026-10-19T10:00:00Z", Outcome: domain.OutcomeNoPatch, FailuresBefore: 1, FailuresAfter: 1, Regressed: 1},
	}

	output := tui.RenderHistory(entries)

	assert.Contains(t, output, "Run History")
	assert.Contains(t, output, "2026-10-19 09:30")
	assert.Contains(t, output, "applied")
	assert.Contains(t, output, "2 → 0 failing")
	assert.Contains(t, output, "0.95")
	assert.Contains(t, output, "1 regressed")
}

func TestRenderError(t *testing.T) {
	output := tui.RenderError(errors.New("nothing to roll back"))

	assert.Contains(t, output, "error")
	assert.Contains(t, output, "nothing to roll back")
}
