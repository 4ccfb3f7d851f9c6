package domain_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fixforward/fixforward/internal/domain"
)

func TestErrors_MatchThroughWrapping(t *testing.T) {
	cause := context.DeadlineExceeded
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"test run timeout", &domain.TestRunError{Command: []string{"cargo", "test"}, TimedOut: true, Err: cause}, "test run [cargo test] timed out"},
		{"generator", &domain.GeneratorError{Err: cause}, "fix generator: context deadline exceeded"},
		{"git state", &domain.GitStateError{Op: "checkout", Err: cause}, "git checkout: context deadline exceeded"},
		{"corrupt state", &domain.RollbackCorruptStateError{Path: "/tmp/state.json", Err: cause}, "rollback state /tmp/state.json is corrupt: context deadline exceeded"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("running: %w", tt.err)
			assert.ErrorIs(t, wrapped, cause)
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestErrors_As(t *testing.T) {
	err := fmt.Errorf("diagnosing: %w", &domain.DetectionError{Path: "/p", Reason: "not a directory"})

	var det *domain.DetectionError
	assert.True(t, errors.As(err, &det))
	assert.Equal(t, "not a directory", det.Reason)
	assert.EqualError(t, det, "detecting ecosystem in /p: not a directory")
}

func TestGeneratorError_TimedOut(t *testing.T) {
	assert.EqualError(t, &domain.GeneratorError{TimedOut: true}, "fix generator timed out")
}

func TestDiagnosis_Passing(t *testing.T) {
	clean := &domain.Diagnosis{Run: &domain.TestRun{ExitCode: 0}}
	crashed := &domain.Diagnosis{Run: &domain.TestRun{ExitCode: 2}}
	failing := &domain.Diagnosis{
		Run:    &domain.TestRun{ExitCode: 1},
		Report: domain.TestReport{Failures: []domain.Failure{{TestName: "t"}}},
	}

	assert.True(t, clean.Passing())
	assert.False(t, crashed.Passing())
	assert.False(t, failing.Passing())
	assert.Len(t, failing.Failures(), 1)
}
