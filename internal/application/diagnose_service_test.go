package application_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fixforward/fixforward/internal/application"
	"github.com/fixforward/fixforward/internal/domain"
)

func TestDiagnose_DetectsAndClassifies(t *testing.T) {
	det := &fakeDetector{eco: domain.EcosystemPython}
	svc := application.NewDiagnoseService(det, &scriptedRunner{steps: []step{failing(t)}}, nil, nil)

	diag, err := svc.Diagnose(context.Background(), "/work/calc", "")
	require.NoError(t, err)

	assert.Equal(t, 1, det.calls)
	assert.Equal(t, "/work/calc", diag.ProjectPath)
	assert.Equal(t, domain.EcosystemPython, diag.Ecosystem)
	assert.False(t, diag.Passing())
	require.Len(t, diag.Classifications, 1)
	c := diag.Classifications[0]
	assert.Equal(t, "test_divide", c.Failure.TestName)
	assert.Equal(t, "test_app.py", c.Failure.FilePath)
	assert.Equal(t, 19, c.Failure.Line)
	assert.Equal(t, domain.CategoryAssertion, c.Category)
	assert.Equal(t, 0.85, c.Confidence)
}

func TestDiagnose_ExplicitEcosystemSkipsDetection(t *testing.T) {
	det := &fakeDetector{err: errors.New("should not be called")}
	svc := application.NewDiagnoseService(det, &scriptedRunner{steps: []step{passing(t)}}, nil, nil)

	diag, err := svc.Diagnose(context.Background(), ".", domain.EcosystemPython)
	require.NoError(t, err)

	assert.Zero(t, det.calls)
	assert.True(t, diag.Passing())
	assert.Empty(t, diag.Classifications)
	assert.Equal(t, 5, diag.Report.Passed)
}

func TestDiagnose_DetectionError(t *testing.T) {
	det := &fakeDetector{err: &domain.DetectionError{Path: "/x", Reason: "no supported ecosystem found"}}
	svc := application.NewDiagnoseService(det, &scriptedRunner{steps: []step{passing(t)}}, nil, nil)

	_, err := svc.Diagnose(context.Background(), "/x", "")

	var derr *domain.DetectionError
	assert.ErrorAs(t, err, &derr)
}

func TestDiagnose_TestRunErrorIsNotZeroFailures(t *testing.T) {
	runner := &scriptedRunner{steps: []step{{err: &domain.TestRunError{Command: []string{"pytest"}, TimedOut: true}}}}
	svc := application.NewDiagnoseService(&fakeDetector{eco: domain.EcosystemPython}, runner, nil, nil)

	diag, err := svc.Diagnose(context.Background(), ".", "")

	assert.Nil(t, diag)
	var rerr *domain.TestRunError
	require.ErrorAs(t, err, &rerr)
	assert.True(t, rerr.TimedOut)
}

func TestClassify_NonZeroExitWithoutStructure(t *testing.T) {
	diag := application.Classify(&domain.TestRun{Ecosystem: domain.EcosystemNode, ExitCode: 2, Output: "npm ERR! missing script: test"})

	require.Len(t, diag.Classifications, 1)
	assert.True(t, diag.Classifications[0].Failure.IsSynthetic())
}

func TestExplain_UsesGenerator(t *testing.T) {
	gen := &fakeGenerator{response: "divide uses true division"}
	svc := application.NewDiagnoseService(&fakeDetector{}, &scriptedRunner{}, gen, nil)
	c := domain.Classification{
		Failure:  domain.Failure{TestName: "test_divide", FilePath: "test_app.py", Line: 19, Message: "assert 3.3 == 3"},
		Category: domain.CategoryAssertion,
		Summary:  "Assertion: value mismatch",
	}

	got := svc.Explain(context.Background(), ".", c)

	assert.Equal(t, "divide uses true division", got)
	require.Len(t, gen.prompts, 1)
	assert.Contains(t, gen.prompts[0], "Test: test_divide")
	assert.Contains(t, gen.prompts[0], "File: test_app.py:19")
	assert.Contains(t, gen.prompts[0], "Category: assertion")
}

func TestExplain_FallsBackToSummary(t *testing.T) {
	c := domain.Classification{Category: domain.CategoryDependency, Summary: "Missing module: requests"}
	broken := application.NewDiagnoseService(&fakeDetector{}, &scriptedRunner{},
		&fakeGenerator{err: &domain.GeneratorError{TimedOut: true}}, nil)
	absent := application.NewDiagnoseService(&fakeDetector{}, &scriptedRunner{}, nil, nil)

	assert.Equal(t, "(dependency) Missing module: requests", broken.Explain(context.Background(), ".", c))
	assert.Equal(t, "(dependency) Missing module: requests", absent.Explain(context.Background(), ".", c))
}
