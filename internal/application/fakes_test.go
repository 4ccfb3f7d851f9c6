package application_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fixforward/fixforward/internal/domain"
)

type fakeDetector struct {
	eco   domain.Ecosystem
	err   error
	calls int
}

func (d *fakeDetector) Detect(string) (domain.Ecosystem, error) {
	d.calls++
	return d.eco, d.err
}

// step is one scripted test run.
type step struct {
	output string
	exit   int
	err    error
}

type scriptedRunner struct {
	steps []step
	calls int
}

func (r *scriptedRunner) Run(_ context.Context, _ string, eco domain.Ecosystem) (*domain.TestRun, error) {
	s := r.steps[min(r.calls, len(r.steps)-1)]
	r.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &domain.TestRun{Ecosystem: eco, Command: []string{"pytest"}, ExitCode: s.exit, Output: s.output}, nil
}

type fakeGenerator struct {
	response string
	err      error
	prompts  []string
	// sideEffect runs inside Generate, for generators that edit the
	// project themselves.
	sideEffect func(projectPath string)
}

func (g *fakeGenerator) Generate(_ context.Context, projectPath string, prompt string) (string, error) {
	g.prompts = append(g.prompts, prompt)
	if g.sideEffect != nil {
		g.sideEffect(projectPath)
	}
	return g.response, g.err
}

func fixture(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	return string(data)
}

func failing(t *testing.T) step   { return step{output: fixture(t, "pytest_fail.txt"), exit: 1} }
func passing(t *testing.T) step   { return step{output: fixture(t, "pytest_pass.txt")} }
func regressed(t *testing.T) step { return step{output: fixture(t, "pytest_regressed.txt"), exit: 1} }
