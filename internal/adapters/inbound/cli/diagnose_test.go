package cli_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fixforward/fixforward/internal/domain"
)

func TestDiagnoseCommand_JSON(t *testing.T) {
	t.Setenv("FIXFORWARD_HOME", t.TempDir())
	dir := newProject(t)

	out, err := execute(t, "diagnose", dir, "--json")
	require.NoError(t, err)

	var diag domain.Diagnosis
	require.NoError(t, json.Unmarshal([]byte(out), &diag))
	assert.Equal(t, domain.EcosystemPython, diag.Ecosystem)
	require.Len(t, diag.Classifications, 1)
	c := diag.Classifications[0]
	assert.Equal(t, "test_divide", c.Failure.TestName)
	assert.Equal(t, "test_app.py", c.Failure.FilePath)
	assert.Equal(t, 19, c.Failure.Line)
	assert.Equal(t, domain.CategoryAssertion, c.Category)
	assert.Equal(t, 0.85, c.Confidence)
}

func TestDiagnoseCommand_TUI(t *testing.T) {
	t.Setenv("FIXFORWARD_HOME", t.TempDir())
	dir := newProject(t)

	out, err := execute(t, "diagnose", dir)
	require.NoError(t, err)

	assert.Contains(t, out, "fixforward")
	assert.Contains(t, out, "test_divide")
	assert.Contains(t, out, "assertion")
}

func TestDiagnoseCommand_ChangesNothing(t *testing.T) {
	t.Setenv("FIXFORWARD_HOME", t.TempDir())
	dir := newProject(t)

	_, err := execute(t, "diagnose", dir)
	require.NoError(t, err)

	assert.Empty(t, gitOutput(t, dir, "status", "--porcelain"))
	assert.Equal(t, "main", gitOutput(t, dir, "rev-parse", "--abbrev-ref", "HEAD"))
}
