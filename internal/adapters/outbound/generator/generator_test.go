//go:build !windows

package generator_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/fixforward/fixforward/internal/adapters/outbound/generator"
	"github.com/fixforward/fixforward/internal/domain"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func configWith(command string, args ...string) domain.ProjectConfig {
	cfg := domain.DefaultConfig()
	cfg.Generator.Command = command
	cfg.Generator.Args = args
	return cfg
}

func TestArgv_ExpandsPlaceholders(t *testing.T) {
	g := generator.New(domain.DefaultConfig(), nil)

	argv := g.Argv("/work/proj", "fix it")

	assert.Equal(t, []string{
		"gh", "copilot", "--", "-p", "fix it", "--add-dir", "/work/proj", "--silent",
	}, argv)
}

func TestGenerate_ReturnsOutput(t *testing.T) {
	g := generator.New(configWith("sh", "-c", `printf 'FILE: app.py\n%s\n' "$1"`, "sh", "{prompt}"), nil)

	out, err := g.Generate(context.Background(), t.TempDir(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "FILE: app.py\nhello\n", out)
}

func TestGenerate_RunsInProjectRoot(t *testing.T) {
	dir := t.TempDir()
	g := generator.New(configWith("sh", "-c", "pwd"), nil)

	out, err := g.Generate(context.Background(), dir, "")
	require.NoError(t, err)
	assert.Contains(t, out, dir)
}

func TestGenerate_NonZeroExit(t *testing.T) {
	g := generator.New(configWith("sh", "-c", "echo 'not authenticated' >&2; exit 4"), nil)

	_, err := g.Generate(context.Background(), t.TempDir(), "p")

	var gerr *domain.GeneratorError
	require.ErrorAs(t, err, &gerr)
	assert.False(t, gerr.TimedOut)
	assert.Contains(t, err.Error(), "exited 4")
	assert.Contains(t, err.Error(), "not authenticated")
}

func TestGenerate_EmptyResponse(t *testing.T) {
	g := generator.New(configWith("sh", "-c", "echo '   '"), nil)

	_, err := g.Generate(context.Background(), t.TempDir(), "p")

	var gerr *domain.GeneratorError
	require.ErrorAs(t, err, &gerr)
	assert.Contains(t, err.Error(), "empty response")
}

func TestGenerate_Timeout(t *testing.T) {
	cfg := configWith("sh", "-c", "sleep 5")
	cfg.Generator.Timeout = "100ms"

	_, err := generator.New(cfg, nil).Generate(context.Background(), t.TempDir(), "p")

	var gerr *domain.GeneratorError
	require.ErrorAs(t, err, &gerr)
	assert.True(t, gerr.TimedOut)
}

func TestGenerate_MissingCommand(t *testing.T) {
	g := generator.New(configWith("fixforward-no-such-generator"), nil)

	_, err := g.Generate(context.Background(), t.TempDir(), "p")

	var gerr *domain.GeneratorError
	require.ErrorAs(t, err, &gerr)
	assert.False(t, gerr.TimedOut)
}
