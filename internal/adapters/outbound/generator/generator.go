package generator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fixforward/fixforward/internal/adapters/outbound/process"
	"github.com/fixforward/fixforward/internal/domain"
)

// maxErrorOutput bounds how much generator output is quoted in an error.
const maxErrorOutput = 500

// CommandGenerator implements domain.FixGenerator by invoking a CLI such
// as `gh copilot` with the prompt substituted into its arguments.
type CommandGenerator struct {
	cfg     domain.GeneratorConfig
	timeout time.Duration
	log     *zap.Logger
}

func New(cfg domain.ProjectConfig, log *zap.Logger) *CommandGenerator {
	if log == nil {
		log = zap.NewNop()
	}
	return &CommandGenerator{cfg: cfg.Generator, timeout: cfg.GeneratorTimeoutDuration(), log: log}
}

// Argv expands the prompt and root placeholders in the configured args.
func (g *CommandGenerator) Argv(projectPath, prompt string) []string {
	argv := make([]string, 0, len(g.cfg.Args)+1)
	argv = append(argv, g.cfg.Command)
	for _, a := range g.cfg.Args {
		a = strings.ReplaceAll(a, domain.RootPlaceholder, projectPath)
		a = strings.ReplaceAll(a, domain.PromptPlaceholder, prompt)
		argv = append(argv, a)
	}
	return argv
}

func (g *CommandGenerator) Generate(ctx context.Context, projectPath, prompt string) (string, error) {
	argv := g.Argv(projectPath, prompt)
	g.log.Debug("invoking fix generator",
		zap.String("command", g.cfg.Command),
		zap.Int("prompt_bytes", len(prompt)),
		zap.Duration("timeout", g.timeout),
	)

	res, err := process.Run(ctx, process.Command{
		Dir:     projectPath,
		Argv:    argv,
		Env:     []string{"NO_COLOR=1"},
		Timeout: g.timeout,
	})
	if err != nil {
		return "", &domain.GeneratorError{TimedOut: errors.Is(err, process.ErrTimeout), Err: err}
	}
	if res.ExitCode != 0 {
		return "", &domain.GeneratorError{
			Err: fmt.Errorf("%s exited %d: %s", g.cfg.Command, res.ExitCode, tail(res.Output)),
		}
	}
	if strings.TrimSpace(res.Output) == "" {
		return "", &domain.GeneratorError{Err: fmt.Errorf("%s returned an empty response", g.cfg.Command)}
	}

	g.log.Debug("fix generator responded",
		zap.Int("response_bytes", len(res.Output)),
		zap.Duration("duration", res.Duration),
	)
	return res.Output, nil
}

func tail(s string) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) > maxErrorOutput {
		return "..." + string(r[len(r)-maxErrorOutput:])
	}
	return s
}
