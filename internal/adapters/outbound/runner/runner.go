package runner

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/fixforward/fixforward/internal/adapters/outbound/process"
	"github.com/fixforward/fixforward/internal/domain"
)

// TestRunner implements domain.TestRunner by running the configured test
// command for the project's ecosystem.
type TestRunner struct {
	cfg domain.ProjectConfig
	log *zap.Logger
}

func New(cfg domain.ProjectConfig, log *zap.Logger) *TestRunner {
	if log == nil {
		log = zap.NewNop()
	}
	return &TestRunner{cfg: cfg, log: log}
}

func (r *TestRunner) Run(ctx context.Context, projectPath string, eco domain.Ecosystem) (*domain.TestRun, error) {
	argv := r.cfg.TestCommand(eco)
	if len(argv) == 0 {
		return nil, &domain.TestRunError{Err: fmt.Errorf("no test command for ecosystem %q", eco)}
	}
	timeout := r.cfg.TestTimeoutDuration()
	r.log.Debug("running tests", zap.Strings("argv", argv), zap.Duration("timeout", timeout))

	res, err := process.Run(ctx, process.Command{
		Dir:     projectPath,
		Argv:    argv,
		Env:     []string{"CI=true", "NO_COLOR=1", "FORCE_COLOR=0", "CARGO_TERM_COLOR=never"},
		Timeout: timeout,
	})
	if err != nil {
		timedOut := errors.Is(err, process.ErrTimeout)
		r.log.Warn("test run failed", zap.Strings("argv", argv), zap.Bool("timed_out", timedOut), zap.Error(err))
		return nil, &domain.TestRunError{Command: argv, TimedOut: timedOut, Err: err}
	}

	r.log.Debug("tests finished",
		zap.Int("exit_code", res.ExitCode),
		zap.Duration("duration", res.Duration),
		zap.Int("output_bytes", len(res.Output)),
	)
	return &domain.TestRun{
		Ecosystem: eco,
		Command:   argv,
		ExitCode:  res.ExitCode,
		Output:    res.Output,
		Duration:  res.Duration,
	}, nil
}
