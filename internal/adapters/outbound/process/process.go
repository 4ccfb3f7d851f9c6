// Package process runs external commands with a deadline, killing the
// whole process group when the deadline passes or the context is cancelled.
package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

// ErrTimeout is returned when a command outlives its timeout.
var ErrTimeout = errors.New("timed out")

// waitDelay bounds how long Wait blocks on inherited pipes after the kill.
const waitDelay = 2 * time.Second

// Result is the outcome of a command that ran to completion.
// A non-zero ExitCode is not an error.
type Result struct {
	Output   string
	ExitCode int
	Duration time.Duration
}

// Command describes one invocation.
type Command struct {
	Dir     string
	Argv    []string
	Env     []string
	Timeout time.Duration
}

// Run executes c with stdout and stderr combined. It returns ErrTimeout
// (wrapped) on deadline, the context error on cancellation, and an error
// when the program could not be started.
func Run(ctx context.Context, c Command) (Result, error) {
	if len(c.Argv) == 0 {
		return Result{}, errors.New("empty command")
	}
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, c.Argv[0], c.Argv[1:]...)
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		cmd.Env = append(cmd.Environ(), c.Env...)
	}
	setProcessGroup(cmd)
	cmd.Cancel = func() error { return killProcessGroup(cmd) }
	cmd.WaitDelay = waitDelay

	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf

	start := time.Now()
	err := cmd.Run()
	res := Result{Output: buf.String(), Duration: time.Since(start)}

	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return res, fmt.Errorf("%s: %w", c.Argv[0], ErrTimeout)
	case ctx.Err() != nil:
		return res, ctx.Err()
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		return res, nil
	}
	if err != nil {
		return res, fmt.Errorf("running %s: %w", c.Argv[0], err)
	}
	return res, nil
}
