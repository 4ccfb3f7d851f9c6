package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNoPatch means the generator response held no usable file edits.
	ErrNoPatch = errors.New("no patch extracted from fix generator response")
	// ErrRollbackPending means a previous patch has not been rolled back.
	ErrRollbackPending = errors.New("a previous fixforward patch is still pending rollback")
	// ErrNothingToRollback means there is no rollback state on disk.
	ErrNothingToRollback = errors.New("nothing to roll back")
)

// DetectionError means the project's ecosystem could not be determined.
type DetectionError struct {
	Path   string
	Reason string
}

func (e *DetectionError) Error() string {
	return fmt.Sprintf("detecting ecosystem in %s: %s", e.Path, e.Reason)
}

// TestRunError means the test runner could not produce a usable result.
type TestRunError struct {
	Command  []string
	TimedOut bool
	Err      error
}

func (e *TestRunError) Error() string {
	if e.TimedOut {
		return fmt.Sprintf("test run %v timed out", e.Command)
	}
	return fmt.Sprintf("test run %v: %v", e.Command, e.Err)
}

func (e *TestRunError) Unwrap() error { return e.Err }

// ParseError marks a single unparseable line. Extractors skip these.
type ParseError struct {
	Line   int
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
}

// PathTraversalError rejects a candidate path outside the project root.
type PathTraversalError struct {
	Path   string
	Reason string
}

func (e *PathTraversalError) Error() string {
	return fmt.Sprintf("rejected path %q: %s", e.Path, e.Reason)
}

// GitStateError means the repository is in a state the patch engine
// refuses to work with.
type GitStateError struct {
	Op  string
	Err error
}

func (e *GitStateError) Error() string {
	return fmt.Sprintf("git %s: %v", e.Op, e.Err)
}

func (e *GitStateError) Unwrap() error { return e.Err }

// RollbackCorruptStateError means the rollback state file exists but
// cannot be trusted. The file is left in place for manual inspection.
type RollbackCorruptStateError struct {
	Path string
	Err  error
}

func (e *RollbackCorruptStateError) Error() string {
	return fmt.Sprintf("rollback state %s is corrupt: %v", e.Path, e.Err)
}

func (e *RollbackCorruptStateError) Unwrap() error { return e.Err }

// GeneratorError means the external fix generator failed.
type GeneratorError struct {
	TimedOut bool
	Err      error
}

func (e *GeneratorError) Error() string {
	if e.TimedOut {
		return "fix generator timed out"
	}
	return fmt.Sprintf("fix generator: %v", e.Err)
}

func (e *GeneratorError) Unwrap() error { return e.Err }
