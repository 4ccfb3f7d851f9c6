package domain

import "time"

// TestRun is one invocation of a project's test command.
type TestRun struct {
	Ecosystem Ecosystem     `json:"ecosystem"`
	Command   []string      `json:"command"`
	ExitCode  int           `json:"exit_code"`
	Output    string        `json:"-"`
	Duration  time.Duration `json:"duration_ns"`
}

// RunOutcome summarizes how a fixforward run ended.
type RunOutcome string

const (
	OutcomeAllPassing RunOutcome = "all_passing"
	OutcomeDryRun     RunOutcome = "dry_run"
	OutcomeNoPatch    RunOutcome = "no_patch"
	OutcomeDeclined   RunOutcome = "declined"
	OutcomeApplied    RunOutcome = "applied"
	OutcomeUnverified RunOutcome = "unverified"
)

// RunEntry is one line of a project's run history.
type RunEntry struct {
	RunID          string     `json:"run_id"`
	Timestamp      string     `json:"timestamp"`
	Ecosystem      Ecosystem  `json:"ecosystem"`
	Branch         string     `json:"branch,omitempty"`
	FailuresBefore int        `json:"failures_before"`
	FailuresAfter  int        `json:"failures_after"`
	Resolved       int        `json:"resolved"`
	Regressed      int        `json:"regressed"`
	Confidence     float64    `json:"confidence"`
	Outcome        RunOutcome `json:"outcome"`
}

// RunOptions controls one `fixforward run`.
type RunOptions struct {
	// Ecosystem skips detection when set.
	Ecosystem Ecosystem
	DryRun    bool
	Supersede bool
	RunID     string
}
