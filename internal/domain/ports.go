package domain

import "context"

// EcosystemDetector decides which test runner a project uses.
type EcosystemDetector interface {
	Detect(projectPath string) (Ecosystem, error)
}

// TestRunner executes a project's test command. A run that exits non-zero
// is a normal result; only a crash or timeout is an error (*TestRunError).
type TestRunner interface {
	Run(ctx context.Context, projectPath string, eco Ecosystem) (*TestRun, error)
}

// FixGenerator asks an external tool for a fix and returns its raw response.
type FixGenerator interface {
	Generate(ctx context.Context, projectPath, prompt string) (string, error)
}

// ProjectScanner lists the project's files as slash-separated paths
// relative to the root, excluding VCS and dependency-cache directories.
type ProjectScanner interface {
	Scan(projectPath string, excludeDirs ...string) ([]string, error)
}

// ConfigLoader reads project configuration.
type ConfigLoader interface {
	Load(projectPath string) (ProjectConfig, error)
}

// GitClient is the subset of git the patch engine needs.
type GitClient interface {
	IsRepo(root string) bool
	CurrentBranch(root string) (string, error)
	BranchExists(root, name string) (bool, error)
	IsDirty(ctx context.Context, root string) (bool, error)
	// Status returns the porcelain status of tracked and untracked files.
	Status(ctx context.Context, root string) (string, error)
	// ReflogMentions reports whether HEAD has ever been checked out to or
	// from branch name in root.
	ReflogMentions(ctx context.Context, root, name string) (bool, error)
	StashPush(ctx context.Context, root, message string) (string, error)
	StashPop(ctx context.Context, root, ref string) error
	StashContains(ctx context.Context, root, ref string) (bool, error)
	CreateBranch(ctx context.Context, root, name string) error
	Checkout(ctx context.Context, root, name string) error
	DeleteBranch(ctx context.Context, root, name string) error
	CommitAll(ctx context.Context, root, message string, paths []string) error
}

// RollbackStore persists the single pending RollbackState.
type RollbackStore interface {
	// Load returns (nil, nil) when no state exists and a
	// *RollbackCorruptStateError when the file cannot be trusted.
	Load() (*RollbackState, error)
	Save(state *RollbackState) error
	Clear() error
	Path() string
}

// RunHistory records the outcome of each run per project.
type RunHistory interface {
	Save(projectPath string, entry RunEntry) error
	Load(projectPath string) ([]RunEntry, error)
}
