package application

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fixforward/fixforward/internal/domain"
)

const branchTimeLayout = "20060102-150405"

// PatchEngine applies whole-file patches on an isolated branch and can
// always put the working tree back the way it found it. The rollback state
// is persisted before the first mutation and after every step.
type PatchEngine struct {
	git          domain.GitClient
	store        domain.RollbackStore
	log          *zap.Logger
	branchPrefix string
	now          func() time.Time
}

// PatchEngineOption customizes a PatchEngine.
type PatchEngineOption func(*PatchEngine)

// WithBranchPrefix sets the prefix of isolation branch names.
func WithBranchPrefix(prefix string) PatchEngineOption {
	return func(e *PatchEngine) { e.branchPrefix = prefix }
}

// WithClock replaces time.Now, which names the isolation branch.
func WithClock(now func() time.Time) PatchEngineOption {
	return func(e *PatchEngine) { e.now = now }
}

func NewPatchEngine(git domain.GitClient, store domain.RollbackStore, log *zap.Logger, opts ...PatchEngineOption) *PatchEngine {
	if log == nil {
		log = zap.NewNop()
	}
	e := &PatchEngine{
		git:          git,
		store:        store,
		log:          log,
		branchPrefix: domain.DefaultConfig().BranchPrefix,
		now:          time.Now,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Pending returns the rollback state on disk, or nil when none is pending.
func (e *PatchEngine) Pending() (*domain.RollbackState, error) {
	return e.store.Load()
}

// Apply writes candidates into root on a fresh branch and commits them.
// On success the returned state describes how to undo the patch. On any
// failure after the first mutation the tree is restored before returning.
func (e *PatchEngine) Apply(ctx context.Context, candidates []domain.PatchCandidate, root string, opts domain.ApplyOptions) (*domain.RollbackState, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	// 0. Preconditions. Nothing is mutated until all of them hold.
	pending, err := e.store.Load()
	var corrupt *domain.RollbackCorruptStateError
	switch {
	case errors.As(err, &corrupt) && opts.Supersede:
		pending = nil
		e.log.Warn("discarding corrupt rollback state", zap.String("path", corrupt.Path), zap.Error(corrupt.Err))
	case err != nil:
		return nil, fmt.Errorf("checking for a pending rollback: %w", err)
	case pending != nil && !opts.Supersede:
		return nil, domain.ErrRollbackPending
	case pending != nil:
		e.log.Warn("superseding pending rollback state; its branch and stash are left as they are",
			zap.String("auto_branch", pending.AutoBranchName),
			zap.String("original_branch", pending.OriginalBranch),
		)
	}

	if !e.git.IsRepo(root) {
		return nil, &domain.GitStateError{Op: "open", Err: fmt.Errorf("%s is not a git repository", root)}
	}
	original, err := e.git.CurrentBranch(root)
	if err != nil {
		return nil, &domain.GitStateError{Op: "HEAD", Err: err}
	}
	if ok, err := e.git.BranchExists(root, original); err != nil || !ok {
		return nil, &domain.GitStateError{Op: "HEAD", Err: fmt.Errorf("branch %s has no commits yet", original)}
	}
	branch := e.branchPrefix + "fix-" + e.now().Format(branchTimeLayout)
	if ok, err := e.git.BranchExists(root, branch); err != nil {
		return nil, &domain.GitStateError{Op: "branch", Err: err}
	} else if ok {
		return nil, &domain.GitStateError{Op: "branch", Err: fmt.Errorf("branch %s already exists", branch)}
	}

	files := e.admit(root, candidates)
	if len(files) == 0 {
		return nil, domain.ErrNoPatch
	}

	if opts.Supersede && (pending != nil || corrupt != nil) {
		if err := e.store.Clear(); err != nil {
			return nil, fmt.Errorf("discarding pending rollback state: %w", err)
		}
	}

	// 1. Record intent, then move local changes out of the way.
	state := &domain.RollbackState{
		OriginalBranch: original,
		AutoBranchName: branch,
		PatchedFiles:   []domain.FileSnapshot{},
		CreatedAt:      e.now().UTC(),
	}
	if err := e.store.Save(state); err != nil {
		return nil, fmt.Errorf("persisting rollback state: %w", err)
	}
	log := e.log.With(zap.String("auto_branch", branch))

	dirty, err := e.git.IsDirty(ctx, root)
	if err != nil {
		return nil, e.abort(ctx, root, state, &domain.GitStateError{Op: "status", Err: err})
	}
	if dirty {
		sha, err := e.git.StashPush(ctx, root, "fixforward: before "+branch)
		if err != nil {
			return nil, e.abort(ctx, root, state, &domain.GitStateError{Op: "stash", Err: err})
		}
		if sha != "" {
			state.StashRef = &sha
			if err := e.store.Save(state); err != nil {
				return nil, e.abort(ctx, root, state, fmt.Errorf("persisting rollback state: %w", err))
			}
			log.Debug("stashed local changes", zap.String("stash", sha))
		}
	}

	// 2. Isolation branch.
	if err := e.git.CreateBranch(ctx, root, branch); err != nil {
		return nil, e.abort(ctx, root, state, &domain.GitStateError{Op: "checkout", Err: err})
	}
	if err := e.store.Save(state); err != nil {
		return nil, e.abort(ctx, root, state, fmt.Errorf("persisting rollback state: %w", err))
	}

	// 3. Snapshot then write, one file at a time.
	for _, c := range files {
		if err := e.write(root, state, c); err != nil {
			return nil, e.abort(ctx, root, state, err)
		}
		log.Debug("patched file", zap.String("path", c.Path))
	}

	// 4. Commit.
	msg := opts.Message
	if msg == "" {
		msg = fmt.Sprintf("fixforward: apply fix to %d file(s)", len(files))
	}
	paths := make([]string, len(files))
	for i, c := range files {
		paths[i] = c.Path
	}
	if err := e.git.CommitAll(ctx, root, msg, paths); err != nil {
		return nil, e.abort(ctx, root, state, &domain.GitStateError{Op: "commit", Err: err})
	}
	if err := e.store.Save(state); err != nil {
		return nil, e.abort(ctx, root, state, fmt.Errorf("persisting rollback state: %w", err))
	}

	log.Info("patch applied", zap.Int("files", len(files)), zap.String("original_branch", original))
	return state, nil
}

// write records the file's current bytes in state, persists, and only
// then replaces the file.
func (e *PatchEngine) write(root string, state *domain.RollbackState, c domain.PatchCandidate) error {
	abs := filepath.Join(root, filepath.FromSlash(c.Path))

	perm := fs.FileMode(0o644)
	prev, err := os.ReadFile(abs)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		prev = nil
	case err != nil:
		return fmt.Errorf("reading %s: %w", c.Path, err)
	default:
		if prev == nil {
			prev = []byte{}
		}
		if info, err := os.Stat(abs); err == nil {
			perm = info.Mode().Perm()
		}
	}

	snap := domain.FileSnapshot{Path: c.Path, PreviousContent: prev}
	if prev == nil {
		snap.CreatedDirs = missingDirs(root, c.Path)
	}
	state.PatchedFiles = append(state.PatchedFiles, snap)
	if err := e.store.Save(state); err != nil {
		return fmt.Errorf("persisting rollback state: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return fmt.Errorf("writing %s: %w", c.Path, err)
	}
	if err := os.WriteFile(abs, []byte(c.Content), perm); err != nil {
		return fmt.Errorf("writing %s: %w", c.Path, err)
	}
	return nil
}

// abort undoes a partial Apply. If the undo itself fails the state file is
// kept so `fixforward rollback` can finish the job.
func (e *PatchEngine) abort(ctx context.Context, root string, state *domain.RollbackState, cause error) error {
	e.log.Warn("apply failed, restoring working tree", zap.Error(cause))
	if err := e.restore(ctx, root, state); err != nil {
		_ = e.store.Save(state)
		return fmt.Errorf("%w (restoring the working tree also failed: %v; run `fixforward rollback` to finish, state kept at %s)",
			cause, err, e.store.Path())
	}
	if err := e.store.Clear(); err != nil {
		return fmt.Errorf("%w (removing rollback state: %v)", cause, err)
	}
	return cause
}

// Rollback undoes the pending patch and removes the state file. The
// returned state is the one that was rolled back.
func (e *PatchEngine) Rollback(ctx context.Context, root string) (*domain.RollbackState, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	state, err := e.store.Load()
	if err != nil {
		return nil, err
	}
	if state == nil {
		return nil, domain.ErrNothingToRollback
	}

	if err := e.owns(ctx, root, state); err != nil {
		return nil, err
	}

	if err := e.restore(ctx, root, state); err != nil {
		return nil, fmt.Errorf("rolling back %s: %w", state.AutoBranchName, err)
	}
	if err := e.store.Clear(); err != nil {
		return nil, fmt.Errorf("removing rollback state: %w", err)
	}
	e.log.Info("rolled back", zap.String("auto_branch", state.AutoBranchName), zap.Int("files", len(state.PatchedFiles)))
	return state, nil
}

// owns refuses to roll back in a repository the state was not recorded
// in. The original branch must exist, and root must carry a trace of the
// isolation branch: the branch itself, a reflog checkout naming it, or the
// recorded stash. On refusal the state file is left alone.
func (e *PatchEngine) owns(ctx context.Context, root string, state *domain.RollbackState) error {
	if !e.git.IsRepo(root) {
		return &domain.GitStateError{Op: "open", Err: fmt.Errorf("%s is not a git repository", root)}
	}
	if ok, err := e.git.BranchExists(root, state.OriginalBranch); err != nil {
		return &domain.GitStateError{Op: "branch", Err: err}
	} else if !ok {
		return &domain.GitStateError{Op: "rollback", Err: fmt.Errorf("original branch %s not found in %s", state.OriginalBranch, root)}
	}

	if ok, err := e.git.BranchExists(root, state.AutoBranchName); err != nil {
		return &domain.GitStateError{Op: "branch", Err: err}
	} else if ok {
		return nil
	}
	if ok, err := e.git.ReflogMentions(ctx, root, state.AutoBranchName); err != nil {
		e.log.Debug("reading reflog", zap.Error(err))
	} else if ok {
		return nil
	}
	if state.StashRef != nil {
		if ok, err := e.git.StashContains(ctx, root, *state.StashRef); err == nil && ok {
			return nil
		}
	}
	return &domain.GitStateError{Op: "rollback", Err: fmt.Errorf(
		"%s has no trace of branch %s; run rollback from the repository the fix was applied to", root, state.AutoBranchName)}
}

// restore is idempotent: every step checks whether it still has work to
// do, so a half-finished restore can simply be run again.
func (e *PatchEngine) restore(ctx context.Context, root string, state *domain.RollbackState) error {
	current, err := e.git.CurrentBranch(root)
	if err != nil {
		return &domain.GitStateError{Op: "HEAD", Err: err}
	}
	if current != state.OriginalBranch {
		if err := e.git.Checkout(ctx, root, state.OriginalBranch); err != nil {
			return &domain.GitStateError{Op: "checkout", Err: err}
		}
	}

	if ok, err := e.git.BranchExists(root, state.AutoBranchName); err != nil {
		return &domain.GitStateError{Op: "branch", Err: err}
	} else if ok {
		if err := e.git.DeleteBranch(ctx, root, state.AutoBranchName); err != nil {
			return &domain.GitStateError{Op: "branch -D", Err: err}
		}
	}

	for i := len(state.PatchedFiles) - 1; i >= 0; i-- {
		if err := restoreFile(root, state.PatchedFiles[i]); err != nil {
			return err
		}
	}

	if state.StashRef != nil {
		ok, err := e.git.StashContains(ctx, root, *state.StashRef)
		if err != nil {
			return &domain.GitStateError{Op: "stash list", Err: err}
		}
		if ok {
			if err := e.git.StashPop(ctx, root, *state.StashRef); err != nil {
				return &domain.GitStateError{Op: "stash pop", Err: err}
			}
		} else {
			e.log.Warn("recorded stash is gone, skipping", zap.String("stash", *state.StashRef))
		}
	}
	return nil
}

// missingDirs lists the ancestors of rel that do not exist yet, outermost
// first.
func missingDirs(root, rel string) []string {
	var dirs []string
	for d := path.Dir(rel); d != "." && d != "/"; d = path.Dir(d) {
		if _, err := os.Lstat(filepath.Join(root, filepath.FromSlash(d))); !errors.Is(err, fs.ErrNotExist) {
			break
		}
		dirs = append([]string{d}, dirs...)
	}
	return dirs
}

func restoreFile(root string, snap domain.FileSnapshot) error {
	abs := filepath.Join(root, filepath.FromSlash(snap.Path))
	if snap.Absent() {
		if err := os.Remove(abs); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("removing %s: %w", snap.Path, err)
		}
		// Directories the patch created go too, deepest first, unless
		// something else has been put in them since.
		for i := len(snap.CreatedDirs) - 1; i >= 0; i-- {
			err := os.Remove(filepath.Join(root, filepath.FromSlash(snap.CreatedDirs[i])))
			if err != nil && !errors.Is(err, fs.ErrNotExist) {
				break
			}
		}
		return nil
	}
	perm := fs.FileMode(0o644)
	if info, err := os.Stat(abs); err == nil {
		perm = info.Mode().Perm()
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return fmt.Errorf("restoring %s: %w", snap.Path, err)
	}
	if err := os.WriteFile(abs, snap.PreviousContent, perm); err != nil {
		return fmt.Errorf("restoring %s: %w", snap.Path, err)
	}
	return nil
}

// admit re-checks candidate paths against the real project root and drops
// any that escape it, lexically or through a symlink. A later candidate
// for the same path replaces an earlier one.
func (e *PatchEngine) admit(root string, candidates []domain.PatchCandidate) []domain.PatchCandidate {
	realRoot := resolveRoot(root)

	var out []domain.PatchCandidate
	index := make(map[string]int, len(candidates))
	for _, c := range candidates {
		clean, err := domain.CleanRelPath(c.Path)
		if err == nil {
			err = checkInside(realRoot, clean)
		}
		if err != nil {
			e.log.Warn("dropping patch candidate", zap.String("path", c.Path), zap.Error(err))
			continue
		}
		c.Path = clean
		if i, ok := index[clean]; ok {
			out[i] = c
			continue
		}
		index[clean] = len(out)
		out = append(out, c)
	}
	return out
}

// ReadProjectFile reads rel under root after the same containment check
// Apply makes, so a symlink pointing out of the project is never followed.
// A missing file is reported as fs.ErrNotExist.
func ReadProjectFile(root, rel string) ([]byte, error) {
	clean, err := domain.CleanRelPath(rel)
	if err != nil {
		return nil, err
	}
	realRoot := resolveRoot(root)
	if err := checkInside(realRoot, clean); err != nil {
		return nil, err
	}
	return os.ReadFile(filepath.Join(realRoot, filepath.FromSlash(clean)))
}

func resolveRoot(root string) string {
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	if resolved, err := filepath.EvalSymlinks(root); err == nil {
		return resolved
	}
	return root
}

// checkInside resolves the deepest existing ancestor of rel and makes sure
// it is still under realRoot. The target itself must not be a directory.
func checkInside(realRoot, rel string) error {
	target := filepath.Join(realRoot, filepath.FromSlash(rel))
	if info, err := os.Stat(target); err == nil && info.IsDir() {
		return &domain.PathTraversalError{Path: rel, Reason: "is a directory"}
	}

	existing := target
	for {
		if _, err := os.Lstat(existing); err == nil {
			break
		}
		parent := filepath.Dir(existing)
		if parent == existing {
			break
		}
		existing = parent
	}
	resolved, err := filepath.EvalSymlinks(existing)
	if err != nil {
		return &domain.PathTraversalError{Path: rel, Reason: "cannot resolve: " + err.Error()}
	}
	if resolved != realRoot && !strings.HasPrefix(resolved, realRoot+string(filepath.Separator)) {
		return &domain.PathTraversalError{Path: rel, Reason: "resolves outside project root through a symlink"}
	}
	return nil
}
