// Package gitrepo implements domain.GitClient. Reads go through go-git;
// anything that mutates the work tree or stash shells out to git so hooks,
// attributes and config behave exactly as they do for the user.
package gitrepo

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"go.uber.org/zap"

	"github.com/fixforward/fixforward/internal/adapters/outbound/process"
)

const gitTimeout = 60 * time.Second

// Client implements domain.GitClient.
type Client struct {
	log *zap.Logger
}

func New(log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{log: log}
}

func open(root string) (*git.Repository, error) {
	repo, err := git.PlainOpenWithOptions(root, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("opening git repo: %w", err)
	}
	return repo, nil
}

func (c *Client) IsRepo(root string) bool {
	_, err := open(root)
	return err == nil
}

// CurrentBranch returns the short name HEAD points at. A detached HEAD is
// an error. An unborn branch (no commits yet) is reported by name.
func (c *Client) CurrentBranch(root string) (string, error) {
	repo, err := open(root)
	if err != nil {
		return "", err
	}
	head, err := repo.Reference(plumbing.HEAD, false)
	if err != nil {
		return "", fmt.Errorf("reading HEAD: %w", err)
	}
	if head.Type() != plumbing.SymbolicReference || !head.Target().IsBranch() {
		return "", errors.New("HEAD is detached")
	}
	return head.Target().Short(), nil
}

func (c *Client) BranchExists(root, name string) (bool, error) {
	repo, err := open(root)
	if err != nil {
		return false, err
	}
	_, err = repo.Reference(plumbing.NewBranchReferenceName(name), false)
	switch {
	case errors.Is(err, plumbing.ErrReferenceNotFound):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("looking up branch %s: %w", name, err)
	}
	return true, nil
}

// IsDirty reports tracked modifications or untracked files.
func (c *Client) IsDirty(ctx context.Context, root string) (bool, error) {
	out, err := c.Status(ctx, root)
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(out) != "", nil
}

func (c *Client) Status(ctx context.Context, root string) (string, error) {
	return c.run(ctx, root, "status", "--porcelain", "--untracked-files=all")
}

// ReflogMentions scans HEAD's reflog for "checkout: moving from A to B"
// entries naming branch name on either side.
func (c *Client) ReflogMentions(ctx context.Context, root, name string) (bool, error) {
	out, err := c.run(ctx, root, "reflog", "--format=%gs")
	if err != nil {
		return false, err
	}
	for _, line := range strings.Split(out, "\n") {
		rest, ok := strings.CutPrefix(strings.TrimSpace(line), "checkout: moving from ")
		if !ok {
			continue
		}
		from, to, ok := strings.Cut(rest, " to ")
		if ok && (from == name || to == name) {
			return true, nil
		}
	}
	return false, nil
}

// StashPush stashes tracked and untracked changes and returns the stash
// commit SHA. It returns "" when there was nothing to stash.
func (c *Client) StashPush(ctx context.Context, root, message string) (string, error) {
	out, err := c.run(ctx, root, "stash", "push", "--include-untracked", "-m", message)
	if err != nil {
		return "", err
	}
	if strings.Contains(out, "No local changes to save") {
		return "", nil
	}
	sha, err := c.run(ctx, root, "rev-parse", "--verify", "stash@{0}")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(sha), nil
}

// StashPop restores the stash entry whose commit SHA is ref, wherever it
// sits in the stash list now.
func (c *Client) StashPop(ctx context.Context, root, ref string) error {
	idx, err := c.stashIndex(ctx, root, ref)
	if err != nil {
		return err
	}
	if idx < 0 {
		return fmt.Errorf("stash %s not found", ref)
	}
	_, err = c.run(ctx, root, "stash", "pop", "stash@{"+strconv.Itoa(idx)+"}")
	return err
}

func (c *Client) StashContains(ctx context.Context, root, ref string) (bool, error) {
	idx, err := c.stashIndex(ctx, root, ref)
	return idx >= 0, err
}

func (c *Client) stashIndex(ctx context.Context, root, ref string) (int, error) {
	out, err := c.run(ctx, root, "stash", "list", "--format=%H")
	if err != nil {
		return -1, err
	}
	for i, line := range strings.Split(strings.TrimSpace(out), "\n") {
		if line != "" && strings.TrimSpace(line) == ref {
			return i, nil
		}
	}
	return -1, nil
}

// CreateBranch creates name at HEAD and switches to it.
func (c *Client) CreateBranch(ctx context.Context, root, name string) error {
	_, err := c.run(ctx, root, "checkout", "-b", name)
	return err
}

func (c *Client) Checkout(ctx context.Context, root, name string) error {
	_, err := c.run(ctx, root, "checkout", name)
	return err
}

func (c *Client) DeleteBranch(ctx context.Context, root, name string) error {
	_, err := c.run(ctx, root, "branch", "-D", name)
	return err
}

// CommitAll stages paths and commits them without running hooks. A failed
// commit unstages the paths again.
func (c *Client) CommitAll(ctx context.Context, root, message string, paths []string) error {
	if len(paths) == 0 {
		return errors.New("nothing to commit")
	}
	args := append([]string{"add", "--"}, paths...)
	if _, err := c.run(ctx, root, args...); err != nil {
		return err
	}
	if _, err := c.run(ctx, root, "commit", "--no-verify", "-m", message); err != nil {
		// Leave the index as it was so the caller can restore the tree.
		resetArgs := append([]string{"reset", "-q", "--"}, paths...)
		if _, rerr := c.run(ctx, root, resetArgs...); rerr != nil {
			c.log.Warn("unstaging after failed commit", zap.Error(rerr))
		}
		return err
	}
	return nil
}

// run executes git in root and treats a non-zero exit as an error that
// carries git's own output.
func (c *Client) run(ctx context.Context, root string, args ...string) (string, error) {
	c.log.Debug("git", zap.Strings("args", args))
	res, err := process.Run(ctx, process.Command{
		Dir:     root,
		Argv:    append([]string{"git"}, args...),
		Env:     []string{"GIT_TERMINAL_PROMPT=0", "LC_ALL=C"},
		Timeout: gitTimeout,
	})
	if err != nil {
		return "", fmt.Errorf("git %s: %w", args[0], err)
	}
	if res.ExitCode != 0 {
		return res.Output, fmt.Errorf("git %s exited %d: %s", strings.Join(args, " "), res.ExitCode, strings.TrimSpace(res.Output))
	}
	return res.Output, nil
}
