package domain

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

// Strategy names the interpreter strategy that produced a candidate.
type Strategy string

const (
	StrategyMarker   Strategy = "marker"
	StrategyHeader   Strategy = "header"
	StrategyLanguage Strategy = "language"
	StrategyFuzzy    Strategy = "fuzzy"
)

// PatchCandidate is a complete replacement for one project file.
type PatchCandidate struct {
	Path     string   `json:"path"`
	Content  string   `json:"content"`
	Strategy Strategy `json:"strategy"`
}

// CleanRelPath normalizes a candidate path and rejects anything that
// could land outside the project root: absolute paths, ".." escapes,
// and empty names.
func CleanRelPath(p string) (string, error) {
	raw := p
	p = strings.TrimSpace(p)
	p = strings.ReplaceAll(p, "\\", "/")
	p = strings.TrimPrefix(p, "./")
	if p == "" {
		return "", &PathTraversalError{Path: raw, Reason: "empty path"}
	}
	if strings.HasPrefix(p, "/") || filepath.IsAbs(p) || (len(p) > 1 && p[1] == ':') {
		return "", &PathTraversalError{Path: raw, Reason: "absolute path"}
	}
	clean := filepath.Clean(filepath.FromSlash(p))
	if clean == "." {
		return "", &PathTraversalError{Path: raw, Reason: "names the project root"}
	}
	if !filepath.IsLocal(clean) {
		return "", &PathTraversalError{Path: raw, Reason: "escapes project root"}
	}
	return filepath.ToSlash(clean), nil
}

// FileSnapshot records a file's bytes before fixforward touched it.
// A nil PreviousContent means the file did not exist. CreatedDirs lists the
// parent directories the write had to create, outermost first.
type FileSnapshot struct {
	Path            string   `json:"path"`
	PreviousContent []byte   `json:"previous_content"`
	CreatedDirs     []string `json:"created_dirs,omitempty"`
}

// Absent reports whether the file was created by the patch.
func (s FileSnapshot) Absent() bool {
	return s.PreviousContent == nil
}

// RollbackState is everything needed to undo one applied patch.
// Its presence on disk means a rollback is pending.
type RollbackState struct {
	OriginalBranch string         `json:"original_branch"`
	AutoBranchName string         `json:"auto_branch_name"`
	StashRef       *string        `json:"stash_ref"`
	PatchedFiles   []FileSnapshot `json:"patched_files"`
	CreatedAt      time.Time      `json:"created_at"`
}

// Validate checks that a loaded state is internally consistent enough
// to drive a rollback.
func (s *RollbackState) Validate() error {
	if s.OriginalBranch == "" {
		return fmt.Errorf("original_branch is empty")
	}
	if s.AutoBranchName == "" {
		return fmt.Errorf("auto_branch_name is empty")
	}
	if s.AutoBranchName == s.OriginalBranch {
		return fmt.Errorf("auto_branch_name equals original_branch %q", s.OriginalBranch)
	}
	if s.StashRef != nil && *s.StashRef == "" {
		return fmt.Errorf("stash_ref is present but empty")
	}
	if s.CreatedAt.IsZero() {
		return fmt.Errorf("created_at is missing")
	}
	seen := make(map[string]bool, len(s.PatchedFiles))
	for _, f := range s.PatchedFiles {
		clean, err := CleanRelPath(f.Path)
		if err != nil {
			return fmt.Errorf("patched file: %w", err)
		}
		if seen[clean] {
			return fmt.Errorf("patched file %q listed twice", clean)
		}
		seen[clean] = true
		for _, d := range f.CreatedDirs {
			if _, err := CleanRelPath(d); err != nil {
				return fmt.Errorf("created dir of %q: %w", clean, err)
			}
		}
	}
	return nil
}

// ApplyOptions controls the patch engine.
type ApplyOptions struct {
	// Supersede discards a pending rollback state instead of refusing.
	Supersede bool
	// Message overrides the commit message.
	Message string
}

// DependencyDirs are directory names that hold installed dependencies or
// build output. They are never patch targets.
var DependencyDirs = []string{
	"node_modules", "target", ".venv", "venv", "__pycache__",
	"site-packages", "vendor", "dist", "build", ".tox", ".git",
}

// InDependencyDir reports whether a slash-separated relative path has a
// dependency directory among its components.
func InDependencyDir(p string) bool {
	for _, part := range strings.Split(p, "/") {
		if slices.Contains(DependencyDirs, part) {
			return true
		}
	}
	return false
}

// PatchProposal is what the user is asked to confirm before a patch is
// applied. Originals maps each existing target path to its current
// content; new files have no entry.
type PatchProposal struct {
	Candidates  []PatchCandidate  `json:"candidates"`
	Originals   map[string]string `json:"-"`
	Strategy    Strategy          `json:"strategy"`
	Explanation string            `json:"explanation,omitempty"`
	Diagnosis   *Diagnosis        `json:"-"`
}
