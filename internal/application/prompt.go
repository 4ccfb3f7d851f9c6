package application

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/fixforward/fixforward/internal/domain"
)

// BuildPrompt assembles the fix request sent to the generator: the top
// classified failures plus the source of the files they point at, capped
// at cfg.MaxSourceBytes in total.
func BuildPrompt(projectPath string, diag *domain.Diagnosis, cfg domain.PromptConfig) string {
	top := diag.Classifications
	if cfg.MaxFailures > 0 && len(top) > cfg.MaxFailures {
		top = top[:cfg.MaxFailures]
	}

	var failures strings.Builder
	var files []string
	for _, c := range top {
		f := c.Failure
		fmt.Fprintf(&failures, "- [%s] %s\n", c.Category, f.TestName)
		if loc := f.Location(); loc != "" {
			fmt.Fprintf(&failures, "  File: %s\n", loc)
		}
		msg := f.Message
		if f.IsSynthetic() && f.RawExcerpt != "" {
			msg = f.RawExcerpt
		}
		fmt.Fprintf(&failures, "  Error: %s\n", msg)
		if f.FilePath != "" {
			files = append(files, f.FilePath)
			files = append(files, counterparts(f.FilePath)...)
		}
	}

	sources := sourceContext(projectPath, files, cfg.MaxSourceBytes)
	if sources == "" {
		sources = "(no source files read)"
	}

	return fmt.Sprintf("I have a %s project with failing tests. Generate a minimal fix.\n\n"+
		"FAILURES:\n%s\n"+
		"SOURCE FILES:\n%s\n\n"+
		"Generate the smallest possible code change to fix these failures. "+
		"Show the complete corrected file content for each file that needs changes. "+
		"Format each fix as:\n"+
		"FILE: <filepath>\n"+
		"```\n<complete corrected file content>\n```\n\n"+
		"Then explain what you changed and why.",
		diag.Ecosystem, failures.String(), sources)
}

// ExplainPrompt asks for a short root-cause explanation of one failure.
func ExplainPrompt(c domain.Classification) string {
	return fmt.Sprintf("Explain this test failure concisely:\n"+
		"Test: %s\nFile: %s\nError: %s\nCategory: %s\n\n"+
		"What is the likely root cause and how should it be fixed?",
		c.Failure.TestName, c.Failure.Location(), c.Failure.Message, c.Category)
}

// sourceContext reads each distinct existing file once, in order, until
// the byte budget runs out. A budget of zero means no limit.
func sourceContext(projectPath string, files []string, budget int) string {
	seen := make(map[string]bool, len(files))
	var parts []string
	used := 0
	for _, f := range files {
		rel, err := domain.CleanRelPath(f)
		if err != nil || seen[rel] {
			continue
		}
		seen[rel] = true

		data, err := os.ReadFile(filepath.Join(projectPath, filepath.FromSlash(rel)))
		if err != nil {
			continue
		}
		content := string(data)
		if budget > 0 {
			left := budget - used
			if left <= 0 {
				break
			}
			if len(content) > left {
				content = content[:left] + "\n... (truncated)"
			}
		}
		used += len(data)
		parts = append(parts, fmt.Sprintf("--- %s ---\n%s", rel, content))
	}
	return strings.Join(parts, "\n\n")
}

// counterparts guesses the module under test from a test file name:
// test_app.py and app_test.py -> app.py, math.test.js -> math.js. The
// guess is looked up next to the test and one directory up.
func counterparts(testFile string) []string {
	dir, name := path.Split(filepath.ToSlash(testFile))
	var base string
	switch {
	case strings.HasSuffix(name, ".py") && strings.HasPrefix(name, "test_"):
		base = strings.TrimPrefix(name, "test_")
	case strings.HasSuffix(name, "_test.py"):
		base = strings.TrimSuffix(name, "_test.py") + ".py"
	default:
		for _, marker := range []string{".test.", ".spec."} {
			if i := strings.Index(name, marker); i > 0 {
				base = name[:i] + "." + name[i+len(marker):]
				break
			}
		}
	}
	if base == "" {
		return nil
	}

	out := []string{path.Join(dir, base)}
	if dir != "" {
		out = append(out, path.Join(path.Dir(strings.TrimSuffix(dir, "/")), base))
	}
	return out
}
