package detector

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/fixforward/fixforward/internal/domain"
)

// maxWalkDepth bounds the fallback search for Python test files.
const maxWalkDepth = 4

// probe is one rule of the detection table: if check succeeds for the
// project root, the project belongs to eco.
type probe struct {
	eco   domain.Ecosystem
	what  string
	check func(root string) bool
}

// probes are tried in order; the first hit wins.
var probes = []probe{
	{domain.EcosystemPython, "pytest.ini", exists("pytest.ini")},
	{domain.EcosystemPython, "pyproject.toml mentioning pytest", contains("pyproject.toml", "pytest")},
	{domain.EcosystemPython, "setup.cfg with [tool:pytest]", contains("setup.cfg", "[tool:pytest]")},
	{domain.EcosystemPython, "tox.ini with [pytest]", contains("tox.ini", "[pytest]")},
	{domain.EcosystemPython, "test_*.py files", hasPythonTests},
	{domain.EcosystemNode, "package.json", exists("package.json")},
	{domain.EcosystemRust, "Cargo.toml", exists("Cargo.toml")},
}

// EcosystemDetector implements domain.EcosystemDetector by probing for
// marker files in the project root.
type EcosystemDetector struct{}

func New() *EcosystemDetector {
	return &EcosystemDetector{}
}

func (d *EcosystemDetector) Detect(projectPath string) (domain.Ecosystem, error) {
	info, err := os.Stat(projectPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return "", &domain.DetectionError{Path: projectPath, Reason: "path does not exist"}
	case err != nil:
		return "", &domain.DetectionError{Path: projectPath, Reason: err.Error()}
	case !info.IsDir():
		return "", &domain.DetectionError{Path: projectPath, Reason: "not a directory"}
	}

	for _, p := range probes {
		if p.check(projectPath) {
			return p.eco, nil
		}
	}

	looked := make([]string, 0, len(probes))
	for _, p := range probes {
		looked = append(looked, p.what)
	}
	return "", &domain.DetectionError{
		Path:   projectPath,
		Reason: "no supported ecosystem found (looked for " + strings.Join(looked, ", ") + ")",
	}
}

func exists(name string) func(string) bool {
	return func(root string) bool {
		_, err := os.Stat(filepath.Join(root, name))
		return err == nil
	}
}

func contains(name, needle string) func(string) bool {
	return func(root string) bool {
		data, err := os.ReadFile(filepath.Join(root, name))
		return err == nil && strings.Contains(string(data), needle)
	}
}

var errFound = errors.New("found")

// hasPythonTests looks for test_*.py or *_test.py files near the root.
func hasPythonTests(root string) bool {
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		rel, _ := filepath.Rel(root, path)
		if d.IsDir() {
			if path != root && (skipDir(d.Name()) || strings.Count(filepath.ToSlash(rel), "/") >= maxWalkDepth) {
				return filepath.SkipDir
			}
			return nil
		}
		name := d.Name()
		if strings.HasSuffix(name, ".py") && (strings.HasPrefix(name, "test_") || strings.HasSuffix(name, "_test.py")) {
			return errFound
		}
		return nil
	})
	return errors.Is(err, errFound)
}

func skipDir(name string) bool {
	if strings.HasPrefix(name, ".") {
		return true
	}
	for _, d := range domain.DependencyDirs {
		if name == d {
			return true
		}
	}
	return false
}
