package scanner

import (
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/fixforward/fixforward/internal/domain"
)

// FileScanner implements domain.ProjectScanner by walking the filesystem.
type FileScanner struct{}

func New() *FileScanner {
	return &FileScanner{}
}

// Scan lists regular files under projectPath as sorted slash paths.
// Dependency directories and excludeDirs (matched by name or by
// root-relative path) are skipped entirely.
func (s *FileScanner) Scan(projectPath string, excludeDirs ...string) ([]string, error) {
	absPath, err := filepath.Abs(projectPath)
	if err != nil {
		return nil, err
	}

	extraSkip := make(map[string]bool, len(excludeDirs))
	for _, p := range excludeDirs {
		extraSkip[strings.Trim(filepath.ToSlash(p), "/")] = true
	}

	var files []string
	err = filepath.WalkDir(absPath, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		relPath, _ := filepath.Rel(absPath, path)
		relPath = filepath.ToSlash(relPath)

		if d.IsDir() {
			if path == absPath {
				return nil
			}
			if slices.Contains(domain.DependencyDirs, d.Name()) || extraSkip[d.Name()] || extraSkip[relPath] {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		files = append(files, relPath)
		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.Sort(files)
	return files, nil
}
