package history

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/fixforward/fixforward/internal/adapters/outbound/fsutil"
	"github.com/fixforward/fixforward/internal/domain"
)

// maxEntries bounds each project's history file.
const maxEntries = 200

// FileHistory implements domain.RunHistory with one JSON file per project
// under the per-user fixforward directory.
type FileHistory struct {
	dir string
}

// New stores history files under home/history.
func New(home string) *FileHistory {
	return &FileHistory{dir: filepath.Join(home, "history")}
}

func (h *FileHistory) Save(projectPath string, entry domain.RunEntry) error {
	entries, err := h.Load(projectPath)
	if err != nil {
		return err
	}

	entries = append(entries, entry)
	if len(entries) > maxEntries {
		entries = entries[len(entries)-maxEntries:]
	}

	if err := fsutil.WriteJSON(h.file(projectPath), entries); err != nil {
		return fmt.Errorf("saving run history: %w", err)
	}
	return nil
}

func (h *FileHistory) Load(projectPath string) ([]domain.RunEntry, error) {
	var entries []domain.RunEntry
	if err := fsutil.ReadJSON(h.file(projectPath), &entries); err != nil {
		if fsutil.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("loading run history: %w", err)
	}
	return entries, nil
}

func (h *FileHistory) file(projectPath string) string {
	return filepath.Join(h.dir, Slug(projectPath)+".json")
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9_.-]+`)

// Slug names a project's history file: its directory name plus a short
// hash of the absolute path, so same-named projects do not collide.
func Slug(projectPath string) string {
	abs, err := filepath.Abs(projectPath)
	if err != nil {
		abs = projectPath
	}
	sum := sha256.Sum256([]byte(abs))
	base := strings.Trim(unsafeChars.ReplaceAllString(filepath.Base(abs), "-"), "-.")
	if base == "" {
		base = "project"
	}
	return base + "-" + hex.EncodeToString(sum[:4])
}
