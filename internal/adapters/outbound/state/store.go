package state

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fixforward/fixforward/internal/adapters/outbound/fsutil"
	"github.com/fixforward/fixforward/internal/domain"
)

const fileName = "state.json"

// Store implements domain.RollbackStore as a single JSON document in the
// per-user fixforward directory. The file exists only while a rollback
// is pending.
type Store struct {
	path string
}

// New creates a store keeping its file under dir.
func New(dir string) *Store {
	return &Store{path: filepath.Join(dir, fileName)}
}

// Path is the location of the state file.
func (s *Store) Path() string { return s.path }

// Load reads the pending state. Returns (nil, nil) if there is none.
// Anything unreadable, unknown or inconsistent is reported as
// *domain.RollbackCorruptStateError and the file is left untouched.
func (s *Store) Load() (*domain.RollbackState, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, &domain.RollbackCorruptStateError{Path: s.path, Err: err}
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var st domain.RollbackState
	if err := dec.Decode(&st); err != nil {
		return nil, &domain.RollbackCorruptStateError{Path: s.path, Err: err}
	}
	if dec.More() {
		return nil, &domain.RollbackCorruptStateError{Path: s.path, Err: errors.New("trailing data after state document")}
	}
	if err := st.Validate(); err != nil {
		return nil, &domain.RollbackCorruptStateError{Path: s.path, Err: err}
	}
	return &st, nil
}

// Save replaces the state file atomically.
func (s *Store) Save(st *domain.RollbackState) error {
	if err := st.Validate(); err != nil {
		return fmt.Errorf("refusing to save rollback state: %w", err)
	}
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding rollback state: %w", err)
	}
	if err := fsutil.WriteAtomic(s.path, append(data, '\n'), 0o600); err != nil {
		return fmt.Errorf("saving rollback state: %w", err)
	}
	return nil
}

// Clear removes the state file. A missing file is not an error.
func (s *Store) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing rollback state: %w", err)
	}
	return nil
}
