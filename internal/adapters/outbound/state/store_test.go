package state_test

import (
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fixforward/fixforward/internal/adapters/outbound/state"
	"github.com/fixforward/fixforward/internal/domain"
)

func sampleState() *domain.RollbackState {
	ref := "4b825dc642cb6eb9a060e54bf8d69288fbee4904"
	return &domain.RollbackState{
		OriginalBranch: "main",
		AutoBranchName: "fixforward/fix-20260214-093000",
		StashRef:       &ref,
		PatchedFiles: []domain.FileSnapshot{
			{Path: "app.py", PreviousContent: []byte("def divide(a, b):\n    return a / b\n")},
			{Path: "empty.py", PreviousContent: []byte{}},
			{Path: "created.py"},
		},
		CreatedAt: time.Date(2026, 2, 14, 9, 30, 0, 0, time.UTC),
	}
}

func TestStore_SaveAndLoad(t *testing.T) {
	store := state.New(t.TempDir())
	original := sampleState()

	require.NoError(t, store.Save(original))

	loaded, err := store.Load()
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, original.OriginalBranch, loaded.OriginalBranch)
	assert.Equal(t, original.AutoBranchName, loaded.AutoBranchName)
	assert.Equal(t, *original.StashRef, *loaded.StashRef)
	assert.True(t, original.CreatedAt.Equal(loaded.CreatedAt))
	require.Len(t, loaded.PatchedFiles, 3)
	assert.Equal(t, original.PatchedFiles[0].PreviousContent, loaded.PatchedFiles[0].PreviousContent)
	assert.False(t, loaded.PatchedFiles[1].Absent(), "empty file is not an absent file")
	assert.True(t, loaded.PatchedFiles[2].Absent())
}

func TestStore_DocumentHasExactlyTheStateFields(t *testing.T) {
	store := state.New(t.TempDir())
	require.NoError(t, store.Save(sampleState()))

	data, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	var doc map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &doc))

	keys := make([]string, 0, len(doc))
	for k := range doc {
		keys = append(keys, k)
	}
	assert.ElementsMatch(t, []string{"original_branch", "auto_branch_name", "stash_ref", "patched_files", "created_at"}, keys)
	assert.Contains(t, string(doc["patched_files"]), `"previous_content": null`)
}

func TestStore_LoadMissing(t *testing.T) {
	store := state.New(t.TempDir())

	st, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, st)
}

func TestStore_LoadCorrupt(t *testing.T) {
	tests := map[string]string{
		"not json":       "{{{",
		"empty":          "",
		"unknown field":  `{"original_branch":"main","auto_branch_name":"x","stash_ref":null,"patched_files":[],"created_at":"2026-01-01T00:00:00Z","extra":1}`,
		"inconsistent":   `{"original_branch":"","auto_branch_name":"x","stash_ref":null,"patched_files":[],"created_at":"2026-01-01T00:00:00Z"}`,
		"escaping path":  `{"original_branch":"main","auto_branch_name":"x","stash_ref":null,"patched_files":[{"path":"../x","previous_content":null}],"created_at":"2026-01-01T00:00:00Z"}`,
		"trailing bytes": `{"original_branch":"main","auto_branch_name":"x","stash_ref":null,"patched_files":[],"created_at":"2026-01-01T00:00:00Z"} {}`,
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			store := state.New(t.TempDir())
			require.NoError(t, os.WriteFile(store.Path(), []byte(content), 0o600))

			st, err := store.Load()
			assert.Nil(t, st)
			var corrupt *domain.RollbackCorruptStateError
			require.True(t, errors.As(err, &corrupt), "got %v", err)
			assert.Equal(t, store.Path(), corrupt.Path)

			_, statErr := os.Stat(store.Path())
			assert.NoError(t, statErr, "corrupt state must be kept")
		})
	}
}

func TestStore_SaveRejectsInvalid(t *testing.T) {
	store := state.New(t.TempDir())

	err := store.Save(&domain.RollbackState{})
	assert.Error(t, err)
	_, statErr := os.Stat(store.Path())
	assert.True(t, os.IsNotExist(statErr))
}

func TestStore_Clear(t *testing.T) {
	store := state.New(t.TempDir())
	require.NoError(t, store.Save(sampleState()))

	require.NoError(t, store.Clear())
	require.NoError(t, store.Clear(), "clearing twice is fine")

	st, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, st)
}
