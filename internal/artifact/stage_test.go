package artifact

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStage_Commit(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.json")
	b := filepath.Join(dir, "sub", "b.json")
	require.NoError(t, os.WriteFile(a, []byte("old"), 0o644))

	st := NewStage("run")
	tmpA, tmpB := st.Path(a), st.Path(b)
	assert.Equal(t, dir, filepath.Dir(tmpA))
	assert.NotEqual(t, a, tmpA)

	require.NoError(t, os.WriteFile(tmpA, []byte("new"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Dir(tmpB), 0o755))
	require.NoError(t, os.WriteFile(tmpB, []byte("b"), 0o644))

	// Nothing moves before Commit.
	data, err := os.ReadFile(a)
	require.NoError(t, err)
	assert.Equal(t, "old", string(data))
	assert.NoFileExists(t, b)

	files, err := st.Commit()
	require.NoError(t, err)
	assert.Equal(t, []string{a, b}, files)

	data, err = os.ReadFile(a)
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))
	assert.FileExists(t, b)
	assert.NoFileExists(t, tmpA)
	assert.NoFileExists(t, tmpB)

	st.Discard()
	assert.FileExists(t, a)
}

func TestStage_CommitChecksDestinationsFirst(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.json")
	blocked := filepath.Join(dir, "b.json")
	require.NoError(t, os.MkdirAll(filepath.Join(blocked, "x"), 0o755))

	st := NewStage("run")
	require.NoError(t, os.WriteFile(st.Path(a), []byte("a"), 0o644))
	require.NoError(t, os.WriteFile(st.Path(blocked), []byte("b"), 0o644))

	_, err := st.Commit()
	require.Error(t, err)
	assert.NoFileExists(t, a)

	st.Discard()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "b.json", entries[0].Name())
}

func TestStage_CommitMissingStagedFile(t *testing.T) {
	dir := t.TempDir()
	st := NewStage("run")
	st.Path(filepath.Join(dir, "never-written.json"))

	_, err := st.Commit()
	assert.Error(t, err)
}

func TestStage_Discard(t *testing.T) {
	dir := t.TempDir()
	st := NewStage("run")
	tmp := st.Path(filepath.Join(dir, "a.json"))
	require.NoError(t, os.WriteFile(tmp, []byte("a"), 0o644))

	st.Discard()
	assert.NoFileExists(t, tmp)
	assert.NoFileExists(t, filepath.Join(dir, "a.json"))
}
