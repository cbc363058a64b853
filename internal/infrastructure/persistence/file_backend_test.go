package persistence

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileBackend_ReadWrite(t *testing.T) {
	ctx := context.Background()
	backend, err := NewFileBackend(filepath.Join(t.TempDir(), "nested", "data"))
	require.NoError(t, err)

	_, err = backend.Read(ctx, "users.json")
	assert.ErrorIs(t, err, ErrBlobNotFound)

	require.NoError(t, backend.Write(ctx, "users.json", []byte("first")))
	require.NoError(t, backend.Write(ctx, "users.json", []byte("second")))

	data, err := backend.Read(ctx, "users.json")
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))
}

func TestFileBackend_LeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	backend, err := NewFileBackend(dir)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		require.NoError(t, backend.Write(context.Background(), "inventory.json", []byte("{}")))
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "inventory.json", entries[0].Name())
}

func TestFileBackend_WriteFailureKeepsPrevious(t *testing.T) {
	dir := t.TempDir()
	backend, err := NewFileBackend(dir)
	require.NoError(t, err)
	require.NoError(t, backend.Write(context.Background(), "users.json", []byte("old")))

	// a directory in the way makes the rename fail
	require.NoError(t, os.Mkdir(filepath.Join(dir, "blocked.json"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "blocked.json", "x"), []byte("x"), 0o644))

	err = backend.Write(context.Background(), "blocked.json", []byte("new"))
	assert.Error(t, err)

	data, err := backend.Read(context.Background(), "users.json")
	require.NoError(t, err)
	assert.Equal(t, "old", string(data))
}

func TestFileBackend_CanceledContext(t *testing.T) {
	backend, err := NewFileBackend(t.TempDir())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, backend.Write(ctx, "users.json", []byte("x")), context.Canceled)
	_, err = backend.Read(ctx, "users.json")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEntityStore_OverFileBackend(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	backend, err := NewFileBackend(dir)
	require.NoError(t, err)

	store := NewEntityStore[record]("inventory", backend, YAMLCodec{}, nil)
	want := sampleRecords()
	require.NoError(t, store.Save(ctx, want))

	// a fresh store over the same directory sees the same data
	reopened := NewEntityStore[record]("inventory", backend, YAMLCodec{}, nil)
	got, err := reopened.Load(ctx)
	require.NoError(t, err)
	assertRecordsEqual(t, want, got)

	_, err = os.Stat(filepath.Join(dir, "inventory.yaml"))
	assert.NoError(t, err)
}
