// Package local_test tests the local filesystem blob store.
package local_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/webindexer/internal/storage/local"
)

func TestNew(t *testing.T) {
	t.Run("ValidConfig", func(t *testing.T) {
		store, err := local.New(local.Config{BaseDir: t.TempDir()})
		require.NoError(t, err)
		assert.NotNil(t, store)
	})

	t.Run("CreatesMissingDir", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "reports", "nested")
		_, err := local.New(local.Config{BaseDir: dir})
		require.NoError(t, err)
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})

	t.Run("MissingBaseDir", func(t *testing.T) {
		_, err := local.New(local.Config{})
		assert.Error(t, err)
	})

	t.Run("BaseDirIsNotADirectory", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "file")
		require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))
		_, err := local.New(local.Config{BaseDir: file})
		assert.ErrorContains(t, err, "not a directory")
	})

	t.Run("LeavesNoProbeBehind", func(t *testing.T) {
		dir := t.TempDir()
		_, err := local.New(local.Config{BaseDir: dir})
		require.NoError(t, err)
		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})
}

func TestPutObject(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store, err := local.New(local.Config{BaseDir: dir})
	require.NoError(t, err)

	uri, err := store.PutObject(context.Background(), "runs/run-1.yaml", "application/yaml", strings.NewReader("total: 3\n"))
	require.NoError(t, err)
	want := filepath.Join(dir, "runs", "run-1.yaml")
	assert.Equal(t, "file://"+want, uri)

	data, err := os.ReadFile(want)
	require.NoError(t, err)
	assert.Equal(t, "total: 3\n", string(data))

	_, err = store.PutObject(context.Background(), "runs/run-1.yaml", "", strings.NewReader("total: 4\n"))
	require.NoError(t, err)
	data, err = os.ReadFile(want)
	require.NoError(t, err)
	assert.Equal(t, "total: 4\n", string(data), "later writes replace the artifact")
}

func TestPutObjectRejectsBadPaths(t *testing.T) {
	t.Parallel()

	store, err := local.New(local.Config{BaseDir: t.TempDir()})
	require.NoError(t, err)

	for _, path := range []string{"", "   ", "../escape.yaml", "runs/../../escape.yaml"} {
		_, err := store.PutObject(context.Background(), path, "", strings.NewReader("x"))
		assert.Error(t, err, "path %q", path)
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("read failed") }

func TestPutObjectCleansUpOnReadError(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store, err := local.New(local.Config{BaseDir: dir})
	require.NoError(t, err)

	_, err = store.PutObject(context.Background(), "runs/r.yaml", "", failingReader{})
	require.ErrorContains(t, err, "read failed")

	entries, err := os.ReadDir(filepath.Join(dir, "runs"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}
