package kv

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// exerciseStore checks the behaviour every backend must share.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	_, ok, err := s.Get(ctx, "notes")
	require.NoError(t, err)
	assert.False(t, ok, "absent key must report ok=false")

	require.NoError(t, s.Set(ctx, "notes", `[{"id":"1"}]`))
	v, ok, err := s.Get(ctx, "notes")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `[{"id":"1"}]`, v)

	require.NoError(t, s.Set(ctx, "notes", `[]`))
	v, _, err = s.Get(ctx, "notes")
	require.NoError(t, err)
	assert.Equal(t, `[]`, v, "Set must replace, not append")

	require.NoError(t, s.Set(ctx, "notes.corrupt", ""))
	v, ok, err = s.Get(ctx, "notes.corrupt")
	require.NoError(t, err)
	assert.True(t, ok, "empty value is still present")
	assert.Empty(t, v)
}

func TestMemory(t *testing.T) {
	exerciseStore(t, NewMemory())
}

func TestSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "jot.db")
	s, err := NewSQLite(path)
	require.NoError(t, err)
	exerciseStore(t, s)
	require.NoError(t, s.Close())

	// Values survive reopening the database.
	s, err = NewSQLite(path)
	require.NoError(t, err)
	defer s.Close()
	v, ok, err := s.Get(context.Background(), "notes")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `[]`, v)
}

func TestSQLiteRequiresPath(t *testing.T) {
	_, err := NewSQLite("")
	assert.Error(t, err)
}

func TestFile(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFile(dir)
	require.NoError(t, err)
	exerciseStore(t, s)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), tempFilePrefix, "temp files must not be left behind")
	}
}

func TestFileRejectsUnsafeKeys(t *testing.T) {
	s, err := NewFile(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	for _, key := range []string{"", "../notes", "a/b", ".hidden"} {
		assert.Error(t, s.Set(ctx, key, "x"), "key %q", key)
		_, _, err := s.Get(ctx, key)
		assert.Error(t, err, "key %q", key)
	}
}

func TestRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	s, err := NewRedis(ctx, mr.Addr(), "jot:")
	require.NoError(t, err)
	defer s.Close()
	exerciseStore(t, s)

	raw, err := mr.Get("jot:notes")
	require.NoError(t, err)
	assert.Equal(t, `[]`, raw, "keys are namespaced by prefix")
}

func TestRedisUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewRedis(context.Background(), addr, "")
	assert.Error(t, err)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, Options{Backend: BackendMemory})
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, s)

	s, err = Open(ctx, Options{Backend: BackendFile, Path: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &File{}, s)

	s, err = Open(ctx, Options{Path: filepath.Join(t.TempDir(), "jot.db")})
	require.NoError(t, err)
	assert.IsType(t, &SQLite{}, s)
	require.NoError(t, s.Close())

	_, err = Open(ctx, Options{Backend: "etcd"})
	assert.Error(t, err)
}
