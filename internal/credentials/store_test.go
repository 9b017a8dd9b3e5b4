// ABOUTME: Tests for the credential store backends
// ABOUTME: Verifies round-trips, atomic clears, and sealed file handling

package credentials

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func backends(t *testing.T) map[string]Store {
	t.Helper()
	dir := t.TempDir()

	file, err := NewFileStore(filepath.Join(dir, "creds.toml"))
	require.NoError(t, err)

	var key [32]byte
	copy(key[:], "0123456789abcdef0123456789abcdef")
	sealed, err := NewSealedFileStore(filepath.Join(dir, "sealed.toml"), &key)
	require.NoError(t, err)

	db, err := NewSQLiteStore(filepath.Join(dir, "creds.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return map[string]Store{
		"memory": NewMemoryStore(Pair{}),
		"file":   file,
		"sealed": sealed,
		"sqlite": db,
	}
}

func TestStores_RoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			pair, err := s.Load(ctx)
			require.NoError(t, err)
			assert.True(t, pair.IsZero(), "fresh store should be empty")

			want := Pair{AccessToken: "access-1", RefreshToken: "refresh-1"}
			require.NoError(t, s.Save(ctx, want))

			got, err := s.Load(ctx)
			require.NoError(t, err)
			assert.Equal(t, want, got)

			// Replacing the pair overwrites both tokens
			next := Pair{AccessToken: "access-2", RefreshToken: "refresh-2"}
			require.NoError(t, s.Save(ctx, next))
			got, err = s.Load(ctx)
			require.NoError(t, err)
			assert.Equal(t, next, got)
		})
	}
}

func TestStores_ClearRemovesBothTokens(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Save(ctx, Pair{AccessToken: "a", RefreshToken: "r"}))
			require.NoError(t, s.Clear(ctx))

			got, err := s.Load(ctx)
			require.NoError(t, err)
			assert.True(t, got.IsZero())

			// Clearing an empty store is fine
			require.NoError(t, s.Clear(ctx))
		})
	}
}

func TestFileStore_UsesFixedKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "creds.toml")
	s, err := NewFileStore(path)
	require.NoError(t, err)

	require.NoError(t, s.Save(context.Background(), Pair{AccessToken: "aaa", RefreshToken: "rrr"}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `accessToken = "aaa"`)
	assert.Contains(t, string(data), `refreshToken = "rrr"`)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestSealedFileStore_HidesTokensAndRejectsWrongKey(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "sealed.toml")

	var key [32]byte
	copy(key[:], "0123456789abcdef0123456789abcdef")
	s, err := NewSealedFileStore(path, &key)
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, Pair{AccessToken: "secret-access", RefreshToken: "secret-refresh"}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.False(t, strings.Contains(string(data), "secret-access"))

	var wrong [32]byte
	copy(wrong[:], "ffffffffffffffffffffffffffffffff")
	other, err := NewSealedFileStore(path, &wrong)
	require.NoError(t, err)
	_, err = other.Load(ctx)
	assert.ErrorIs(t, err, ErrSealBroken)
}

func TestSQLiteStore_EmptyRefreshTokenDeletesRow(t *testing.T) {
	ctx := context.Background()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "creds.db"))
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Save(ctx, Pair{AccessToken: "a", RefreshToken: "r"}))
	require.NoError(t, s.Save(ctx, Pair{AccessToken: "b"}))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, Pair{AccessToken: "b"}, got)
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(Options{Backend: "", Path: filepath.Join(dir, "c.toml")})
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, s)

	s, err = Open(Options{Backend: BackendMemory})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	s, err = Open(Options{Backend: BackendSQLite, Path: filepath.Join(dir, "c.db")})
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, s)
	s.(*SQLiteStore).Close()

	_, err = Open(Options{Backend: "etcd"})
	assert.ErrorIs(t, err, ErrUnknownBackend)

	_, err = Open(Options{Backend: BackendFile})
	assert.Error(t, err, "file backend requires a path")
}
