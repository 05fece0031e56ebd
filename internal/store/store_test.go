package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_CreatesSchema(t *testing.T) {
	s := createTestStore(t)

	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name IN ('records', 'meta')`).Scan(&n)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	var version int
	require.NoError(t, s.db.QueryRow("PRAGMA user_version").Scan(&version))
	assert.Equal(t, currentSchemaVersion, version)
}

func TestOpen_WALMode(t *testing.T) {
	s := createTestStore(t)

	var mode string
	require.NoError(t, s.db.QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)
}

func TestOpen_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reopen.db")
	ctx := context.Background()

	s1, err := Open(path)
	require.NoError(t, err)
	_, _, err = s1.PutRecord(ctx, "units", mustObject(t, `{"id":"a","mass":20}`))
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()

	rec, err := s2.GetRecord(ctx, "units", "a")
	require.NoError(t, err)
	assert.Equal(t, mustObject(t, `{"id":"a","mass":20}`), rec.Body)
}

func TestClose_Idempotent(t *testing.T) {
	s := &Store{}
	assert.NoError(t, s.Close())
}

func TestMeta(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	_, ok, err := s.Meta(ctx, "schema_hash")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.SetMeta(ctx, "schema_hash", "abc"))
	require.NoError(t, s.SetMeta(ctx, "schema_hash", "def"))

	v, ok, err := s.Meta(ctx, "schema_hash")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "def", v)
}

func TestRegexpMatch(t *testing.T) {
	ok, err := regexpMatch("^At", "Atlas")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = regexpMatch("^At", []byte("Locust"))
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = regexpMatch("^1", int64(100))
	require.NoError(t, err)
	assert.False(t, ok, "non-text values never match")

	_, err = regexpMatch("(", "x")
	assert.Error(t, err)
}

func TestRegexpMatch_PatternCacheIsBounded(t *testing.T) {
	for i := 0; i < patternCacheSize*2; i++ {
		ok, err := regexpMatch(fmt.Sprintf("^unit-%d$", i), fmt.Sprintf("unit-%d", i))
		require.NoError(t, err)
		require.True(t, ok)
	}
	assert.LessOrEqual(t, patternCache.Len(), patternCacheSize)

	// Evicted patterns compile again on demand.
	ok, err := regexpMatch("^unit-0$", "unit-0")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = regexpMatch("^unit-0$", "unit-1")
	require.NoError(t, err)
	assert.False(t, ok)
}
