package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/nullg/internal/ir"
	"github.com/roach88/nullg/internal/queryir"
	"github.com/roach88/nullg/internal/testutil"
)

// createTestStore opens a fresh store in a temp dir with predictable ids.
func createTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	opts = append([]Option{WithIDGenerator(testutil.NewSequentialIDGenerator("rec"))}, opts...)
	s, err := Open(path, opts...)
	require.NoError(t, err, "Open() failed")
	t.Cleanup(func() { s.Close() })
	return s
}

// mustObject decodes a JSON object literal into a typed record.
func mustObject(t *testing.T, doc string) ir.Object {
	t.Helper()
	raw, err := ir.DecodeRaw([]byte(doc))
	require.NoError(t, err)
	v, err := ir.FromRaw(raw)
	require.NoError(t, err)
	obj, ok := v.(ir.Object)
	require.True(t, ok, "not an object: %s", doc)
	return obj
}

// mustFilter parses a JSON filter document.
func mustFilter(t *testing.T, doc string) queryir.Predicate {
	t.Helper()
	raw, err := ir.DecodeRaw([]byte(doc))
	require.NoError(t, err)
	p, err := queryir.ParseFilter(raw)
	require.NoError(t, err)
	return p
}

func putAll(t *testing.T, s *Store, itemClass string, docs ...string) {
	t.Helper()
	for _, doc := range docs {
		_, _, err := s.PutRecord(context.Background(), itemClass, mustObject(t, doc))
		require.NoError(t, err)
	}
}

func ids(recs []Record) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.ID
	}
	return out
}
