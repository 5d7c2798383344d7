package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specloom/loom/internal/ir"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "loom.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testDoc(t *testing.T) *ir.Document {
	t.Helper()
	doc, err := ir.Decode([]byte(`{
		"meta": {"id": "orders", "version": "1.0.0"},
		"entities": {"Order": {"fields": {"id": {"type": "uuid"}}}}
	}`))
	require.NoError(t, err)
	return doc
}

func TestOpenAppliesPragmas(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.verifyPragma("journal_mode", "wal"))
	require.NoError(t, s.verifyPragma("foreign_keys", "1"))
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loom.db")

	s1, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s2.Close())
}

func TestSaveAndGet(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id, err := s.Save(ctx, "orders", testDoc(t))
	require.NoError(t, err)
	require.NotEmpty(t, id)

	snap, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, snap.ID)
	assert.Equal(t, "orders", snap.Name)
	assert.False(t, snap.CreatedAt.IsZero())
	require.NotNil(t, snap.Document)
	assert.Equal(t, "orders", snap.Document.Meta.ID)
	assert.Contains(t, snap.Document.Entities, "Order")
}

func TestGetMissing(t *testing.T) {
	s := openTestStore(t)
	_, err := s.Get(context.Background(), "no-such-id")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLatestPicksNewestRevision(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	first, err := s.Save(ctx, "orders", testDoc(t))
	require.NoError(t, err)

	doc := testDoc(t)
	doc.Meta.Version = "2.0.0"
	second, err := s.Save(ctx, "orders", doc)
	require.NoError(t, err)
	require.NotEqual(t, first, second)

	snap, err := s.Latest(ctx, "orders")
	require.NoError(t, err)
	assert.Equal(t, second, snap.ID)
	assert.Equal(t, "2.0.0", snap.Document.Meta.Version)
}

func TestListNewestFirstWithoutDocuments(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.Save(ctx, "orders", testDoc(t))
	require.NoError(t, err)
	_, err = s.Save(ctx, "billing", testDoc(t))
	require.NoError(t, err)

	snaps, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	assert.Equal(t, "billing", snaps[0].Name)
	assert.Equal(t, "orders", snaps[1].Name)
	assert.Nil(t, snaps[0].Document)
}

func TestDelete(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id, err := s.Save(ctx, "orders", testDoc(t))
	require.NoError(t, err)
	require.NoError(t, s.Delete(ctx, id))

	_, err = s.Get(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, id), ErrNotFound)
}
