package bloodliner

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStore(t *testing.T, store Store) {
	t.Helper()
	a := assert.New(t)
	ctx := context.Background()

	_, err := store.Load(ctx, StateKey)
	a.True(errors.Is(err, ErrNotFound))

	require.NoError(t, store.Save(ctx, StateKey, []byte(`{"streak":1}`)))
	val, err := store.Load(ctx, StateKey)
	require.NoError(t, err)
	a.Equal(`{"streak":1}`, string(val))

	require.NoError(t, store.Save(ctx, StateKey, []byte(`{"streak":2}`)))
	val, err = store.Load(ctx, StateKey)
	require.NoError(t, err)
	a.Equal(`{"streak":2}`, string(val))

	_, err = store.Load(ctx, "other")
	a.True(errors.Is(err, ErrNotFound))
}

func TestMemoryStore(t *testing.T) {
	store, err := OpenStore(context.Background(), "memory", "")
	require.NoError(t, err)
	defer store.Close()
	testStore(t, store)
}

func TestMemoryStoreCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	val := []byte("abc")
	require.NoError(t, store.Save(ctx, "k", val))
	val[0] = 'x'
	got, err := store.Load(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))
}

func TestSQLiteStore(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "bloodliner.db")
	store, err := OpenStore(context.Background(), "sqlite", dsn)
	require.NoError(t, err)
	testStore(t, store)
	require.NoError(t, store.Close())

	// reopening keeps the data and the migration is idempotent
	store, err = OpenStore(context.Background(), "sqlite", dsn)
	require.NoError(t, err)
	defer store.Close()
	val, err := store.Load(context.Background(), StateKey)
	require.NoError(t, err)
	assert.Equal(t, `{"streak":2}`, string(val))
}

func TestSQLiteEngine(t *testing.T) {
	a := assert.New(t)
	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "bloodliner.db")

	store, err := OpenStore(ctx, "sqlite", dsn)
	require.NoError(t, err)
	e := newTestEngine(t, store)
	_, err = e.LogEvent(ctx, 1, Protein, "")
	require.NoError(t, err)
	_, err = e.Finalize(ctx, 1, FinalizeOptions{})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	store, err = OpenStore(ctx, "sqlite", dsn)
	require.NoError(t, err)
	defer store.Close()
	e = newTestEngine(t, store)
	s := e.Season()
	a.True(s.Days[1].Locked())
	a.Equal(2.0, s.Days[1].Scores.Total)
	a.Equal(2, s.CurrentDay)
}

func TestOpenStoreErrors(t *testing.T) {
	ctx := context.Background()
	_, err := OpenStore(ctx, "mysql", "root@/db")
	assert.Error(t, err)
	_, err = OpenStore(ctx, "sqlite", "")
	assert.Error(t, err)
}
