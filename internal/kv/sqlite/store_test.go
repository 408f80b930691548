package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsdesk/incident-desk/internal/kv"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()

	st, err := Open(context.Background(), filepath.Join(t.TempDir(), "snapshots.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestStore_RoundTrip(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.Save(ctx, kv.KeyUsers, []byte(`{"admin":{}}`)))

	data, err := st.Load(ctx, kv.KeyUsers)
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"admin":{}}`), data)
}

func TestStore_LoadMissingKey(t *testing.T) {
	st := openTestStore(t)

	_, err := st.Load(context.Background(), "absent")
	assert.ErrorIs(t, err, kv.ErrKeyNotFound)
}

func TestStore_SaveOverwrites(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.Save(ctx, "snap", []byte("v1")))
	require.NoError(t, st.Save(ctx, "snap", []byte("v2")))

	data, err := st.Load(ctx, "snap")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), data)
}

func TestStore_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshots.db")
	ctx := context.Background()

	st, err := Open(ctx, path)
	require.NoError(t, err)
	require.NoError(t, st.Save(ctx, "snap", []byte("persisted")))
	require.NoError(t, st.Close())

	reopened, err := Open(ctx, path)
	require.NoError(t, err)
	defer reopened.Close()

	data, err := reopened.Load(ctx, "snap")
	require.NoError(t, err)
	assert.Equal(t, []byte("persisted"), data)
}
