//go:build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsdesk/incident-desk/internal/kv"
	"github.com/opsdesk/incident-desk/internal/testutil"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()

	container, err := testutil.NewPostgresContainer(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	st, err := Open(ctx, Config{
		URL:             container.ConnectionString,
		MaxOpenConns:    5,
		MaxIdleConns:    2,
		ConnMaxLifetime: 5 * time.Minute,
		ConnectAttempts: 3,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestStore_Postgres(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	t.Run("load missing key", func(t *testing.T) {
		_, err := st.Load(ctx, "absent")
		assert.ErrorIs(t, err, kv.ErrKeyNotFound)
	})

	t.Run("round trip", func(t *testing.T) {
		require.NoError(t, st.Save(ctx, kv.KeyIncidents, []byte(`[{"id":"a"}]`)))

		data, err := st.Load(ctx, kv.KeyIncidents)
		require.NoError(t, err)
		assert.Equal(t, []byte(`[{"id":"a"}]`), data)
	})

	t.Run("save overwrites", func(t *testing.T) {
		require.NoError(t, st.Save(ctx, "snap", []byte("v1")))
		require.NoError(t, st.Save(ctx, "snap", []byte("v2")))

		data, err := st.Load(ctx, "snap")
		require.NoError(t, err)
		assert.Equal(t, []byte("v2"), data)
	})

	t.Run("ping", func(t *testing.T) {
		assert.NoError(t, st.Ping(ctx))
	})
}
