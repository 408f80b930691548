package kv

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_LoadMissingKey(t *testing.T) {
	m := NewMemory()

	_, err := m.Load(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestMemory_SaveOverwrites(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	require.NoError(t, m.Save(ctx, KeyIncidents, []byte(`[1]`)))
	require.NoError(t, m.Save(ctx, KeyIncidents, []byte(`[1,2]`)))

	data, err := m.Load(ctx, KeyIncidents)
	require.NoError(t, err)
	assert.Equal(t, []byte(`[1,2]`), data)
}

func TestMemory_LoadReturnsCopy(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	require.NoError(t, m.Save(ctx, "k", []byte("abc")))

	data, err := m.Load(ctx, "k")
	require.NoError(t, err)
	data[0] = 'x'

	again, err := m.Load(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), again)
}
