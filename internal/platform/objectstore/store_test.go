package objectstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.Put(ctx, "backups/b.json", []byte("b"), "application/json"))
	require.NoError(t, m.Put(ctx, "backups/a.json", []byte("aa"), "application/json"))
	require.NoError(t, m.Put(ctx, "other/c.json", []byte("c"), ""))

	objs, err := m.List(ctx, "backups/")
	require.NoError(t, err)
	require.Len(t, objs, 2)
	require.Equal(t, "backups/a.json", objs[0].Key)
	require.EqualValues(t, 2, objs[0].Size)

	data, err := m.Get(ctx, "backups/b.json")
	require.NoError(t, err)
	require.Equal(t, "b", string(data))

	require.NoError(t, m.Delete(ctx, "backups/b.json"))
	require.NoError(t, m.Delete(ctx, "backups/b.json"))
	_, err = m.Get(ctx, "backups/b.json")
	require.ErrorIs(t, err, ErrNotFound)
}
