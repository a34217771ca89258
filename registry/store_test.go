package registry

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStoreRecordAndGrants(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "grants.db"), nil)
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Record("0xActor1"))
	require.NoError(t, store.Record("0xactor1"))
	require.NoError(t, store.Record("0xActor2"))
	require.NoError(t, store.Record("   "))

	actors, err := store.Grants()
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"0xactor1", "0xactor2"}, actors)
}

func TestStoreSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grants.db")

	store, err := NewStore(path, nil)
	require.NoError(t, err)
	require.NoError(t, store.Record("0xactor1"))
	require.NoError(t, store.Close())

	reopened, err := NewStore(path, nil)
	require.NoError(t, err)
	defer reopened.Close()

	actors, err := reopened.Grants()
	require.NoError(t, err)
	require.Equal(t, []string{"0xactor1"}, actors)
}
