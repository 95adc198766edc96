package state

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testDoc struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	in := testDoc{Name: "position", Value: 42.5}
	require.NoError(t, store.Save("doc.json", &in))

	var out testDoc
	require.NoError(t, store.Load("doc.json", &out))
	assert.Equal(t, in, out)
	assert.True(t, store.Exists("doc.json"))
}

func TestStore_LoadMissing(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	var out testDoc
	err = store.Load("absent.json", &out)
	require.Error(t, err)
	assert.True(t, os.IsNotExist(err))
	assert.False(t, store.Exists("absent.json"))
}

func TestStore_LoadCorrupt(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(store.Path("bad.json"), []byte("{not json"), 0644))

	var out testDoc
	err = store.Load("bad.json", &out)
	require.Error(t, err)
	assert.False(t, os.IsNotExist(err))
}

func TestStore_SaveReplacesAtomically(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Save("doc.json", &testDoc{Name: "first"}))
	require.NoError(t, store.Save("doc.json", &testDoc{Name: "second"}))

	var out testDoc
	require.NoError(t, store.Load("doc.json", &out))
	assert.Equal(t, "second", out.Name)

	// No leftover temp file after a completed save.
	_, err = os.Stat(store.Path("doc.json") + ".tmp")
	assert.True(t, os.IsNotExist(err))
}
