package credentials

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeEnvFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestStore_Load(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	writeEnvFile(t, path, "LUNO_API_KEY=abcdef123456\nLUNO_API_SECRET=secret9876543\nPAIR=solngn\nDRY_RUN=true\n")

	store := NewStore(path, time.Hour)
	require.NoError(t, store.Load())

	snap := store.Get()
	assert.Equal(t, "abcdef123456", snap.APIKey)
	assert.Equal(t, "secret9876543", snap.APISecret)
	assert.Equal(t, "SOLNGN", snap.Pair, "pair is normalized to upper case")
	assert.True(t, snap.DryRun)
	assert.True(t, snap.Valid())
}

func TestStore_LoadMissingFileFallsBackToEnv(t *testing.T) {
	t.Setenv("LUNO_API_KEY", "envkey")
	t.Setenv("LUNO_API_SECRET", "envsecret")
	t.Setenv("PAIR", "")
	t.Setenv("DRY_RUN", "")

	store := NewStore(filepath.Join(t.TempDir(), "absent.env"), time.Hour)
	require.NoError(t, store.Load())

	snap := store.Get()
	assert.Equal(t, "envkey", snap.APIKey)
	assert.Equal(t, "XBTNGN", snap.Pair, "default pair when unset")
	assert.False(t, snap.DryRun)
}

func TestStore_CheckForUpdate_DetectsEdit(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	writeEnvFile(t, path, "LUNO_API_KEY=key1\nLUNO_API_SECRET=sec1\n")

	store := NewStore(path, time.Nanosecond)
	require.NoError(t, store.Load())

	writeEnvFile(t, path, "LUNO_API_KEY=key2\nLUNO_API_SECRET=sec1\n")
	time.Sleep(time.Millisecond)

	assert.True(t, store.CheckForUpdate())
	assert.Equal(t, "key2", store.Get().APIKey)
}

func TestStore_CheckForUpdate_RateLimited(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	writeEnvFile(t, path, "LUNO_API_KEY=key1\nLUNO_API_SECRET=sec1\n")

	store := NewStore(path, time.Hour)
	require.NoError(t, store.Load())

	// First check opens the rate window.
	assert.False(t, store.CheckForUpdate())

	// An edit within the window is not observed yet.
	writeEnvFile(t, path, "LUNO_API_KEY=key2\nLUNO_API_SECRET=sec1\n")
	assert.False(t, store.CheckForUpdate())
	assert.Equal(t, "key1", store.Get().APIKey)
}

func TestStore_CheckForUpdate_UnreadableKeepsPrevious(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	writeEnvFile(t, path, "LUNO_API_KEY=key1\nLUNO_API_SECRET=sec1\n")

	store := NewStore(path, time.Nanosecond)
	require.NoError(t, store.Load())

	require.NoError(t, os.Remove(path))
	time.Sleep(time.Millisecond)

	assert.False(t, store.CheckForUpdate())
	assert.Equal(t, "key1", store.Get().APIKey, "previous snapshot retained")
}

func TestStore_NoChangeNoReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	writeEnvFile(t, path, "LUNO_API_KEY=key1\nLUNO_API_SECRET=sec1\n")

	store := NewStore(path, time.Nanosecond)
	require.NoError(t, store.Load())

	time.Sleep(time.Millisecond)
	assert.False(t, store.CheckForUpdate(), "unchanged content must not report an update")
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "not set", MaskSecret(""))
	assert.Equal(t, "****", MaskSecret("short"))
	assert.Equal(t, "****", MaskSecret("12345678"))
	assert.Equal(t, "abcd****wxyz", MaskSecret("abcdefghijklmnopqrstuvwxyz"))
}
