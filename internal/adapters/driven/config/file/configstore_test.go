package file

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigStore_Path(t *testing.T) {
	tmpDir := t.TempDir()

	store, err := NewConfigStore(tmpDir)

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(tmpDir, "config.toml"), store.Path())
	_, statErr := os.Stat(store.Path())
	assert.True(t, os.IsNotExist(statErr), "file is written lazily")
}

func TestNewConfigStore_HomeEnv(t *testing.T) {
	home := t.TempDir()
	t.Setenv(HomeEnv, home)

	store, err := NewConfigStore("")

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "config.toml"), store.Path())
}

func TestNewConfigStoreFile_CreatesParent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "ras.toml")

	store, err := NewConfigStoreFile(path)

	require.NoError(t, err)
	require.NoError(t, store.Set("planner.max_hops", 3))
	assert.FileExists(t, path)
}

func TestConfigStore_TypedGetters(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Set("knowledge.source", "wiki"))
	require.NoError(t, store.Set("knowledge.top_k", 10))
	require.NoError(t, store.Set("planner.frozen", true))
	require.NoError(t, store.Set("run.datasets", []string{"hotpotqa", "musique"}))

	assert.Equal(t, "wiki", store.GetString("knowledge.source"))
	assert.Equal(t, 10, store.GetInt("knowledge.top_k"))
	assert.True(t, store.GetBool("planner.frozen"))
	assert.Equal(t, []string{"hotpotqa", "musique"}, store.GetStringSlice("run.datasets"))

	// Wrong types read as zero values.
	assert.Empty(t, store.GetString("knowledge.top_k"))
	assert.Zero(t, store.GetInt("knowledge.source"))
	assert.False(t, store.GetBool("knowledge.source"))
	assert.Nil(t, store.GetStringSlice("knowledge.top_k"))

	_, ok := store.Get("missing")
	assert.False(t, ok)
}

func TestConfigStore_WritesTables(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Set("planner.max_hops", 2))
	require.NoError(t, store.Set("planner.model", "qwen"))
	require.NoError(t, store.Set("retrieval.mode", "hybrid"))

	data, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.Contains(t, string(data), "[planner]")
	assert.Contains(t, string(data), "[retrieval]")
	assert.NotContains(t, string(data), "'planner.model'")
}

func TestConfigStore_Reload_PreservesValues(t *testing.T) {
	dir := t.TempDir()
	store, err := NewConfigStore(dir)
	require.NoError(t, err)

	require.NoError(t, store.Set("limits.step_budget", 8))
	require.NoError(t, store.Set("limits.requests_per_second", 2.5))
	require.NoError(t, store.Set("run.datasets", []string{"hotpotqa"}))

	reopened, err := NewConfigStore(dir)
	require.NoError(t, err)

	assert.Equal(t, 8, reopened.GetInt("limits.step_budget"))
	val, ok := reopened.Get("limits.requests_per_second")
	require.True(t, ok)
	assert.InDelta(t, 2.5, val, 1e-9)
	assert.Equal(t, []string{"hotpotqa"}, reopened.GetStringSlice("run.datasets"))
}

func TestConfigStore_Load_HandWrittenFile(t *testing.T) {
	dir := t.TempDir()
	content := `
[knowledge]
source = "wiki"
top_k = 5

[planner]
frozen = false
checkpoint = "/tmp/planner.json"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0600))

	store, err := NewConfigStore(dir)
	require.NoError(t, err)

	assert.Equal(t, "wiki", store.GetString("knowledge.source"))
	assert.Equal(t, 5, store.GetInt("knowledge.top_k"))
	assert.False(t, store.GetBool("planner.frozen"))
	assert.Equal(t, "/tmp/planner.json", store.GetString("planner.checkpoint"))
}

func TestConfigStore_Load_InvalidTOML(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte("[[[ nope"), 0600))

	_, err := NewConfigStore(dir)

	assert.Error(t, err)
}

func TestConfigStore_Load_EmptyFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), nil, 0600))

	store, err := NewConfigStore(dir)

	require.NoError(t, err)
	_, ok := store.Get("anything")
	assert.False(t, ok)
}

func TestConfigStore_Set_ConflictRollsBack(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Set("planner", "flat"))

	err = store.Set("planner.model", "qwen")

	assert.Error(t, err)
	_, ok := store.Get("planner.model")
	assert.False(t, ok)
	assert.Equal(t, "flat", store.GetString("planner"))
}

func TestConfigStore_FilePermissions(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Set("debug", true))

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestConfigStore_ConcurrentAccess(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = store.Set("limits.concurrency", i)
		}()
		go func() {
			defer wg.Done()
			_ = store.GetInt("limits.concurrency")
		}()
	}
	wg.Wait()

	_, ok := store.Get("limits.concurrency")
	assert.True(t, ok)
}

func TestNestKeys(t *testing.T) {
	nested, err := nestKeys(map[string]any{
		"a.b.c": 1,
		"a.d":   "x",
		"e":     true,
	})
	require.NoError(t, err)

	assert.Equal(t, map[string]any{
		"a": map[string]any{
			"b": map[string]any{"c": 1},
			"d": "x",
		},
		"e": true,
	}, nested)

	flat := make(map[string]any)
	flattenInto(flat, nested, "")
	assert.Equal(t, map[string]any{"a.b.c": 1, "a.d": "x", "e": true}, flat)
}
