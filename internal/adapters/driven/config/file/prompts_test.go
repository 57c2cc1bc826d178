package file

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ras-cli/internal/core/ports/driven"
)

func TestNewPromptStore_DefaultDir(t *testing.T) {
	home := t.TempDir()
	t.Setenv(HomeEnv, home)

	store, err := NewPromptStore("")

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "prompts"), store.Dir())
}

func TestPromptStore_Load_CreatesDefaultFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "prompts")
	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	_, err = store.Load(driven.PromptAnswerer)
	require.NoError(t, err)

	for _, f := range []string{"triple_extraction.txt", "answerer.txt", "README.md"} {
		assert.FileExists(t, filepath.Join(dir, f))
	}
}

func TestPromptStore_Defaults(t *testing.T) {
	store, err := NewPromptStore(t.TempDir())
	require.NoError(t, err)

	extraction, err := store.Load(driven.PromptTripleExtraction)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(extraction, "%s"))

	want, ok := DefaultPrompt(driven.PromptTripleExtraction)
	require.True(t, ok)
	assert.Equal(t, want, extraction)

	answerer, err := store.Load(driven.PromptAnswerer)
	require.NoError(t, err)
	assert.NotContains(t, answerer, "%")
}

func TestPromptStore_Load_CustomContent(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "answerer.txt"), []byte("  Answer tersely.\n\n"), 0600))

	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	got, err := store.Load(driven.PromptAnswerer)
	require.NoError(t, err)
	assert.Equal(t, "Answer tersely.", got)

	// The custom file is kept.
	data, err := os.ReadFile(filepath.Join(dir, "answerer.txt"))
	require.NoError(t, err)
	assert.Equal(t, "  Answer tersely.\n\n", string(data))
}

func TestPromptStore_Load_FallsBack(t *testing.T) {
	dir := t.TempDir()
	store, err := NewPromptStore(dir)
	require.NoError(t, err)
	_, err = store.Load(driven.PromptAnswerer)
	require.NoError(t, err)

	// Deleted and blank files both fall back to the default.
	require.NoError(t, os.Remove(filepath.Join(dir, "triple_extraction.txt")))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "answerer.txt"), []byte("   "), 0600))
	store.Reload()

	extraction, err := store.Load(driven.PromptTripleExtraction)
	require.NoError(t, err)
	want, _ := DefaultPrompt(driven.PromptTripleExtraction)
	assert.Equal(t, want, extraction)

	answerer, err := store.Load(driven.PromptAnswerer)
	require.NoError(t, err)
	want, _ = DefaultPrompt(driven.PromptAnswerer)
	assert.Equal(t, want, answerer)
}

func TestPromptStore_Load_Unknown(t *testing.T) {
	store, err := NewPromptStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Load("nonexistent")

	assert.Error(t, err)
}

func TestPromptStore_CachesUntilReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "answerer.txt")
	require.NoError(t, os.WriteFile(path, []byte("first"), 0600))

	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	got, err := store.Load(driven.PromptAnswerer)
	require.NoError(t, err)
	assert.Equal(t, "first", got)

	require.NoError(t, os.WriteFile(path, []byte("second"), 0600))
	got, err = store.Load(driven.PromptAnswerer)
	require.NoError(t, err)
	assert.Equal(t, "first", got)

	store.Reload()
	got, err = store.Load(driven.PromptAnswerer)
	require.NoError(t, err)
	assert.Equal(t, "second", got)
}

func TestPromptStore_ConcurrentLoad(t *testing.T) {
	store, err := NewPromptStore(t.TempDir())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if i%5 == 0 {
				store.Reload()
			}
			p, err := store.Load(driven.PromptTripleExtraction)
			assert.NoError(t, err)
			assert.NotEmpty(t, p)
		}()
	}
	wg.Wait()
}

func TestPromptStore_Watch_ReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done, err := store.Watch(ctx)
	require.NoError(t, err)

	_, err = store.Load(driven.PromptAnswerer)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "answerer.txt"), []byte("edited"), 0600))

	assert.Eventually(t, func() bool {
		got, err := store.Load(driven.PromptAnswerer)
		return err == nil && got == "edited"
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestPromptStore_Watch_MissingParent(t *testing.T) {
	parent := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(parent, nil, 0600))

	store, err := NewPromptStore(filepath.Join(parent, "prompts"))
	require.NoError(t, err)

	_, err = store.Watch(context.Background())
	assert.Error(t, err)
}
