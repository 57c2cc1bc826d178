package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/ras-cli/internal/core/ports/driven"
	"github.com/custodia-labs/ras-cli/internal/logger"
)

// Ensure PromptStore implements the interface.
var _ driven.PromptStore = (*PromptStore)(nil)

// reloadDebounce coalesces bursts of editor writes into one reload.
const reloadDebounce = 300 * time.Millisecond

var promptLog = logger.New("prompts")

// PromptStore loads LLM prompts from user-editable files on disk.
// Prompts are loaded from a configurable directory with fallback to embedded defaults.
//
// The store uses lazy initialisation - files are only created when first accessed,
// not in the constructor.
type PromptStore struct {
	mu        sync.RWMutex
	promptDir string
	cache     map[string]string
	initOnce  sync.Once
	initErr   error
}

// defaultPrompts contains embedded default prompts.
// These are used when user files don't exist and as the initial content for new files.
//
//nolint:lll // Prompt content is intentionally long and should not be wrapped.
var defaultPrompts = map[string]string{
	driven.PromptTripleExtraction: `Extract the factual knowledge in the passage below as (subject, predicate, object) triples.
Use short noun phrases for subjects and objects and resolve pronouns to the entity they refer to.
Output the triples separated by commas, for example: (Jaws, directed by, Steven Spielberg), (Jaws, released in, 1975)
Output nothing else.

Passage:
%s

Triples:`,

	driven.PromptAnswerer: `You are given a question and, for each sub-question that was searched, the knowledge graph triples retrieved for it.
Answer the question using the retrieved graph information. If the information is insufficient, answer from your own knowledge.
Give only the answer, as briefly as the question allows.`,
}

// DefaultPrompt returns the built-in template for name.
func DefaultPrompt(name string) (string, bool) {
	p, ok := defaultPrompts[name]
	return p, ok
}

// NewPromptStore creates a new file-based prompt store.
// If promptDir is empty, defaults to <ras home>/prompts/.
func NewPromptStore(promptDir string) (*PromptStore, error) {
	if promptDir == "" {
		home, err := HomeDir()
		if err != nil {
			return nil, err
		}
		promptDir = filepath.Join(home, "prompts")
	}

	return &PromptStore{
		promptDir: promptDir,
		cache:     make(map[string]string),
	}, nil
}

// Load returns the prompt template for the given name.
// On first call, initialises the prompt directory and creates default files.
// Falls back to the embedded default if the file is missing or empty.
func (s *PromptStore) Load(name string) (string, error) {
	s.initOnce.Do(s.initialise)
	if s.initErr != nil {
		if prompt, ok := defaultPrompts[name]; ok {
			return prompt, nil
		}
		return "", fmt.Errorf("prompt store init failed: %w", s.initErr)
	}

	s.mu.RLock()
	if prompt, ok := s.cache[name]; ok {
		s.mu.RUnlock()
		return prompt, nil
	}
	s.mu.RUnlock()

	// No lock held during I/O.
	prompt, err := s.loadFromFile(name)
	if err != nil || prompt == "" {
		if defaultPrompt, ok := defaultPrompts[name]; ok {
			return defaultPrompt, nil
		}
		if err == nil {
			err = fmt.Errorf("prompt file is empty")
		}
		return "", fmt.Errorf("load prompt %q: %w", name, err)
	}

	s.mu.Lock()
	if cached, ok := s.cache[name]; ok {
		prompt = cached
	} else {
		s.cache[name] = prompt
	}
	s.mu.Unlock()

	return prompt, nil
}

// Reload clears the prompt cache, forcing fresh loads from disk.
func (s *PromptStore) Reload() {
	s.mu.Lock()
	s.cache = make(map[string]string)
	s.mu.Unlock()
}

// Dir returns the prompt directory path.
func (s *PromptStore) Dir() string {
	return s.promptDir
}

// Watch reloads the cache whenever a prompt file changes until ctx is
// done. Bursts of writes are debounced. The returned channel is closed
// when watching stops.
func (s *PromptStore) Watch(ctx context.Context) (<-chan struct{}, error) {
	s.initOnce.Do(s.initialise)
	if s.initErr != nil {
		return nil, s.initErr
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create prompt watcher: %w", err)
	}
	if err := w.Add(s.promptDir); err != nil {
		w.Close()
		return nil, fmt.Errorf("watch %s: %w", s.promptDir, err)
	}

	done := make(chan struct{})
	go s.watchLoop(ctx, w, done)
	promptLog.Debug("watching prompts", "dir", s.promptDir)
	return done, nil
}

func (s *PromptStore) watchLoop(ctx context.Context, w *fsnotify.Watcher, done chan<- struct{}) {
	defer close(done)
	defer w.Close()

	var debounce *time.Timer
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.Events:
			if !ok {
				return
			}
			if !strings.HasSuffix(event.Name, ".txt") {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(reloadDebounce, func() {
				s.Reload()
				promptLog.Info("prompts reloaded", "dir", s.promptDir)
			})

		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			promptLog.Warn("prompt watcher error", "error", err)
		}
	}
}

// initialise creates the prompt directory and default files.
// Called once via sync.Once.
func (s *PromptStore) initialise() {
	if err := os.MkdirAll(s.promptDir, 0700); err != nil {
		s.initErr = fmt.Errorf("create prompt directory: %w", err)
		return
	}

	// Existing files are never overwritten.
	for name, content := range defaultPrompts {
		path := filepath.Join(s.promptDir, name+".txt")
		if _, err := os.Stat(path); os.IsNotExist(err) {
			if err := os.WriteFile(path, []byte(content), 0600); err != nil {
				s.initErr = fmt.Errorf("create default prompt %q: %w", name, err)
				return
			}
		}
	}

	if err := s.createReadme(); err != nil {
		s.initErr = err
	}
}

// loadFromFile reads a prompt from disk.
func (s *PromptStore) loadFromFile(name string) (string, error) {
	data, err := os.ReadFile(filepath.Join(s.promptDir, name+".txt"))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// createReadme writes a README file explaining the prompts directory.
func (s *PromptStore) createReadme() error {
	path := filepath.Join(s.promptDir, "README.md")
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		return nil // Already exists or stat error (ignore)
	}

	content := `# RAS Prompts

This directory contains the prompts used by the LLM-backed pipeline stages.

## Files

- ` + "`triple_extraction.txt`" + ` - Turns one retrieved passage into (subject, predicate, object) triples
- ` + "`answerer.txt`" + ` - Instruction placed before the retrieved graph information and the question

## Customisation

Edit any file to change the behaviour of a stage. ` + "`ras mcp`" + ` picks up edits
while running; other commands read the files at start.

## Format Placeholders

` + "`triple_extraction.txt`" + ` must contain exactly one ` + "`%s`" + `, replaced by the passage.
Delete a file to restore its default.
`
	return os.WriteFile(path, []byte(content), 0600)
}
