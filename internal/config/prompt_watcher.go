package config

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"personakit/internal/errors"

	"github.com/fsnotify/fsnotify"
)

// PromptWatcher reloads prompt files when they change on disk.
// A reload that fails keeps the previously loaded prompts.
type PromptWatcher struct {
	mu sync.Mutex

	cfg           *Config
	files         []string
	fsWatcher     *fsnotify.Watcher
	debounceDelay time.Duration
	debounceTimer *time.Timer

	stopChan   chan struct{}
	reloadChan chan struct{}
	onReload   func()
	logger     *errors.Logger
	running    bool
}

// NewPromptWatcher creates a watcher over every prompt file cfg references.
// onReload is called after each successful reload and may be nil.
func NewPromptWatcher(cfg *Config, debounceDelay time.Duration, onReload func(), logger *errors.Logger) *PromptWatcher {
	if debounceDelay == 0 {
		debounceDelay = 500 * time.Millisecond
	}
	var files []string
	for _, f := range cfg.promptFiles() {
		if abs, err := filepath.Abs(f.path); err == nil {
			files = append(files, abs)
		}
	}
	return &PromptWatcher{
		cfg:           cfg,
		files:         files,
		debounceDelay: debounceDelay,
		stopChan:      make(chan struct{}),
		reloadChan:    make(chan struct{}, 1),
		onReload:      onReload,
		logger:        logger,
	}
}

// Files returns the absolute prompt file paths being watched
func (pw *PromptWatcher) Files() []string {
	return append([]string(nil), pw.files...)
}

// Start begins watching. Watching nothing is not an error.
func (pw *PromptWatcher) Start() error {
	pw.mu.Lock()
	defer pw.mu.Unlock()

	if pw.running {
		return fmt.Errorf("prompt watcher is already running")
	}
	if len(pw.files) == 0 {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create prompt file watcher: %w", err)
	}
	pw.fsWatcher = watcher

	// Directories are watched so editors that replace files atomically are caught
	dirs := make(map[string]bool)
	for _, file := range pw.files {
		dirs[filepath.Dir(file)] = true
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			pw.logger.Warn("Failed to watch prompt directory", "directory", dir, "error", err)
		}
	}

	pw.running = true
	go pw.watchLoop()

	pw.logger.Info("Prompt file watcher started", "files", pw.files, "debounce_delay", pw.debounceDelay)
	return nil
}

// Stop stops the watcher
func (pw *PromptWatcher) Stop() error {
	pw.mu.Lock()
	defer pw.mu.Unlock()

	if !pw.running {
		return nil
	}
	close(pw.stopChan)
	if pw.debounceTimer != nil {
		pw.debounceTimer.Stop()
	}
	pw.running = false

	if err := pw.fsWatcher.Close(); err != nil {
		pw.logger.LogError(err, "Failed to close prompt file watcher")
		return err
	}
	pw.logger.Info("Prompt file watcher stopped")
	return nil
}

func (pw *PromptWatcher) watchLoop() {
	for {
		select {
		case event, ok := <-pw.fsWatcher.Events:
			if !ok {
				return
			}
			if pw.isWatched(event) {
				pw.scheduleReload()
			}

		case err, ok := <-pw.fsWatcher.Errors:
			if !ok {
				return
			}
			pw.logger.LogError(err, "Prompt file watcher error")

		case <-pw.reloadChan:
			pw.reload()

		case <-pw.stopChan:
			return
		}
	}
}

func (pw *PromptWatcher) isWatched(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return false
	}
	name, err := filepath.Abs(event.Name)
	if err != nil {
		return false
	}
	for _, file := range pw.files {
		if name == file {
			return true
		}
	}
	return false
}

func (pw *PromptWatcher) scheduleReload() {
	pw.mu.Lock()
	defer pw.mu.Unlock()

	if pw.debounceTimer != nil {
		pw.debounceTimer.Stop()
	}
	pw.debounceTimer = time.AfterFunc(pw.debounceDelay, func() {
		select {
		case pw.reloadChan <- struct{}{}:
		default:
		}
	})
}

func (pw *PromptWatcher) reload() {
	if err := pw.cfg.loadPromptsFromFiles(); err != nil {
		pw.logger.LogError(err, "Prompt reload failed, keeping previous prompts")
		return
	}
	pw.logger.Info("Prompt files reloaded", "files", pw.files)
	if pw.onReload != nil {
		pw.onReload()
	}
}
