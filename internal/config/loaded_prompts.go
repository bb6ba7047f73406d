package config

import (
	"sync"
)

// LoadedPrompts holds prompt content read from files for one scope
type LoadedPrompts struct {
	SystemPrompt string
	UserPrompt   string
}

// promptStore keeps file-loaded prompts behind a lock so the watcher can swap them at runtime
type promptStore struct {
	mu       sync.RWMutex
	global   LoadedPrompts
	generate LoadedPrompts
}

var loadedPrompts promptStore

// GetGeneratePrompts returns the file-loaded prompts for persona generation.
// Operation-level files win over global files field by field.
func GetGeneratePrompts() LoadedPrompts {
	loadedPrompts.mu.RLock()
	defer loadedPrompts.mu.RUnlock()

	result := loadedPrompts.generate
	if result.SystemPrompt == "" {
		result.SystemPrompt = loadedPrompts.global.SystemPrompt
	}
	if result.UserPrompt == "" {
		result.UserPrompt = loadedPrompts.global.UserPrompt
	}
	return result
}

func setLoadedPrompts(global, generate LoadedPrompts) {
	loadedPrompts.mu.Lock()
	defer loadedPrompts.mu.Unlock()
	loadedPrompts.global = global
	loadedPrompts.generate = generate
}
