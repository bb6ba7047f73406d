package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// promptFile names one configurable prompt file
type promptFile struct {
	path      string
	scope     string // "global" or "generate"
	promptTyp string // "system" or "user"
}

// promptFiles lists every configured prompt file path
func (c *Config) promptFiles() []promptFile {
	candidates := []promptFile{
		{c.AI.CustomPrompts.SystemPromptFile, "global", "system"},
		{c.AI.CustomPrompts.UserPromptFile, "global", "user"},
		{c.AI.Generate.CustomPrompts.SystemPromptFile, "generate", "system"},
		{c.AI.Generate.CustomPrompts.UserPromptFile, "generate", "user"},
	}
	files := candidates[:0]
	for _, f := range candidates {
		if f.path != "" {
			files = append(files, f)
		}
	}
	return files
}

// loadPromptsFromFiles reads every configured prompt file and publishes the result
func (c *Config) loadPromptsFromFiles() error {
	log.Println("[CONFIG] Starting custom prompt loading from files")

	var global, generate LoadedPrompts
	for _, f := range c.promptFiles() {
		content, err := loadPromptFromFile(f.path, f.promptTyp, f.scope)
		if err != nil {
			return err
		}
		target := &global
		if f.scope == "generate" {
			target = &generate
		}
		if f.promptTyp == "system" {
			target.SystemPrompt = content
		} else {
			target.UserPrompt = content
		}
	}
	setLoadedPrompts(global, generate)

	c.logPromptLoadingSummary(global, generate)
	return nil
}

// loadPromptFromFile loads a prompt from a file, rejecting empty content
func loadPromptFromFile(filePath, promptType, scope string) (string, error) {
	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve absolute path for %s %s prompt file '%s': %w", scope, promptType, filePath, err)
	}

	if _, err := os.Stat(absPath); os.IsNotExist(err) {
		return "", fmt.Errorf("%s %s prompt file not found: %s", scope, promptType, absPath)
	}

	content, err := os.ReadFile(absPath)
	if err != nil {
		return "", fmt.Errorf("failed to read %s %s prompt file '%s': %w", scope, promptType, absPath, err)
	}

	trimmedContent := strings.TrimSpace(string(content))
	if trimmedContent == "" {
		return "", fmt.Errorf("%s %s prompt file '%s' is empty", scope, promptType, absPath)
	}

	log.Printf("[CONFIG] Successfully loaded %s %s prompt from file: %s (%d characters)",
		scope, promptType, absPath, len(trimmedContent))

	return trimmedContent, nil
}

// validatePromptFiles validates that prompt files exist before loading
func (c *Config) validatePromptFiles() error {
	var validationErrors []string

	for _, f := range c.promptFiles() {
		absPath, err := filepath.Abs(f.path)
		if err != nil {
			validationErrors = append(validationErrors, fmt.Sprintf("invalid path for %s %s prompt: %s", f.scope, f.promptTyp, f.path))
			continue
		}
		if _, err := os.Stat(absPath); os.IsNotExist(err) {
			validationErrors = append(validationErrors, fmt.Sprintf("%s %s prompt file not found: %s", f.scope, f.promptTyp, absPath))
		}
	}

	if len(validationErrors) > 0 {
		return fmt.Errorf("prompt file validation failed:\n%s", strings.Join(validationErrors, "\n"))
	}

	return nil
}

// logPromptLoadingSummary logs which prompts were loaded from files
func (c *Config) logPromptLoadingSummary(global, generate LoadedPrompts) {
	log.Println("[CONFIG] === Custom Prompt Loading Summary ===")

	checks := []struct {
		content string
		message string
	}{
		{global.SystemPrompt, "[CONFIG] Global system prompt: loaded from file"},
		{global.UserPrompt, "[CONFIG] Global user prompt: loaded from file"},
		{generate.SystemPrompt, "[CONFIG] Generate-specific system prompt: loaded from file"},
		{generate.UserPrompt, "[CONFIG] Generate-specific user prompt: loaded from file"},
	}

	count := 0
	for _, check := range checks {
		if check.content != "" {
			log.Println(check.message)
			count++
		}
	}

	if count == 0 {
		log.Println("[CONFIG] No custom prompts loaded - using built-in defaults")
	} else {
		log.Printf("[CONFIG] Total custom prompts loaded: %d", count)
	}
	log.Println("[CONFIG] ==========================================")
}
