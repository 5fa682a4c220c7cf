package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// loadSystemPromptFile replaces AI.SystemPrompt with the contents of AI.SystemPromptFile
// when a file is configured. An inline prompt and a file together is a configuration error.
func (c *Config) loadSystemPromptFile() error {
	if c.AI.SystemPromptFile == "" {
		return nil
	}
	if strings.TrimSpace(c.AI.SystemPrompt) != "" {
		return fmt.Errorf("cannot specify both ai.systemPrompt and ai.systemPromptFile - choose one")
	}

	content, err := loadPromptFromFile(c.AI.SystemPromptFile)
	if err != nil {
		return err
	}
	c.AI.SystemPrompt = content
	return nil
}

// loadPromptFromFile reads a prompt file, rejecting missing or blank files
func loadPromptFromFile(filePath string) (string, error) {
	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve absolute path for prompt file '%s': %w", filePath, err)
	}

	if _, err := os.Stat(absPath); os.IsNotExist(err) {
		return "", fmt.Errorf("prompt file not found: %s", absPath)
	}

	content, err := os.ReadFile(absPath)
	if err != nil {
		return "", fmt.Errorf("failed to read prompt file '%s': %w", absPath, err)
	}

	trimmed := strings.TrimSpace(string(content))
	if trimmed == "" {
		return "", fmt.Errorf("prompt file '%s' is empty", absPath)
	}

	log.Printf("[CONFIG] Loaded advisor system prompt from file: %s (%d characters)", absPath, len(trimmed))
	return trimmed, nil
}
