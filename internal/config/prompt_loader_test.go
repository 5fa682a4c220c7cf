package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadSystemPromptFile(t *testing.T) {
	tempDir := t.TempDir()
	promptFile := filepath.Join(tempDir, "advisor.md")
	content := "You coach job seekers on resume wording."

	if err := os.WriteFile(promptFile, []byte("\n"+content+"\n\n"), 0600); err != nil {
		t.Fatalf("Failed to create prompt file: %v", err)
	}

	config := &Config{AI: AIConfig{SystemPromptFile: promptFile}}
	if err := config.loadSystemPromptFile(); err != nil {
		t.Fatalf("Failed to load prompt: %v", err)
	}

	if config.AI.SystemPrompt != content {
		t.Errorf("Expected prompt %q, got %q", content, config.AI.SystemPrompt)
	}
}

func TestLoadSystemPromptFile_NoFile(t *testing.T) {
	config := &Config{AI: AIConfig{SystemPrompt: "inline"}}
	if err := config.loadSystemPromptFile(); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if config.AI.SystemPrompt != "inline" {
		t.Errorf("Inline prompt should be untouched, got %q", config.AI.SystemPrompt)
	}
}

func TestLoadSystemPromptFile_Errors(t *testing.T) {
	tempDir := t.TempDir()
	emptyFile := filepath.Join(tempDir, "empty.md")
	if err := os.WriteFile(emptyFile, []byte("   \n"), 0600); err != nil {
		t.Fatalf("Failed to create empty file: %v", err)
	}

	tests := []struct {
		name string
		ai   AIConfig
	}{
		{name: "missing file", ai: AIConfig{SystemPromptFile: filepath.Join(tempDir, "missing.md")}},
		{name: "empty file", ai: AIConfig{SystemPromptFile: emptyFile}},
		{name: "inline and file", ai: AIConfig{SystemPrompt: "inline", SystemPromptFile: emptyFile}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := &Config{AI: tt.ai}
			if err := config.loadSystemPromptFile(); err == nil {
				t.Error("Expected an error")
			}
		})
	}
}
