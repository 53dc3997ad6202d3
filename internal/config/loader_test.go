package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	loader := &Loader{
		filePath: filepath.Join(t.TempDir(), "config.json"),
	}

	cfg, err := loader.Load()
	if err != nil {
		t.Fatal(err)
	}

	if cfg.LLM.Provider != "openai" {
		t.Fatalf("expected openai, got %s", cfg.LLM.Provider)
	}
	if cfg.Agent.MaxTokens != 4096 {
		t.Fatalf("expected 4096, got %d", cfg.Agent.MaxTokens)
	}
	if !cfg.Scheduler.Enabled {
		t.Fatal("expected scheduler enabled by default")
	}
	if cfg.Memory.RetentionDays != 90 {
		t.Fatalf("expected 90 day retention, got %d", cfg.Memory.RetentionDays)
	}
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	loader := &Loader{filePath: path}

	cfg := Defaults()
	cfg.LLM.Provider = "anthropic"
	cfg.LLM.APIKey = "test-key"
	cfg.Scheduler.HeartbeatSecs = 5

	if err := loader.Save(cfg); err != nil {
		t.Fatal(err)
	}

	// Verify file exists
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Fatal("config file was not created")
	}

	// Load back
	loaded, err := loader.Load()
	if err != nil {
		t.Fatal(err)
	}

	if loaded.LLM.Provider != "anthropic" {
		t.Fatalf("expected anthropic, got %s", loaded.LLM.Provider)
	}
	if loaded.LLM.APIKey != "test-key" {
		t.Fatalf("expected test-key, got %s", loaded.LLM.APIKey)
	}
	if loaded.Scheduler.HeartbeatSecs != 5 {
		t.Fatalf("expected 5, got %d", loaded.Scheduler.HeartbeatSecs)
	}
}

func TestNewLoaderAt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")
	loader, err := NewLoaderAt(path)
	if err != nil {
		t.Fatal(err)
	}
	if loader.FilePath() != path {
		t.Fatalf("expected %s, got %s", path, loader.FilePath())
	}

	// Parent directory must exist so Save works
	if err := loader.Save(Defaults()); err != nil {
		t.Fatal(err)
	}
}
