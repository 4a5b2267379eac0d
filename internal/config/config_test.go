package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseDefaultConfig(t *testing.T) {
	cfg, err := parse(DefaultConfigYAML)
	if err != nil {
		t.Fatalf("failed to parse default config: %v", err)
	}

	if cfg.Engine.SimilarityThreshold != 0.7 {
		t.Errorf("expected threshold 0.7, got %v", cfg.Engine.SimilarityThreshold)
	}
	if cfg.Engine.WindowDays != 30 || cfg.Engine.WindowRows != 100 {
		t.Errorf("unexpected window: %d days / %d rows", cfg.Engine.WindowDays, cfg.Engine.WindowRows)
	}
	if cfg.Engine.OnStoreError != "fail_open" {
		t.Errorf("expected fail_open, got %q", cfg.Engine.OnStoreError)
	}
	if len(cfg.Producer.Fallbacks) == 0 {
		t.Error("expected fallback posts to be populated")
	}
	if cfg.Server.Port != 8600 {
		t.Errorf("expected port 8600, got %d", cfg.Server.Port)
	}
}

func TestParseMinimalConfig(t *testing.T) {
	data := []byte(`
store:
  path: /tmp/test.db
server:
  port: 9000
`)
	cfg, err := parse(data)
	if err != nil {
		t.Fatalf("failed to parse minimal config: %v", err)
	}

	if cfg.StorePath() != "/tmp/test.db" {
		t.Errorf("expected explicit store path, got %q", cfg.StorePath())
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.Server.Port)
	}
	// Unset fields keep defaults.
	if cfg.Engine.RetentionDays != 90 {
		t.Errorf("expected retention 90, got %d", cfg.Engine.RetentionDays)
	}
	if cfg.Producer.MaxAttempts != 12 {
		t.Errorf("expected 12 attempts, got %d", cfg.Producer.MaxAttempts)
	}
}

func TestParseRejectsBadPolicy(t *testing.T) {
	_, err := parse([]byte("engine:\n  on_store_error: explode\n"))
	if err == nil {
		t.Fatal("expected error for unknown on_store_error value")
	}
}

func TestParseRejectsBadThreshold(t *testing.T) {
	_, err := parse([]byte("engine:\n  similarity_threshold: 1.5\n"))
	if err == nil {
		t.Fatal("expected error for out-of-range threshold")
	}
}

func TestResolveConfigPathExplicit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 9000\n"), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	resolved, err := ResolveConfigPath(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolved != path {
		t.Errorf("expected %q, got %q", path, resolved)
	}
}

func TestResolveConfigPathMissing(t *testing.T) {
	_, err := ResolveConfigPath(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("expected error for missing explicit config")
	}
}

func TestDefaultStorePathUsesDataDir(t *testing.T) {
	cfg, err := parse(DefaultConfigYAML)
	if err != nil {
		t.Fatalf("failed to parse default config: %v", err)
	}
	if cfg.StorePath() != filepath.Join(DataDir(), "contentguard.db") {
		t.Errorf("unexpected default store path: %q", cfg.StorePath())
	}
}
