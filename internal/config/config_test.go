package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.CatchAllCategory != "Прочее" {
		t.Errorf("catch-all default wrong: %q", cfg.CatchAllCategory)
	}
	if cfg.PendingTTL() != 10*time.Minute {
		t.Errorf("pending TTL default wrong: %v", cfg.PendingTTL())
	}
	if cfg.ThinkingChars != 2500 || cfg.ThinkingSeconds != 120 {
		t.Errorf("thinking thresholds wrong: %d %d", cfg.ThinkingChars, cfg.ThinkingSeconds)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
db_path: /tmp/test.db
router_model: gemini-2.5-pro
allowed_user_ids: [1, 2]
thinking_chars: 1000
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DBPath != "/tmp/test.db" || cfg.RouterModel != "gemini-2.5-pro" {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if len(cfg.AllowedUserIDs) != 2 {
		t.Errorf("allow list not parsed: %v", cfg.AllowedUserIDs)
	}
	if cfg.ThinkingChars != 1000 {
		t.Errorf("override lost: %d", cfg.ThinkingChars)
	}
	if cfg.ExtractModel != "gemini-2.5-flash" {
		t.Errorf("unset keys must keep defaults: %q", cfg.ExtractModel)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("gemini_api_key: from-file\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("GEMINI_API_KEY", "from-env")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.GeminiAPIKey != "from-env" {
		t.Errorf("env override lost: %q", cfg.GeminiAPIKey)
	}
}

func TestValidation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("thinking_chars: -1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("invalid threshold must fail validation")
	}
}

func TestMissingFileErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("explicit missing config path must error")
	}
}
