package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLIEnv(t)

	out, _, err := env.run(t, "config", "validate")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, env.configPath)

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err = env.run(t, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err := env.run(t, "config", "init", "--path", target); err == nil {
		t.Fatal("expected init to refuse overwriting without --overwrite")
	}
	if _, _, err := env.run(t, "config", "init", "--path", target, "--overwrite"); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}
}

func TestConfigShowPrintsEffectiveConfig(t *testing.T) {
	env := setupCLIEnv(t)
	out, _, err := env.run(t, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, "[webservice]")
	requireContains(t, out, env.cfg.Paths.ProxyDir)
}

func TestConfigImportLegacySettings(t *testing.T) {
	env := setupCLIEnv(t)
	dir := t.TempDir()
	legacy := filepath.Join(dir, "settings.json")
	blob := `{"originalPath": "/media/orig", "proxyPath": "/media/proxy", "networkSettings": {"ameIP": "10.0.0.2", "amePort": 8087}}`
	if err := os.WriteFile(legacy, []byte(blob), 0o644); err != nil {
		t.Fatal(err)
	}
	target := filepath.Join(dir, "imported.toml")
	out, _, err := env.run(t, "config", "import", legacy, "--path", target)
	if err != nil {
		t.Fatalf("config import: %v", err)
	}
	requireContains(t, out, "Imported")
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read imported config: %v", err)
	}
	requireContains(t, string(data), "10.0.0.2")
}
