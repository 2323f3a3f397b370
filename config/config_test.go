package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"TASKLIST_BACKEND", "TASKLIST_STORAGE", "TASKLIST_DATA_DIR", "TASKLIST_API_URL", "TASKLIST_LOG_LEVEL"} {
		t.Setenv(key, "")
	}
}

func TestLoad_MissingConfigFallsBackToDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	clearEnv(t)

	cfg, err := Load(filepath.Join(home, "does-not-exist.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Backend != BackendLocal || cfg.Storage != StorageFile {
		t.Fatalf("unexpected backend/storage %q/%q", cfg.Backend, cfg.Storage)
	}
	wantDir, err := expandPath(defaultDataDir)
	if err != nil {
		t.Fatalf("expandPath: %v", err)
	}
	if cfg.DataDir != wantDir {
		t.Fatalf("DataDir = %q, want %q", cfg.DataDir, wantDir)
	}
	if cfg.Log.File != filepath.Join(wantDir, logFileName) {
		t.Fatalf("Log.File = %q", cfg.Log.File)
	}
	if cfg.RequestTimeout != defaultTimeout {
		t.Fatalf("RequestTimeout = %v", cfg.RequestTimeout)
	}
}

func TestLoad_ParsesFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	clearEnv(t)

	path := writeConfig(t, `
backend = " Remote "
storage = "sqlite"
data_dir = "~/tasks"
api_url = "https://tasks.example.com/api"
request_timeout = "2s"

[log]
level = "debug"
format = "json"
max_size_mb = 1
max_backups = 0
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Backend != BackendRemote || cfg.Storage != StorageSQLite {
		t.Fatalf("unexpected backend/storage %q/%q", cfg.Backend, cfg.Storage)
	}
	if cfg.DataDir != filepath.Join(home, "tasks") {
		t.Fatalf("DataDir = %q, want it under HOME", cfg.DataDir)
	}
	if cfg.Log.File != filepath.Join(home, "tasks", logFileName) {
		t.Fatalf("log file should follow data_dir, got %q", cfg.Log.File)
	}
	if cfg.StatePath() != filepath.Join(home, "tasks", "tasklist.db") {
		t.Fatalf("StatePath = %q", cfg.StatePath())
	}
	if cfg.APIURL != "https://tasks.example.com/api" || cfg.RequestTimeout != 2*time.Second {
		t.Fatalf("unexpected api settings %q %v", cfg.APIURL, cfg.RequestTimeout)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" || cfg.Log.MaxSizeMB != 1 || cfg.Log.MaxBackups != 0 {
		t.Fatalf("unexpected log settings %+v", cfg.Log)
	}
}

func TestLoad_LogFileOff(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	clearEnv(t)

	cfg, err := Load(writeConfig(t, "[log]\nfile = \"off\"\n"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Log.File != "" {
		t.Fatalf("expected no log file, got %q", cfg.Log.File)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	clearEnv(t)
	t.Setenv("TASKLIST_BACKEND", "remote")
	t.Setenv("TASKLIST_STORAGE", "memory")
	t.Setenv("TASKLIST_API_URL", "http://127.0.0.1:9000/api")
	t.Setenv("TASKLIST_LOG_LEVEL", "WARN")
	t.Setenv("TASKLIST_DATA_DIR", filepath.Join(home, "env-data"))

	cfg, err := Load(writeConfig(t, `backend = "local"`))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Backend != BackendRemote || cfg.Storage != StorageMemory {
		t.Fatalf("env should win, got %q/%q", cfg.Backend, cfg.Storage)
	}
	if cfg.APIURL != "http://127.0.0.1:9000/api" || cfg.Log.Level != "warn" {
		t.Fatalf("unexpected overrides %q %q", cfg.APIURL, cfg.Log.Level)
	}
	if cfg.DataDir != filepath.Join(home, "env-data") || cfg.Log.File != filepath.Join(home, "env-data", logFileName) {
		t.Fatalf("unexpected data dir %q / log %q", cfg.DataDir, cfg.Log.File)
	}
}

func TestApply_FlagOverrides(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	clearEnv(t)

	cfg, err := Load(filepath.Join(home, "missing.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	cfg.Apply(Overrides{Backend: "REMOTE", DataDir: "~/tarefas"})

	wantDir := filepath.Join(home, "tarefas")
	if cfg.DataDir != wantDir {
		t.Fatalf("expected expanded data dir %q, got %q", wantDir, cfg.DataDir)
	}
	if want := filepath.Join(wantDir, "tasklist.log"); cfg.Log.File != want {
		t.Fatalf("expected log file to follow data dir, got %q", cfg.Log.File)
	}
	if cfg.Backend != BackendRemote || cfg.Storage != StorageFile {
		t.Fatalf("unexpected backend/storage %q/%q", cfg.Backend, cfg.Storage)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
}

func TestApply_KeepsExplicitLogFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	clearEnv(t)

	cfg, err := Load(writeConfig(t, "[log]\nfile = \"~/logs/app.log\"\n"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	cfg.Apply(Overrides{DataDir: "~/outro"})
	if want := filepath.Join(home, "logs", "app.log"); cfg.Log.File != want {
		t.Fatalf("explicit log file should stay at %q, got %q", want, cfg.Log.File)
	}
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	clearEnv(t)

	cases := map[string]string{
		"backend":  `backend = "cloud"`,
		"storage":  `storage = "redis"`,
		"api url":  "backend = \"remote\"\napi_url = \"not a url\"",
		"format":   "[log]\nformat = \"xml\"",
		"timeout":  `request_timeout = "soon"`,
		"negative": "[log]\nmax_backups = -1",
	}
	for name, body := range cases {
		if _, err := Load(writeConfig(t, body)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestLoad_BadTOML(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	clearEnv(t)

	_, err := Load(writeConfig(t, "backend = "))
	if err == nil || !strings.Contains(err.Error(), "parse config") {
		t.Fatalf("expected parse error, got %v", err)
	}
}
