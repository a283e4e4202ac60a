package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoad_MissingConfigFallsBackToDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, err := Load(filepath.Join(home, "does-not-exist.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.CacheMax != defaultCacheMax {
		t.Fatalf("CacheMax = %d, want %d", cfg.CacheMax, defaultCacheMax)
	}
	if !cfg.FetchThread {
		t.Fatalf("FetchThread = false, want true")
	}
	if cfg.Source != SourceDir {
		t.Fatalf("Source = %q, want %q", cfg.Source, SourceDir)
	}
	if cfg.DB.PageSize != defaultPageSize || cfg.DB.Table != defaultTable {
		t.Fatalf("DB = %#v, want page size %d table %q", cfg.DB, defaultPageSize, defaultTable)
	}

	wantLog, err := expandPath(defaultLogFile)
	if err != nil {
		t.Fatalf("expandPath(defaultLogFile) returned error: %v", err)
	}
	if cfg.Log.File != wantLog {
		t.Fatalf("Log.File = %q, want %q", cfg.Log.File, wantLog)
	}
}

func TestLoad_ParsesAndTrimsConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`
cache_max = 12
fetch_thread = false
sorted = true
tie_policy = "  Replace "
stale_policy = "drop"
source = "db"
poll_ms = 100

[dir]
path = "  ~/music  "
include_hidden = true

[db]
dsn = "  user:pw@tcp(localhost:3306)/app  "
table = "notes"
page_size = 50

[log]
level = "DEBUG"
format = "console"
file = "~/logs/ls.log"
`), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.CacheMax != 12 || cfg.FetchThread || !cfg.Sorted {
		t.Fatalf("core = %d/%v/%v, want 12/false/true", cfg.CacheMax, cfg.FetchThread, cfg.Sorted)
	}
	if cfg.TiePolicy != "replace" || cfg.StalePolicy != "drop" {
		t.Fatalf("policies = %q/%q, want replace/drop", cfg.TiePolicy, cfg.StalePolicy)
	}
	if cfg.PollMillis != 100 {
		t.Fatalf("PollMillis = %d, want 100", cfg.PollMillis)
	}
	if cfg.Dir.Path != filepath.Join(home, "music") || !cfg.Dir.IncludeHidden {
		t.Fatalf("Dir = %#v, want %q with hidden files", cfg.Dir, filepath.Join(home, "music"))
	}
	if cfg.DB.DSN != "user:pw@tcp(localhost:3306)/app" {
		t.Fatalf("DB.DSN = %q, want trimmed dsn", cfg.DB.DSN)
	}
	if cfg.DB.Table != "notes" || cfg.DB.PageSize != 50 {
		t.Fatalf("DB = %#v, want notes/50", cfg.DB)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "console" {
		t.Fatalf("Log = %#v, want debug/console", cfg.Log)
	}
	if !strings.HasPrefix(cfg.Log.File, home) {
		t.Fatalf("Log.File = %q, want it under HOME %q", cfg.Log.File, home)
	}
}

func TestLoad_EmptyValuesUseDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`
tie_policy = "   "
source = ""

[db]
table = ""
page_size = 0
`), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.TiePolicy != defaultTiePolicy {
		t.Fatalf("TiePolicy = %q, want %q", cfg.TiePolicy, defaultTiePolicy)
	}
	if cfg.Source != SourceDir {
		t.Fatalf("Source = %q, want %q", cfg.Source, SourceDir)
	}
	if cfg.DB.Table != defaultTable || cfg.DB.PageSize != defaultPageSize {
		t.Fatalf("DB = %#v, want defaults", cfg.DB)
	}
	if cfg.CacheMax != defaultCacheMax {
		t.Fatalf("CacheMax = %d, want %d", cfg.CacheMax, defaultCacheMax)
	}
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"cache max", `cache_max = 0`, "cache_max"},
		{"tie policy", `tie_policy = "merge"`, "tie_policy"},
		{"stale policy", `stale_policy = "keep"`, "stale_policy"},
		{"source", `source = "s3"`, "source"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte(tt.body), 0o600); err != nil {
				t.Fatalf("WriteFile: %v", err)
			}
			_, err := Load(path)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("Load error = %v, want it to mention %s", err, tt.want)
			}
		})
	}
}

func TestLoad_InvalidTOMLFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`cache_max = [`), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	_, err := Load(path)
	if err == nil {
		t.Fatalf("Load returned nil error, want parse error")
	}
	if !strings.Contains(err.Error(), "parse config") {
		t.Fatalf("Load error = %q, want it to mention parse config", err.Error())
	}
}

func TestExpandPath_ExpandsTildeAndReturnsAbs(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	got, err := expandPath("~/a/b")
	if err != nil {
		t.Fatalf("expandPath returned error: %v", err)
	}
	want := filepath.Join(home, "a/b")
	if got != want {
		t.Fatalf("expandPath = %q, want %q", got, want)
	}
	if exported := ExpandPath("~/a/b"); exported != want {
		t.Fatalf("ExpandPath = %q, want %q", exported, want)
	}
}

func TestExpandPath_EmptyErrors(t *testing.T) {
	if _, err := expandPath("   "); err == nil {
		t.Fatalf("expandPath returned nil error, want error")
	}
}
