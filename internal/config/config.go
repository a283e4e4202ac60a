package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

// Source kinds understood by the listing package.
const (
	SourceDir = "dir"
	SourceDB  = "db"
)

// Config captures every setting liststore reads from its config file.
type Config struct {
	CacheMax    int
	FetchThread bool
	Sorted      bool
	TiePolicy   string
	StalePolicy string
	PollMillis  int

	Source string
	Dir    DirConfig
	DB     DBConfig
	Log    LogConfig
}

// DirConfig selects the directory listed by the dir source.
type DirConfig struct {
	Path          string
	IncludeHidden bool
}

// DBConfig selects the table listed by the db source.
type DBConfig struct {
	DSN      string
	Table    string
	PageSize int
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level  string
	Format string
	File   string
}

const (
	defaultConfigPath  = "~/.config/liststore/config.toml"
	defaultLogFile     = "~/.local/state/liststore/liststore.log"
	defaultCacheMax    = 64
	defaultPageSize    = 200
	defaultTable       = "records"
	defaultPollMillis  = 250
	defaultTiePolicy   = "skip"
	defaultStalePolicy = "commit"
)

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		CacheMax:    defaultCacheMax,
		FetchThread: true,
		TiePolicy:   defaultTiePolicy,
		StalePolicy: defaultStalePolicy,
		PollMillis:  defaultPollMillis,
		Source:      SourceDir,
		Dir:         DirConfig{Path: mustExpand(".")},
		DB:          DBConfig{Table: defaultTable, PageSize: defaultPageSize},
		Log:         LogConfig{Level: "info", Format: "json", File: mustExpand(defaultLogFile)},
	}
}

// Load locates and parses the liststore config, falling back to defaults when missing.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var raw struct {
		CacheMax    *int   `toml:"cache_max"`
		FetchThread *bool  `toml:"fetch_thread"`
		Sorted      bool   `toml:"sorted"`
		TiePolicy   string `toml:"tie_policy"`
		StalePolicy string `toml:"stale_policy"`
		PollMillis  int    `toml:"poll_ms"`
		Source      string `toml:"source"`
		Dir         struct {
			Path          string `toml:"path"`
			IncludeHidden bool   `toml:"include_hidden"`
		} `toml:"dir"`
		DB struct {
			DSN      string `toml:"dsn"`
			Table    string `toml:"table"`
			PageSize int    `toml:"page_size"`
		} `toml:"db"`
		Log struct {
			Level  string `toml:"level"`
			Format string `toml:"format"`
			File   string `toml:"file"`
		} `toml:"log"`
	}
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if raw.CacheMax != nil {
		cfg.CacheMax = *raw.CacheMax
	}
	if raw.FetchThread != nil {
		cfg.FetchThread = *raw.FetchThread
	}
	cfg.Sorted = raw.Sorted
	if raw.PollMillis > 0 {
		cfg.PollMillis = raw.PollMillis
	}
	cfg.TiePolicy = orDefault(raw.TiePolicy, defaultTiePolicy)
	cfg.StalePolicy = orDefault(raw.StalePolicy, defaultStalePolicy)
	cfg.Source = orDefault(raw.Source, SourceDir)

	if dir := strings.TrimSpace(raw.Dir.Path); dir != "" {
		cfg.Dir.Path = mustExpand(dir)
	}
	cfg.Dir.IncludeHidden = raw.Dir.IncludeHidden

	cfg.DB.DSN = strings.TrimSpace(raw.DB.DSN)
	if table := strings.TrimSpace(raw.DB.Table); table != "" {
		cfg.DB.Table = table
	}
	if raw.DB.PageSize > 0 {
		cfg.DB.PageSize = raw.DB.PageSize
	}

	cfg.Log.Level = orDefault(raw.Log.Level, cfg.Log.Level)
	cfg.Log.Format = orDefault(raw.Log.Format, cfg.Log.Format)
	if file := strings.TrimSpace(raw.Log.File); file != "" {
		cfg.Log.File = mustExpand(file)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects values the rest of the program cannot act on.
func (c Config) Validate() error {
	if c.CacheMax < 1 {
		return fmt.Errorf("cache_max must be at least 1, got %d", c.CacheMax)
	}
	switch c.TiePolicy {
	case "skip", "replace":
	default:
		return fmt.Errorf("tie_policy must be skip or replace, got %q", c.TiePolicy)
	}
	switch c.StalePolicy {
	case "commit", "drop":
	default:
		return fmt.Errorf("stale_policy must be commit or drop, got %q", c.StalePolicy)
	}
	switch c.Source {
	case SourceDir, SourceDB:
	default:
		return fmt.Errorf("source must be %s or %s, got %q", SourceDir, SourceDB, c.Source)
	}
	return nil
}

// ExpandPath resolves a leading "~" and makes path absolute. Flag values go
// through it so they match paths read from the file.
func ExpandPath(path string) string {
	return mustExpand(path)
}

func orDefault(value, fallback string) string {
	if v := strings.ToLower(strings.TrimSpace(value)); v != "" {
		return v
	}
	return fallback
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
