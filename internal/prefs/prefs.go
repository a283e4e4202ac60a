// Package prefs persists the choices a user makes inside the list view, so
// they survive a restart. Preferences are stored in
// ~/.config/liststore/prefs.toml, separate from the hand-edited config.
package prefs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/five82/liststore/internal/config"
)

// Prefs holds user preferences for liststore.
type Prefs struct {
	Theme string `toml:"theme"`
	// CacheMax is the last cache bound chosen with +/-. Zero defers to the
	// config file.
	CacheMax int `toml:"cache_max,omitempty"`
}

const (
	defaultPrefsPath = "~/.config/liststore/prefs.toml"
	defaultTheme     = "Nightfox"
)

// DefaultPath returns the default preferences file path.
func DefaultPath() string {
	return defaultPrefsPath
}

// Load reads preferences from path. Missing or unreadable files yield the
// defaults; preferences never block startup.
func Load(path string) Prefs {
	prefs := Prefs{Theme: defaultTheme}

	bytes, err := os.ReadFile(resolvePath(path))
	if err != nil {
		return prefs
	}
	if err := toml.Unmarshal(bytes, &prefs); err != nil {
		return Prefs{Theme: defaultTheme}
	}

	if strings.TrimSpace(prefs.Theme) == "" {
		prefs.Theme = defaultTheme
	}
	if prefs.CacheMax < 0 {
		prefs.CacheMax = 0
	}
	return prefs
}

// Save writes preferences to path, creating directories as needed.
func Save(path string, p Prefs) error {
	resolved := resolvePath(path)

	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return fmt.Errorf("create prefs dir: %w", err)
	}

	bytes, err := toml.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal prefs: %w", err)
	}

	tmp := resolved + ".tmp"
	if err := os.WriteFile(tmp, bytes, 0o644); err != nil {
		return fmt.Errorf("write prefs: %w", err)
	}
	if err := os.Rename(tmp, resolved); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace prefs: %w", err)
	}
	return nil
}

// Exists reports whether a preferences file is present at path.
func Exists(path string) bool {
	_, err := os.Stat(resolvePath(path))
	return !errors.Is(err, os.ErrNotExist)
}

func resolvePath(path string) string {
	if strings.TrimSpace(path) == "" {
		return config.ExpandPath(defaultPrefsPath)
	}
	return config.ExpandPath(path)
}
