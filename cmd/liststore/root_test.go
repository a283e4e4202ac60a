package main

import (
	"testing"

	"github.com/spf13/cobra"

	"github.com/five82/liststore/internal/config"
)

func newTestCmd(t *testing.T, args ...string) (*cobra.Command, flagValues) {
	t.Helper()
	var v flagValues
	cmd := &cobra.Command{Use: "test"}
	f := cmd.Flags()
	f.StringVar(&v.source, "source", "", "")
	f.StringVar(&v.dir, "dir", "", "")
	f.StringVar(&v.dsn, "dsn", "", "")
	f.IntVar(&v.cacheMax, "cache-max", 0, "")
	f.BoolVar(&v.syncFetch, "sync-fetch", false, "")
	f.BoolVar(&v.sorted, "sorted", false, "")
	f.StringVar(&v.logFile, "log-file", "", "")
	if err := f.Parse(args); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	return cmd, v
}

func TestApplyFlags_OnlyChangedFlags(t *testing.T) {
	cmd, v := newTestCmd(t)
	cfg := config.Default()
	cfg.CacheMax = 10
	cfg.Sorted = true

	applyFlags(cmd, v, &cfg)

	if cfg.CacheMax != 10 || !cfg.Sorted || !cfg.FetchThread {
		t.Fatalf("unset flags changed config: %+v", cfg)
	}
}

func TestApplyFlags_Overrides(t *testing.T) {
	cmd, v := newTestCmd(t, "--dsn", "user:pw@/db", "--cache-max", "7", "--sync-fetch", "--sorted=false")
	cfg := config.Default()
	cfg.Sorted = true

	applyFlags(cmd, v, &cfg)

	if cfg.Source != config.SourceDB {
		t.Fatalf("Source = %q, want %q", cfg.Source, config.SourceDB)
	}
	if cfg.DB.DSN != "user:pw@/db" {
		t.Fatalf("DSN = %q, want user:pw@/db", cfg.DB.DSN)
	}
	if cfg.CacheMax != 7 {
		t.Fatalf("CacheMax = %d, want 7", cfg.CacheMax)
	}
	if cfg.FetchThread {
		t.Fatalf("FetchThread = true, want false with --sync-fetch")
	}
	if cfg.Sorted {
		t.Fatalf("Sorted = true, want false")
	}
}

func TestApplyFlags_ExplicitSourceWins(t *testing.T) {
	cmd, v := newTestCmd(t, "--dir", "/srv/data", "--source", "db")
	cfg := config.Default()

	applyFlags(cmd, v, &cfg)

	if cfg.Source != config.SourceDB {
		t.Fatalf("Source = %q, want %q", cfg.Source, config.SourceDB)
	}
	if cfg.Dir.Path != "/srv/data" {
		t.Fatalf("Dir.Path = %q, want /srv/data", cfg.Dir.Path)
	}
}
