package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/five82/liststore/internal/app"
	"github.com/five82/liststore/internal/config"
	"github.com/five82/liststore/internal/logging"
)

// flagValues holds command-line overrides. Only flags the user set are
// applied over the config file.
type flagValues struct {
	configPath string
	prefsPath  string
	source     string
	dir        string
	dsn        string
	cacheMax   int
	syncFetch  bool
	sorted     bool
	logFile    string
}

var flags flagValues

// RootCmd starts the list browser.
var RootCmd = &cobra.Command{
	Use:   "liststore",
	Short: "Browse large listings with a bounded fetch cache",
	Long: `liststore lists a directory or a MySQL table in a terminal list view.
Only rows on screen are fetched; a bounded cache keeps the most recently
shown ones and evicts the rest.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()
		return app.Run(ctx, app.Options{
			ConfigPath: flags.configPath,
			PrefsPath:  flags.prefsPath,
			Apply:      func(cfg *config.Config) { applyFlags(cmd, flags, cfg) },
		})
	},
}

func init() {
	f := RootCmd.Flags()
	f.StringVar(&flags.configPath, "config", "", "config file (default ~/.config/liststore/config.toml)")
	f.StringVar(&flags.prefsPath, "prefs", "", "preferences file (default ~/.config/liststore/prefs.toml)")
	f.StringVar(&flags.source, "source", "", "listing source: dir or db")
	f.StringVar(&flags.dir, "dir", "", "directory to list (implies --source dir)")
	f.StringVar(&flags.dsn, "dsn", "", "MySQL DSN to list (implies --source db)")
	f.IntVar(&flags.cacheMax, "cache-max", 0, "maximum number of realized rows")
	f.BoolVar(&flags.syncFetch, "sync-fetch", false, "fetch on the UI loop instead of worker goroutines")
	f.BoolVar(&flags.sorted, "sorted", false, "sort the whole listing before showing it")
	f.StringVar(&flags.logFile, "log-file", "", "log file path")
}

// applyFlags copies the flags the user set onto cfg.
func applyFlags(cmd *cobra.Command, v flagValues, cfg *config.Config) {
	changed := cmd.Flags().Changed
	if changed("dir") {
		cfg.Dir.Path = config.ExpandPath(v.dir)
		cfg.Source = config.SourceDir
	}
	if changed("dsn") {
		cfg.DB.DSN = v.dsn
		cfg.Source = config.SourceDB
	}
	if changed("source") {
		cfg.Source = strings.ToLower(strings.TrimSpace(v.source))
	}
	if changed("cache-max") {
		cfg.CacheMax = v.cacheMax
	}
	if changed("sync-fetch") {
		cfg.FetchThread = !v.syncFetch
	}
	if changed("sorted") {
		cfg.Sorted = v.sorted
	}
	if changed("log-file") {
		cfg.Log.File = config.ExpandPath(v.logFile)
	}
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := RootCmd.ExecuteContext(context.Background()); err != nil {
		l := logging.Console()
		l.Error("command failed", zap.Error(err))
		_ = l.Sync()
		os.Exit(1)
	}
}
