package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/five82/liststore/internal/config"
	"github.com/five82/liststore/internal/listing"
	"github.com/five82/liststore/internal/logging"
	"github.com/five82/liststore/internal/loop"
	"github.com/five82/liststore/internal/prefs"
	"github.com/five82/liststore/internal/state"
	"github.com/five82/liststore/internal/store"
	"github.com/five82/liststore/internal/ui"
)

// Options configure the liststore application.
type Options struct {
	ConfigPath string
	PrefsPath  string // empty uses default ~/.config/liststore/prefs.toml
	// Apply overrides loaded settings, typically with command-line flags. It
	// runs after preferences are applied and before validation.
	Apply func(*config.Config)
}

// Run boots the liststore TUI until the context is cancelled or the user
// quits.
func Run(ctx context.Context, opts Options) error {
	cfg, err := resolveConfig(opts)
	if err != nil {
		return err
	}

	logger, err := logging.New(logging.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		File:   cfg.Log.File,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	src, err := listing.Open(cfg, logger.Named("listing"))
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer func() {
		if err := src.Close(); err != nil {
			logger.Warn("close source failed", zap.Error(err))
		}
	}()

	q := loop.NewQueue()
	defer q.Close()

	sel := &ui.Selection{}
	callbacks := listing.Callbacks(src)
	callbacks.Select = sel.Set

	st, err := store.New(store.Options{
		Config:    storeConfig(cfg),
		Callbacks: callbacks,
		Loop:      q,
		Logger:    logger.Named("store"),
	})
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}

	progress := &state.Store{}
	producer := &listing.Producer{
		Source:   src,
		Store:    st,
		Loop:     q,
		Progress: progress,
		Sorted:   cfg.Sorted,
		Log:      logger.Named("listing"),
	}

	logger.Info("starting",
		zap.String("source", src.Name()),
		zap.Int("cache_max", cfg.CacheMax),
		zap.Bool("fetch_thread", cfg.FetchThread),
		zap.Bool("sorted", cfg.Sorted))

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(runCtx)

	g.Go(func() error {
		return runProducer(gctx, producer, progress, logger, retryPolicy{})
	})
	g.Go(func() error {
		// Quitting the UI stops the producer too.
		defer cancel()
		return ui.Run(ui.Options{
			Context:   gctx,
			Store:     st,
			Loop:      q,
			Progress:  progress,
			Selection: sel,
			LogPath:   cfg.Log.File,
			PollTick:  time.Duration(cfg.PollMillis) * time.Millisecond,
			ThemeName: prefs.Load(opts.PrefsPath).Theme,
			PrefsPath: opts.PrefsPath,
			Logger:    logger.Named("ui"),
		})
	})

	err = g.Wait()
	// The UI loop has exited, so this goroutine now owns the store.
	st.Close()
	logger.Info("stopped", zap.Error(err))
	return err
}

// resolveConfig layers the config file, saved preferences and overrides.
func resolveConfig(opts Options) (config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	if p := prefs.Load(opts.PrefsPath); p.CacheMax > 0 {
		cfg.CacheMax = p.CacheMax
	}
	if opts.Apply != nil {
		opts.Apply(&cfg)
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func storeConfig(cfg config.Config) store.Config {
	sc := store.Config{
		CacheMax:    cfg.CacheMax,
		FetchThread: cfg.FetchThread,
		TiePolicy:   store.TieSkip,
		StalePolicy: store.StaleCommit,
	}
	if cfg.TiePolicy == "replace" {
		sc.TiePolicy = store.TieReplace
	}
	if cfg.StalePolicy == "drop" {
		sc.StalePolicy = store.StaleDrop
	}
	return sc
}
