package cmd

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/Re4zOon/repo-maintainer/config"
	"github.com/Re4zOon/repo-maintainer/internal/dashboard"
	"github.com/Re4zOon/repo-maintainer/internal/ledger"
	"github.com/Re4zOon/repo-maintainer/internal/log"
	"github.com/Re4zOon/repo-maintainer/internal/platform"
)

// NewCmdServe creates the serve command: run the pipeline on a cron
// schedule with live config reload and the optional dashboard.
func NewCmdServe(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the maintenance pipeline on a schedule",
		Long: `Runs the pipeline repeatedly on the cron schedule from the
configuration file. The file is watched and reloaded on change, and the
read-only dashboard is served when dashboard.addr is configured.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "log actions without sending emails, posting comments or archiving")
	cmd.Flags().BoolVar(&opts.Archive, "archive", false, "run the archive pass even when enable_auto_archive is off")
	return cmd
}

// configHolder guards the live configuration swapped in by the watcher.
type configHolder struct {
	mu  sync.RWMutex
	cfg *config.Config
}

func (h *configHolder) get() *config.Config {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.cfg
}

func (h *configHolder) set(cfg *config.Config) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cfg = cfg
}

func runServe(cmd *cobra.Command, opts *Options) error {
	log.Initialize(opts.Verbosity, os.Stderr)
	cmd.SilenceUsage = true

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}
	if cfg.Schedule == "" {
		return config.Errorf("serve requires a 'schedule' cron expression in the configuration")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := ledger.Open(cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer store.Close()

	holder := &configHolder{cfg: cfg}
	go watchConfig(ctx, opts.ConfigPath, holder)

	if cfg.Dashboard.Addr != "" {
		go func() {
			if err := dashboard.NewServer(store, cfg, version).Run(ctx, cfg.Dashboard.Addr); err != nil {
				log.Error().Err(err).Msg("dashboard server stopped")
			}
		}()
	}

	scheduler := cron.New()
	_, err = scheduler.AddFunc(cfg.Schedule, func() {
		current := holder.get()
		p, err := platform.NewFromConfig(ctx, current)
		if err != nil {
			log.Error().Err(err).Msg("skipping run, could not connect to platform")
			return
		}
		log.Info().Msg("starting scheduled run")
		runPipeline(ctx, current, p, store, opts, cmd.OutOrStdout())
	})
	if err != nil {
		return err
	}

	log.Info().Str("schedule", cfg.Schedule).Msg("scheduler started")
	scheduler.Start()
	<-ctx.Done()

	stopCtx := scheduler.Stop()
	<-stopCtx.Done()
	return nil
}

// watchConfig reloads the configuration whenever the file changes.
// Editors replace files rather than writing in place, so the watch is
// on the parent directory and filtered by name.
func watchConfig(ctx context.Context, path string, holder *configHolder) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Error().Err(err).Msg("config watcher unavailable, changes require a restart")
		return
	}
	defer watcher.Close()

	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		log.Error().Str("dir", dir).Err(err).Msg("could not watch config directory")
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != filepath.Clean(path) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			cfg, err := config.Load(path)
			if err != nil {
				log.Error().Err(err).Msg("config reload failed, keeping previous configuration")
				continue
			}
			holder.set(cfg)
			log.Info().Msg("configuration reloaded")
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Warn().Err(err).Msg("config watcher error")
		}
	}
}
