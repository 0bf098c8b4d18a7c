package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Re4zOon/repo-maintainer/config"
	"github.com/Re4zOon/repo-maintainer/internal/archive"
	"github.com/Re4zOon/repo-maintainer/internal/comments"
	"github.com/Re4zOon/repo-maintainer/internal/ledger"
	"github.com/Re4zOon/repo-maintainer/internal/log"
	"github.com/Re4zOon/repo-maintainer/internal/messages"
	"github.com/Re4zOon/repo-maintainer/internal/notify"
	"github.com/Re4zOon/repo-maintainer/internal/platform"
	"github.com/Re4zOon/repo-maintainer/internal/stale"
)

// runOnce is the root command: load config, connect, run the pipeline
// a single time.
func runOnce(cmd *cobra.Command, opts *Options) error {
	log.Initialize(opts.Verbosity, os.Stderr)
	cmd.SilenceUsage = true

	ctx := cmd.Context()
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}

	p, err := platform.NewFromConfig(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", cfg.Platform, err)
	}

	store, err := ledger.Open(cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer store.Close()

	runPipeline(ctx, cfg, p, store, opts, cmd.OutOrStdout())
	return nil
}

// runPipeline executes the notification pass, then the reminder-comment
// and archive passes when enabled. Pass failures surface in summaries
// and logs; a partial run is still a useful run.
func runPipeline(ctx context.Context, cfg *config.Config, p platform.Platform, store *ledger.Store, opts *Options, out io.Writer) {
	if opts.DryRun {
		log.Info().Msg("dry-run mode, no emails, comments or archiving")
	}

	pools := messages.Load(cfg.CommentsFile, cfg.GreetingsFile)
	coordinator := stale.NewCoordinator(cfg.MaxWorkers)
	classifier := stale.NewClassifier(p, cfg.StaleDays, cfg.FallbackEmail)

	byRecipient := coordinator.CollectByRecipient(ctx, classifier, cfg.Projects)

	throttler := notify.NewThrottler(store, cfg.NotificationFrequencyDays)
	notifier := notify.NewNotifier(throttler, notify.NewSMTPSender(cfg.SMTP), pools,
		cfg.StaleDays, cfg.CleanupWeeks, opts.DryRun)
	printNotifySummary(out, notifier.Run(ctx, byRecipient))

	if cfg.EnableComments {
		inactivity := stale.NewClassifier(p, cfg.CommentInactivityDays, cfg.FallbackEmail)
		scheduler := comments.NewScheduler(p, store, inactivity, pools.Comments,
			cfg.CommentFrequencyDays, opts.DryRun)
		printCommentSummary(out, scheduler.Run(ctx, coordinator, cfg.Projects))
	}

	if opts.Archive || cfg.EnableAutoArchive {
		var enabled []string
		for _, projectID := range cfg.Projects {
			if cfg.AutoArchiveEnabled(projectID) {
				enabled = append(enabled, projectID)
			}
		}
		gate := archive.NewGate(p, store, cfg.CleanupWeeks, cfg.OptOutMarker)
		executor := archive.NewExecutor(p, cfg.ArchiveFolder, opts.DryRun)
		archiver := archive.NewArchiver(classifier, gate, executor)
		printArchiveSummary(out, archiver.Run(ctx, coordinator, enabled))
	}
}
