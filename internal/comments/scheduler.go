// Package comments posts periodic reminder comments on inactive
// merge/pull requests. The comment pool is cycled per request so
// repeated nudges stay varied, with cadence tracked in the ledger.
package comments

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/Re4zOon/repo-maintainer/internal/ledger"
	"github.com/Re4zOon/repo-maintainer/internal/log"
	"github.com/Re4zOon/repo-maintainer/internal/model"
	"github.com/Re4zOon/repo-maintainer/internal/platform"
	"github.com/Re4zOon/repo-maintainer/internal/stale"
	"github.com/Re4zOon/repo-maintainer/internal/timeutil"
)

// Scheduler runs the reminder-comment pass. Its classifier is built
// with the comment inactivity threshold, which is independent of the
// notification staleness threshold.
type Scheduler struct {
	platform      platform.Platform
	ledger        *ledger.Store
	classifier    *stale.Classifier
	pool          []string
	frequencyDays int
	dryRun        bool

	now  func() time.Time
	pick func(n int) int
}

// NewScheduler wires a comment pass over the given platform and ledger.
// pool must be non-empty; config loading guarantees a fallback pool.
func NewScheduler(p platform.Platform, store *ledger.Store, classifier *stale.Classifier, pool []string, frequencyDays int, dryRun bool) *Scheduler {
	return &Scheduler{
		platform:      p,
		ledger:        store,
		classifier:    classifier,
		pool:          pool,
		frequencyDays: frequencyDays,
		dryRun:        dryRun,
		now:           time.Now,
		pick:          rand.Intn,
	}
}

// Run posts due reminder comments across all projects using the
// coordinator's bounded fan-out and returns the merged summary.
func (s *Scheduler) Run(ctx context.Context, co *stale.Coordinator, projects []string) model.CommentSummary {
	var (
		mu      sync.Mutex
		summary model.CommentSummary
	)

	co.ForEachProject(ctx, projects, func(ctx context.Context, projectID string) {
		partial := s.runProject(ctx, projectID)
		mu.Lock()
		defer mu.Unlock()
		summary.Posted += partial.Posted
		summary.Skipped += partial.Skipped
		summary.Failed += partial.Failed
		summary.Commented = append(summary.Commented, partial.Commented...)
	})

	return summary
}

func (s *Scheduler) runProject(ctx context.Context, projectID string) model.CommentSummary {
	var summary model.CommentSummary

	requests, err := s.classifier.ListStaleRequests(ctx, projectID)
	if err != nil {
		log.Error().Str("project", projectID).Err(err).Msg("skipping project, could not list inactive requests")
		return summary
	}

	for _, req := range requests {
		due, index, err := s.nextComment(ctx, req.ProjectID, req.Number)
		if err != nil {
			log.Error().Str("project", projectID).Int("number", req.Number).Err(err).
				Msg("could not read comment history")
			summary.Failed++
			continue
		}
		if !due {
			log.Debug().Str("project", projectID).Int("number", req.Number).
				Msg("skipping reminder, already commented recently")
			summary.Skipped++
			continue
		}

		body := s.pool[index]
		if s.dryRun {
			log.Info().Str("project", projectID).Int("number", req.Number).
				Msg("[dry run] would post reminder comment")
		} else if err := s.platform.PostComment(ctx, req.ProjectID, req.Number, body); err != nil {
			log.Error().Str("project", projectID).Int("number", req.Number).Err(err).
				Msg("failed to post reminder comment")
			summary.Failed++
			continue
		} else {
			log.Info().Str("project", projectID).Int("number", req.Number).Msg("posted reminder comment")
		}

		summary.Posted++
		summary.Commented = append(summary.Commented, model.CommentedRequest{
			ProjectID:   req.ProjectID,
			ProjectName: req.ProjectName,
			Number:      req.Number,
			Title:       req.Title,
		})

		if s.dryRun {
			continue
		}
		if err := s.ledger.RecordComment(ctx, req.ProjectID, req.Number, index, s.now()); err != nil {
			log.Error().Str("project", projectID).Int("number", req.Number).Err(err).
				Msg("could not record reminder comment")
		}
	}

	return summary
}

// nextComment reports whether the request is due for a reminder and
// which pool entry to use. A never-commented request starts at a random
// index; later reminders advance through the pool one step per comment,
// wrapping around.
func (s *Scheduler) nextComment(ctx context.Context, projectID string, number int) (bool, int, error) {
	lastAt, lastIndex, ok, err := s.ledger.LastComment(ctx, projectID, number)
	if err != nil {
		return false, 0, err
	}
	if !ok {
		return true, s.pick(len(s.pool)), nil
	}

	cutoff := timeutil.DaysAgo(s.now(), s.frequencyDays)
	if !lastAt.Before(cutoff) {
		return false, 0, nil
	}
	return true, (lastIndex + 1) % len(s.pool), nil
}
