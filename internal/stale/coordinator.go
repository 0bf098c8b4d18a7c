package stale

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/Re4zOon/repo-maintainer/internal/log"
	"github.com/Re4zOon/repo-maintainer/internal/model"
)

// Coordinator fans work out across projects with a bounded worker
// pool. A failing project never affects the others.
type Coordinator struct {
	workers int
}

// NewCoordinator returns a coordinator running at most workers
// projects concurrently. The caller is expected to pass an already
// clamped value.
func NewCoordinator(workers int) *Coordinator {
	if workers < 1 {
		workers = 1
	}
	return &Coordinator{workers: workers}
}

// CollectByRecipient classifies every project concurrently and merges
// the per-project recipient maps into one union. Projects that fail to
// classify contribute nothing and are logged.
func (co *Coordinator) CollectByRecipient(ctx context.Context, cl *Classifier, projects []string) map[string]*model.RecipientItems {
	merged := make(map[string]*model.RecipientItems)
	var mu sync.Mutex

	var eg errgroup.Group
	eg.SetLimit(co.workers)
	for _, projectID := range projects {
		eg.Go(func() error {
			byRecipient, err := cl.ClassifyProject(ctx, projectID)
			if err != nil {
				log.Error().Str("project", projectID).Err(err).Msg("skipping project, classification failed")
				return nil
			}
			mu.Lock()
			defer mu.Unlock()
			for email, items := range byRecipient {
				set, ok := merged[email]
				if !ok {
					set = &model.RecipientItems{}
					merged[email] = set
				}
				set.Branches = append(set.Branches, items.Branches...)
				set.Requests = append(set.Requests, items.Requests...)
			}
			return nil
		})
	}
	// Workers never return errors; failures are logged per project.
	_ = eg.Wait()

	return merged
}

// ForEachProject runs fn for every project with the same bounded
// concurrency. fn is responsible for its own error reporting.
func (co *Coordinator) ForEachProject(ctx context.Context, projects []string, fn func(ctx context.Context, projectID string)) {
	var eg errgroup.Group
	eg.SetLimit(co.workers)
	for _, projectID := range projects {
		eg.Go(func() error {
			fn(ctx, projectID)
			return nil
		})
	}
	_ = eg.Wait()
}
