package archive

import (
	"context"
	"sync"

	"github.com/Re4zOon/repo-maintainer/internal/log"
	"github.com/Re4zOon/repo-maintainer/internal/model"
	"github.com/Re4zOon/repo-maintainer/internal/stale"
)

// Archiver runs the archive pass: list stale items per project, gate
// each one, execute the three phases on those that pass. Callers hand
// it only the projects enabled for auto-archiving.
type Archiver struct {
	classifier *stale.Classifier
	gate       *Gate
	executor   *Executor
}

// NewArchiver wires an archive pass.
func NewArchiver(classifier *stale.Classifier, gate *Gate, executor *Executor) *Archiver {
	return &Archiver{classifier: classifier, gate: gate, executor: executor}
}

// Run archives eligible items across the given projects with the
// coordinator's bounded fan-out and returns the merged summary.
func (a *Archiver) Run(ctx context.Context, co *stale.Coordinator, projects []string) model.ArchiveSummary {
	var (
		mu      sync.Mutex
		summary model.ArchiveSummary
	)

	co.ForEachProject(ctx, projects, func(ctx context.Context, projectID string) {
		partial := a.runProject(ctx, projectID)
		mu.Lock()
		defer mu.Unlock()
		summary.BranchesArchived += partial.BranchesArchived
		summary.BranchesFailed += partial.BranchesFailed
		summary.RequestsArchived += partial.RequestsArchived
		summary.RequestsFailed += partial.RequestsFailed
		summary.SkippedOptOut += partial.SkippedOptOut
		summary.Archived = append(summary.Archived, partial.Archived...)
		summary.Failed = append(summary.Failed, partial.Failed...)
	})

	return summary
}

func (a *Archiver) runProject(ctx context.Context, projectID string) model.ArchiveSummary {
	var summary model.ArchiveSummary

	branches, requests, err := a.classifier.ListStale(ctx, projectID)
	if err != nil {
		log.Error().Str("project", projectID).Err(err).Msg("skipping project, could not list stale items")
		return summary
	}

	// Requests first so their source branches are gone before the bare
	// branch loop could ever see them.
	for _, req := range requests {
		eligible, optedOut, err := a.gate.RequestEligible(ctx, req)
		if err != nil {
			log.Error().Str("project", req.ProjectName).Int("number", req.Number).Err(err).
				Msg("could not determine archive eligibility")
			continue
		}
		if optedOut {
			log.Info().Str("project", req.ProjectName).Int("number", req.Number).
				Msg("request opted out of auto-archiving")
			summary.SkippedOptOut++
			continue
		}
		if !eligible {
			continue
		}

		result := a.executor.ArchiveRequest(ctx, req)
		if result.Success {
			summary.RequestsArchived++
			summary.Archived = append(summary.Archived, result)
		} else {
			summary.RequestsFailed++
			summary.Failed = append(summary.Failed, model.FailedItem{
				Type:        model.ItemTypeRequest,
				ProjectName: req.ProjectName,
				BranchName:  req.SourceBranch,
				Number:      req.Number,
				Reason:      result.Err,
			})
		}
	}

	for _, branch := range branches {
		eligible, err := a.gate.BranchEligible(ctx, branch)
		if err != nil {
			log.Error().Str("project", branch.ProjectName).Str("branch", branch.BranchName).Err(err).
				Msg("could not determine archive eligibility")
			continue
		}
		if !eligible {
			continue
		}

		result := a.executor.ArchiveBranch(ctx, branch)
		if result.Success {
			summary.BranchesArchived++
			summary.Archived = append(summary.Archived, result)
		} else {
			summary.BranchesFailed++
			summary.Failed = append(summary.Failed, model.FailedItem{
				Type:        model.ItemTypeBranch,
				ProjectName: branch.ProjectName,
				BranchName:  branch.BranchName,
				Reason:      result.Err,
			})
		}
	}

	return summary
}
