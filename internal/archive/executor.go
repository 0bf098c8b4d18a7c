package archive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Re4zOon/repo-maintainer/internal/log"
	"github.com/Re4zOon/repo-maintainer/internal/model"
	"github.com/Re4zOon/repo-maintainer/internal/platform"
)

// closingNote is posted on a request before it is closed.
const closingNote = "\U0001F916 This merge request has been automatically closed by the " +
	"repository maintenance bot due to prolonged inactivity. " +
	"The source branch has been archived and will be deleted. " +
	"If this work is still needed, please create a new branch " +
	"and merge request."

// Executor performs the three-phase archive operation. Phases run in a
// fixed order: export first, then close (requests only), then delete.
// An export failure aborts the item; a close or delete failure is
// recorded but never retried within the run.
type Executor struct {
	platform      platform.Platform
	archiveFolder string
	dryRun        bool

	now func() time.Time
}

// NewExecutor builds an executor writing archives under archiveFolder.
func NewExecutor(p platform.Platform, archiveFolder string, dryRun bool) *Executor {
	return &Executor{
		platform:      p,
		archiveFolder: archiveFolder,
		dryRun:        dryRun,
		now:           time.Now,
	}
}

// ArchiveBranch exports and deletes a bare stale branch.
func (e *Executor) ArchiveBranch(ctx context.Context, branch model.StaleBranch) model.ArchiveResult {
	result := model.ArchiveResult{
		ProjectName: branch.ProjectName,
		BranchName:  branch.BranchName,
	}

	path, err := e.export(ctx, branch.ProjectID, branch.ProjectName, branch.BranchName)
	if err != nil {
		result.Err = "failed to export branch, aborting deletion for safety"
		log.Error().Str("project", branch.ProjectName).Str("branch", branch.BranchName).Err(err).
			Msg("export failed, branch will not be deleted")
		return result
	}
	result.Archived = true
	result.ArchivePath = path

	if err := e.deleteBranch(ctx, branch.ProjectID, branch.BranchName); err != nil {
		result.Err = "branch was archived but could not be deleted"
		log.Error().Str("project", branch.ProjectName).Str("branch", branch.BranchName).Err(err).
			Msg("failed to delete archived branch")
		return result
	}
	result.Deleted = true
	result.Success = true
	return result
}

// ArchiveRequest exports the source branch, closes the request with an
// explanatory note, and deletes the branch. A close failure does not
// block the delete; the archive already preserves the work.
func (e *Executor) ArchiveRequest(ctx context.Context, req model.StaleRequest) model.ArchiveResult {
	result := model.ArchiveResult{
		ProjectName: req.ProjectName,
		BranchName:  req.SourceBranch,
		Number:      req.Number,
	}

	path, err := e.export(ctx, req.ProjectID, req.ProjectName, req.SourceBranch)
	if err != nil {
		result.Err = "failed to export branch, aborting close and deletion for safety"
		log.Error().Str("project", req.ProjectName).Int("number", req.Number).Err(err).
			Msg("export failed, request will not be closed")
		return result
	}
	result.Archived = true
	result.ArchivePath = path

	if err := e.closeRequest(ctx, req.ProjectID, req.Number); err != nil {
		result.Err = "branch was archived but the request could not be closed"
		log.Error().Str("project", req.ProjectName).Int("number", req.Number).Err(err).
			Msg("failed to close request, still deleting the archived branch")
	} else {
		result.Closed = true
	}

	if err := e.deleteBranch(ctx, req.ProjectID, req.SourceBranch); err != nil {
		if result.Err != "" {
			result.Err += "; branch could not be deleted"
		} else {
			result.Err = "branch was archived and request closed but branch could not be deleted"
		}
		log.Error().Str("project", req.ProjectName).Str("branch", req.SourceBranch).Err(err).
			Msg("failed to delete archived branch")
		return result
	}
	result.Deleted = true

	result.Success = result.Closed
	return result
}

// export downloads the branch tree and writes the tar.gz archive. In
// dry-run mode no download happens and a synthetic path is returned.
func (e *Executor) export(ctx context.Context, projectID, projectName, branchName string) (string, error) {
	if e.dryRun {
		log.Info().Str("project", projectName).Str("branch", branchName).
			Msg("[dry run] would export branch")
		return filepath.Join(e.archiveFolder, fmt.Sprintf("%s_%s_<timestamp>.tar.gz", projectName, branchName)), nil
	}

	if err := os.MkdirAll(e.archiveFolder, 0o755); err != nil {
		return "", fmt.Errorf("creating archive folder: %w", err)
	}

	filename := fmt.Sprintf("%s_%s_%s.tar.gz",
		sanitizeName(projectName), sanitizeName(branchName), e.now().UTC().Format("20060102_150405"))
	path := filepath.Join(e.archiveFolder, filename)

	data, err := e.platform.DownloadBranchArchive(ctx, projectID, branchName)
	if err != nil {
		return "", fmt.Errorf("downloading archive: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing archive: %w", err)
	}

	log.Info().Str("project", projectName).Str("branch", branchName).Str("path", path).
		Msg("exported branch")
	return path, nil
}

func (e *Executor) closeRequest(ctx context.Context, projectID string, number int) error {
	if e.dryRun {
		log.Info().Str("project", projectID).Int("number", number).
			Msg("[dry run] would close request")
		return nil
	}
	if err := e.platform.PostComment(ctx, projectID, number, closingNote); err != nil {
		return fmt.Errorf("posting closing note: %w", err)
	}
	return e.platform.CloseRequest(ctx, projectID, number)
}

func (e *Executor) deleteBranch(ctx context.Context, projectID, branchName string) error {
	if e.dryRun {
		log.Info().Str("project", projectID).Str("branch", branchName).
			Msg("[dry run] would delete branch")
		return nil
	}
	return e.platform.DeleteBranch(ctx, projectID, branchName)
}

// sanitizeName maps every character outside [A-Za-z0-9_-] to an
// underscore so archive filenames are filesystem-safe.
func sanitizeName(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, s)
}
