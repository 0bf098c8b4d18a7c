// Package platform abstracts the hosting platform (GitLab or GitHub)
// behind a single capability interface. The classifier, scheduler and
// archiver are written once against this interface; the two
// implementations only translate calls to their respective APIs.
package platform

import (
	"context"
	"time"

	"github.com/Re4zOon/repo-maintainer/internal/model"
)

// Platform is the set of hosting-platform operations the tool consumes.
// Implementations must be safe for concurrent use by the fan-out
// workers.
type Platform interface {
	// ListNonProtectedBranches returns every non-protected branch of
	// the project with its last-commit instant and committer info. A
	// branch whose commit instant could not be determined carries a
	// zero LastCommit and is skipped by callers.
	ListNonProtectedBranches(ctx context.Context, projectID string) ([]model.StaleBranch, error)

	// ListOpenRequests returns all open merge/pull requests. The
	// returned LastActivity only reflects request metadata; callers
	// combine it with LatestCommentInstant.
	ListOpenRequests(ctx context.Context, projectID string) ([]model.StaleRequest, error)

	// LatestCommentInstant returns the update instant of the newest
	// comment on the request, or ok=false when it has no comments.
	LatestCommentInstant(ctx context.Context, projectID string, number int) (time.Time, bool, error)

	// FindOpenRequestForBranch returns the open request whose source
	// branch matches, or nil when none exists.
	FindOpenRequestForBranch(ctx context.Context, projectID, branch string) (*model.StaleRequest, error)

	// ResolveUserEmail looks up a user's public email by username,
	// returning "" when unknown.
	ResolveUserEmail(ctx context.Context, username string) (string, error)

	// IsUserActive reports whether a user matching the email exists
	// and is active on the platform.
	IsUserActive(ctx context.Context, email string) (bool, error)

	// DownloadBranchArchive fetches a tar.gz archive of the branch tree.
	DownloadBranchArchive(ctx context.Context, projectID, branch string) ([]byte, error)

	// PostComment adds a comment to the request.
	PostComment(ctx context.Context, projectID string, number int, body string) error

	// CloseRequest transitions the request to the closed state.
	CloseRequest(ctx context.Context, projectID string, number int) error

	// DeleteBranch removes the branch ref.
	DeleteBranch(ctx context.Context, projectID, branch string) error

	// ListRecentComments returns the bodies of up to limit comments,
	// newest first.
	ListRecentComments(ctx context.Context, projectID string, number, limit int) ([]string, error)
}
