// Package platformtest provides a configurable in-memory Platform for
// tests.
package platformtest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Re4zOon/repo-maintainer/internal/model"
	"github.com/Re4zOon/repo-maintainer/internal/platform"
)

// Fake implements platform.Platform with overridable function fields.
// Unset fields return zero values. Call counts are tracked per method
// under a mutex so tests can assert on concurrent use.
type Fake struct {
	BranchesFn       func(ctx context.Context, projectID string) ([]model.StaleBranch, error)
	RequestsFn       func(ctx context.Context, projectID string) ([]model.StaleRequest, error)
	LatestCommentFn  func(ctx context.Context, projectID string, number int) (time.Time, bool, error)
	FindRequestFn    func(ctx context.Context, projectID, branch string) (*model.StaleRequest, error)
	ResolveEmailFn   func(ctx context.Context, username string) (string, error)
	IsActiveFn       func(ctx context.Context, email string) (bool, error)
	DownloadFn       func(ctx context.Context, projectID, branch string) ([]byte, error)
	PostCommentFn    func(ctx context.Context, projectID string, number int, body string) error
	CloseFn          func(ctx context.Context, projectID string, number int) error
	DeleteBranchFn   func(ctx context.Context, projectID, branch string) error
	RecentCommentsFn func(ctx context.Context, projectID string, number, limit int) ([]string, error)

	mu    sync.Mutex
	calls map[string]int
}

var _ platform.Platform = (*Fake)(nil)

func (f *Fake) record(method string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[method]++
}

// Calls returns how many times the named method was invoked.
func (f *Fake) Calls(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

func (f *Fake) ListNonProtectedBranches(ctx context.Context, projectID string) ([]model.StaleBranch, error) {
	f.record("ListNonProtectedBranches")
	if f.BranchesFn == nil {
		return nil, nil
	}
	return f.BranchesFn(ctx, projectID)
}

func (f *Fake) ListOpenRequests(ctx context.Context, projectID string) ([]model.StaleRequest, error) {
	f.record("ListOpenRequests")
	if f.RequestsFn == nil {
		return nil, nil
	}
	return f.RequestsFn(ctx, projectID)
}

func (f *Fake) LatestCommentInstant(ctx context.Context, projectID string, number int) (time.Time, bool, error) {
	f.record("LatestCommentInstant")
	if f.LatestCommentFn == nil {
		return time.Time{}, false, nil
	}
	return f.LatestCommentFn(ctx, projectID, number)
}

func (f *Fake) FindOpenRequestForBranch(ctx context.Context, projectID, branch string) (*model.StaleRequest, error) {
	f.record("FindOpenRequestForBranch")
	if f.FindRequestFn == nil {
		return nil, nil
	}
	return f.FindRequestFn(ctx, projectID, branch)
}

func (f *Fake) ResolveUserEmail(ctx context.Context, username string) (string, error) {
	f.record("ResolveUserEmail")
	if f.ResolveEmailFn == nil {
		return "", fmt.Errorf("no email for %s", username)
	}
	return f.ResolveEmailFn(ctx, username)
}

func (f *Fake) IsUserActive(ctx context.Context, email string) (bool, error) {
	f.record("IsUserActive")
	if f.IsActiveFn == nil {
		return true, nil
	}
	return f.IsActiveFn(ctx, email)
}

func (f *Fake) DownloadBranchArchive(ctx context.Context, projectID, branch string) ([]byte, error) {
	f.record("DownloadBranchArchive")
	if f.DownloadFn == nil {
		return []byte("archive"), nil
	}
	return f.DownloadFn(ctx, projectID, branch)
}

func (f *Fake) PostComment(ctx context.Context, projectID string, number int, body string) error {
	f.record("PostComment")
	if f.PostCommentFn == nil {
		return nil
	}
	return f.PostCommentFn(ctx, projectID, number, body)
}

func (f *Fake) CloseRequest(ctx context.Context, projectID string, number int) error {
	f.record("CloseRequest")
	if f.CloseFn == nil {
		return nil
	}
	return f.CloseFn(ctx, projectID, number)
}

func (f *Fake) DeleteBranch(ctx context.Context, projectID, branch string) error {
	f.record("DeleteBranch")
	if f.DeleteBranchFn == nil {
		return nil
	}
	return f.DeleteBranchFn(ctx, projectID, branch)
}

func (f *Fake) ListRecentComments(ctx context.Context, projectID string, number, limit int) ([]string, error) {
	f.record("ListRecentComments")
	if f.RecentCommentsFn == nil {
		return nil, nil
	}
	return f.RecentCommentsFn(ctx, projectID, number, limit)
}
