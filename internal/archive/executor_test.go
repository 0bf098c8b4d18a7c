package archive

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Re4zOon/repo-maintainer/internal/model"
	"github.com/Re4zOon/repo-maintainer/internal/platform/platformtest"
)

var executorNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestExecutor(t *testing.T, fake *platformtest.Fake, dryRun bool) *Executor {
	t.Helper()
	e := NewExecutor(fake, t.TempDir(), dryRun)
	e.now = func() time.Time { return executorNow }
	return e
}

func testRequest() model.StaleRequest {
	return model.StaleRequest{
		ProjectID:    "42",
		ProjectName:  "group/app",
		Number:       7,
		SourceBranch: "feature/old",
	}
}

func TestArchiveRequestHappyPath(t *testing.T) {
	fake := &platformtest.Fake{}
	e := newTestExecutor(t, fake, false)

	result := e.ArchiveRequest(context.Background(), testRequest())

	assert.True(t, result.Archived)
	assert.True(t, result.Closed)
	assert.True(t, result.Deleted)
	assert.True(t, result.Success)
	assert.Empty(t, result.Err)

	// Slashes in project and branch names are sanitized away.
	assert.Equal(t, "group_app_feature_old_20240601_120000.tar.gz", filepath.Base(result.ArchivePath))
	data, err := os.ReadFile(result.ArchivePath)
	require.NoError(t, err)
	assert.Equal(t, "archive", string(data))

	assert.Equal(t, 1, fake.Calls("PostComment"))
	assert.Equal(t, 1, fake.Calls("CloseRequest"))
	assert.Equal(t, 1, fake.Calls("DeleteBranch"))
}

func TestArchiveRequestExportFailureAbortsEverything(t *testing.T) {
	fake := &platformtest.Fake{
		DownloadFn: func(_ context.Context, _, _ string) ([]byte, error) {
			return nil, errors.New("504")
		},
	}
	e := newTestExecutor(t, fake, false)

	result := e.ArchiveRequest(context.Background(), testRequest())

	assert.False(t, result.Archived)
	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Err)
	assert.Equal(t, 0, fake.Calls("PostComment"))
	assert.Equal(t, 0, fake.Calls("CloseRequest"))
	assert.Equal(t, 0, fake.Calls("DeleteBranch"))
}

func TestArchiveRequestCloseFailureStillDeletes(t *testing.T) {
	fake := &platformtest.Fake{
		CloseFn: func(_ context.Context, _ string, _ int) error {
			return errors.New("409")
		},
	}
	e := newTestExecutor(t, fake, false)

	result := e.ArchiveRequest(context.Background(), testRequest())

	assert.True(t, result.Archived)
	assert.False(t, result.Closed)
	assert.True(t, result.Deleted)
	assert.False(t, result.Success)
	assert.Equal(t, 1, fake.Calls("DeleteBranch"))
}

func TestArchiveRequestDeleteFailure(t *testing.T) {
	fake := &platformtest.Fake{
		DeleteBranchFn: func(_ context.Context, _, _ string) error {
			return errors.New("403")
		},
	}
	e := newTestExecutor(t, fake, false)

	result := e.ArchiveRequest(context.Background(), testRequest())

	assert.True(t, result.Archived)
	assert.True(t, result.Closed)
	assert.False(t, result.Deleted)
	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Err)
}

func TestArchiveBranchDeleteFailure(t *testing.T) {
	fake := &platformtest.Fake{
		DeleteBranchFn: func(_ context.Context, _, _ string) error {
			return errors.New("403")
		},
	}
	e := newTestExecutor(t, fake, false)

	result := e.ArchiveBranch(context.Background(), model.StaleBranch{
		ProjectID: "42", ProjectName: "group/app", BranchName: "old",
	})

	assert.True(t, result.Archived)
	assert.False(t, result.Success)
	assert.NotEmpty(t, result.ArchivePath)
}

func TestArchiveDryRunTouchesNothing(t *testing.T) {
	fake := &platformtest.Fake{}
	e := newTestExecutor(t, fake, true)

	result := e.ArchiveRequest(context.Background(), testRequest())

	assert.True(t, result.Success)
	assert.Contains(t, result.ArchivePath, "<timestamp>")
	assert.Equal(t, 0, fake.Calls("DownloadBranchArchive"))
	assert.Equal(t, 0, fake.Calls("PostComment"))
	assert.Equal(t, 0, fake.Calls("CloseRequest"))
	assert.Equal(t, 0, fake.Calls("DeleteBranch"))

	// Nothing written to disk either.
	entries, err := os.ReadDir(e.archiveFolder)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"group/app", "group_app"},
		{"feature/JIRA-123", "feature_JIRA-123"},
		{"weird name!", "weird_name_"},
		{"ok_branch-2", "ok_branch-2"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sanitizeName(tt.in))
	}
}
