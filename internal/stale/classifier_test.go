package stale

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Re4zOon/repo-maintainer/internal/model"
	"github.com/Re4zOon/repo-maintainer/internal/platform/platformtest"
)

var testNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestClassifier(fake *platformtest.Fake) *Classifier {
	c := NewClassifier(fake, 30, "fallback@example.com")
	c.now = func() time.Time { return testNow }
	return c
}

func daysOld(days int) time.Time {
	return testNow.AddDate(0, 0, -days)
}

func TestListStaleRequestClaimsBranch(t *testing.T) {
	fake := &platformtest.Fake{
		RequestsFn: func(_ context.Context, _ string) ([]model.StaleRequest, error) {
			return []model.StaleRequest{
				{Number: 7, SourceBranch: "feature/old", LastActivity: daysOld(45)},
			}, nil
		},
		BranchesFn: func(_ context.Context, _ string) ([]model.StaleBranch, error) {
			return []model.StaleBranch{
				{BranchName: "feature/old", LastCommit: daysOld(60)},
				{BranchName: "feature/bare", LastCommit: daysOld(60)},
			}, nil
		},
	}

	branches, requests, err := newTestClassifier(fake).ListStale(context.Background(), "42")
	require.NoError(t, err)

	require.Len(t, requests, 1)
	assert.Equal(t, 7, requests[0].Number)
	require.Len(t, branches, 1)
	assert.Equal(t, "feature/bare", branches[0].BranchName)
}

func TestListStaleCommentRefreshesActivity(t *testing.T) {
	fake := &platformtest.Fake{
		RequestsFn: func(_ context.Context, _ string) ([]model.StaleRequest, error) {
			return []model.StaleRequest{
				{Number: 1, SourceBranch: "a", LastActivity: daysOld(45)},
				{Number: 2, SourceBranch: "b", LastActivity: daysOld(45)},
			}, nil
		},
		LatestCommentFn: func(_ context.Context, _ string, number int) (time.Time, bool, error) {
			if number == 1 {
				// A fresh comment rescues the request from staleness.
				return daysOld(2), true, nil
			}
			return time.Time{}, false, nil
		},
	}

	_, requests, err := newTestClassifier(fake).ListStale(context.Background(), "42")
	require.NoError(t, err)

	require.Len(t, requests, 1)
	assert.Equal(t, 2, requests[0].Number)
}

func TestListStaleActiveRequestMasksBranch(t *testing.T) {
	fake := &platformtest.Fake{
		BranchesFn: func(_ context.Context, _ string) ([]model.StaleBranch, error) {
			return []model.StaleBranch{
				{BranchName: "wip", LastCommit: daysOld(90)},
			}, nil
		},
		FindRequestFn: func(_ context.Context, _, branch string) (*model.StaleRequest, error) {
			return &model.StaleRequest{Number: 3, SourceBranch: branch, LastActivity: daysOld(1)}, nil
		},
	}

	branches, requests, err := newTestClassifier(fake).ListStale(context.Background(), "42")
	require.NoError(t, err)

	// The branch is old but its request is active: nothing is reported.
	assert.Empty(t, branches)
	assert.Empty(t, requests)
}

func TestListStaleSkipsUnknownInstants(t *testing.T) {
	fake := &platformtest.Fake{
		RequestsFn: func(_ context.Context, _ string) ([]model.StaleRequest, error) {
			return []model.StaleRequest{{Number: 9, SourceBranch: "x"}}, nil
		},
		BranchesFn: func(_ context.Context, _ string) ([]model.StaleBranch, error) {
			return []model.StaleBranch{{BranchName: "y"}}, nil
		},
	}

	branches, requests, err := newTestClassifier(fake).ListStale(context.Background(), "42")
	require.NoError(t, err)
	assert.Empty(t, branches)
	assert.Empty(t, requests)
}

func TestListStaleFreshItemsExcluded(t *testing.T) {
	fake := &platformtest.Fake{
		RequestsFn: func(_ context.Context, _ string) ([]model.StaleRequest, error) {
			return []model.StaleRequest{
				{Number: 1, SourceBranch: "a", LastActivity: daysOld(10)},
			}, nil
		},
		BranchesFn: func(_ context.Context, _ string) ([]model.StaleBranch, error) {
			return []model.StaleBranch{{BranchName: "b", LastCommit: daysOld(29)}}, nil
		},
	}

	branches, requests, err := newTestClassifier(fake).ListStale(context.Background(), "42")
	require.NoError(t, err)
	assert.Empty(t, branches)
	assert.Empty(t, requests)
}

func TestClassifyRecipientChain(t *testing.T) {
	tests := []struct {
		name     string
		request  model.StaleRequest
		active   map[string]bool
		resolved map[string]string
		want     string
	}{
		{
			name:    "assignee email wins",
			request: model.StaleRequest{AssigneeEmail: "assignee@example.com", AuthorEmail: "author@example.com"},
			active:  map[string]bool{"assignee@example.com": true},
			want:    "assignee@example.com",
		},
		{
			name:     "assignee username resolved",
			request:  model.StaleRequest{AssigneeUsername: "ana", AuthorEmail: "author@example.com"},
			resolved: map[string]string{"ana": "ana@example.com"},
			active:   map[string]bool{"ana@example.com": true},
			want:     "ana@example.com",
		},
		{
			name:    "inactive assignee falls through to author",
			request: model.StaleRequest{AssigneeEmail: "gone@example.com", AuthorEmail: "author@example.com"},
			active:  map[string]bool{"author@example.com": true},
			want:    "author@example.com",
		},
		{
			name:    "nobody active falls back",
			request: model.StaleRequest{AssigneeEmail: "gone@example.com", AuthorEmail: "also-gone@example.com"},
			active:  map[string]bool{},
			want:    "fallback@example.com",
		},
		{
			name:    "no attribution at all falls back",
			request: model.StaleRequest{},
			want:    "fallback@example.com",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tt.request
			req.Number = 5
			req.SourceBranch = "topic"
			req.LastActivity = daysOld(45)

			fake := &platformtest.Fake{
				RequestsFn: func(_ context.Context, _ string) ([]model.StaleRequest, error) {
					return []model.StaleRequest{req}, nil
				},
				IsActiveFn: func(_ context.Context, email string) (bool, error) {
					return tt.active[email], nil
				},
				ResolveEmailFn: func(_ context.Context, username string) (string, error) {
					return tt.resolved[username], nil
				},
			}

			byRecipient, err := newTestClassifier(fake).ClassifyProject(context.Background(), "42")
			require.NoError(t, err)
			require.Contains(t, byRecipient, tt.want)
			assert.Len(t, byRecipient[tt.want].Requests, 1)
		})
	}
}

func TestClassifyBranchCommitterChain(t *testing.T) {
	branch := model.StaleBranch{
		BranchName:     "old",
		LastCommit:     daysOld(60),
		CommitterEmail: "dev@example.com",
	}

	t.Run("active committer", func(t *testing.T) {
		fake := &platformtest.Fake{
			BranchesFn: func(_ context.Context, _ string) ([]model.StaleBranch, error) {
				return []model.StaleBranch{branch}, nil
			},
		}
		byRecipient, err := newTestClassifier(fake).ClassifyProject(context.Background(), "42")
		require.NoError(t, err)
		assert.Contains(t, byRecipient, "dev@example.com")
	})

	t.Run("inactive committer falls back", func(t *testing.T) {
		fake := &platformtest.Fake{
			BranchesFn: func(_ context.Context, _ string) ([]model.StaleBranch, error) {
				return []model.StaleBranch{branch}, nil
			},
			IsActiveFn: func(_ context.Context, _ string) (bool, error) {
				return false, nil
			},
		}
		byRecipient, err := newTestClassifier(fake).ClassifyProject(context.Background(), "42")
		require.NoError(t, err)
		assert.Contains(t, byRecipient, "fallback@example.com")
	})
}

func TestClassifyDropsItemsWithoutRecipient(t *testing.T) {
	fake := &platformtest.Fake{
		BranchesFn: func(_ context.Context, _ string) ([]model.StaleBranch, error) {
			return []model.StaleBranch{
				{BranchName: "orphan", LastCommit: daysOld(60)},
			}, nil
		},
	}

	c := NewClassifier(fake, 30, "")
	c.now = func() time.Time { return testNow }

	byRecipient, err := c.ClassifyProject(context.Background(), "42")
	require.NoError(t, err)
	assert.Empty(t, byRecipient)
}

func TestCoordinatorMergesAcrossProjects(t *testing.T) {
	fake := &platformtest.Fake{
		BranchesFn: func(_ context.Context, projectID string) ([]model.StaleBranch, error) {
			if projectID == "broken" {
				return nil, errors.New("boom")
			}
			return []model.StaleBranch{
				{ProjectID: projectID, BranchName: "old-" + projectID, LastCommit: daysOld(60), CommitterEmail: "dev@example.com"},
			}, nil
		},
	}

	co := NewCoordinator(2)
	merged := co.CollectByRecipient(context.Background(), newTestClassifier(fake), []string{"1", "2", "broken", "3"})

	require.Contains(t, merged, "dev@example.com")
	// The broken project contributes nothing; the others all merge.
	assert.Len(t, merged["dev@example.com"].Branches, 3)
}
