package platform

import (
	"testing"
	"time"

	"github.com/google/go-github/v62/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitRepo(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantOwner string
		wantRepo  string
		wantErr   bool
	}{
		{"owner and repo", "acme/widget", "acme", "widget", false},
		{"repo with slash in name keeps remainder", "acme/group/widget", "acme", "group/widget", false},
		{"missing repo", "acme", "", "", true},
		{"empty owner", "/widget", "", "", true},
		{"empty repo", "acme/", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			owner, repo, err := splitRepo(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantOwner, owner)
			assert.Equal(t, tt.wantRepo, repo)
		})
	}
}

func TestRequestFromPR(t *testing.T) {
	updated := time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC)
	pr := &github.PullRequest{
		Number:    github.Int(42),
		Title:     github.String("Add widget"),
		HTMLURL:   github.String("https://github.com/acme/widget/pull/42"),
		UpdatedAt: &github.Timestamp{Time: updated},
		Head:      &github.PullRequestBranch{Ref: github.String("feature-x")},
		User:      &github.User{Login: github.String("alice")},
		Assignee:  &github.User{Login: github.String("bob")},
	}

	req := requestFromPR("acme/widget", "widget", pr)
	assert.Equal(t, "acme/widget", req.ProjectID)
	assert.Equal(t, "widget", req.ProjectName)
	assert.Equal(t, 42, req.Number)
	assert.Equal(t, "feature-x", req.SourceBranch)
	assert.Equal(t, "bob", req.AssigneeUsername)
	assert.Equal(t, "alice", req.AuthorUsername)
	// Login fills in when no display name is set.
	assert.Equal(t, "alice", req.AuthorName)
	assert.True(t, req.LastActivity.Equal(updated))
}

func TestRequestFromPRMissingActivity(t *testing.T) {
	req := requestFromPR("acme/widget", "widget", &github.PullRequest{
		Number: github.Int(7),
	})
	assert.True(t, req.LastActivity.IsZero())
	assert.Empty(t, req.AssigneeUsername)
}
