package platform

import (
	"context"
	"fmt"
	"sync"
	"time"

	gitlab "gitlab.com/gitlab-org/api/client-go"
	"golang.org/x/time/rate"

	"github.com/Re4zOon/repo-maintainer/internal/log"
	"github.com/Re4zOon/repo-maintainer/internal/model"
)

// gitlabRequestsPerSecond paces API calls so the fan-out workers stay
// under gitlab.com's client-side limits.
const gitlabRequestsPerSecond = 10

// GitLab implements Platform against the GitLab REST API.
type GitLab struct {
	client *gitlab.Client

	mu    sync.Mutex
	names map[string]string // projectID -> display name
}

// NewGitLab builds an authenticated GitLab client for the given base
// URL and verifies the token by fetching the current user.
func NewGitLab(ctx context.Context, baseURL, token string) (*GitLab, error) {
	client, err := gitlab.NewClient(token,
		gitlab.WithBaseURL(baseURL),
		gitlab.WithCustomLimiter(rate.NewLimiter(rate.Limit(gitlabRequestsPerSecond), gitlabRequestsPerSecond)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create GitLab client: %w", err)
	}
	if _, _, err := client.Users.CurrentUser(gitlab.WithContext(ctx)); err != nil {
		return nil, fmt.Errorf("failed to authenticate with GitLab: %w", err)
	}
	return &GitLab{client: client, names: make(map[string]string)}, nil
}

func (g *GitLab) projectName(ctx context.Context, projectID string) (string, error) {
	g.mu.Lock()
	name, ok := g.names[projectID]
	g.mu.Unlock()
	if ok {
		return name, nil
	}

	project, _, err := g.client.Projects.GetProject(projectID, nil, gitlab.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("failed to get project %s: %w", projectID, err)
	}

	g.mu.Lock()
	g.names[projectID] = project.Name
	g.mu.Unlock()
	return project.Name, nil
}

// ListNonProtectedBranches implements Platform.
func (g *GitLab) ListNonProtectedBranches(ctx context.Context, projectID string) ([]model.StaleBranch, error) {
	name, err := g.projectName(ctx, projectID)
	if err != nil {
		return nil, err
	}

	var branches []model.StaleBranch
	opt := &gitlab.ListBranchesOptions{
		ListOptions: gitlab.ListOptions{PerPage: 100},
	}
	for {
		page, resp, err := g.client.Branches.ListBranches(projectID, opt, gitlab.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("failed to list branches for project %s: %w", projectID, err)
		}
		for _, b := range page {
			if b.Protected {
				log.Debug().Str("project", projectID).Str("branch", b.Name).Msg("skipping protected branch")
				continue
			}
			branch := model.StaleBranch{
				ProjectID:   projectID,
				ProjectName: name,
				BranchName:  b.Name,
			}
			if b.Commit != nil {
				if b.Commit.CommittedDate != nil {
					branch.LastCommit = b.Commit.CommittedDate.UTC()
				}
				branch.AuthorName = b.Commit.AuthorName
				branch.AuthorEmail = b.Commit.AuthorEmail
				branch.CommitterEmail = b.Commit.CommitterEmail
			}
			branches = append(branches, branch)
		}
		if resp.NextPage == 0 {
			break
		}
		opt.Page = resp.NextPage
	}
	return branches, nil
}

// ListOpenRequests implements Platform.
func (g *GitLab) ListOpenRequests(ctx context.Context, projectID string) ([]model.StaleRequest, error) {
	name, err := g.projectName(ctx, projectID)
	if err != nil {
		return nil, err
	}

	var requests []model.StaleRequest
	opt := &gitlab.ListProjectMergeRequestsOptions{
		State:       gitlab.Ptr("opened"),
		ListOptions: gitlab.ListOptions{PerPage: 100},
	}
	for {
		page, resp, err := g.client.MergeRequests.ListProjectMergeRequests(projectID, opt, gitlab.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("failed to list merge requests for project %s: %w", projectID, err)
		}
		for _, mr := range page {
			requests = append(requests, g.requestFromMR(projectID, name, mr))
		}
		if resp.NextPage == 0 {
			break
		}
		opt.Page = resp.NextPage
	}
	return requests, nil
}

func (g *GitLab) requestFromMR(projectID, projectName string, mr *gitlab.BasicMergeRequest) model.StaleRequest {
	req := model.StaleRequest{
		ProjectID:    projectID,
		ProjectName:  projectName,
		Number:       mr.IID,
		Title:        mr.Title,
		WebURL:       mr.WebURL,
		SourceBranch: mr.SourceBranch,
	}
	if mr.UpdatedAt != nil {
		req.LastActivity = mr.UpdatedAt.UTC()
	}
	if mr.Assignee != nil {
		req.AssigneeUsername = mr.Assignee.Username
	}
	if mr.Author != nil {
		req.AuthorUsername = mr.Author.Username
		req.AuthorName = mr.Author.Name
	}
	return req
}

// LatestCommentInstant implements Platform. Only the newest note is
// fetched; ordering is delegated to the API.
func (g *GitLab) LatestCommentInstant(ctx context.Context, projectID string, number int) (time.Time, bool, error) {
	notes, _, err := g.client.Notes.ListMergeRequestNotes(projectID, number, &gitlab.ListMergeRequestNotesOptions{
		OrderBy:     gitlab.Ptr("updated_at"),
		Sort:        gitlab.Ptr("desc"),
		ListOptions: gitlab.ListOptions{PerPage: 1},
	}, gitlab.WithContext(ctx))
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to list notes for !%d in project %s: %w", number, projectID, err)
	}
	if len(notes) == 0 {
		return time.Time{}, false, nil
	}

	note := notes[0]
	switch {
	case note.UpdatedAt != nil:
		return note.UpdatedAt.UTC(), true, nil
	case note.CreatedAt != nil:
		return note.CreatedAt.UTC(), true, nil
	default:
		return time.Time{}, false, nil
	}
}

// FindOpenRequestForBranch implements Platform.
func (g *GitLab) FindOpenRequestForBranch(ctx context.Context, projectID, branch string) (*model.StaleRequest, error) {
	name, err := g.projectName(ctx, projectID)
	if err != nil {
		return nil, err
	}

	mrs, _, err := g.client.MergeRequests.ListProjectMergeRequests(projectID, &gitlab.ListProjectMergeRequestsOptions{
		State:        gitlab.Ptr("opened"),
		SourceBranch: gitlab.Ptr(branch),
		ListOptions:  gitlab.ListOptions{PerPage: 1},
	}, gitlab.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to find merge request for branch %s in project %s: %w", branch, projectID, err)
	}
	if len(mrs) == 0 {
		return nil, nil
	}
	req := g.requestFromMR(projectID, name, mrs[0])
	return &req, nil
}

// ResolveUserEmail implements Platform.
func (g *GitLab) ResolveUserEmail(ctx context.Context, username string) (string, error) {
	users, _, err := g.client.Users.ListUsers(&gitlab.ListUsersOptions{
		Username:    gitlab.Ptr(username),
		ListOptions: gitlab.ListOptions{PerPage: 1},
	}, gitlab.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("failed to look up user %s: %w", username, err)
	}
	if len(users) == 0 {
		return "", nil
	}
	if users[0].Email != "" {
		return users[0].Email, nil
	}
	return users[0].PublicEmail, nil
}

// IsUserActive implements Platform.
func (g *GitLab) IsUserActive(ctx context.Context, email string) (bool, error) {
	users, _, err := g.client.Users.ListUsers(&gitlab.ListUsersOptions{
		Search:      gitlab.Ptr(email),
		ListOptions: gitlab.ListOptions{PerPage: 1},
	}, gitlab.WithContext(ctx))
	if err != nil {
		return false, fmt.Errorf("failed to check user status for %s: %w", email, err)
	}
	if len(users) == 0 {
		return false, nil
	}
	return users[0].State == "active", nil
}

// DownloadBranchArchive implements Platform.
func (g *GitLab) DownloadBranchArchive(ctx context.Context, projectID, branch string) ([]byte, error) {
	data, _, err := g.client.Repositories.Archive(projectID, &gitlab.ArchiveOptions{
		SHA:    gitlab.Ptr(branch),
		Format: gitlab.Ptr("tar.gz"),
	}, gitlab.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to download archive of %s in project %s: %w", branch, projectID, err)
	}
	return data, nil
}

// PostComment implements Platform.
func (g *GitLab) PostComment(ctx context.Context, projectID string, number int, body string) error {
	_, _, err := g.client.Notes.CreateMergeRequestNote(projectID, number, &gitlab.CreateMergeRequestNoteOptions{
		Body: gitlab.Ptr(body),
	}, gitlab.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to comment on !%d in project %s: %w", number, projectID, err)
	}
	return nil
}

// CloseRequest implements Platform.
func (g *GitLab) CloseRequest(ctx context.Context, projectID string, number int) error {
	_, _, err := g.client.MergeRequests.UpdateMergeRequest(projectID, number, &gitlab.UpdateMergeRequestOptions{
		StateEvent: gitlab.Ptr("close"),
	}, gitlab.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to close !%d in project %s: %w", number, projectID, err)
	}
	return nil
}

// DeleteBranch implements Platform.
func (g *GitLab) DeleteBranch(ctx context.Context, projectID, branch string) error {
	if _, err := g.client.Branches.DeleteBranch(projectID, branch, gitlab.WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to delete branch %s in project %s: %w", branch, projectID, err)
	}
	return nil
}

// ListRecentComments implements Platform.
func (g *GitLab) ListRecentComments(ctx context.Context, projectID string, number, limit int) ([]string, error) {
	notes, _, err := g.client.Notes.ListMergeRequestNotes(projectID, number, &gitlab.ListMergeRequestNotesOptions{
		OrderBy:     gitlab.Ptr("created_at"),
		Sort:        gitlab.Ptr("desc"),
		ListOptions: gitlab.ListOptions{PerPage: limit},
	}, gitlab.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to list comments for !%d in project %s: %w", number, projectID, err)
	}
	bodies := make([]string, 0, len(notes))
	for _, n := range notes {
		bodies = append(bodies, n.Body)
	}
	return bodies, nil
}

// compile-time interface check
var _ Platform = (*GitLab)(nil)
