package platform

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gofri/go-github-ratelimit/github_ratelimit"
	"github.com/google/go-github/v62/github"
	"golang.org/x/oauth2"

	"github.com/Re4zOon/repo-maintainer/internal/log"
	"github.com/Re4zOon/repo-maintainer/internal/model"
)

// GitHub implements Platform against the GitHub REST API. Project IDs
// are "owner/repo" strings.
type GitHub struct {
	client     *github.Client
	httpClient *http.Client
}

// NewGitHub builds an authenticated GitHub client. apiURL is empty for
// github.com or the base URL of a GitHub Enterprise instance. The token
// is verified by fetching the authenticated user.
func NewGitHub(ctx context.Context, token, apiURL string) (*GitHub, error) {
	if token == "" {
		return nil, fmt.Errorf("GitHub token not provided")
	}

	waiter, err := github_ratelimit.NewRateLimitWaiter(nil, github_ratelimit.WithSingleSleepLimit(time.Hour, nil))
	if err != nil {
		return nil, fmt.Errorf("failed to create rate limit waiter: %w", err)
	}
	httpClient := &http.Client{
		Transport: &oauth2.Transport{
			Base:   waiter,
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}),
		},
	}

	client := github.NewClient(httpClient)
	if apiURL != "" {
		client, err = client.WithEnterpriseURLs(apiURL, apiURL)
		if err != nil {
			return nil, fmt.Errorf("invalid GitHub Enterprise URL %s: %w", apiURL, err)
		}
	}

	if _, _, err := client.Users.Get(ctx, ""); err != nil {
		return nil, fmt.Errorf("failed to authenticate with GitHub: %w", err)
	}
	return &GitHub{client: client, httpClient: httpClient}, nil
}

func splitRepo(projectID string) (owner, repo string, err error) {
	parts := strings.SplitN(projectID, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repository %q (want owner/repo)", projectID)
	}
	return parts[0], parts[1], nil
}

// ListNonProtectedBranches implements Platform. The branch listing
// carries only commit SHAs, so each branch costs one extra GetCommit
// call to learn its commit instant and committer.
func (g *GitHub) ListNonProtectedBranches(ctx context.Context, projectID string) ([]model.StaleBranch, error) {
	owner, repo, err := splitRepo(projectID)
	if err != nil {
		return nil, err
	}

	var branches []model.StaleBranch
	opt := &github.BranchListOptions{
		Protected:   github.Bool(false),
		ListOptions: github.ListOptions{PerPage: 100},
	}
	for {
		page, resp, err := g.client.Repositories.ListBranches(ctx, owner, repo, opt)
		if err != nil {
			return nil, fmt.Errorf("failed to list branches for %s: %w", projectID, err)
		}
		for _, b := range page {
			branch := model.StaleBranch{
				ProjectID:   projectID,
				ProjectName: repo,
				BranchName:  b.GetName(),
			}
			commit, _, err := g.client.Repositories.GetCommit(ctx, owner, repo, b.GetCommit().GetSHA(), nil)
			if err != nil {
				log.Warn().Str("project", projectID).Str("branch", b.GetName()).Err(err).
					Msg("could not fetch branch head commit")
				branches = append(branches, branch)
				continue
			}
			detail := commit.GetCommit()
			if committer := detail.GetCommitter(); committer != nil {
				branch.LastCommit = committer.GetDate().UTC()
				branch.CommitterEmail = committer.GetEmail()
			}
			if author := detail.GetAuthor(); author != nil {
				branch.AuthorName = author.GetName()
				branch.AuthorEmail = author.GetEmail()
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
func (g *GitHub) ListOpenRequests(ctx context.Context, projectID string) ([]model.StaleRequest, error) {
	owner, repo, err := splitRepo(projectID)
	if err != nil {
		return nil, err
	}

	var requests []model.StaleRequest
	opt := &github.PullRequestListOptions{
		State:       "open",
		ListOptions: github.ListOptions{PerPage: 100},
	}
	for {
		page, resp, err := g.client.PullRequests.List(ctx, owner, repo, opt)
		if err != nil {
			return nil, fmt.Errorf("failed to list pull requests for %s: %w", projectID, err)
		}
		for _, pr := range page {
			requests = append(requests, requestFromPR(projectID, repo, pr))
		}
		if resp.NextPage == 0 {
			break
		}
		opt.Page = resp.NextPage
	}
	return requests, nil
}

func requestFromPR(projectID, repo string, pr *github.PullRequest) model.StaleRequest {
	req := model.StaleRequest{
		ProjectID:    projectID,
		ProjectName:  repo,
		Number:       pr.GetNumber(),
		Title:        pr.GetTitle(),
		WebURL:       pr.GetHTMLURL(),
		SourceBranch: pr.GetHead().GetRef(),
	}
	if !pr.GetUpdatedAt().IsZero() {
		req.LastActivity = pr.GetUpdatedAt().UTC()
	}
	if assignee := pr.GetAssignee(); assignee != nil {
		req.AssigneeUsername = assignee.GetLogin()
		req.AssigneeEmail = assignee.GetEmail()
	}
	if author := pr.GetUser(); author != nil {
		req.AuthorUsername = author.GetLogin()
		req.AuthorEmail = author.GetEmail()
		req.AuthorName = author.GetLogin()
		if author.GetName() != "" {
			req.AuthorName = author.GetName()
		}
	}
	return req
}

// LatestCommentInstant implements Platform.
func (g *GitHub) LatestCommentInstant(ctx context.Context, projectID string, number int) (time.Time, bool, error) {
	owner, repo, err := splitRepo(projectID)
	if err != nil {
		return time.Time{}, false, err
	}

	comments, _, err := g.client.Issues.ListComments(ctx, owner, repo, number, &github.IssueListCommentsOptions{
		Sort:        github.String("updated"),
		Direction:   github.String("desc"),
		ListOptions: github.ListOptions{PerPage: 1},
	})
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to list comments for #%d in %s: %w", number, projectID, err)
	}
	if len(comments) == 0 {
		return time.Time{}, false, nil
	}

	c := comments[0]
	if !c.GetUpdatedAt().IsZero() {
		return c.GetUpdatedAt().UTC(), true, nil
	}
	if !c.GetCreatedAt().IsZero() {
		return c.GetCreatedAt().UTC(), true, nil
	}
	return time.Time{}, false, nil
}

// FindOpenRequestForBranch implements Platform.
func (g *GitHub) FindOpenRequestForBranch(ctx context.Context, projectID, branch string) (*model.StaleRequest, error) {
	owner, repo, err := splitRepo(projectID)
	if err != nil {
		return nil, err
	}

	prs, _, err := g.client.PullRequests.List(ctx, owner, repo, &github.PullRequestListOptions{
		State:       "open",
		Head:        owner + ":" + branch,
		ListOptions: github.ListOptions{PerPage: 1},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to find pull request for branch %s in %s: %w", branch, projectID, err)
	}
	if len(prs) == 0 {
		return nil, nil
	}
	req := requestFromPR(projectID, repo, prs[0])
	return &req, nil
}

// ResolveUserEmail implements Platform.
func (g *GitHub) ResolveUserEmail(ctx context.Context, username string) (string, error) {
	user, _, err := g.client.Users.Get(ctx, username)
	if err != nil {
		return "", fmt.Errorf("failed to look up user %s: %w", username, err)
	}
	return user.GetEmail(), nil
}

// IsUserActive implements Platform. GitHub has no suspended-user state
// visible to ordinary tokens, so a user that can be found by email
// search counts as active.
func (g *GitHub) IsUserActive(ctx context.Context, email string) (bool, error) {
	result, _, err := g.client.Search.Users(ctx, email+" in:email", &github.SearchOptions{
		ListOptions: github.ListOptions{PerPage: 1},
	})
	if err != nil {
		return false, fmt.Errorf("failed to check user status for %s: %w", email, err)
	}
	return result.GetTotal() > 0, nil
}

// DownloadBranchArchive implements Platform.
func (g *GitHub) DownloadBranchArchive(ctx context.Context, projectID, branch string) ([]byte, error) {
	owner, repo, err := splitRepo(projectID)
	if err != nil {
		return nil, err
	}

	url, _, err := g.client.Repositories.GetArchiveLink(ctx, owner, repo, github.Tarball,
		&github.RepositoryContentGetOptions{Ref: branch}, 5)
	if err != nil {
		return nil, fmt.Errorf("failed to get archive link for %s in %s: %w", branch, projectID, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url.String(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download archive of %s in %s: %w", branch, projectID, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("archive download for %s in %s returned %s", branch, projectID, resp.Status)
	}
	return io.ReadAll(resp.Body)
}

// PostComment implements Platform.
func (g *GitHub) PostComment(ctx context.Context, projectID string, number int, body string) error {
	owner, repo, err := splitRepo(projectID)
	if err != nil {
		return err
	}
	_, _, err = g.client.Issues.CreateComment(ctx, owner, repo, number, &github.IssueComment{
		Body: github.String(body),
	})
	if err != nil {
		return fmt.Errorf("failed to comment on #%d in %s: %w", number, projectID, err)
	}
	return nil
}

// CloseRequest implements Platform.
func (g *GitHub) CloseRequest(ctx context.Context, projectID string, number int) error {
	owner, repo, err := splitRepo(projectID)
	if err != nil {
		return err
	}
	_, _, err = g.client.PullRequests.Edit(ctx, owner, repo, number, &github.PullRequest{
		State: github.String("closed"),
	})
	if err != nil {
		return fmt.Errorf("failed to close #%d in %s: %w", number, projectID, err)
	}
	return nil
}

// DeleteBranch implements Platform.
func (g *GitHub) DeleteBranch(ctx context.Context, projectID, branch string) error {
	owner, repo, err := splitRepo(projectID)
	if err != nil {
		return err
	}
	if _, err := g.client.Git.DeleteRef(ctx, owner, repo, "heads/"+branch); err != nil {
		return fmt.Errorf("failed to delete branch %s in %s: %w", branch, projectID, err)
	}
	return nil
}

// ListRecentComments implements Platform.
func (g *GitHub) ListRecentComments(ctx context.Context, projectID string, number, limit int) ([]string, error) {
	owner, repo, err := splitRepo(projectID)
	if err != nil {
		return nil, err
	}

	comments, _, err := g.client.Issues.ListComments(ctx, owner, repo, number, &github.IssueListCommentsOptions{
		Sort:        github.String("created"),
		Direction:   github.String("desc"),
		ListOptions: github.ListOptions{PerPage: limit},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list comments for #%d in %s: %w", number, projectID, err)
	}
	bodies := make([]string, 0, len(comments))
	for _, c := range comments {
		bodies = append(bodies, c.GetBody())
	}
	return bodies, nil
}

var _ Platform = (*GitHub)(nil)
