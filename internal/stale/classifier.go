// Package stale decides which branches and merge/pull requests are
// stale and who should hear about them. It reconciles branch-level and
// request-level activity so an item is reported exactly once: an open
// request always speaks for its source branch.
package stale

import (
	"context"
	"time"

	"github.com/Re4zOon/repo-maintainer/internal/log"
	"github.com/Re4zOon/repo-maintainer/internal/model"
	"github.com/Re4zOon/repo-maintainer/internal/platform"
	"github.com/Re4zOon/repo-maintainer/internal/timeutil"
)

// Classifier computes per-project stale-item listings and attributes
// each item to a notification target.
type Classifier struct {
	platform      platform.Platform
	staleDays     int
	fallbackEmail string

	// now is injectable for tests.
	now func() time.Time
}

// NewClassifier builds a classifier over the given platform.
func NewClassifier(p platform.Platform, staleDays int, fallbackEmail string) *Classifier {
	return &Classifier{
		platform:      p,
		staleDays:     staleDays,
		fallbackEmail: fallbackEmail,
		now:           time.Now,
	}
}

// SetNow overrides the classifier's clock. Tests only.
func (c *Classifier) SetNow(now func() time.Time) { c.now = now }

// ListStale returns the project's stale requests and bare stale
// branches.
//
// A request is stale when its last activity (metadata update or newest
// comment, whichever is later) predates the cutoff; its source branch
// is then claimed and never reported separately. A branch is reported
// bare only when its last commit predates the cutoff AND no open
// request exists for it at all: an active request masks its branch
// entirely. Items whose activity instant cannot be determined are
// excluded outright.
func (c *Classifier) ListStale(ctx context.Context, projectID string) ([]model.StaleBranch, []model.StaleRequest, error) {
	cutoff := timeutil.DaysAgo(c.now(), c.staleDays)

	staleRequests, err := c.ListStaleRequests(ctx, projectID)
	if err != nil {
		return nil, nil, err
	}
	claimed := make(map[string]bool)
	for _, req := range staleRequests {
		claimed[req.SourceBranch] = true
	}

	branches, err := c.platform.ListNonProtectedBranches(ctx, projectID)
	if err != nil {
		return nil, nil, err
	}

	var staleBranches []model.StaleBranch
	for _, branch := range branches {
		if claimed[branch.BranchName] {
			log.Debug().Str("project", projectID).Str("branch", branch.BranchName).
				Msg("branch already covered by a stale request")
			continue
		}
		if branch.LastCommit.IsZero() {
			log.Warn().Str("project", projectID).Str("branch", branch.BranchName).
				Msg("commit instant unknown, excluding branch from staleness check")
			continue
		}
		if !branch.LastCommit.Before(cutoff) {
			continue
		}

		open, err := c.platform.FindOpenRequestForBranch(ctx, projectID, branch.BranchName)
		if err != nil {
			log.Warn().Str("project", projectID).Str("branch", branch.BranchName).Err(err).
				Msg("could not check for an open request")
		}
		if open != nil {
			// The request is active (otherwise it would be in the
			// claimed set already); it takes precedence and nothing is
			// reported this run.
			log.Debug().Str("project", projectID).Str("branch", branch.BranchName).
				Int("number", open.Number).Msg("branch has an active open request")
			continue
		}
		staleBranches = append(staleBranches, branch)
	}

	return staleBranches, staleRequests, nil
}

// ListStaleRequests returns the project's open requests whose last
// activity predates the cutoff. Each returned request carries its
// effective last activity, newest comment included.
func (c *Classifier) ListStaleRequests(ctx context.Context, projectID string) ([]model.StaleRequest, error) {
	cutoff := timeutil.DaysAgo(c.now(), c.staleDays)

	requests, err := c.platform.ListOpenRequests(ctx, projectID)
	if err != nil {
		return nil, err
	}

	var stale []model.StaleRequest
	for _, req := range requests {
		last := req.LastActivity
		commentAt, ok, err := c.platform.LatestCommentInstant(ctx, projectID, req.Number)
		if err != nil {
			log.Debug().Str("project", projectID).Int("number", req.Number).Err(err).
				Msg("could not fetch newest comment, using request metadata only")
		} else if ok && commentAt.After(last) {
			last = commentAt
		}

		if last.IsZero() {
			log.Debug().Str("project", projectID).Int("number", req.Number).
				Msg("last activity unknown, excluding request from staleness check")
			continue
		}
		if !last.Before(cutoff) {
			continue
		}

		req.LastActivity = last
		stale = append(stale, req)
	}

	return stale, nil
}

// ClassifyProject runs ListStale and groups the results by resolved
// notification target. Items with no resolvable recipient are dropped
// with a warning.
func (c *Classifier) ClassifyProject(ctx context.Context, projectID string) (map[string]*model.RecipientItems, error) {
	branches, requests, err := c.ListStale(ctx, projectID)
	if err != nil {
		return nil, err
	}

	out := make(map[string]*model.RecipientItems)
	add := func(email string) *model.RecipientItems {
		set, ok := out[email]
		if !ok {
			set = &model.RecipientItems{}
			out[email] = set
		}
		return set
	}

	for _, req := range requests {
		email := c.requestRecipient(ctx, req)
		if email == "" {
			log.Warn().Str("project", req.ProjectName).Int("number", req.Number).
				Msg("no notification email for stale request, configure fallback_email to avoid missing notifications")
			continue
		}
		add(email).Requests = append(add(email).Requests, req)
	}

	for _, branch := range branches {
		email := c.branchRecipient(ctx, branch)
		if email == "" {
			log.Warn().Str("project", branch.ProjectName).Str("branch", branch.BranchName).
				Str("committer", branch.CommitterEmail).
				Msg("no notification email for stale branch, configure fallback_email to avoid missing notifications")
			continue
		}
		add(email).Branches = append(add(email).Branches, branch)
	}

	return out, nil
}

// requestRecipient resolves the notification target for a stale
// request: assignee first, then author, each subject to an active-user
// check, then the configured fallback.
func (c *Classifier) requestRecipient(ctx context.Context, req model.StaleRequest) string {
	if email := c.usableEmail(ctx, req.AssigneeEmail, req.AssigneeUsername); email != "" {
		return email
	}
	if req.AssigneeEmail != "" || req.AssigneeUsername != "" {
		log.Debug().Int("number", req.Number).Msg("assignee not usable, trying author")
	}
	if email := c.usableEmail(ctx, req.AuthorEmail, req.AuthorUsername); email != "" {
		return email
	}
	return c.fallbackEmail
}

// branchRecipient resolves the notification target for a bare stale
// branch: the committer (author as a stand-in) when active, else the
// fallback.
func (c *Classifier) branchRecipient(ctx context.Context, branch model.StaleBranch) string {
	email := branch.CommitterEmail
	if email == "" {
		email = branch.AuthorEmail
	}
	if email == "" {
		return c.fallbackEmail
	}
	if c.isActive(ctx, email) {
		return email
	}
	log.Info().Str("email", email).Msg("user is not active, using fallback email")
	return c.fallbackEmail
}

// usableEmail resolves an email from the given email/username pair and
// returns it only when the user is active on the platform.
func (c *Classifier) usableEmail(ctx context.Context, email, username string) string {
	if email == "" && username != "" {
		resolved, err := c.platform.ResolveUserEmail(ctx, username)
		if err != nil {
			log.Warn().Str("username", username).Err(err).Msg("could not resolve user email")
			return ""
		}
		email = resolved
	}
	if email == "" {
		return ""
	}
	if !c.isActive(ctx, email) {
		return ""
	}
	return email
}

func (c *Classifier) isActive(ctx context.Context, email string) bool {
	active, err := c.platform.IsUserActive(ctx, email)
	if err != nil {
		log.Warn().Str("email", email).Err(err).Msg("could not check user status")
		return false
	}
	return active
}
