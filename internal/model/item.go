// Package model contains the domain types shared across the scanner,
// notifier and archiver. They are independent of any hosting-platform
// library.
package model

import (
	"strconv"
	"time"
)

// ItemType distinguishes the two kinds of stale items. The values are
// also the item_type discriminator stored in the ledger.
type ItemType string

const (
	ItemTypeBranch  ItemType = "branch"
	ItemTypeRequest ItemType = "merge_request"
)

// StaleBranch is a non-protected branch whose last commit predates the
// staleness cutoff. Recomputed on every run, never persisted.
type StaleBranch struct {
	ProjectID      string
	ProjectName    string
	BranchName     string
	LastCommit     time.Time
	AuthorName     string
	AuthorEmail    string
	CommitterEmail string
}

// Key returns the ledger item_key for the branch.
func (b StaleBranch) Key() string { return b.BranchName }

// StaleRequest is an open merge/pull request whose last activity
// (metadata update or newest comment, whichever is later) predates the
// staleness cutoff.
type StaleRequest struct {
	ProjectID        string
	ProjectName      string
	Number           int
	Title            string
	WebURL           string
	SourceBranch     string
	AssigneeEmail    string
	AssigneeUsername string
	AuthorEmail      string
	AuthorUsername   string
	AuthorName       string
	// LastActivity is zero when it could not be determined; such
	// requests are excluded from staleness consideration.
	LastActivity time.Time
}

// Key returns the ledger item_key for the request.
func (r StaleRequest) Key() string { return strconv.Itoa(r.Number) }

// RecipientItems groups the stale items attributed to one recipient.
type RecipientItems struct {
	Branches []StaleBranch
	Requests []StaleRequest
}

// Empty reports whether the set holds no items at all.
func (s *RecipientItems) Empty() bool {
	return s == nil || (len(s.Branches) == 0 && len(s.Requests) == 0)
}

// Len returns the total number of items in the set.
func (s *RecipientItems) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Branches) + len(s.Requests)
}
