// Package archive removes long-ignored stale items after a delivered
// warning: export the branch tree to a local tar.gz, close the request
// when there is one, delete the branch. Eligibility is anchored to the
// notification ledger so nothing is ever removed without a prior
// recorded warning.
package archive

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Re4zOon/repo-maintainer/internal/ledger"
	"github.com/Re4zOon/repo-maintainer/internal/model"
	"github.com/Re4zOon/repo-maintainer/internal/platform"
)

// optOutScanDepth is how many of the newest comments are searched for
// the opt-out marker.
const optOutScanDepth = 20

// Gate decides whether a currently stale item may be archived.
type Gate struct {
	platform     platform.Platform
	ledger       *ledger.Store
	cleanupWeeks int
	optOutMarker string

	now func() time.Time
}

// NewGate builds an eligibility gate. optOutMarker is matched
// case-insensitively as a substring of recent request comments.
func NewGate(p platform.Platform, store *ledger.Store, cleanupWeeks int, optOutMarker string) *Gate {
	return &Gate{
		platform:     p,
		ledger:       store,
		cleanupWeeks: cleanupWeeks,
		optOutMarker: optOutMarker,
		now:          time.Now,
	}
}

// BranchEligible reports whether a stale branch has been warned about
// long enough ago to archive. A branch nobody was ever notified about
// is never eligible.
func (g *Gate) BranchEligible(ctx context.Context, branch model.StaleBranch) (bool, error) {
	return g.warnedLongEnough(ctx, model.ItemTypeBranch, branch.ProjectID, branch.Key())
}

// RequestEligible reports whether a stale request may be archived and
// whether its thread carries the opt-out marker. Opted-out requests are
// never eligible regardless of age.
func (g *Gate) RequestEligible(ctx context.Context, req model.StaleRequest) (eligible, optedOut bool, err error) {
	eligible, err = g.warnedLongEnough(ctx, model.ItemTypeRequest, req.ProjectID, req.Key())
	if err != nil || !eligible {
		return eligible, false, err
	}

	optedOut, err = g.hasOptOut(ctx, req.ProjectID, req.Number)
	if err != nil {
		return false, false, fmt.Errorf("checking opt-out marker: %w", err)
	}
	if optedOut {
		return false, true, nil
	}
	return true, false, nil
}

// warnedLongEnough checks the earliest first-found instant across all
// recipients against the cleanup window. The comparison is strict so an
// item exactly at the boundary survives one more run.
func (g *Gate) warnedLongEnough(ctx context.Context, itemType model.ItemType, projectID, key string) (bool, error) {
	firstFound, ok, err := g.ledger.EarliestFirstFound(ctx, itemType, projectID, key)
	if err != nil {
		return false, fmt.Errorf("reading notification history: %w", err)
	}
	if !ok {
		return false, nil
	}
	threshold := g.now().Add(-time.Duration(g.cleanupWeeks) * 7 * 24 * time.Hour)
	return firstFound.Before(threshold), nil
}

func (g *Gate) hasOptOut(ctx context.Context, projectID string, number int) (bool, error) {
	bodies, err := g.platform.ListRecentComments(ctx, projectID, number, optOutScanDepth)
	if err != nil {
		return false, err
	}
	marker := strings.ToLower(g.optOutMarker)
	for _, body := range bodies {
		if strings.Contains(strings.ToLower(body), marker) {
			return true, nil
		}
	}
	return false, nil
}
