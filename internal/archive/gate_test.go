package archive

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Re4zOon/repo-maintainer/internal/ledger"
	"github.com/Re4zOon/repo-maintainer/internal/model"
	"github.com/Re4zOon/repo-maintainer/internal/platform/platformtest"
)

var gateNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestGate(t *testing.T, fake *platformtest.Fake) (*Gate, *ledger.Store) {
	t.Helper()
	store, err := ledger.Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	g := NewGate(fake, store, 4, "#skip-auto-archive")
	g.now = func() time.Time { return gateNow }
	return g, store
}

func TestBranchEligibility(t *testing.T) {
	branch := model.StaleBranch{ProjectID: "42", BranchName: "old"}

	tests := []struct {
		name       string
		firstFound time.Time // zero means never notified
		want       bool
	}{
		{"never notified", time.Time{}, false},
		{"warned five weeks ago", gateNow.AddDate(0, 0, -35), true},
		{"warned two weeks ago", gateNow.AddDate(0, 0, -14), false},
		{"exactly at the boundary", gateNow.AddDate(0, 0, -28), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, store := newTestGate(t, &platformtest.Fake{})
			if !tt.firstFound.IsZero() {
				require.NoError(t, store.RecordNotification(
					context.Background(), "dev@example.com", model.ItemTypeBranch, "42", "old", tt.firstFound))
			}

			eligible, err := g.BranchEligible(context.Background(), branch)
			require.NoError(t, err)
			assert.Equal(t, tt.want, eligible)
		})
	}
}

func TestBranchEligibilityUsesEarliestRecipient(t *testing.T) {
	g, store := newTestGate(t, &platformtest.Fake{})
	ctx := context.Background()

	// One recipient heard about it recently, another five weeks ago.
	// The earliest warning controls.
	require.NoError(t, store.RecordNotification(ctx, "a@example.com", model.ItemTypeBranch, "42", "old", gateNow.AddDate(0, 0, -2)))
	require.NoError(t, store.RecordNotification(ctx, "b@example.com", model.ItemTypeBranch, "42", "old", gateNow.AddDate(0, 0, -35)))

	eligible, err := g.BranchEligible(ctx, model.StaleBranch{ProjectID: "42", BranchName: "old"})
	require.NoError(t, err)
	assert.True(t, eligible)
}

func TestRequestOptOut(t *testing.T) {
	tests := []struct {
		name     string
		comments []string
		optedOut bool
	}{
		{"no comments", nil, false},
		{"unrelated comments", []string{"lgtm", "ping"}, false},
		{"exact marker", []string{"#skip-auto-archive"}, true},
		{"marker inside a sentence", []string{"please #SKIP-AUTO-ARCHIVE this one"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &platformtest.Fake{
				RecentCommentsFn: func(_ context.Context, _ string, _, limit int) ([]string, error) {
					assert.Equal(t, optOutScanDepth, limit)
					return tt.comments, nil
				},
			}
			g, store := newTestGate(t, fake)
			ctx := context.Background()
			require.NoError(t, store.RecordNotification(ctx, "dev@example.com", model.ItemTypeRequest, "42", "7", gateNow.AddDate(0, 0, -40)))

			eligible, optedOut, err := g.RequestEligible(ctx, model.StaleRequest{ProjectID: "42", Number: 7})
			require.NoError(t, err)
			assert.Equal(t, tt.optedOut, optedOut)
			assert.Equal(t, !tt.optedOut, eligible)
		})
	}
}

func TestRequestNotEligibleSkipsOptOutScan(t *testing.T) {
	fake := &platformtest.Fake{}
	g, _ := newTestGate(t, fake)

	eligible, optedOut, err := g.RequestEligible(context.Background(), model.StaleRequest{ProjectID: "42", Number: 7})
	require.NoError(t, err)
	assert.False(t, eligible)
	assert.False(t, optedOut)
	assert.Equal(t, 0, fake.Calls("ListRecentComments"))
}
