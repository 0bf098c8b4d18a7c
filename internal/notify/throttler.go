// Package notify decides when a recipient should be emailed about
// their stale items, renders the notification and delivers it over
// SMTP. Delivery cadence is enforced through the ledger so restarts
// never reset the throttling window.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/Re4zOon/repo-maintainer/internal/ledger"
	"github.com/Re4zOon/repo-maintainer/internal/model"
	"github.com/Re4zOon/repo-maintainer/internal/timeutil"
)

// Throttler answers "is this recipient due for an email" from the
// notification ledger.
type Throttler struct {
	ledger        *ledger.Store
	frequencyDays int

	now func() time.Time
}

// NewThrottler builds a throttler over the given ledger.
func NewThrottler(store *ledger.Store, frequencyDays int) *Throttler {
	return &Throttler{ledger: store, frequencyDays: frequencyDays, now: time.Now}
}

// ShouldNotify reports whether the recipient is due. An empty item set
// is never due. Any item the recipient has never been notified about
// makes them due immediately; otherwise they are due once the oldest
// last-notified instant across their items has left the frequency
// window.
func (t *Throttler) ShouldNotify(ctx context.Context, recipient string, items *model.RecipientItems) (bool, error) {
	if items.Empty() {
		return false, nil
	}

	cutoff := timeutil.DaysAgo(t.now(), t.frequencyDays)

	var oldest time.Time
	track := func(itemType model.ItemType, projectID, key string) (newItem bool, err error) {
		last, ok, err := t.ledger.LastNotified(ctx, recipient, itemType, projectID, key)
		if err != nil {
			return false, fmt.Errorf("reading notification history: %w", err)
		}
		if !ok {
			return true, nil
		}
		if oldest.IsZero() || last.Before(oldest) {
			oldest = last
		}
		return false, nil
	}

	for _, b := range items.Branches {
		newItem, err := track(model.ItemTypeBranch, b.ProjectID, b.Key())
		if err != nil || newItem {
			return newItem, err
		}
	}
	for _, r := range items.Requests {
		newItem, err := track(model.ItemTypeRequest, r.ProjectID, r.Key())
		if err != nil || newItem {
			return newItem, err
		}
	}

	return oldest.Before(cutoff), nil
}

// RecordDelivery stamps every item in the set with the delivery
// instant. first_found_at of known items is preserved by the ledger.
func (t *Throttler) RecordDelivery(ctx context.Context, recipient string, items *model.RecipientItems, at time.Time) error {
	for _, b := range items.Branches {
		if err := t.ledger.RecordNotification(ctx, recipient, model.ItemTypeBranch, b.ProjectID, b.Key(), at); err != nil {
			return fmt.Errorf("recording branch notification: %w", err)
		}
	}
	for _, r := range items.Requests {
		if err := t.ledger.RecordNotification(ctx, recipient, model.ItemTypeRequest, r.ProjectID, r.Key(), at); err != nil {
			return fmt.Errorf("recording request notification: %w", err)
		}
	}
	return nil
}
