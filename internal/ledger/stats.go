package ledger

import (
	"context"
	"time"

	"github.com/Re4zOon/repo-maintainer/internal/log"
	"github.com/Re4zOon/repo-maintainer/internal/model"
	"github.com/Re4zOon/repo-maintainer/internal/timeutil"
)

// NotificationRow is one notification_history entry for reporting.
type NotificationRow struct {
	Recipient  string
	ItemType   model.ItemType
	ProjectID  string
	ItemKey    string
	FirstFound time.Time
	Notified   time.Time
}

// CommentRow is one mr_comment_history entry for reporting.
type CommentRow struct {
	ProjectID string
	Number    int
	Index     int
	Commented time.Time
}

// CountByType returns how many notification rows exist per item type.
func (s *Store) CountByType(ctx context.Context) (branches, requests int, err error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT
		     COUNT(CASE WHEN item_type = ? THEN 1 END),
		     COUNT(CASE WHEN item_type = ? THEN 1 END)
		 FROM notification_history`,
		string(model.ItemTypeBranch), string(model.ItemTypeRequest),
	)
	err = row.Scan(&branches, &requests)
	return branches, requests, err
}

// CountComments returns the number of requests the bot has commented on.
func (s *Store) CountComments(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM mr_comment_history`).Scan(&n)
	return n, err
}

// RecentNotifications returns up to limit rows, newest first. Rows with
// unparseable instants are dropped with a warning.
func (s *Store) RecentNotifications(ctx context.Context, limit int) ([]NotificationRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT recipient_email, item_type, project_id, item_key, first_found_at, last_notified_at
		 FROM notification_history
		 ORDER BY last_notified_at DESC
		 LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []NotificationRow
	for rows.Next() {
		var (
			r                   NotificationRow
			itemType            string
			rawFirst, rawLatest string
		)
		if err := rows.Scan(&r.Recipient, &itemType, &r.ProjectID, &r.ItemKey, &rawFirst, &rawLatest); err != nil {
			return nil, err
		}
		r.ItemType = model.ItemType(itemType)
		if r.FirstFound, err = timeutil.ParseInstant(rawFirst); err != nil {
			log.Warn().Str("value", rawFirst).Msg("unparseable first_found_at in ledger")
			continue
		}
		if r.Notified, err = timeutil.ParseInstant(rawLatest); err != nil {
			log.Warn().Str("value", rawLatest).Msg("unparseable last_notified_at in ledger")
			continue
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// RecentComments returns up to limit comment rows, newest first.
func (s *Store) RecentComments(ctx context.Context, limit int) ([]CommentRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT project_id, mr_iid, comment_index, last_commented_at
		 FROM mr_comment_history
		 ORDER BY last_commented_at DESC
		 LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CommentRow
	for rows.Next() {
		var (
			r   CommentRow
			raw string
		)
		if err := rows.Scan(&r.ProjectID, &r.Number, &r.Index, &raw); err != nil {
			return nil, err
		}
		if r.Commented, err = timeutil.ParseInstant(raw); err != nil {
			log.Warn().Str("value", raw).Msg("unparseable last_commented_at in ledger")
			continue
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// AllLastNotified returns every last_notified_at instant in the
// notification history, for aggregate age statistics.
func (s *Store) AllLastNotified(ctx context.Context) ([]time.Time, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT last_notified_at FROM notification_history`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []time.Time
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		t, err := timeutil.ParseInstant(raw)
		if err != nil {
			continue
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
