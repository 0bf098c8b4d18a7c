// Package ledger is the durable notification and comment history.
// It answers "when was this recipient last told about this item" and
// "when did the bot last comment on this request", backed by a SQLite
// database whose layout is shared with earlier versions of this tool.
//
// All writes are composite-key upserts, so concurrent workers touching
// different items never conflict and re-running a pass is idempotent.
package ledger

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/Re4zOon/repo-maintainer/internal/log"
	"github.com/Re4zOon/repo-maintainer/internal/model"
	"github.com/Re4zOon/repo-maintainer/internal/timeutil"
)

//go:embed schema.sql
var schemaFS embed.FS

// Store wraps the SQLite ledger database.
type Store struct {
	db *sql.DB
}

// Open creates or opens the ledger database at path, applying the
// schema and the pragmas SQLite wants for a single-writer workload.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create ledger directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}
	// SQLite prefers a single writer; the upserts are short enough that
	// serializing them here costs nothing.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")
	_, _ = db.Exec("PRAGMA busy_timeout = 5000")

	schema, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.Exec(string(schema)); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply ledger schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// LastNotified returns the last_notified_at instant for the composite
// key, or ok=false when the recipient was never notified about the item.
func (s *Store) LastNotified(ctx context.Context, recipient string, itemType model.ItemType, projectID, itemKey string) (time.Time, bool, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT last_notified_at FROM notification_history
		 WHERE recipient_email = ? AND item_type = ? AND project_id = ? AND item_key = ?`,
		recipient, string(itemType), projectID, itemKey,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}

	t, err := timeutil.ParseInstant(raw)
	if err != nil {
		// A corrupt row is treated as never-notified rather than
		// letting one bad timestamp wedge the whole pass.
		log.Warn().Str("recipient", recipient).Str("item", itemKey).Str("value", raw).
			Msg("unparseable last_notified_at in ledger")
		return time.Time{}, false, nil
	}
	return t, true, nil
}

// RecordNotification upserts the row for the composite key: a new row
// gets first_found_at = last_notified_at = at, an existing row only
// advances last_notified_at.
func (s *Store) RecordNotification(ctx context.Context, recipient string, itemType model.ItemType, projectID, itemKey string, at time.Time) error {
	raw := timeutil.FormatInstant(at)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO notification_history
		     (recipient_email, item_type, project_id, item_key, first_found_at, last_notified_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(recipient_email, item_type, project_id, item_key)
		 DO UPDATE SET last_notified_at = excluded.last_notified_at`,
		recipient, string(itemType), projectID, itemKey, raw, raw,
	)
	return err
}

// EarliestFirstFound returns the oldest first_found_at across every
// recipient that was ever notified about the item, or ok=false when the
// item has no notification history at all.
func (s *Store) EarliestFirstFound(ctx context.Context, itemType model.ItemType, projectID, itemKey string) (time.Time, bool, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT first_found_at FROM notification_history
		 WHERE item_type = ? AND project_id = ? AND item_key = ?`,
		string(itemType), projectID, itemKey,
	)
	if err != nil {
		return time.Time{}, false, err
	}
	defer rows.Close()

	// Legacy rows may carry timestamp variants that do not sort
	// lexicographically, so the minimum is taken over parsed instants.
	var earliest time.Time
	found := false
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return time.Time{}, false, err
		}
		t, err := timeutil.ParseInstant(raw)
		if err != nil {
			log.Warn().Str("item", itemKey).Str("value", raw).Msg("unparseable first_found_at in ledger")
			continue
		}
		if !found || t.Before(earliest) {
			earliest = t
			found = true
		}
	}
	return earliest, found, rows.Err()
}

// RecordComment upserts the bot-comment row for (projectID, number),
// overwriting both the instant and the pool index.
func (s *Store) RecordComment(ctx context.Context, projectID string, number, commentIndex int, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO mr_comment_history (project_id, mr_iid, comment_index, last_commented_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(project_id, mr_iid)
		 DO UPDATE SET comment_index = excluded.comment_index,
		               last_commented_at = excluded.last_commented_at`,
		projectID, number, commentIndex, timeutil.FormatInstant(at),
	)
	return err
}

// LastComment returns the instant and pool index of the bot's previous
// comment on the request, or ok=false when it never commented.
func (s *Store) LastComment(ctx context.Context, projectID string, number int) (time.Time, int, bool, error) {
	var (
		raw   string
		index int
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT last_commented_at, comment_index FROM mr_comment_history
		 WHERE project_id = ? AND mr_iid = ?`,
		projectID, number,
	).Scan(&raw, &index)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, 0, false, nil
	}
	if err != nil {
		return time.Time{}, 0, false, err
	}

	t, err := timeutil.ParseInstant(raw)
	if err != nil {
		log.Warn().Str("project", projectID).Int("number", number).Str("value", raw).
			Msg("unparseable last_commented_at in ledger")
		return time.Time{}, 0, false, nil
	}
	return t, index, true, nil
}
