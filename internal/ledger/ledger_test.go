package ledger

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Re4zOon/repo-maintainer/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestLastNotifiedUnknownItem(t *testing.T) {
	s := openTestStore(t)

	_, ok, err := s.LastNotified(context.Background(), "dev@example.com", model.ItemTypeBranch, "42", "feature-x")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRecordNotificationPreservesFirstFound(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	first := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	second := first.Add(10 * 24 * time.Hour)
	third := first.Add(20 * 24 * time.Hour)

	for _, at := range []time.Time{first, second, third} {
		require.NoError(t, s.RecordNotification(ctx, "dev@example.com", model.ItemTypeBranch, "42", "feature-x", at))
	}

	last, ok, err := s.LastNotified(ctx, "dev@example.com", model.ItemTypeBranch, "42", "feature-x")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, last.Equal(third), "last_notified_at should follow every upsert")

	found, ok, err := s.EarliestFirstFound(ctx, model.ItemTypeBranch, "42", "feature-x")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, found.Equal(first), "first_found_at must never be overwritten")
}

func TestCompositeKeyIsolation(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	at := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, s.RecordNotification(ctx, "a@example.com", model.ItemTypeBranch, "42", "feature-x", at))
	require.NoError(t, s.RecordNotification(ctx, "a@example.com", model.ItemTypeRequest, "42", "7", at))
	require.NoError(t, s.RecordNotification(ctx, "b@example.com", model.ItemTypeBranch, "42", "feature-x", at.Add(time.Hour)))
	require.NoError(t, s.RecordNotification(ctx, "a@example.com", model.ItemTypeBranch, "43", "feature-x", at.Add(2*time.Hour)))

	last, ok, err := s.LastNotified(ctx, "a@example.com", model.ItemTypeBranch, "42", "feature-x")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, last.Equal(at))

	// Same item notified to a different recipient does not leak back.
	last, ok, err = s.LastNotified(ctx, "b@example.com", model.ItemTypeBranch, "42", "feature-x")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, last.Equal(at.Add(time.Hour)))
}

func TestEarliestFirstFoundAcrossRecipients(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	early := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	late := early.Add(30 * 24 * time.Hour)

	require.NoError(t, s.RecordNotification(ctx, "late@example.com", model.ItemTypeRequest, "42", "7", late))
	require.NoError(t, s.RecordNotification(ctx, "early@example.com", model.ItemTypeRequest, "42", "7", early))

	found, ok, err := s.EarliestFirstFound(ctx, model.ItemTypeRequest, "42", "7")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, found.Equal(early))

	_, ok, err = s.EarliestFirstFound(ctx, model.ItemTypeRequest, "42", "8")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCommentHistoryOverwrites(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, _, ok, err := s.LastComment(ctx, "42", 7)
	require.NoError(t, err)
	require.False(t, ok)

	first := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.RecordComment(ctx, "42", 7, 2, first))
	require.NoError(t, s.RecordComment(ctx, "42", 7, 3, first.Add(7*24*time.Hour)))

	at, index, ok, err := s.LastComment(ctx, "42", 7)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 3, index)
	assert.True(t, at.Equal(first.Add(7*24*time.Hour)))
}
