package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Re4zOon/repo-maintainer/internal/messages"
	"github.com/Re4zOon/repo-maintainer/internal/model"
)

type fakeSender struct {
	sent []sentMail
	err  error
}

type sentMail struct {
	to      string
	subject string
	body    string
}

func (f *fakeSender) Send(_ context.Context, to, subject, body string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMail{to: to, subject: subject, body: body})
	return nil
}

func testPools() messages.Pools {
	return messages.Pools{
		Comments:  []string{"nudge"},
		Greetings: []string{"These items have been quiet for {{.StaleDays}} days."},
	}
}

func testItems() map[string]*model.RecipientItems {
	return map[string]*model.RecipientItems{
		"dev@example.com": {
			Branches: []model.StaleBranch{{
				ProjectID:   "42",
				ProjectName: "group/app",
				BranchName:  "old-feature",
				AuthorName:  "Dev",
				LastCommit:  time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC),
			}},
			Requests: []model.StaleRequest{{
				ProjectID:    "42",
				ProjectName:  "group/app",
				Number:       7,
				Title:        "Refactor widgets",
				WebURL:       "https://gitlab.example.com/group/app/-/merge_requests/7",
				SourceBranch: "refactor-widgets",
				AuthorName:   "Dev",
				LastActivity: time.Date(2024, 4, 2, 9, 0, 0, 0, time.UTC),
			}},
		},
	}
}

func newTestNotifier(t *testing.T, sender Sender, dryRun bool) *Notifier {
	t.Helper()
	n := NewNotifier(newTestThrottler(t), sender, testPools(), 30, 4, dryRun)
	n.now = func() time.Time { return throttlerNow }
	n.pick = func(int) int { return 0 }
	return n
}

func TestRunSendsAndRecords(t *testing.T) {
	sender := &fakeSender{}
	n := newTestNotifier(t, sender, false)
	items := testItems()

	summary := n.Run(context.Background(), items)

	assert.Equal(t, 1, summary.EmailsSent)
	assert.Equal(t, 0, summary.EmailsFailed)
	assert.Equal(t, []string{"dev@example.com"}, summary.Recipients)
	require.Len(t, sender.sent, 1)
	mail := sender.sent[0]
	assert.Equal(t, "[Action Required] 2 Stale Item(s) Require Attention", mail.subject)
	assert.Contains(t, mail.body, "quiet for 30 days")
	assert.Contains(t, mail.body, "Refactor widgets")
	assert.Contains(t, mail.body, "old-feature")
	assert.Contains(t, mail.body, "after 4 weeks")

	// Delivery was stamped: an immediate re-run skips.
	summary = n.Run(context.Background(), items)
	assert.Equal(t, 0, summary.EmailsSent)
	assert.Equal(t, 1, summary.EmailsSkipped)
}

func TestRunSendFailureDoesNotStampLedger(t *testing.T) {
	sender := &fakeSender{err: errors.New("relay down")}
	n := newTestNotifier(t, sender, false)
	items := testItems()

	summary := n.Run(context.Background(), items)
	assert.Equal(t, 1, summary.EmailsFailed)
	assert.Equal(t, 0, summary.EmailsSent)

	// Still due on the next run.
	n.sender = &fakeSender{}
	summary = n.Run(context.Background(), items)
	assert.Equal(t, 1, summary.EmailsSent)
}

func TestRunDryRunSkipsSendAndLedger(t *testing.T) {
	sender := &fakeSender{}
	n := newTestNotifier(t, sender, true)
	items := testItems()

	summary := n.Run(context.Background(), items)
	assert.Equal(t, 1, summary.EmailsSent)
	assert.Empty(t, sender.sent)

	// Nothing recorded: the recipient stays due.
	summary = n.Run(context.Background(), items)
	assert.Equal(t, 1, summary.EmailsSent)
	assert.Equal(t, 0, summary.EmailsSkipped)
}

func TestSubjectVariants(t *testing.T) {
	branches := []model.StaleBranch{{BranchName: "a"}, {BranchName: "b"}}
	requests := []model.StaleRequest{{Number: 1}}

	tests := []struct {
		name  string
		items *model.RecipientItems
		want  string
	}{
		{"both", &model.RecipientItems{Branches: branches, Requests: requests}, "[Action Required] 3 Stale Item(s) Require Attention"},
		{"requests only", &model.RecipientItems{Requests: requests}, "[Action Required] 1 Stale Merge/Pull Request(s) Require Attention"},
		{"branches only", &model.RecipientItems{Branches: branches}, "[Action Required] 2 Stale Branch(es) Require Attention"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Subject(tt.items))
		})
	}
}
