package notify

import (
	"context"
	"math/rand"
	"sort"
	"time"

	"github.com/Re4zOon/repo-maintainer/internal/log"
	"github.com/Re4zOon/repo-maintainer/internal/messages"
	"github.com/Re4zOon/repo-maintainer/internal/model"
)

// Notifier runs the notification pass: for every recipient with stale
// items it consults the throttler, renders and sends the email, and
// stamps the ledger on successful delivery.
type Notifier struct {
	throttler    *Throttler
	sender       Sender
	pools        messages.Pools
	staleDays    int
	cleanupWeeks int
	dryRun       bool

	now  func() time.Time
	pick func(n int) int
}

// NewNotifier wires a notification pass.
func NewNotifier(throttler *Throttler, sender Sender, pools messages.Pools, staleDays, cleanupWeeks int, dryRun bool) *Notifier {
	return &Notifier{
		throttler:    throttler,
		sender:       sender,
		pools:        pools,
		staleDays:    staleDays,
		cleanupWeeks: cleanupWeeks,
		dryRun:       dryRun,
		now:          time.Now,
		pick:         rand.Intn,
	}
}

// Run processes the recipient map and returns the pass summary.
// Recipients are visited in stable order so logs and summaries are
// reproducible.
func (n *Notifier) Run(ctx context.Context, byRecipient map[string]*model.RecipientItems) model.NotifySummary {
	var summary model.NotifySummary

	recipients := make([]string, 0, len(byRecipient))
	for email := range byRecipient {
		recipients = append(recipients, email)
	}
	sort.Strings(recipients)

	for _, email := range recipients {
		items := byRecipient[email]
		summary.StaleBranches += len(items.Branches)
		summary.StaleRequests += len(items.Requests)

		due, err := n.throttler.ShouldNotify(ctx, email, items)
		if err != nil {
			log.Error().Str("recipient", email).Err(err).Msg("could not check notification history")
			summary.EmailsFailed++
			continue
		}
		if !due {
			log.Info().Str("recipient", email).
				Msg("skipping notification, already notified within the frequency window and no new items")
			summary.EmailsSkipped++
			continue
		}

		body, err := n.render(items)
		if err != nil {
			log.Error().Str("recipient", email).Err(err).Msg("could not render notification email")
			summary.EmailsFailed++
			continue
		}
		subject := Subject(items)

		if n.dryRun {
			log.Info().Str("recipient", email).Str("subject", subject).
				Int("items", items.Len()).Msg("[dry run] would send email")
			summary.EmailsSent++
			summary.Recipients = append(summary.Recipients, email)
			continue
		}

		if err := n.sender.Send(ctx, email, subject, body); err != nil {
			log.Error().Str("recipient", email).Err(err).Msg("failed to send email")
			summary.EmailsFailed++
			continue
		}
		log.Info().Str("recipient", email).Int("items", items.Len()).Msg("email sent")
		summary.EmailsSent++
		summary.Recipients = append(summary.Recipients, email)

		if err := n.throttler.RecordDelivery(ctx, email, items, n.now()); err != nil {
			// The mail is out; a ledger failure only risks an early
			// repeat next run.
			log.Error().Str("recipient", email).Err(err).Msg("could not record delivery")
		}
	}

	return summary
}

func (n *Notifier) render(items *model.RecipientItems) (string, error) {
	greeting := n.pools.Greetings[n.pick(len(n.pools.Greetings))]
	rendered, err := messages.RenderGreeting(greeting, n.staleDays)
	if err != nil {
		return "", err
	}
	return RenderEmail(rendered, items, n.cleanupWeeks)
}
