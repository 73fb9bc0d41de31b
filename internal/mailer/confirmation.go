package mailer

import (
	"context"
	"log/slog"
	"time"

	"github.com/eventide/rsvp/internal/metrics"
	"github.com/eventide/rsvp/internal/refresh"
)

// SendTimeout bounds one confirmation send.
const SendTimeout = 10 * time.Second

// ConfirmationNotifier emails the attendee after their RSVP is stored.
// Sends happen in the background with a single attempt.
type ConfirmationNotifier struct {
	mailer   Mailer
	logger   *slog.Logger
	metrics  metrics.Recorder
	inflight refresh.Inflight
}

// NewConfirmationNotifier creates a ConfirmationNotifier.
func NewConfirmationNotifier(m Mailer, logger *slog.Logger, recorder metrics.Recorder) *ConfirmationNotifier {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &ConfirmationNotifier{
		mailer:  m,
		logger:  logger.With("component", "mailer.confirmation"),
		metrics: recorder,
	}
}

// Notify sends a confirmation email for rsvp.created events.
func (c *ConfirmationNotifier) Notify(_ context.Context, event refresh.Event) {
	if event.Type != refresh.EventRSVPCreated || event.RSVP == nil {
		return
	}

	c.inflight.Go(func() { c.send(event) })
}

// Wait blocks until in-flight sends finish or ctx is done.
func (c *ConfirmationNotifier) Wait(ctx context.Context) error {
	return c.inflight.Wait(ctx)
}

func (c *ConfirmationNotifier) send(event refresh.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), SendTimeout)
	defer cancel()

	rsvp := event.RSVP
	data := ConfirmationData{
		Name:        rsvp.Name,
		Email:       rsvp.Email,
		SubmittedAt: rsvp.CreatedAt.UTC().Format("January 2, 2006 15:04 MST"),
	}
	if rsvp.SpecialRequests != nil {
		data.SpecialRequests = *rsvp.SpecialRequests
	}

	subject, html, text, err := Render(TemplateRSVPConfirmation, data)
	if err != nil {
		c.logger.Error("failed to render confirmation email", "event_id", event.ID, "error", err)
		c.metrics.IncEmail(metrics.EmailFailed)
		return
	}

	if err := c.mailer.Send(ctx, rsvp.Email, subject, html, text); err != nil {
		c.logger.Warn("failed to send confirmation email", "event_id", event.ID, "error", err)
		c.metrics.IncEmail(metrics.EmailFailed)
		return
	}

	c.metrics.IncEmail(metrics.EmailSent)
}
