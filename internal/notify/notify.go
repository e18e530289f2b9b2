// Package notify turns booking events read from Kafka into e-mails to the
// booking owner.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Caolboy/LABERS-HOST/internal/domain"
	"github.com/Caolboy/LABERS-HOST/internal/email"
	"github.com/Caolboy/LABERS-HOST/internal/kafka"
	"github.com/Caolboy/LABERS-HOST/internal/repository"
	kafkaGo "github.com/segmentio/kafka-go"
)

type UserLookup interface {
	GetByID(ctx context.Context, id int64) (*domain.User, error)
}

type Notifier struct {
	users   UserLookup
	mailer  email.Mailer
	subject string
	retries int
	backoff time.Duration
	logger  *slog.Logger
}

type Option func(*Notifier)

func WithRetries(attempts int, backoff time.Duration) Option {
	return func(n *Notifier) {
		if attempts > 0 {
			n.retries = attempts
		}
		n.backoff = backoff
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(n *Notifier) {
		n.logger = l
	}
}

func NewNotifier(users UserLookup, mailer email.Mailer, subject string, opts ...Option) *Notifier {
	n := &Notifier{
		users:   users,
		mailer:  mailer,
		subject: subject,
		retries: 1,
		backoff: time.Second,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Handle processes one message. Undecodable messages and delivery failures
// are logged and skipped so one bad event never stalls the consumer; only a
// cancelled context is returned.
func (n *Notifier) Handle(ctx context.Context, msg kafkaGo.Message) error {
	event, err := kafka.DecodeBookingEvent(msg)
	if err != nil {
		n.logger.WarnContext(ctx, "skipping undecodable event", "offset", msg.Offset, "error", err)
		return nil
	}
	if event.Type != kafka.EventBookingCreated {
		return nil
	}

	err = n.bookingMade(ctx, event)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		n.logger.ErrorContext(ctx, "booking notification not sent", "event_id", event.ID, "user_id", event.UserID, "error", err)
	}
	return nil
}

func (n *Notifier) bookingMade(ctx context.Context, event kafka.BookingEvent) error {
	user, err := n.users.GetByID(ctx, event.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("user %d no longer exists", event.UserID)
		}
		return fmt.Errorf("load user: %w", err)
	}

	msg := email.Message{
		Template: email.TemplateBookingMade,
		To:       user.Email,
		Subject:  n.subject,
		Vars: map[string]any{
			"name":  user.Name,
			"date":  event.Date,
			"items": event.Items,
		},
	}

	for attempt := 1; ; attempt++ {
		err = n.mailer.Send(ctx, msg)
		if err == nil {
			n.logger.InfoContext(ctx, "booking notification sent", "event_id", event.ID, "user_id", user.ID)
			return nil
		}
		if attempt >= n.retries {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * n.backoff):
		}
	}
}
