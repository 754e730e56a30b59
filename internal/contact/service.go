package contact

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"cherrycake/internal/inbox"
	"cherrycake/internal/logging"
	"cherrycake/internal/mailer"
	"cherrycake/internal/notifications"
)

// Store persists submissions.
type Store interface {
	Save(ctx context.Context, name, email, body, remoteAddr string) (*inbox.Message, error)
	MarkRelayed(ctx context.Context, id int64, status inbox.RelayStatus, relayErr error) error
}

// Relay forwards a stored submission to the site owner.
type Relay interface {
	Enabled() bool
	Send(ctx context.Context, msg mailer.Message) error
}

// Service accepts submissions.
type Service struct {
	store    Store
	relay    Relay
	notifier notifications.Service
	logger   *slog.Logger
}

// NewService wires a contact service. relay and notifier may be nil.
func NewService(store Store, relay Relay, notifier notifications.Service, logger *slog.Logger) *Service {
	return &Service{
		store:    store,
		relay:    relay,
		notifier: notifier,
		logger:   logging.NewComponentLogger(logger, "contact"),
	}
}

// Submit validates and stores sub, then relays it. The returned error is a
// *ValidationError or a storage failure; relay failures are only logged and
// recorded on the stored message.
func (s *Service) Submit(ctx context.Context, sub Submission, remote string) (*inbox.Message, error) {
	if err := sub.Validate(); err != nil {
		return nil, err
	}
	if s.store == nil {
		return nil, errors.New("contact store unavailable")
	}
	msg, err := s.store.Save(ctx, sub.Name, sub.Email, sub.Message, remote)
	if err != nil {
		return nil, fmt.Errorf("store submission: %w", err)
	}

	logging.WithContext(ctx, s.logger).Info("contact form submission",
		logging.Int64("message_id", msg.ID),
		logging.String("name", sub.DisplayName()),
		logging.String("email", msg.Email),
		logging.String("message", Summary(sub.Message)),
		logging.String("timestamp", msg.CreatedAt.Format(time.RFC3339)),
		logging.String(logging.FieldEventType, "contact_received"),
	)

	s.relayMessage(ctx, sub, msg)
	s.notify(ctx, notifications.EventContactReceived, notifications.Payload{
		"name":    strings.TrimSpace(sub.Name),
		"email":   msg.Email,
		"preview": Summary(sub.Message),
	})
	return msg, nil
}

func (s *Service) relayMessage(ctx context.Context, sub Submission, msg *inbox.Message) {
	if s.relay == nil || !s.relay.Enabled() {
		s.mark(ctx, msg, inbox.RelaySkipped, nil)
		return
	}
	err := s.relay.Send(ctx, mailer.Message{
		Name:   sub.Name,
		Email:  msg.Email,
		Body:   sub.Message,
		SentAt: msg.CreatedAt,
	})
	if err != nil {
		logging.WarnWithContext(s.logger, "contact relay failed", "contact_relay_failed",
			logging.Int64("message_id", msg.ID),
			logging.Error(err),
			logging.String(logging.FieldImpact, "message stored but not delivered by mail"),
			logging.String(logging.FieldErrorHint, "check [contact.smtp] settings; list stored messages with 'cherrycake contact list'"),
		)
		s.mark(ctx, msg, inbox.RelayFailed, err)
		s.notify(ctx, notifications.EventContactRelayFailed, notifications.Payload{
			"id":    msg.ID,
			"error": err,
		})
		return
	}
	s.logger.Info("contact relayed",
		logging.Int64("message_id", msg.ID),
		logging.String(logging.FieldEventType, "contact_relayed"),
	)
	s.mark(ctx, msg, inbox.RelaySent, nil)
}

// mark records the relay outcome and mirrors it onto msg.
func (s *Service) mark(ctx context.Context, msg *inbox.Message, status inbox.RelayStatus, relayErr error) {
	msg.RelayStatus = status
	if relayErr != nil {
		msg.RelayError = relayErr.Error()
	}
	if err := s.store.MarkRelayed(ctx, msg.ID, status, relayErr); err != nil {
		s.logger.Warn("record relay status failed",
			logging.Int64("message_id", msg.ID),
			logging.String("relay_status", string(status)),
			logging.Error(err),
		)
	}
}

func (s *Service) notify(ctx context.Context, event notifications.Event, payload notifications.Payload) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Publish(ctx, event, payload); err != nil {
		s.logger.Warn("contact notification failed",
			logging.String("event", string(event)),
			logging.Error(err),
		)
	}
}
