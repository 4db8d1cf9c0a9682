package common

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// Email is a rendered outbound message.
type Email struct {
	To      string
	Subject string
	HTML    string
}

// EmailSender defines the contract for sending emails.
type EmailSender interface {
	Send(ctx context.Context, msg Email) error
}

// InMemoryEmail records messages; used by tests.
type InMemoryEmail struct {
	mu     sync.Mutex
	Outbox []Email
}

// Send records the email in memory.
func (m *InMemoryEmail) Send(_ context.Context, msg Email) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Outbox = append(m.Outbox, msg)
	return nil
}

// LogEmailSender writes messages to the log instead of a mail transport.
type LogEmailSender struct {
	Logger zerolog.Logger
}

// Send implements EmailSender.
func (s LogEmailSender) Send(_ context.Context, msg Email) error {
	s.Logger.Info().Str("to", msg.To).Str("subject", msg.Subject).Int("bytes", len(msg.HTML)).Msg("email_sent")
	return nil
}
