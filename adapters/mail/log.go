package mail

import (
	"context"
	"errors"

	"github.com/lborres/agora/core"
	"github.com/lborres/agora/internal/logging"
)

// LogMailer writes reset links to the log instead of sending them. It is
// the development fallback when no Resend key is configured.
type LogMailer struct {
	log logging.Logger
}

var _ core.Mailer = (*LogMailer)(nil)

func NewLogMailer(log logging.Logger) *LogMailer {
	if log == nil {
		log = logging.NewNop()
	}
	return &LogMailer{log: log}
}

func (m *LogMailer) SendPasswordReset(ctx context.Context, to, resetURL string) error {
	m.log.Warn(ctx, "mail not configured, reset link logged", "to", to, "link", resetURL)
	return nil
}

// ErrMailNotConfigured is returned by Unconfigured for every message.
var ErrMailNotConfigured = errors.New("mail delivery is not configured")

// Unconfigured drops reset mail without recording the link. It stands in
// for LogMailer in production, where links in logs would leak live tokens.
type Unconfigured struct {
	log logging.Logger
}

var _ core.Mailer = (*Unconfigured)(nil)

func NewUnconfigured(log logging.Logger) *Unconfigured {
	if log == nil {
		log = logging.NewNop()
	}
	return &Unconfigured{log: log}
}

func (m *Unconfigured) SendPasswordReset(ctx context.Context, to, _ string) error {
	m.log.Error(ctx, "reset mail dropped", "to", to, "error", ErrMailNotConfigured)
	return ErrMailNotConfigured
}
