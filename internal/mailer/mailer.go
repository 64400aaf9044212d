package mailer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
)

// ErrNotConfigured is returned by DisabledSender for every message.
var ErrNotConfigured = errors.New("mail delivery is not configured")

type Message struct {
	To      string
	Subject string
	Body    string
}

// Sender delivers a single message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Mailer renders the account emails and hands them to a Sender.
type Mailer struct {
	sender      Sender
	linkBaseURL string
}

func New(sender Sender, linkBaseURL string) *Mailer {
	return &Mailer{sender: sender, linkBaseURL: strings.TrimRight(linkBaseURL, "/")}
}

func (m *Mailer) SendVerification(ctx context.Context, to, name, code, token string) error {
	link := m.link("/verify-email", token)
	body := fmt.Sprintf(
		"Hi %s,\n\nYour verification code is %s. It expires in 15 minutes.\n\n"+
			"You can also verify your account with this link (valid for 24 hours):\n%s\n",
		greetingName(name), code, link,
	)
	return m.sender.Send(ctx, Message{To: to, Subject: "Verify your email", Body: body})
}

func (m *Mailer) SendPasswordReset(ctx context.Context, to, name, code, token string) error {
	link := m.link("/reset-password", token)
	body := fmt.Sprintf(
		"Hi %s,\n\nYour password reset code is %s. It expires in 10 minutes.\n\n"+
			"You can also reset your password with this link (valid for 1 hour):\n%s\n\n"+
			"If you did not request a reset, ignore this email.\n",
		greetingName(name), code, link,
	)
	return m.sender.Send(ctx, Message{To: to, Subject: "Reset your password", Body: body})
}

func (m *Mailer) link(path, token string) string {
	return m.linkBaseURL + path + "?token=" + url.QueryEscape(token)
}

func greetingName(name string) string {
	if strings.TrimSpace(name) == "" {
		return "there"
	}
	return name
}

// DisabledSender is used when no SMTP relay is configured.
type DisabledSender struct {
	Logger *slog.Logger
}

func (d DisabledSender) Send(ctx context.Context, msg Message) error {
	if d.Logger != nil {
		d.Logger.Debug("mail delivery disabled, dropping message", "to", msg.To, "subject", msg.Subject)
	}
	return ErrNotConfigured
}
