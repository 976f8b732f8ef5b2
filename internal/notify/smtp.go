package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/wneessen/go-mail"
)

// SMTPConfig describes the outgoing mail server.
type SMTPConfig struct {
	Host     string
	Port     int
	Secure   bool // Implicit TLS instead of STARTTLS
	Username string
	Password string
	From     string
	Timeout  time.Duration
}

// Mailer sends invitation notices over SMTP.
type Mailer struct {
	client *mail.Client
	from   string
	logger *slog.Logger
}

// NewMailer builds an SMTP client. No connection is made until a notice is sent.
func NewMailer(cfg SMTPConfig, logger *slog.Logger) (*Mailer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	opts := []mail.Option{mail.WithPort(cfg.Port)}
	if cfg.Timeout > 0 {
		opts = append(opts, mail.WithTimeout(cfg.Timeout))
	}
	if cfg.Secure {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}
	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create smtp client: %w", err)
	}

	from := cfg.From
	if from == "" {
		from = cfg.Username
	}
	return &Mailer{client: client, from: from, logger: logger}, nil
}

// NotifyInvitation sends one invitation mail.
func (m *Mailer) NotifyInvitation(ctx context.Context, notice InvitationNotice) error {
	msg, err := m.message(notice)
	if err != nil {
		return err
	}
	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("failed to send invitation mail: %w", err)
	}
	m.logger.InfoContext(ctx, "Sent invitation mail", "invitationID", notice.Invitation.ID, "to", notice.Invitation.InviteeEmail)
	return nil
}

func (m *Mailer) message(notice InvitationNotice) (*mail.Msg, error) {
	html, text, err := Render(notice)
	if err != nil {
		return nil, err
	}
	msg := mail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return nil, fmt.Errorf("invalid sender address %q: %w", m.from, err)
	}
	if err := msg.To(notice.Invitation.InviteeEmail); err != nil {
		return nil, fmt.Errorf("invalid invitee address %q: %w", notice.Invitation.InviteeEmail, err)
	}
	msg.Subject(Subject(notice))
	msg.SetBodyString(mail.TypeTextPlain, text)
	msg.AddAlternativeString(mail.TypeTextHTML, html)
	return msg, nil
}
