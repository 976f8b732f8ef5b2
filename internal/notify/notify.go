// Package notify delivers invitation notices to invitees.
package notify

import (
	"context"
	"log/slog"

	"pwcal/internal/models"
)

// InvitationNotice is everything an invitee needs to act on an invitation.
type InvitationNotice struct {
	Invitation models.Invitation
	Project    models.Project
	AcceptURL  string
	RejectURL  string
}

// Notifier sends invitation notices. Implementations must not retry.
type Notifier interface {
	NotifyInvitation(ctx context.Context, notice InvitationNotice) error
}

// LogNotifier writes notices to the log instead of sending them.
// It is used when no SMTP host is configured.
type LogNotifier struct {
	Logger *slog.Logger
}

// NotifyInvitation logs the notice and its action links.
func (n LogNotifier) NotifyInvitation(ctx context.Context, notice InvitationNotice) error {
	logger := n.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "Invitation notice (mail delivery disabled)",
		"invitationID", notice.Invitation.ID,
		"to", notice.Invitation.InviteeEmail,
		"project", notice.Project.Name,
		"accept", notice.AcceptURL,
		"reject", notice.RejectURL,
	)
	return nil
}
