package models

import "time"

// InvitationStatus is the stored state of an invitation.
// Expiry is never stored; see Invitation.Live.
type InvitationStatus string

const (
	StatusPending  InvitationStatus = "pending"
	StatusAccepted InvitationStatus = "accepted"
	StatusRejected InvitationStatus = "rejected"
)

// RoleEditor is the only role an invitation can grant.
const RoleEditor = "editor"

// Invitation is a time-boxed offer for an email to become a project editor.
type Invitation struct {
	ID           string           `json:"id" bson:"_id"`
	ProjectID    string           `json:"projectId" bson:"projectId"`
	InviteeEmail string           `json:"inviteeEmail" bson:"inviteeEmail"`
	Role         string           `json:"role" bson:"role"`
	Status       InvitationStatus `json:"status" bson:"status"`
	CreatedAt    time.Time        `json:"createdAt" bson:"createdAt"`
	ExpiresAt    time.Time        `json:"expiresAt" bson:"expiresAt"`
}

// Live reports whether the invitation can still be acted on at now.
func (i Invitation) Live(now time.Time) bool {
	return i.Status == StatusPending && i.ExpiresAt.After(now)
}
