package models

import "time"

// LogAction is the kind of mutation recorded in an event's audit trail.
type LogAction string

const (
	ActionCreate LogAction = "create"
	ActionUpdate LogAction = "update"
	ActionDelete LogAction = "delete"
)

// Event is a single, non-recurring time span inside a project.
// Logs are append-only; deleted events stay readable by ID for auditing.
type Event struct {
	ID           string     `json:"id" bson:"_id"`
	ProjectID    string     `json:"projectId" bson:"projectId"`
	Title        string     `json:"title" bson:"title"`
	Description  string     `json:"description,omitempty" bson:"description,omitempty"` // Empty means unset
	Participants []string   `json:"participants" bson:"participants"`                  // Participant emails, unique
	Start        time.Time  `json:"startTime" bson:"startTime"`
	End          time.Time  `json:"endTime" bson:"endTime"`
	AllDay       bool       `json:"isAllDay" bson:"isAllDay"`
	Logs         []EventLog `json:"logs" bson:"logs"`
	Deleted      bool       `json:"deleted,omitempty" bson:"deleted"`
	CreatedAt    time.Time  `json:"createdAt" bson:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt" bson:"updatedAt"`
}

// EventLog is one immutable audit entry.
type EventLog struct {
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
	Timezone  string    `json:"timezone" bson:"timezone"` // IANA zone name at write time
	User      string    `json:"user" bson:"user"`         // Acting user's email
	Action    LogAction `json:"action" bson:"action"`
	Details   string    `json:"details" bson:"details"`
}

// EventDraft carries the fields needed to create an event.
type EventDraft struct {
	ProjectID    string
	Title        string
	Description  string
	Participants []string
	Start        time.Time
	End          time.Time
	AllDay       bool
	CreatorEmail string
}

// EventPatch is a partial update. Nil fields are left untouched.
// A Description pointing at "" removes the description.
type EventPatch struct {
	Title        *string    `json:"title,omitempty"`
	Description  *string    `json:"description,omitempty"`
	Participants *[]string  `json:"participants,omitempty"`
	Start        *time.Time `json:"startTime,omitempty"`
	End          *time.Time `json:"endTime,omitempty"`
	AllDay       *bool      `json:"isAllDay,omitempty"`
}

// Apply returns a copy of ev with the patch fields applied.
func (p EventPatch) Apply(ev Event) Event {
	if p.Title != nil {
		ev.Title = *p.Title
	}
	if p.Description != nil {
		ev.Description = *p.Description
	}
	if p.Participants != nil {
		ev.Participants = append([]string(nil), (*p.Participants)...)
	}
	if p.Start != nil {
		ev.Start = p.Start.UTC()
	}
	if p.End != nil {
		ev.End = p.End.UTC()
	}
	if p.AllDay != nil {
		ev.AllDay = *p.AllDay
	}
	return ev
}
