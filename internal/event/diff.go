package event

import (
	"fmt"
	"slices"
	"strings"

	"pwcal/internal/models"
)

// ChangeKind identifies one kind of audited field change.
type ChangeKind int

// Change kinds, in the order Diff reports them.
const (
	TitleChanged ChangeKind = iota
	DescriptionAdded
	DescriptionRemoved
	DescriptionUpdated
	StartChanged
	EndChanged
	MarkedAllDay
	UnmarkedAllDay
	ParticipantsAdded
	ParticipantsRemoved
)

// Change describes one difference between an event and a patch.
// From and To are set for TitleChanged, Emails for the participant kinds.
type Change struct {
	Kind   ChangeKind
	From   string
	To     string
	Emails []string
}

func (c Change) String() string {
	switch c.Kind {
	case TitleChanged:
		return `Changed title from "` + c.From + `" to "` + c.To + `"`
	case DescriptionAdded:
		return "Added description"
	case DescriptionRemoved:
		return "Removed description"
	case DescriptionUpdated:
		return "Updated description"
	case StartChanged:
		return "Changed start time"
	case EndChanged:
		return "Changed end time"
	case MarkedAllDay:
		return "Marked as all-day"
	case UnmarkedAllDay:
		return "Unmarked all-day"
	case ParticipantsAdded:
		return "Added participants: " + strings.Join(c.Emails, ", ")
	case ParticipantsRemoved:
		return "Removed participants: " + strings.Join(c.Emails, ", ")
	default:
		return fmt.Sprintf("Unknown change %d", int(c.Kind))
	}
}

// DetailSeparator joins change descriptions inside one log entry.
const DetailSeparator = "；"

// Details renders changes as a single audit log message.
func Details(changes []Change) string {
	parts := make([]string, len(changes))
	for i, c := range changes {
		parts[i] = c.String()
	}
	return strings.Join(parts, DetailSeparator)
}

// Diff lists what patch would change on old, in a fixed field order.
// Fields absent from the patch or equal to the stored value produce nothing.
func Diff(old models.Event, patch models.EventPatch) []Change {
	var changes []Change

	if patch.Title != nil && *patch.Title != old.Title {
		changes = append(changes, Change{Kind: TitleChanged, From: old.Title, To: *patch.Title})
	}

	if patch.Description != nil && *patch.Description != old.Description {
		switch {
		case old.Description == "":
			changes = append(changes, Change{Kind: DescriptionAdded})
		case *patch.Description == "":
			changes = append(changes, Change{Kind: DescriptionRemoved})
		default:
			changes = append(changes, Change{Kind: DescriptionUpdated})
		}
	}

	if patch.Start != nil && !patch.Start.Equal(old.Start) {
		changes = append(changes, Change{Kind: StartChanged})
	}
	if patch.End != nil && !patch.End.Equal(old.End) {
		changes = append(changes, Change{Kind: EndChanged})
	}

	if patch.AllDay != nil && *patch.AllDay != old.AllDay {
		if *patch.AllDay {
			changes = append(changes, Change{Kind: MarkedAllDay})
		} else {
			changes = append(changes, Change{Kind: UnmarkedAllDay})
		}
	}

	if patch.Participants != nil {
		next := *patch.Participants
		var added, removed []string
		for _, p := range next {
			if !slices.Contains(old.Participants, p) && !slices.Contains(added, p) {
				added = append(added, p)
			}
		}
		for _, p := range old.Participants {
			if !slices.Contains(next, p) {
				removed = append(removed, p)
			}
		}
		if len(added) > 0 {
			changes = append(changes, Change{Kind: ParticipantsAdded, Emails: added})
		}
		if len(removed) > 0 {
			changes = append(changes, Change{Kind: ParticipantsRemoved, Emails: removed})
		}
	}

	return changes
}
