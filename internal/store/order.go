package store

import (
	"cmp"
	"slices"

	"pwcal/internal/models"
)

// SortEvents orders events by start, then creation time, then ID.
// Backends that cannot sort natively use it to honour the listing contract.
func SortEvents(events []models.Event) {
	slices.SortFunc(events, func(a, b models.Event) int {
		if c := a.Start.Compare(b.Start); c != 0 {
			return c
		}
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

// SortInvitations orders invitations by creation time, then ID.
func SortInvitations(invs []models.Invitation) {
	slices.SortFunc(invs, func(a, b models.Invitation) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}
