package models

import (
	"slices"
	"time"
)

// Project is a shared container owning events and an editor list.
type Project struct {
	ID          string     `json:"id" bson:"_id"`
	Name        string     `json:"name" bson:"name"`
	Description string     `json:"description,omitempty" bson:"description,omitempty"`
	Location    string     `json:"location,omitempty" bson:"location,omitempty"`
	LaunchDate  *time.Time `json:"launchDate,omitempty" bson:"launchDate,omitempty"`
	Creator     string     `json:"creator" bson:"creator"` // Owner email, never changes
	Editors     []string   `json:"editors" bson:"editors"` // Editor emails, unique, never contains Creator
	CreatedAt   time.Time  `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt" bson:"updatedAt"`
}

// IsEditor reports whether email is in the editor set.
func (p Project) IsEditor(email string) bool {
	return slices.Contains(p.Editors, email)
}

// IsMember reports whether email is the creator or an editor.
func (p Project) IsMember(email string) bool {
	return p.Creator == email || p.IsEditor(email)
}

// ProjectPatch is a partial project update. Nil fields are left untouched.
type ProjectPatch struct {
	Name        *string    `json:"name,omitempty"`
	Description *string    `json:"description,omitempty"`
	Location    *string    `json:"location,omitempty"`
	LaunchDate  *time.Time `json:"launchDate,omitempty"`
}

// Apply returns a copy of p with the patch fields applied.
func (pp ProjectPatch) Apply(p Project) Project {
	if pp.Name != nil {
		p.Name = *pp.Name
	}
	if pp.Description != nil {
		p.Description = *pp.Description
	}
	if pp.Location != nil {
		p.Location = *pp.Location
	}
	if pp.LaunchDate != nil {
		d := pp.LaunchDate.UTC()
		p.LaunchDate = &d
	}
	return p
}
