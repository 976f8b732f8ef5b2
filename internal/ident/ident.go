// Package ident provides opaque identifiers and UTC clock helpers.
package ident

import (
	"time"

	"github.com/google/uuid"
)

// New returns a new opaque unique identifier.
func New() string {
	return uuid.NewString()
}

// Clock returns the current time in UTC.
type Clock func() time.Time

// Now is the default Clock.
func Now() time.Time {
	return time.Now().UTC()
}

// Fixed returns a Clock that always reports t, for tests and replays.
func Fixed(t time.Time) Clock {
	t = t.UTC()
	return func() time.Time { return t }
}
