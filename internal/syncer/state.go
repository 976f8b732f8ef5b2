// Package syncer moves project events between pwcal and external calendars:
// the Publisher pushes a project to a CalDAV calendar and the Importer pulls
// Google Calendar events into a project.
package syncer

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// loadState reads a JSON state file. A missing file yields the zero value
// and fs.ErrNotExist so callers can log a fresh start.
func loadState[T any](path string) (T, error) {
	var state T
	data, err := os.ReadFile(path)
	if err != nil {
		return state, err
	}
	if err := json.Unmarshal(data, &state); err != nil {
		return state, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return state, nil
}

// saveState writes the state file.
func saveState(path string, state any) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal sync state: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
