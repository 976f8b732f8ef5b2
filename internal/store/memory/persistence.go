package memory

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"pwcal/internal/models"
)

// snapshot is the on-disk shape of a MemStore.
type snapshot struct {
	Projects    map[string]models.Project    `json:"projects"`
	Events      map[string]models.Event      `json:"events"`
	Invitations map[string]models.Invitation `json:"invitations"`
}

// Persistence writes MemStore snapshots to a single JSON file.
type Persistence struct {
	Path string

	mu      sync.Mutex // Serialises writers
	lastSeq uint64
}

// NewPersistence prepares a snapshot file at path, creating its directory.
func NewPersistence(path string) (*Persistence, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &Persistence{Path: path}, nil
}

// Save writes snap atomically. Snapshots older than the last saved one are dropped.
func (p *Persistence) Save(seq uint64, snap snapshot) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if seq < p.lastSeq {
		return nil
	}

	bytes, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	tempPath := p.Path + ".tmp"
	if err := os.WriteFile(tempPath, bytes, 0644); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	// Rename swaps the file in one step, so readers see the old or new snapshot, never a torn one.
	if err := os.Rename(tempPath, p.Path); err != nil {
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}
	p.lastSeq = seq
	return nil
}

// Load reads the last saved snapshot. A missing file yields an empty snapshot.
func (p *Persistence) Load() (snapshot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	snap := snapshot{}
	content, err := os.ReadFile(p.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return snap, nil
		}
		return snap, fmt.Errorf("failed to read snapshot: %w", err)
	}
	if err := json.Unmarshal(content, &snap); err != nil {
		return snap, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return snap, nil
}
