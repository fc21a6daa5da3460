package ingest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const defaultStatePath = "~/.reweave/ingest-state.json"

// State tracks progress for resumable ingest runs.
type State struct {
	StartedAt       time.Time `json:"started_at"`
	LastProcessedAt time.Time `json:"last_processed_at"`
	FilesProcessed  []string  `json:"files_processed"`
	Fingerprints    []string  `json:"fingerprints"`
	RunsCompleted   int       `json:"runs_completed"`
	ChunksExported  int       `json:"chunks_exported"`
	Errors          []string  `json:"errors"`

	path string // not serialized
}

// LoadState loads the ingest state from disk, or creates a new one. An empty
// path selects the default location under the home directory.
func LoadState(path string) (*State, error) {
	if path == "" {
		path = defaultStatePath
	}
	p := expandHome(path)

	data, err := os.ReadFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return &State{
				StartedAt: time.Now().UTC(),
				path:      p,
			}, nil
		}
		return nil, fmt.Errorf("read state: %w", err)
	}

	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse state: %w", err)
	}
	s.path = p
	return &s, nil
}

// Save persists the state to disk.
func (s *State) Save() error {
	s.LastProcessedAt = time.Now().UTC()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	return os.WriteFile(s.path, data, 0o644)
}

// IsProcessed returns true if the given file has already been processed.
func (s *State) IsProcessed(path string) bool {
	for _, f := range s.FilesProcessed {
		if f == path {
			return true
		}
	}
	return false
}

// SeenFingerprint returns true if a batch with this content fingerprint was
// already ingested, regardless of file name.
func (s *State) SeenFingerprint(key string) bool {
	for _, f := range s.Fingerprints {
		if f == key {
			return true
		}
	}
	return false
}

// MarkProcessed records a file and its batch fingerprint as done.
func (s *State) MarkProcessed(path, fingerprint string) {
	s.FilesProcessed = append(s.FilesProcessed, path)
	s.Fingerprints = append(s.Fingerprints, fingerprint)
}

// AddError records a processing error.
func (s *State) AddError(msg string) {
	s.Errors = append(s.Errors, msg)
}

func expandHome(path string) string {
	if len(path) > 1 && path[0] == '~' && path[1] == '/' {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
