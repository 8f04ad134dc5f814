package fieldunit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// State is the device's persisted configuration and ledger. It lives
// in one JSON file so an operator can edit it in place; the store
// notices external edits by modification time and reloads.
type State struct {
	UniqueID      string             `json:"unique_id"`
	IsRegistered  bool               `json:"is_registered"`
	DataFrequency int                `json:"data_frequency"`
	UsedUnits     int64              `json:"used_units"`
	CapacityUnits int64              `json:"capacity_units"`
	Angle         int                `json:"angle"`
	Accounting    bool               `json:"accounting"`
	Thresholds    map[string]float64 `json:"thresholds,omitempty"`
}

// Store owns the state file. All access goes through Get and Update so
// the file and the in-memory copy never diverge.
type Store struct {
	path string

	mu    sync.Mutex
	state State
	mtime time.Time
}

// OpenStore loads (or initialises) the state file at path. A missing
// file is seeded with defaults for the given identifier.
func OpenStore(path, uniqueID string) (*Store, error) {
	s := &Store{path: path}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if jsonErr := json.Unmarshal(data, &s.state); jsonErr != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrStateCorrupt, path, jsonErr)
		}
		if info, statErr := os.Stat(path); statErr == nil {
			s.mtime = info.ModTime()
		}
	case os.IsNotExist(err):
		s.state = State{
			UniqueID:      uniqueID,
			DataFrequency: 60,
			CapacityUnits: DefaultCapacityUnits,
		}
		if writeErr := s.write(); writeErr != nil {
			return nil, writeErr
		}
	default:
		return nil, fmt.Errorf("reading state file: %w", err)
	}

	return s, nil
}

// Get returns a copy of the current state, reloading first if the file
// changed on disk since the last read or write.
func (s *Store) Get() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.maybeReload()
	return s.state
}

// Update applies fn to the state under the lock and persists the
// result. The state is not considered committed until the file write
// succeeds; on write failure the in-memory copy is rolled back.
func (s *Store) Update(fn func(*State)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.maybeReload()

	previous := s.state
	fn(&s.state)
	if err := s.write(); err != nil {
		s.state = previous
		return err
	}
	return nil
}

// maybeReload re-reads the file if its mtime advanced. Callers hold
// the lock.
func (s *Store) maybeReload() {
	info, err := os.Stat(s.path)
	if err != nil || !info.ModTime().After(s.mtime) {
		return
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return
	}
	var fresh State
	if err := json.Unmarshal(data, &fresh); err != nil {
		// Half-written external edit; keep the known-good state.
		return
	}
	s.state = fresh
	s.mtime = info.ModTime()
}

// write persists the state atomically: temp file then rename, so a
// power cut mid-write never leaves a truncated file. Callers hold the
// lock.
func (s *Store) write() error {
	data, err := json.MarshalIndent(&s.state, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding state: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing state file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replacing state file: %w", err)
	}
	if info, err := os.Stat(s.path); err == nil {
		s.mtime = info.ModTime()
	}
	return nil
}
