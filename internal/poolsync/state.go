package poolsync

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// StateStore persists the last completed day per sync name.
type StateStore interface {
	Load(ctx context.Context, name string) (int64, bool, error)
	Save(ctx context.Context, name string, ts int64) error
}

// FileStateStore stores state in a local JSON file.
type FileStateStore struct {
	Path string

	mu sync.Mutex
}

type stateRecord struct {
	LastSynced int64  `json:"last_synced_ts"`
	UpdatedAt  string `json:"updated_at"`
}

func (s *FileStateStore) Load(ctx context.Context, name string) (int64, bool, error) {
	if s == nil || s.Path == "" {
		return 0, false, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.read()
	if err != nil {
		return 0, false, err
	}
	rec, ok := records[name]
	return rec.LastSynced, ok, nil
}

func (s *FileStateStore) Save(ctx context.Context, name string, ts int64) error {
	if s == nil || s.Path == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.read()
	if err != nil {
		return err
	}
	records[name] = stateRecord{
		LastSynced: ts,
		UpdatedAt:  time.Now().UTC().Format(time.RFC3339Nano),
	}

	dir := filepath.Dir(s.Path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create state dir: %w", err)
		}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	tmp := s.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write state tmp: %w", err)
	}
	if err := os.Rename(tmp, s.Path); err != nil {
		return fmt.Errorf("rename state: %w", err)
	}
	return nil
}

func (s *FileStateStore) read() (map[string]stateRecord, error) {
	records := make(map[string]stateRecord)
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return records, nil
		}
		return nil, fmt.Errorf("read state: %w", err)
	}
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse state: %w", err)
	}
	return records, nil
}

// DBStore is the subset of the Postgres store holding sync state.
type DBStore interface {
	LoadState(ctx context.Context, name string) (int64, bool, error)
	SaveState(ctx context.Context, name string, ts int64) error
}

// DBStateStore stores state in the sync_state table.
type DBStateStore struct {
	Store DBStore
}

func (s *DBStateStore) Load(ctx context.Context, name string) (int64, bool, error) {
	if s == nil || s.Store == nil {
		return 0, false, nil
	}
	return s.Store.LoadState(ctx, name)
}

func (s *DBStateStore) Save(ctx context.Context, name string, ts int64) error {
	if s == nil || s.Store == nil {
		return nil
	}
	return s.Store.SaveState(ctx, name, ts)
}
