package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"ipsentry/internal/types"

	"go.uber.org/zap"
)

// FileStore keeps the state as one JSON line in a file, replaced atomically
// on every save. The change history goes to <path>.history.
type FileStore struct {
	path    string
	history bool
	logger  *zap.Logger
	mu      sync.Mutex
}

// NewFileStore creates a file store, creating the parent directory
func NewFileStore(path string, history bool, logger *zap.Logger) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("state file path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	return &FileStore{
		path:    path,
		history: history,
		logger:  logger,
	}, nil
}

// Load reads the state file
func (s *FileStore) Load(_ context.Context) (types.MonitoringState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return types.NewMonitoringState(), nil
	}
	if err != nil {
		return types.NewMonitoringState(), fmt.Errorf("failed to read state file: %w", err)
	}

	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return types.NewMonitoringState(), fmt.Errorf("state file %s is empty", s.path)
	}

	return decodeRecord(data)
}

// Save writes a temp file, syncs it and renames it over the state file
func (s *FileStore) Save(_ context.Context, state types.MonitoringState) error {
	data, err := encodeRecord(state, time.Now())
	if err != nil {
		return err
	}
	data = append(data, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(filepath.Dir(s.path), "."+filepath.Base(s.path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write state: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to sync state: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err = os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("failed to replace state file: %w", err)
	}

	return nil
}

// RecordChange appends one JSON line to the history file
func (s *FileStore) RecordChange(_ context.Context, change types.AddressChange) error {
	if !s.history {
		return nil
	}

	line, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("failed to encode change: %w", err)
	}
	line = append(line, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.HistoryPath(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open history file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(line); err != nil {
		return fmt.Errorf("failed to append history: %w", err)
	}
	return nil
}

// HistoryPath returns the history file location
func (s *FileStore) HistoryPath() string {
	return s.path + ".history"
}

// Close is a no-op
func (s *FileStore) Close() error {
	return nil
}
