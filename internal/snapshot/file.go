package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
)

const (
	dailyFile   = "daily.json"
	historyFile = "history.json"
)

// FileStore keeps the daily record and history as two JSON documents in an
// injectable directory. Writes go through a temp file plus rename so a crash
// mid-write never leaves a torn document behind.
type FileStore struct {
	dir    string
	logger zerolog.Logger
	mu     sync.Mutex
}

// NewFileStore creates the directory if needed and returns the store.
func NewFileStore(dir string, logger zerolog.Logger) (*FileStore, error) {
	if dir == "" {
		return nil, errors.New("storage dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &FileStore{
		dir:    dir,
		logger: logger.With().Str("component", "file_store").Logger(),
	}, nil
}

// LoadDaily reads the daily record, answering the placeholder when the file
// is absent or unreadable.
func (s *FileStore) LoadDaily(_ context.Context) Daily {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadDailyLocked()
}

func (s *FileStore) loadDailyLocked() Daily {
	var d Daily
	if err := s.readJSON(dailyFile, &d); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn().Err(err).Msg("daily record unreadable, using placeholder")
		}
		return PlaceholderDaily()
	}
	return d
}

// SaveDaily atomically overwrites the daily record.
func (s *FileStore) SaveDaily(_ context.Context, d Daily) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeJSON(dailyFile, d)
}

// LoadHistory reads the full archive, answering an empty map when the file is
// absent or unreadable.
func (s *FileStore) LoadHistory(_ context.Context) History {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadHistoryLocked()
}

func (s *FileStore) loadHistoryLocked() History {
	h := make(History)
	if err := s.readJSON(historyFile, &h); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn().Err(err).Msg("history unreadable, starting empty")
		}
		return make(History)
	}
	if h == nil {
		return make(History)
	}
	return h
}

// AppendHistory loads the archive, upserts the (date, period) entry, and
// persists the whole structure back. The lock covers the load+save pair.
func (s *FileStore) AppendHistory(_ context.Context, date string, p Period, r Reading) error {
	if !p.Valid() {
		return fmt.Errorf("unknown period %q", p)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	h := s.loadHistoryLocked()
	h.Put(date, p, r)
	return s.writeJSON(historyFile, h)
}

// Close is a no-op for the file backend.
func (s *FileStore) Close() {}

func (s *FileStore) readJSON(name string, v any) error {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return nil
}

func (s *FileStore) writeJSON(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}

	path := filepath.Join(s.dir, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace %s: %w", name, err)
	}
	return nil
}

var _ Store = (*FileStore)(nil)
