// Package filestore provides a file-backed implementation of dedup.Store.
// Claims survive process restarts; the full history of seen keys is kept.
package filestore

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/remedy/internal/incident"
)

// Store holds claimed keys in memory, mirrored to a JSON file on every
// claim. An unreadable or corrupt file is treated as empty, never fatal.
type Store struct {
	path   string
	logger log.Logger

	mu      sync.Mutex
	claimed map[string]time.Time
}

// New loads the claim index from path, creating parent directories as
// needed.
func New(path string, logger log.Logger) (*Store, error) {
	if logger == nil {
		logger = log.Nop()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	s := &Store{
		path:    path,
		logger:  logger,
		claimed: make(map[string]time.Time),
	}
	s.load()
	return s, nil
}

func (s *Store) load() {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Error(context.Background(), err, "dedup index unreadable, starting empty", "path", s.path)
		}
		return
	}
	if err := json.Unmarshal(data, &s.claimed); err != nil {
		s.logger.Error(context.Background(), err, "dedup index corrupt, starting empty", "path", s.path)
		s.claimed = make(map[string]time.Time)
	}
}

// Claim implements dedup.Store. The in-memory index is authoritative for the
// test-and-set; the file write happens under the same lock so two concurrent
// claims of one key serialize.
func (s *Store) Claim(ctx context.Context, key incident.Key) (bool, error) {
	if !key.Complete() {
		return true, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	k := key.String()
	if _, seen := s.claimed[k]; seen {
		return false, nil
	}
	s.claimed[k] = time.Now().UTC()

	if err := s.persist(); err != nil {
		// The claim stands in memory; losing the write only risks a
		// re-process after restart, which callers already tolerate.
		s.logger.Error(ctx, err, "failed to persist dedup index", "path", s.path)
	}
	return true, nil
}

func (s *Store) persist() error {
	data, err := json.MarshalIndent(s.claimed, "", "  ")
	if err != nil {
		return err
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

// Len reports the number of claimed keys.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.claimed)
}
