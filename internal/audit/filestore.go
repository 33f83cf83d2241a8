package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/linnemanlabs/go-core/log"
)

// FileStore persists each log as a JSON array file under dir, newest entry
// at index 0. Appends rewrite the whole array: acceptable at incident-arrival
// scale, and the durability contract is last-writer-wins with no partial
// recovery. A corrupt or unreadable file reads as an empty sequence.
type FileStore struct {
	dir    string
	logger log.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewFileStore creates dir if needed and returns a ready store.
func NewFileStore(dir string, logger log.Logger) (*FileStore, error) {
	if logger == nil {
		logger = log.Nop()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create audit dir: %w", err)
	}
	return &FileStore{
		dir:    dir,
		logger: logger,
		locks:  make(map[string]*sync.Mutex),
	}, nil
}

// lockFor serializes concurrent writers per log.
func (s *FileStore) lockFor(logName string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.locks[logName]
	if !ok {
		l = &sync.Mutex{}
		s.locks[logName] = l
	}
	return l
}

func (s *FileStore) path(logName string) string {
	return filepath.Join(s.dir, logName+".json")
}

// Append implements Store: load, prepend, rewrite.
func (s *FileStore) Append(ctx context.Context, logName string, record any) error {
	entry, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal audit record: %w", err)
	}

	l := s.lockFor(logName)
	l.Lock()
	defer l.Unlock()

	entries := s.loadLocked(ctx, logName)
	entries = append([]json.RawMessage{entry}, entries...)

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal audit log %q: %w", logName, err)
	}
	if err := os.WriteFile(s.path(logName), data, 0o644); err != nil {
		return fmt.Errorf("write audit log %q: %w", logName, err)
	}
	return nil
}

// List implements Store.
func (s *FileStore) List(ctx context.Context, logName string) ([]json.RawMessage, error) {
	l := s.lockFor(logName)
	l.Lock()
	defer l.Unlock()

	return s.loadLocked(ctx, logName), nil
}

func (s *FileStore) loadLocked(ctx context.Context, logName string) []json.RawMessage {
	data, err := os.ReadFile(s.path(logName))
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Error(ctx, err, "audit log unreadable, treating as empty", "log", logName)
		}
		return nil
	}

	var entries []json.RawMessage
	if err := json.Unmarshal(data, &entries); err != nil {
		s.logger.Error(ctx, err, "audit log corrupt, treating as empty", "log", logName)
		return nil
	}
	return entries
}
