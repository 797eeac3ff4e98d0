package runstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"relax3d/internal/common/fsutil"
)

// FileStore keeps records as a JSON array in a single file.
type FileStore struct {
	mu   sync.Mutex
	path string
	keep int
}

// NewFileStore returns a store backed by path. The file is created on first Save.
func NewFileStore(path string, keep int) (*FileStore, error) {
	p, err := fsutil.ExpandHome(path)
	if err != nil {
		return nil, err
	}
	return &FileStore{path: p, keep: keep}, nil
}

func (s *FileStore) load() ([]Record, error) {
	b, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var recs []Record
	if len(b) == 0 {
		return nil, nil
	}
	if err := json.Unmarshal(b, &recs); err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.path, err)
	}
	return recs, nil
}

func (s *FileStore) Save(_ context.Context, r Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	recs, err := s.load()
	if err != nil {
		return err
	}
	recs = trim(append(recs, r), s.keep)
	b, err := json.MarshalIndent(recs, "", "  ")
	if err != nil {
		return err
	}
	return fsutil.WriteFileAtomic(s.path, b, 0o644)
}

func (s *FileStore) List(_ context.Context, limit int) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	recs, err := s.load()
	if err != nil {
		return nil, err
	}
	return newestFirst(recs, limit), nil
}

func (s *FileStore) Close() error { return nil }
