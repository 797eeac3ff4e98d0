// Package runstore keeps the history of finished pipeline runs.
package runstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"relax3d/pkg/types"
)

// Record is one finished run.
type Record struct {
	ID         string    `json:"id"`
	Pipeline   string    `json:"pipeline"`
	File       string    `json:"file,omitempty"`
	Option     string    `json:"option"`
	Mode       string    `json:"mode,omitempty"`
	Status     string    `json:"status"`
	Stage      string    `json:"stage,omitempty"`
	Failure    string    `json:"failure,omitempty"`
	Cause      string    `json:"cause,omitempty"`
	OutputFile string    `json:"output_file,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// API converts r to its HTTP payload.
func (r Record) API() types.RunRecord {
	return types.RunRecord{
		ID:         r.ID,
		Pipeline:   r.Pipeline,
		File:       r.File,
		Option:     r.Option,
		Mode:       r.Mode,
		Status:     r.Status,
		Stage:      r.Stage,
		Failure:    r.Failure,
		Cause:      r.Cause,
		OutputFile: r.OutputFile,
		StartedAt:  r.StartedAt.UTC().Format(time.RFC3339),
		FinishedAt: r.FinishedAt.UTC().Format(time.RFC3339),
	}
}

// Store persists run records.
type Store interface {
	Save(ctx context.Context, r Record) error
	// List returns up to limit records, newest first. limit <= 0 means all.
	List(ctx context.Context, limit int) ([]Record, error)
	Close() error
}

// Open picks a store: Postgres when dsn is set, a JSON file when path is
// set, memory otherwise. keep bounds the file and memory stores.
func Open(ctx context.Context, path, dsn string, keep int) (Store, error) {
	switch {
	case dsn != "":
		return NewPGStore(ctx, dsn)
	case path != "":
		return NewFileStore(path, keep)
	default:
		return NewMemoryStore(keep), nil
	}
}

// MemoryStore keeps records in memory.
type MemoryStore struct {
	mu   sync.Mutex
	keep int
	recs []Record
}

func NewMemoryStore(keep int) *MemoryStore { return &MemoryStore{keep: keep} }

func (s *MemoryStore) Save(_ context.Context, r Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recs = trim(append(s.recs, r), s.keep)
	return nil
}

func (s *MemoryStore) List(_ context.Context, limit int) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return newestFirst(s.recs, limit), nil
}

func (s *MemoryStore) Close() error { return nil }

// trim drops the oldest records beyond keep.
func trim(recs []Record, keep int) []Record {
	if keep > 0 && len(recs) > keep {
		recs = append([]Record(nil), recs[len(recs)-keep:]...)
	}
	return recs
}

func newestFirst(recs []Record, limit int) []Record {
	out := append([]Record(nil), recs...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
