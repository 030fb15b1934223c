package actorstore

import (
	"context"
	"sync"
	"time"
)

// In-process warning store. A single mutex is enough: operations are short
// map-and-slice work, and the sweeper takes the same lock only for the
// duration of its own prune.
type MemWarningStore struct {
	mu       sync.Mutex
	warnings map[string][]Warning
}

func NewMemWarningStore() *MemWarningStore {
	return &MemWarningStore{
		warnings: make(map[string][]Warning),
	}
}

func (s *MemWarningStore) Add(ctx context.Context, actorID string, w Warning) error {
	w.Content = TruncateContent(w.Content)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.warnings[actorID] = append(s.warnings[actorID], w)
	return nil
}

func (s *MemWarningStore) List(ctx context.Context, actorID string, since time.Time) ([]Warning, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []Warning{}
	for _, w := range s.warnings[actorID] {
		if !w.Timestamp.Before(since) {
			out = append(out, w)
		}
	}
	return out, nil
}

func (s *MemWarningStore) Count(ctx context.Context, actorID string, since time.Time) (int, error) {
	ws, err := s.List(ctx, actorID, since)
	if err != nil {
		return 0, err
	}
	return len(ws), nil
}

func (s *MemWarningStore) Clear(ctx context.Context, actorID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.warnings[actorID])
	delete(s.warnings, actorID)
	return n, nil
}

func (s *MemWarningStore) Sweep(ctx context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for actorID, ws := range s.warnings {
		kept := ws[:0]
		for _, w := range ws {
			if w.Timestamp.Before(cutoff) {
				removed++
			} else {
				kept = append(kept, w)
			}
		}
		if len(kept) == 0 {
			delete(s.warnings, actorID)
		} else {
			s.warnings[actorID] = kept
		}
	}
	return removed, nil
}

func (s *MemWarningStore) Stats(ctx context.Context) (int, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, ws := range s.warnings {
		total += len(ws)
	}
	return len(s.warnings), total, nil
}

var _ WarningStore = (*MemWarningStore)(nil)
