package reviewstore

import (
	"context"
	"sync"
	"time"
)

type MemReviewStore struct {
	mu    sync.Mutex
	items []ReviewItem
}

func NewMemReviewStore() *MemReviewStore {
	return &MemReviewStore{}
}

func (s *MemReviewStore) Add(ctx context.Context, item ReviewItem) error {
	if item.Status == "" {
		item.Status = StatusPending
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, item)
	return nil
}

func (s *MemReviewStore) Pending(ctx context.Context) ([]ReviewItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []ReviewItem{}
	for _, item := range s.items {
		if item.Status == StatusPending {
			out = append(out, item)
		}
	}
	return out, nil
}

func (s *MemReviewStore) Resolve(ctx context.Context, id, status, reviewerID string) (*ReviewItem, error) {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].ID != id {
			continue
		}
		s.items[i].Status = status
		s.items[i].ReviewedBy = reviewerID
		s.items[i].ReviewedAt = &now
		item := s.items[i]
		return &item, nil
	}
	return nil, ErrNotFound
}

func (s *MemReviewStore) Size(ctx context.Context) (int, error) {
	pending, err := s.Pending(ctx)
	if err != nil {
		return 0, err
	}
	return len(pending), nil
}

var _ ReviewStore = (*MemReviewStore)(nil)
