// Package reviewstore holds the manual-review queue: borderline-scored
// content waiting for human adjudication instead of automatic action.
package reviewstore

import (
	"context"
	"errors"
	"time"
)

const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

var ErrNotFound = errors.New("review item not found")

// One borderline-scored message. Immutable except through Resolve.
type ReviewItem struct {
	// the offending message id doubles as the queue item id
	ID         string     `json:"id"`
	ChannelID  string     `json:"channel_id"`
	ActorID    string     `json:"actor_id"`
	Content    string     `json:"content"`
	Tags       []string   `json:"tags"`
	Score      int        `json:"score"`
	CreatedAt  time.Time  `json:"created_at"`
	Status     string     `json:"status"`
	ReviewedBy string     `json:"reviewed_by,omitempty"`
	ReviewedAt *time.Time `json:"reviewed_at,omitempty"`
}

type ReviewStore interface {
	Add(ctx context.Context, item ReviewItem) error
	// pending items, oldest first
	Pending(ctx context.Context) ([]ReviewItem, error)
	// marks an item approved/rejected; returns the updated item
	Resolve(ctx context.Context, id, status, reviewerID string) (*ReviewItem, error)
	// number of pending items
	Size(ctx context.Context) (int, error)
}
