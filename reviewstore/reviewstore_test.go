package reviewstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemReviewStore(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	s := NewMemReviewStore()

	require.NoError(t, s.Add(ctx, ReviewItem{
		ID:        "msg-1",
		ActorID:   "actor-1",
		Content:   "borderline content",
		Tags:      []string{"suspicious_link"},
		Score:     14,
		CreatedAt: time.Now(),
	}))
	require.NoError(t, s.Add(ctx, ReviewItem{ID: "msg-2", ActorID: "actor-2", CreatedAt: time.Now()}))

	size, err := s.Size(ctx)
	require.NoError(t, err)
	assert.Equal(2, size)

	item, err := s.Resolve(ctx, "msg-1", StatusRejected, "mod-9")
	require.NoError(t, err)
	assert.Equal(StatusRejected, item.Status)
	assert.Equal("mod-9", item.ReviewedBy)
	assert.NotNil(item.ReviewedAt)

	pending, err := s.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal("msg-2", pending[0].ID)

	_, err = s.Resolve(ctx, "nope", StatusApproved, "mod-9")
	assert.ErrorIs(err, ErrNotFound)
}
