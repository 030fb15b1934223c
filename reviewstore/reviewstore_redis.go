package reviewstore

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	redisReviewPrefix  = "review/"
	redisPendingSetKey = "review-pending"
)

// Redis-backed review queue: one hash entry per item plus a set of pending
// ids, so Pending and Size stay cheap.
type RedisReviewStore struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewRedisReviewStore(redisURL string, ttl time.Duration) (*RedisReviewStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opt)
	_, err = rdb.Ping(context.TODO()).Result()
	if err != nil {
		return nil, err
	}
	return &RedisReviewStore{Client: rdb, TTL: ttl}, nil
}

func (s *RedisReviewStore) Add(ctx context.Context, item ReviewItem) error {
	if item.Status == "" {
		item.Status = StatusPending
	}
	raw, err := json.Marshal(item)
	if err != nil {
		return err
	}
	multi := s.Client.Pipeline()
	multi.Set(ctx, redisReviewPrefix+item.ID, raw, s.TTL)
	multi.SAdd(ctx, redisPendingSetKey, item.ID)
	_, err = multi.Exec(ctx)
	return err
}

func (s *RedisReviewStore) Pending(ctx context.Context) ([]ReviewItem, error) {
	ids, err := s.Client.SMembers(ctx, redisPendingSetKey).Result()
	if err != nil && err != redis.Nil {
		return nil, err
	}
	out := []ReviewItem{}
	for _, id := range ids {
		raw, err := s.Client.Get(ctx, redisReviewPrefix+id).Result()
		if err == redis.Nil {
			// item expired out from under the set
			s.Client.SRem(ctx, redisPendingSetKey, id)
			continue
		} else if err != nil {
			return nil, err
		}
		var item ReviewItem
		if err := json.Unmarshal([]byte(raw), &item); err != nil {
			continue
		}
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *RedisReviewStore) Resolve(ctx context.Context, id, status, reviewerID string) (*ReviewItem, error) {
	raw, err := s.Client.Get(ctx, redisReviewPrefix+id).Result()
	if err == redis.Nil {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, err
	}
	var item ReviewItem
	if err := json.Unmarshal([]byte(raw), &item); err != nil {
		return nil, err
	}
	now := time.Now()
	item.Status = status
	item.ReviewedBy = reviewerID
	item.ReviewedAt = &now

	updated, err := json.Marshal(item)
	if err != nil {
		return nil, err
	}
	multi := s.Client.Pipeline()
	multi.Set(ctx, redisReviewPrefix+id, updated, s.TTL)
	multi.SRem(ctx, redisPendingSetKey, id)
	if _, err := multi.Exec(ctx); err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *RedisReviewStore) Size(ctx context.Context) (int, error) {
	n, err := s.Client.SCard(ctx, redisPendingSetKey).Result()
	if err != nil && err != redis.Nil {
		return 0, err
	}
	return int(n), nil
}

var _ ReviewStore = (*RedisReviewStore)(nil)
