package actorstore

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

var redisWarningPrefix string = "warnings/"

// Redis-backed warning store, for deployments that need warning history to
// survive restarts. One list per actor, JSON-encoded entries, with a TTL a
// little past the retention window as a backstop for the sweeper.
type RedisWarningStore struct {
	Client    *redis.Client
	Retention time.Duration
}

func NewRedisWarningStore(redisURL string, retention time.Duration) (*RedisWarningStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opt)
	// check redis connection
	_, err = rdb.Ping(context.TODO()).Result()
	if err != nil {
		return nil, err
	}
	return &RedisWarningStore{
		Client:    rdb,
		Retention: retention,
	}, nil
}

func (s *RedisWarningStore) Add(ctx context.Context, actorID string, w Warning) error {
	w.Content = TruncateContent(w.Content)
	raw, err := json.Marshal(w)
	if err != nil {
		return err
	}
	key := redisWarningPrefix + actorID
	multi := s.Client.Pipeline()
	multi.RPush(ctx, key, raw)
	multi.Expire(ctx, key, s.Retention+24*time.Hour)
	_, err = multi.Exec(ctx)
	return err
}

func (s *RedisWarningStore) List(ctx context.Context, actorID string, since time.Time) ([]Warning, error) {
	raws, err := s.Client.LRange(ctx, redisWarningPrefix+actorID, 0, -1).Result()
	if err == redis.Nil {
		return []Warning{}, nil
	} else if err != nil {
		return nil, err
	}
	out := []Warning{}
	for _, raw := range raws {
		var w Warning
		if err := json.Unmarshal([]byte(raw), &w); err != nil {
			continue
		}
		if !w.Timestamp.Before(since) {
			out = append(out, w)
		}
	}
	return out, nil
}

func (s *RedisWarningStore) Count(ctx context.Context, actorID string, since time.Time) (int, error) {
	ws, err := s.List(ctx, actorID, since)
	if err != nil {
		return 0, err
	}
	return len(ws), nil
}

func (s *RedisWarningStore) Clear(ctx context.Context, actorID string) (int, error) {
	key := redisWarningPrefix + actorID
	n, err := s.Client.LLen(ctx, key).Result()
	if err != nil && err != redis.Nil {
		return 0, err
	}
	if err := s.Client.Del(ctx, key).Err(); err != nil {
		return 0, err
	}
	return int(n), nil
}

func (s *RedisWarningStore) Sweep(ctx context.Context, cutoff time.Time) (int, error) {
	removed := 0
	iter := s.Client.Scan(ctx, 0, redisWarningPrefix+"*", 200).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		raws, err := s.Client.LRange(ctx, key, 0, -1).Result()
		if err != nil {
			continue
		}
		kept := make([]interface{}, 0, len(raws))
		for _, raw := range raws {
			var w Warning
			if err := json.Unmarshal([]byte(raw), &w); err != nil {
				removed++
				continue
			}
			if w.Timestamp.Before(cutoff) {
				removed++
			} else {
				kept = append(kept, raw)
			}
		}
		if len(kept) == len(raws) {
			continue
		}
		// rewrite the list in a single transaction
		multi := s.Client.TxPipeline()
		multi.Del(ctx, key)
		if len(kept) > 0 {
			multi.RPush(ctx, key, kept...)
			multi.Expire(ctx, key, s.Retention+24*time.Hour)
		}
		if _, err := multi.Exec(ctx); err != nil {
			return removed, err
		}
	}
	return removed, iter.Err()
}

func (s *RedisWarningStore) Stats(ctx context.Context) (int, int, error) {
	actors := 0
	warnings := 0
	iter := s.Client.Scan(ctx, 0, redisWarningPrefix+"*", 200).Iterator()
	for iter.Next(ctx) {
		n, err := s.Client.LLen(ctx, iter.Val()).Result()
		if err != nil {
			continue
		}
		actors++
		warnings += int(n)
	}
	return actors, warnings, iter.Err()
}

var _ WarningStore = (*RedisWarningStore)(nil)
