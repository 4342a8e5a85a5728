package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vikramraman/graphpredict/pkg/models"
)

// RedisStore implements Store using go-redis/v9. Records are stored as JSON
// under job:<id> with a retention TTL; every Put refreshes the window.
type RedisStore struct {
	client    *redis.Client
	retention time.Duration
}

// NewRedisStore creates a RedisStore from a Redis URL.
func NewRedisStore(redisURL string, retention time.Duration) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	return &RedisStore{client: redis.NewClient(opts), retention: retention}, nil
}

func (s *RedisStore) Name() string { return "redis" }

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) Put(ctx context.Context, job *models.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encoding job %s: %w", job.ID, err)
	}
	return s.client.Set(ctx, JobKey(job.ID), data, s.retention).Err()
}

func (s *RedisStore) Get(ctx context.Context, jobID string) (*models.Job, bool, error) {
	data, err := s.client.Get(ctx, JobKey(jobID)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var job models.Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, false, fmt.Errorf("decoding job %s: %w", jobID, err)
	}
	return &job, true, nil
}

func (s *RedisStore) ScanAll(ctx context.Context) ([]*models.Job, error) {
	var jobs []*models.Job

	iter := s.client.Scan(ctx, 0, JobKey("*"), 100).Iterator()
	for iter.Next(ctx) {
		data, err := s.client.Get(ctx, iter.Val()).Bytes()
		if err == redis.Nil {
			// Expired between SCAN and GET.
			continue
		}
		if err != nil {
			return nil, err
		}

		var job models.Job
		if err := json.Unmarshal(data, &job); err != nil {
			return nil, fmt.Errorf("decoding job at %s: %w", iter.Val(), err)
		}
		jobs = append(jobs, &job)
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}

	return jobs, nil
}

// IncrWithExpiry atomically increments a counter key, used by the rate
// limiting middleware.
func (s *RedisStore) IncrWithExpiry(ctx context.Context, key string, expiry time.Duration) (int64, error) {
	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, expiry)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

var _ Store = (*RedisStore)(nil)
