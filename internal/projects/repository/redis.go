package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/GoSim-25-26J-441/codegen-backend/internal/projects/domain"
)

const (
	projectKeyPrefix = "codegen:project:" // project JSON: codegen:project:{id}
	projectIndexKey  = "codegen:projects" // sorted set of ids scored by created_at
	maxWatchRetries  = 5
)

// RedisStore keeps each project as a JSON document and guards updates with
// WATCH/MULTI so a concurrent writer aborts the transaction.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Create(ctx context.Context, p *domain.Project) (*domain.Project, error) {
	out := p.Clone()
	if out.CreatedAt.IsZero() {
		out.CreatedAt = now()
	}
	out.UpdatedAt = out.CreatedAt

	data, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal project: %w", err)
	}

	ok, err := s.client.SetNX(ctx, projectKey(out.ID), data, 0).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: duplicate project id %s", domain.ErrInvalidInput, out.ID)
	}
	if err := s.client.ZAdd(ctx, projectIndexKey, redis.Z{Score: float64(out.CreatedAt.UnixNano()), Member: out.ID}).Err(); err != nil {
		return nil, fmt.Errorf("failed to index project: %w", err)
	}
	return out, nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (*domain.Project, error) {
	return s.get(ctx, s.client, id)
}

func (s *RedisStore) get(ctx context.Context, c getter, id string) (*domain.Project, error) {
	data, err := c.Get(ctx, projectKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}

	var p domain.Project
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal project: %w", err)
	}
	return &p, nil
}

func (s *RedisStore) Update(ctx context.Context, id string, expected domain.Status, patch domain.Patch) (*domain.Project, error) {
	key := projectKey(id)

	for attempt := 0; attempt < maxWatchRetries; attempt++ {
		var updated *domain.Project
		err := s.client.Watch(ctx, func(tx *redis.Tx) error {
			p, err := s.get(ctx, tx, id)
			if err != nil {
				return err
			}
			if p.Status != expected {
				return fmt.Errorf("%w: expected %s, found %s", domain.ErrStaleState, expected, p.Status)
			}

			patch.Apply(p, now())
			data, err := json.Marshal(p)
			if err != nil {
				return fmt.Errorf("failed to marshal project: %w", err)
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, data, 0)
				return nil
			})
			if err != nil {
				return err
			}
			updated = p
			return nil
		}, key)

		if errors.Is(err, redis.TxFailedErr) {
			// key changed under us; re-read and re-check the guard
			continue
		}
		if err != nil {
			return nil, err
		}
		return updated, nil
	}
	return nil, fmt.Errorf("%w: too much contention on %s", domain.ErrStaleState, id)
}

func (s *RedisStore) Claim(ctx context.Context, id string, expected domain.Status, staleBefore time.Time) (bool, error) {
	key := projectKey(id)
	claimed := false
	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		p, err := s.get(ctx, tx, id)
		if err != nil {
			return err
		}
		if p.Status != expected || p.UpdatedAt.After(staleBefore) {
			return nil
		}

		p.UpdatedAt = now()
		data, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("failed to marshal project: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			return nil
		})
		if err != nil {
			return err
		}
		claimed = true
		return nil
	}, key)

	// a concurrent write means the project is not stale
	if errors.Is(err, redis.TxFailedErr) || errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return claimed, nil
}

func (s *RedisStore) List(ctx context.Context) ([]*domain.Project, error) {
	ids, err := s.client.ZRevRange(ctx, projectIndexKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	if len(ids) == 0 {
		return []*domain.Project{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = projectKey(id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load projects: %w", err)
	}

	out := make([]*domain.Project, 0, len(values))
	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var p domain.Project
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			return nil, fmt.Errorf("failed to unmarshal project: %w", err)
		}
		out = append(out, &p)
	}
	return out, nil
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func projectKey(id string) string {
	return fmt.Sprintf("%s%s", projectKeyPrefix, id)
}
