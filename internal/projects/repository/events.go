package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/GoSim-25-26J-441/codegen-backend/internal/projects/domain"
)

const projectEventChannelPrefix = "codegen:events:" // codegen:events:{id}

// RedisEvents fans project snapshots out over Redis pub/sub so every API
// instance can stream status changes.
type RedisEvents struct {
	client *redis.Client
}

func NewRedisEvents(client *redis.Client) *RedisEvents {
	return &RedisEvents{client: client}
}

// Publish sends the project snapshot on its channel.
func (e *RedisEvents) Publish(ctx context.Context, p *domain.Project) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	return e.client.Publish(ctx, eventChannel(p.ID), data).Err()
}

// Subscribe streams snapshots for one project until ctx ends. The returned
// channel is closed when the subscription stops.
func (e *RedisEvents) Subscribe(ctx context.Context, id string) (<-chan *domain.Project, error) {
	sub := e.client.Subscribe(ctx, eventChannel(id))
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}

	out := make(chan *domain.Project, 8)
	go func() {
		defer close(out)
		defer sub.Close()
		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var p domain.Project
				if err := json.Unmarshal([]byte(msg.Payload), &p); err != nil {
					continue
				}
				select {
				case out <- &p:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func eventChannel(id string) string {
	return fmt.Sprintf("%s%s", projectEventChannelPrefix, id)
}
