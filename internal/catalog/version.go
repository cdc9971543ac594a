package catalog

import (
	"context"
	"errors"
	"strconv"

	"github.com/redis/go-redis/v9"
)

const (
	salesVersionKey = "catalog:sales:version"
	salesBumpChan   = "catalog.sales.bump"
)

// VersionSource reports the version of the sale collection. A new version
// invalidates the sales index.
type VersionSource interface {
	SalesVersion(ctx context.Context) (int64, error)
}

// VersionStore keeps the sales version in Redis and broadcasts bumps so
// every process rebuilds its index once per write.
type VersionStore struct {
	client *redis.Client
}

// NewVersionStore wraps a Redis client.
func NewVersionStore(client *redis.Client) *VersionStore {
	return &VersionStore{client: client}
}

// SalesVersion returns the current version, initialising it when missing.
func (s *VersionStore) SalesVersion(ctx context.Context) (int64, error) {
	if s == nil || s.client == nil {
		return 0, nil
	}
	ver, err := s.client.Get(ctx, salesVersionKey).Int64()
	if errors.Is(err, redis.Nil) {
		if err := s.client.SetNX(ctx, salesVersionKey, 1, 0).Err(); err != nil {
			return 0, err
		}
		return s.client.Get(ctx, salesVersionKey).Int64()
	}
	if err != nil {
		return 0, err
	}
	if ver <= 0 {
		ver = 1
		if err := s.client.Set(ctx, salesVersionKey, ver, 0).Err(); err != nil {
			return 0, err
		}
	}
	return ver, nil
}

// Bump increments the version and publishes it to subscribers.
func (s *VersionStore) Bump(ctx context.Context) (int64, error) {
	if s == nil || s.client == nil {
		return 0, nil
	}
	ver, err := s.client.Incr(ctx, salesVersionKey).Result()
	if err != nil {
		return 0, err
	}
	if err := s.client.Publish(ctx, salesBumpChan, strconv.FormatInt(ver, 10)).Err(); err != nil {
		return ver, err
	}
	return ver, nil
}

// Subscribe streams published versions until ctx is done. Payloads that are
// not a version still signal a change and arrive as 0.
func (s *VersionStore) Subscribe(ctx context.Context) (<-chan int64, error) {
	if s == nil || s.client == nil {
		return nil, errors.New("catalog: version store not configured")
	}
	pubsub := s.client.Subscribe(ctx, salesBumpChan)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, err
	}
	out := make(chan int64)
	go func() {
		defer close(out)
		defer func() { _ = pubsub.Close() }()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				ver, _ := strconv.ParseInt(msg.Payload, 10, 64)
				select {
				case out <- ver:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
