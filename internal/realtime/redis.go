package realtime

import (
	"context"
	"strings"

	"github.com/redis/go-redis/v9"
)

const topicPrefix = "room:"

// Redis fans change signals out across server replicas via pub/sub.
type Redis struct {
	rdb *redis.Client
}

func NewRedis(rdb *redis.Client) *Redis {
	return &Redis{rdb: rdb}
}

// NewRedisFromURL connects using a redis:// URL.
func NewRedisFromURL(url string) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return NewRedis(redis.NewClient(opts)), nil
}

func topic(gameID string) string {
	return topicPrefix + strings.TrimSpace(gameID)
}

func (r *Redis) Publish(ctx context.Context, gameID string) error {
	// The payload is a signal only; subscribers refetch.
	return r.rdb.Publish(ctx, topic(gameID), "changed").Err()
}

func (r *Redis) Subscribe(ctx context.Context, gameID string, fn func()) (Subscription, error) {
	pubsub := r.rdb.Subscribe(ctx, topic(gameID))
	// Force the subscription onto the wire before returning so callers
	// never miss a signal published right after Subscribe.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, err
	}
	sub := &redisSub{pubsub: pubsub, done: make(chan struct{})}
	go func() {
		defer close(sub.done)
		ch := pubsub.Channel()
		for range ch {
			fn()
		}
	}()
	return sub, nil
}

type redisSub struct {
	pubsub *redis.PubSub
	done   chan struct{}
}

func (s *redisSub) Close() error {
	err := s.pubsub.Close()
	<-s.done
	return err
}
