package realtime

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) *Redis {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedis(client)
}

func TestRedisPublishReachesSubscriber(t *testing.T) {
	ch := newTestRedis(t)
	ctx := context.Background()

	signals := make(chan struct{}, 4)
	sub, err := ch.Subscribe(ctx, "g1", func() { signals <- struct{}{} })
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer sub.Close()

	if err := ch.Publish(ctx, "g1"); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	select {
	case <-signals:
	case <-time.After(2 * time.Second):
		t.Fatal("signal never arrived")
	}
}

func TestRedisTopicsAreIsolated(t *testing.T) {
	ch := newTestRedis(t)
	ctx := context.Background()

	signals := make(chan struct{}, 4)
	sub, err := ch.Subscribe(ctx, "g1", func() { signals <- struct{}{} })
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer sub.Close()

	if err := ch.Publish(ctx, "g2"); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	select {
	case <-signals:
		t.Fatal("signal leaked across topics")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestRedisCloseStopsDelivery(t *testing.T) {
	ch := newTestRedis(t)
	ctx := context.Background()

	signals := make(chan struct{}, 4)
	sub, err := ch.Subscribe(ctx, "g1", func() { signals <- struct{}{} })
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if err := sub.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if err := ch.Publish(ctx, "g1"); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	select {
	case <-signals:
		t.Fatal("closed subscription still signalled")
	case <-time.After(100 * time.Millisecond):
	}
}
