package realtime

import (
	"context"
	"sync"
)

// Local is the in-process channel used for single-node runs and tests.
type Local struct {
	mu     sync.Mutex
	nextID int
	topics map[string]map[int]func()
}

func NewLocal() *Local {
	return &Local{
		nextID: 1,
		topics: make(map[string]map[int]func()),
	}
}

func (l *Local) Publish(ctx context.Context, gameID string) error {
	l.mu.Lock()
	subs := make([]func(), 0, len(l.topics[gameID]))
	for _, fn := range l.topics[gameID] {
		subs = append(subs, fn)
	}
	l.mu.Unlock()
	for _, fn := range subs {
		fn()
	}
	return nil
}

func (l *Local) Subscribe(ctx context.Context, gameID string, fn func()) (Subscription, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	topic := l.topics[gameID]
	if topic == nil {
		topic = make(map[int]func())
		l.topics[gameID] = topic
	}
	id := l.nextID
	l.nextID++
	topic[id] = fn
	return &localSub{channel: l, gameID: gameID, id: id}, nil
}

type localSub struct {
	channel *Local
	gameID  string
	id      int
	once    sync.Once
}

func (s *localSub) Close() error {
	s.once.Do(func() {
		s.channel.mu.Lock()
		defer s.channel.mu.Unlock()
		topic := s.channel.topics[s.gameID]
		delete(topic, s.id)
		if len(topic) == 0 {
			delete(s.channel.topics, s.gameID)
		}
	})
	return nil
}
