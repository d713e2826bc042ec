// Package realtime is the change-notification channel: a pub/sub topic
// per game id carrying "something changed" signals. Payloads are not
// deltas; subscribers are expected to refetch from the store.
package realtime

import "context"

type Channel interface {
	// Publish signals that the game or its roster changed. Delivery is
	// at-least-once and unordered relative to the write that caused it.
	Publish(ctx context.Context, gameID string) error

	// Subscribe registers fn for signals on the game's topic. fn must be
	// fast or coalesce work itself; it is invoked from the channel's
	// delivery goroutine.
	Subscribe(ctx context.Context, gameID string, fn func()) (Subscription, error)
}

// Subscription is the scoped handle for one room subscription. Close
// must be called on every exit path of the owning view.
type Subscription interface {
	Close() error
}
