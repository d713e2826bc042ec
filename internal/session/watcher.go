package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"kiadisa/internal/game"
	"kiadisa/internal/realtime"
	"kiadisa/internal/store"

	"go.uber.org/zap"
)

// Watcher is one client's view of one room. It holds a local cache of
// the game and its roster and keeps it convergent with the store:
// every channel signal invalidates the cache and triggers a full
// refetch. The signal payload is never trusted as a delta; the refetch
// reads current store state, so the staleness window is bounded by
// refetch latency regardless of notification ordering.
type Watcher struct {
	store    store.Store
	log      *zap.SugaredLogger
	gameID   string
	viewerID string

	sub      realtime.Subscription
	onChange func(RoomSnapshot)
	pending  chan struct{}
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	once    sync.Once

	mu      sync.Mutex
	game    *game.Game
	players []game.Player
	loading bool
}

// RoomSnapshot is the derived read-only state a presentation layer
// renders from.
type RoomSnapshot struct {
	Game    *game.Game
	Players []game.Player
	IsHost  bool
	InGame  bool
	Loading bool
}

// WatchRoom performs the initial full fetch, then subscribes to the
// room's change topic. onChange, when non-nil, fires after every
// successful refetch with the fresh snapshot. Close releases the
// subscription; callers must arrange for it on every exit path.
func WatchRoom(ctx context.Context, st store.Store, ch realtime.Channel, gameID, viewerID string, onChange func(RoomSnapshot), log *zap.SugaredLogger) (*Watcher, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	wctx, cancel := context.WithCancel(ctx)
	w := &Watcher{
		store:    st,
		log:      log,
		gameID:   gameID,
		viewerID: viewerID,
		onChange: onChange,
		pending:  make(chan struct{}, 1),
		ctx:      wctx,
		cancel:   cancel,
		done:     make(chan struct{}),
		loading:  true,
	}
	if err := w.refetch(); err != nil {
		cancel()
		return nil, err
	}
	sub, err := ch.Subscribe(wctx, gameID, w.signal)
	if err != nil {
		cancel()
		return nil, err
	}
	w.sub = sub
	go w.loop()
	return w, nil
}

// signal coalesces bursts of notifications into one pending refetch.
// Collapsed intermediate writes are safe: the refetch reads whatever
// the store holds now.
func (w *Watcher) signal() {
	select {
	case w.pending <- struct{}{}:
	default:
	}
}

func (w *Watcher) loop() {
	defer close(w.done)
	for {
		select {
		case <-w.ctx.Done():
			return
		case <-w.pending:
			if err := w.refetch(); err != nil {
				w.log.Warnw("refetch failed", "game_id", w.gameID, "error", err)
			}
		}
	}
}

// refetch replaces the cached game and roster wholesale. Transient
// store failures are retried with a short backoff; reads are idempotent.
func (w *Watcher) refetch() error {
	var g *game.Game
	var players []game.Player
	var err error
	for attempt := 0; attempt < 3; attempt++ {
		if attempt > 0 {
			select {
			case <-w.ctx.Done():
				return w.ctx.Err()
			case <-time.After(time.Duration(attempt) * 50 * time.Millisecond):
			}
		}
		g, err = w.store.GetGame(w.ctx, w.gameID)
		if err == nil {
			players, err = w.store.ListPlayers(w.ctx, w.gameID)
		}
		if err == nil || !errors.Is(err, game.ErrStoreUnavailable) {
			break
		}
	}
	if err != nil {
		return err
	}
	w.mu.Lock()
	w.game = g
	w.players = players
	w.loading = false
	w.mu.Unlock()
	if w.onChange != nil {
		w.onChange(w.Snapshot())
	}
	return nil
}

// Snapshot returns the current cached view.
func (w *Watcher) Snapshot() RoomSnapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	snap := RoomSnapshot{Loading: w.loading}
	if w.game != nil {
		g := *w.game
		snap.Game = &g
		snap.IsHost = g.HostID == w.viewerID
	}
	snap.Players = make([]game.Player, len(w.players))
	copy(snap.Players, w.players)
	for _, p := range snap.Players {
		if p.UserID == w.viewerID {
			snap.InGame = true
			break
		}
	}
	return snap
}

// Close tears the subscription down and stops the refetch loop. Safe to
// call more than once.
func (w *Watcher) Close() {
	w.once.Do(func() {
		if w.sub != nil {
			_ = w.sub.Close()
		}
		w.cancel()
		<-w.done
	})
}
