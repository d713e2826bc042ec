// Package session is the game session coordinator: the state machine
// over waiting → active → finished, roster admission, round progression
// and score aggregation, plus the reconciliation watcher that keeps
// connected clients convergent with the store.
package session

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"kiadisa/internal/config"
	"kiadisa/internal/game"
	"kiadisa/internal/game/minigames"
	"kiadisa/internal/realtime"
	"kiadisa/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Collisions on a 6-character code are rare but real; regenerate
// instead of failing the create.
const codeAttempts = 5

type Coordinator struct {
	store    store.Store
	channel  realtime.Channel
	handlers *minigames.Registry
	cfg      config.Config
	log      *zap.SugaredLogger

	timersMu sync.Mutex
	timers   map[string]*time.Timer
}

func New(st store.Store, ch realtime.Channel, handlers *minigames.Registry, cfg config.Config, log *zap.SugaredLogger) *Coordinator {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Coordinator{
		store:    st,
		channel:  ch,
		handlers: handlers,
		cfg:      cfg,
		timers:   make(map[string]*time.Timer),
		log:      log,
	}
}

// CreateRoom validates the settings, generates a join code and writes
// the game together with the host's player row.
func (c *Coordinator) CreateRoom(ctx context.Context, settings game.Settings, creatorID string) (*game.Game, error) {
	if err := settings.Validate(c.cfg.MaxPlayersLimit, c.cfg.MaxRounds); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	var created *game.Game
	for attempt := 0; attempt < codeAttempts; attempt++ {
		code, err := game.NewJoinCode()
		if err != nil {
			return nil, err
		}
		g := &game.Game{
			ID:           uuid.NewString(),
			Code:         code,
			HostID:       creatorID,
			Status:       game.StatusWaiting,
			Mode:         settings.Mode,
			Ambiance:     settings.Ambiance,
			MiniGames:    append([]string(nil), settings.MiniGames...),
			TotalRounds:  settings.TotalRounds,
			CurrentRound: 0,
			MaxPlayers:   settings.MaxPlayers,
			CreatedAt:    now,
		}
		host := &game.Player{
			ID:       uuid.NewString(),
			GameID:   g.ID,
			UserID:   creatorID,
			IsHost:   true,
			JoinedAt: now,
		}
		err = c.store.CreateGame(ctx, g, host)
		if err == nil {
			created = g
			break
		}
		if errors.Is(err, game.ErrCodeTaken) {
			continue
		}
		return nil, err
	}
	if created == nil {
		return nil, game.ErrCodeTaken
	}
	c.appendEvent(ctx, created.ID, "game_created", game.EventPayload{
		JoinCode: created.Code,
		UserID:   creatorID,
	})
	c.publish(ctx, created.ID)
	c.log.Infow("game created", "game_id", created.ID, "join_code", created.Code, "host_id", creatorID)
	return created, nil
}

// JoinRoom admits a player by join code. Re-joining a room you are
// already in is an idempotent success.
func (c *Coordinator) JoinRoom(ctx context.Context, code, userID string) (*game.Game, *game.Player, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != game.CodeLength {
		return nil, nil, &game.ValidationError{Field: "code", Reason: "join code must be 6 characters"}
	}
	g, err := c.store.FindGameByCode(ctx, code)
	if err != nil {
		return nil, nil, err
	}
	candidate := &game.Player{
		ID:       uuid.NewString(),
		GameID:   g.ID,
		UserID:   userID,
		JoinedAt: time.Now().UTC(),
	}
	admitted, err := c.store.AddPlayer(ctx, candidate)
	if err != nil {
		return nil, nil, err
	}
	if admitted.ID == candidate.ID {
		c.appendEvent(ctx, g.ID, "player_joined", game.EventPayload{UserID: userID})
		c.publish(ctx, g.ID)
		c.log.Infow("player joined", "game_id", g.ID, "user_id", userID)
	}
	return g, admitted, nil
}

// SetReady toggles the lobby readiness flag. Readiness is advisory; it
// does not gate the start.
func (c *Coordinator) SetReady(ctx context.Context, gameID, userID string, ready bool) error {
	if err := c.store.SetReady(ctx, gameID, userID, ready); err != nil {
		return err
	}
	c.publish(ctx, gameID)
	return nil
}

// StartGame moves a waiting room to active. Host-only; requires the
// minimum viable roster.
func (c *Coordinator) StartGame(ctx context.Context, gameID, requesterID string) (*game.Game, error) {
	g, err := c.store.GetGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if g.HostID != requesterID {
		return nil, game.ErrForbidden
	}
	if g.Status != game.StatusWaiting {
		return nil, game.ErrInvalidState
	}
	players, err := c.store.ListPlayers(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if len(players) < c.cfg.MinPlayers {
		return nil, game.ErrInsufficientPlayers
	}
	// The store re-validates host and state atomically with the write.
	started, err := c.store.StartGame(ctx, gameID, requesterID, game.StartTransition{
		StartedAt: time.Now().UTC(),
	})
	if err != nil {
		return nil, err
	}
	c.appendEvent(ctx, gameID, "game_started", game.EventPayload{
		UserID:      requesterID,
		Round:       started.CurrentRound,
		Variant:     started.Variant(started.CurrentRound),
		PlayerCount: len(players),
	})
	c.publish(ctx, gameID)
	c.scheduleRoundDeadline(gameID, started.CurrentRound)
	c.log.Infow("game started", "game_id", gameID, "players", len(players), "total_rounds", started.TotalRounds)
	return started, nil
}

// Results returns the final roster sorted by score, best first.
func (c *Coordinator) Results(ctx context.Context, gameID string) (*game.Game, []game.Player, error) {
	g, err := c.store.GetGame(ctx, gameID)
	if err != nil {
		return nil, nil, err
	}
	players, err := c.store.ListPlayers(ctx, gameID)
	if err != nil {
		return nil, nil, err
	}
	sortByScore(players)
	return g, players, nil
}

func (c *Coordinator) Events(ctx context.Context, gameID string) ([]game.Event, error) {
	if _, err := c.store.GetGame(ctx, gameID); err != nil {
		return nil, err
	}
	return c.store.ListEvents(ctx, gameID)
}

func (c *Coordinator) Profile(ctx context.Context, userID string) (*game.Profile, error) {
	return c.store.GetProfile(ctx, userID)
}

// Close stops all round deadline timers.
func (c *Coordinator) Close() {
	c.timersMu.Lock()
	defer c.timersMu.Unlock()
	for id, timer := range c.timers {
		timer.Stop()
		delete(c.timers, id)
	}
}

func (c *Coordinator) publish(ctx context.Context, gameID string) {
	if c.channel == nil {
		return
	}
	if err := c.channel.Publish(ctx, gameID); err != nil {
		c.log.Warnw("publish failed", "game_id", gameID, "error", err)
	}
}

func (c *Coordinator) appendEvent(ctx context.Context, gameID, eventType string, payload game.EventPayload) {
	if err := c.store.AppendEvent(ctx, gameID, eventType, payload); err != nil {
		c.log.Warnw("append event failed", "game_id", gameID, "type", eventType, "error", err)
	}
}

func sortByScore(players []game.Player) {
	sort.SliceStable(players, func(i, j int) bool {
		return players[i].Score > players[j].Score
	})
}
