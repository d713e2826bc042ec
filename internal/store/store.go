// Package store defines access to the game store of record. Two
// implementations ship: a Postgres-backed store for real deployments
// and an in-memory store with the same semantics for tests and
// single-process runs.
package store

import (
	"context"

	"kiadisa/internal/game"
)

type Store interface {
	// CreateGame writes the game and its host player as one logical
	// unit; a partial write must not survive. Returns game.ErrCodeTaken
	// when the join code collides with a live game.
	CreateGame(ctx context.Context, g *game.Game, host *game.Player) error

	GetGame(ctx context.Context, id string) (*game.Game, error)

	// FindGameByCode resolves a join code among non-finished games.
	FindGameByCode(ctx context.Context, code string) (*game.Game, error)

	// AddPlayer admits a player, re-checking capacity atomically with
	// the write. Joining a game you are already in returns the existing
	// player. Returns game.ErrRoomFull when the roster is at capacity.
	AddPlayer(ctx context.Context, p *game.Player) (*game.Player, error)

	SetReady(ctx context.Context, gameID, userID string, ready bool) error

	ListPlayers(ctx context.Context, gameID string) ([]game.Player, error)

	// StartGame applies the waiting→active transition. The host check is
	// enforced here as well as in the coordinator, mirroring a row-level
	// policy: a forged client call cannot bypass it.
	StartGame(ctx context.Context, gameID, requesterID string, t game.StartTransition) (*game.Game, error)

	// AdvanceRound applies one round's deltas and moves the round
	// counter, guarded by a compare-and-swap on CurrentRound. The caller
	// that loses a race gets game.ErrConflictOnAdvance and nothing is
	// applied twice.
	AdvanceRound(ctx context.Context, gameID string, t game.AdvanceTransition) (*game.Game, error)

	// AddSubmission records one answer or vote; duplicates for the same
	// (game, round, user, kind) return game.ErrDuplicateSubmission.
	AddSubmission(ctx context.Context, sub *game.Submission) error

	ListSubmissions(ctx context.Context, gameID string, round int) ([]game.Submission, error)

	GetProfile(ctx context.Context, userID string) (*game.Profile, error)

	// AwardProfile adds end-of-game xp and coins and recomputes level.
	AwardProfile(ctx context.Context, userID string, xp, coins int) error

	AppendEvent(ctx context.Context, gameID, eventType string, payload game.EventPayload) error

	ListEvents(ctx context.Context, gameID string) ([]game.Event, error)
}

// LevelForXP maps accumulated xp to a profile level.
func LevelForXP(xp int) int {
	if xp < 0 {
		return 1
	}
	return xp/100 + 1
}
