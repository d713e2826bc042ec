package game

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound            = errors.New("game not found")
	ErrForbidden           = errors.New("only the host can do that")
	ErrInvalidState        = errors.New("not allowed in this game state")
	ErrRoomFull            = errors.New("room is full")
	ErrAlreadyStarted      = errors.New("game already started")
	ErrInsufficientPlayers = errors.New("not enough players")
	ErrConflictOnAdvance   = errors.New("round already advanced")
	ErrDuplicateSubmission = errors.New("submission already recorded")
	ErrCodeTaken           = errors.New("join code already in use")
	ErrStoreUnavailable    = errors.New("store unavailable")
)

type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func invalid(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// Validate checks room settings before anything is written.
func (s Settings) Validate(maxPlayersLimit, maxRounds int) error {
	if !KnownMode(s.Mode) {
		return invalid("mode", "unknown game mode")
	}
	if !KnownAmbiance(s.Ambiance) {
		return invalid("ambiance", "unknown ambiance")
	}
	if len(s.MiniGames) == 0 {
		return invalid("mini_games", "select at least one mini-game")
	}
	seen := make(map[string]struct{}, len(s.MiniGames))
	for _, name := range s.MiniGames {
		if !KnownVariant(name) {
			return invalid("mini_games", "unknown mini-game "+name)
		}
		if _, dup := seen[name]; dup {
			return invalid("mini_games", "duplicate mini-game "+name)
		}
		seen[name] = struct{}{}
	}
	if s.TotalRounds < 1 {
		return invalid("total_rounds", "must be at least 1")
	}
	if maxRounds > 0 && s.TotalRounds > maxRounds {
		return invalid("total_rounds", fmt.Sprintf("must be %d or fewer", maxRounds))
	}
	if s.MaxPlayers < 2 {
		return invalid("max_players", "must be at least 2")
	}
	if maxPlayersLimit > 0 && s.MaxPlayers > maxPlayersLimit {
		return invalid("max_players", fmt.Sprintf("must be %d or fewer", maxPlayersLimit))
	}
	return nil
}
