package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"kiadisa/internal/game"
	"kiadisa/internal/game/minigames"

	"github.com/google/uuid"
)

const maxSubmissionLength = 280

// SubmitAnswer records a player's answer for the current round.
func (c *Coordinator) SubmitAnswer(ctx context.Context, gameID, userID string, round int, value string) error {
	return c.submit(ctx, gameID, userID, round, game.KindAnswer, value)
}

// SubmitVote records a player's vote for the current round.
func (c *Coordinator) SubmitVote(ctx context.Context, gameID, userID string, round int, value string) error {
	return c.submit(ctx, gameID, userID, round, game.KindVote, value)
}

func (c *Coordinator) submit(ctx context.Context, gameID, userID string, round int, kind game.SubmissionKind, value string) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return &game.ValidationError{Field: string(kind), Reason: "value is required"}
	}
	if len(value) > maxSubmissionLength {
		return &game.ValidationError{Field: string(kind), Reason: fmt.Sprintf("must be %d characters or fewer", maxSubmissionLength)}
	}
	g, err := c.store.GetGame(ctx, gameID)
	if err != nil {
		return err
	}
	if g.Status != game.StatusActive {
		return game.ErrInvalidState
	}
	if round != g.CurrentRound {
		// A submission for a round that already advanced is stale, not
		// an error worth retrying.
		return game.ErrInvalidState
	}
	handler, ok := c.handlers.Get(g.Variant(round))
	if !ok {
		return game.ErrInvalidState
	}
	if !requiresKind(handler, kind) {
		return &game.ValidationError{Field: string(kind), Reason: "not expected in this mini-game"}
	}
	players, err := c.store.ListPlayers(ctx, gameID)
	if err != nil {
		return err
	}
	if !inRoster(players, userID) {
		return game.ErrForbidden
	}
	sub := &game.Submission{
		ID:        uuid.NewString(),
		GameID:    gameID,
		Round:     round,
		UserID:    userID,
		Kind:      kind,
		Value:     value,
		CreatedAt: time.Now().UTC(),
	}
	if err := c.store.AddSubmission(ctx, sub); err != nil {
		return err
	}
	c.publish(ctx, gameID)
	c.maybeCompleteRound(ctx, g, players, handler)
	return nil
}

// maybeCompleteRound advances the round once every player has provided
// every submission kind the variant requires.
func (c *Coordinator) maybeCompleteRound(ctx context.Context, g *game.Game, players []game.Player, handler minigames.Handler) {
	subs, err := c.store.ListSubmissions(ctx, g.ID, g.CurrentRound)
	if err != nil {
		c.log.Warnw("list submissions failed", "game_id", g.ID, "round", g.CurrentRound, "error", err)
		return
	}
	if !roundComplete(players, subs, handler) {
		return
	}
	c.advanceRound(ctx, g, subs, players, handler, "complete")
}

// advanceRound evaluates the round handler and applies the outcome
// behind the store's compare-and-swap. Losing the race is a no-op: the
// other trigger already advanced the game.
func (c *Coordinator) advanceRound(ctx context.Context, g *game.Game, subs []game.Submission, players []game.Player, handler minigames.Handler, reason string) {
	deltas := handler.Evaluate(minigames.Context{
		Round:   g.CurrentRound,
		Players: players,
		Answers: filterKind(subs, game.KindAnswer),
		Votes:   filterKind(subs, game.KindVote),
	})
	finish := g.CurrentRound >= g.TotalRounds
	updated, err := c.store.AdvanceRound(ctx, g.ID, game.AdvanceTransition{
		ExpectedRound: g.CurrentRound,
		Deltas:        deltas,
		Finish:        finish,
		At:            time.Now().UTC(),
	})
	if err != nil {
		if errors.Is(err, game.ErrConflictOnAdvance) {
			c.log.Debugw("advance lost race", "game_id", g.ID, "round", g.CurrentRound)
			return
		}
		c.log.Warnw("advance failed", "game_id", g.ID, "round", g.CurrentRound, "error", err)
		return
	}
	if finish {
		c.cancelRoundDeadline(g.ID)
		c.appendEvent(ctx, g.ID, "game_finished", game.EventPayload{
			Round:  g.CurrentRound,
			Reason: reason,
		})
		c.awardProfiles(ctx, g.ID)
		c.log.Infow("game finished", "game_id", g.ID, "rounds", g.TotalRounds)
	} else {
		c.appendEvent(ctx, g.ID, "round_advanced", game.EventPayload{
			Round:   updated.CurrentRound,
			Variant: updated.Variant(updated.CurrentRound),
			Reason:  reason,
		})
		c.scheduleRoundDeadline(g.ID, updated.CurrentRound)
		c.log.Infow("round advanced", "game_id", g.ID, "round", updated.CurrentRound, "reason", reason)
	}
	c.publish(ctx, g.ID)
}

// awardProfiles converts final scores into profile xp and coins.
func (c *Coordinator) awardProfiles(ctx context.Context, gameID string) {
	players, err := c.store.ListPlayers(ctx, gameID)
	if err != nil {
		c.log.Warnw("award profiles failed", "game_id", gameID, "error", err)
		return
	}
	for _, p := range players {
		if p.Score <= 0 {
			continue
		}
		if err := c.store.AwardProfile(ctx, p.UserID, p.Score, p.Score/10); err != nil {
			c.log.Warnw("award profile failed", "game_id", gameID, "user_id", p.UserID, "error", err)
		}
	}
}

func roundComplete(players []game.Player, subs []game.Submission, handler minigames.Handler) bool {
	for _, kind := range handler.Requires() {
		for _, p := range players {
			if !hasSubmission(subs, p.UserID, kind) {
				return false
			}
		}
	}
	return true
}

func hasSubmission(subs []game.Submission, userID string, kind game.SubmissionKind) bool {
	for _, s := range subs {
		if s.UserID == userID && s.Kind == kind {
			return true
		}
	}
	return false
}

func requiresKind(handler minigames.Handler, kind game.SubmissionKind) bool {
	for _, k := range handler.Requires() {
		if k == kind {
			return true
		}
	}
	return false
}

func filterKind(subs []game.Submission, kind game.SubmissionKind) []game.Submission {
	var out []game.Submission
	for _, s := range subs {
		if s.Kind == kind {
			out = append(out, s)
		}
	}
	return out
}

func inRoster(players []game.Player, userID string) bool {
	for _, p := range players {
		if p.UserID == userID {
			return true
		}
	}
	return false
}
