package session

import (
	"context"
	"time"

	"kiadisa/internal/game"
)

// scheduleRoundDeadline arms the wall-clock deadline for a round. When
// it fires the round is evaluated with whatever submissions exist. A
// completion-triggered advance that got there first wins the CAS and
// the timer's attempt is absorbed.
func (c *Coordinator) scheduleRoundDeadline(gameID string, round int) {
	duration := time.Duration(c.cfg.RoundDeadlineSeconds) * time.Second
	if duration <= 0 {
		c.cancelRoundDeadline(gameID)
		return
	}
	c.timersMu.Lock()
	if existing, ok := c.timers[gameID]; ok {
		existing.Stop()
	}
	c.timers[gameID] = time.AfterFunc(duration, func() {
		c.deadlineAdvance(gameID, round)
	})
	c.timersMu.Unlock()
}

func (c *Coordinator) cancelRoundDeadline(gameID string) {
	c.timersMu.Lock()
	defer c.timersMu.Unlock()
	if timer, ok := c.timers[gameID]; ok {
		timer.Stop()
		delete(c.timers, gameID)
	}
}

func (c *Coordinator) deadlineAdvance(gameID string, expectedRound int) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	g, err := c.store.GetGame(ctx, gameID)
	if err != nil {
		c.log.Warnw("deadline fetch failed", "game_id", gameID, "error", err)
		return
	}
	if g.Status != game.StatusActive || g.CurrentRound != expectedRound {
		return
	}
	handler, ok := c.handlers.Get(g.Variant(expectedRound))
	if !ok {
		return
	}
	players, err := c.store.ListPlayers(ctx, gameID)
	if err != nil {
		c.log.Warnw("deadline roster fetch failed", "game_id", gameID, "error", err)
		return
	}
	subs, err := c.store.ListSubmissions(ctx, gameID, expectedRound)
	if err != nil {
		c.log.Warnw("deadline submissions fetch failed", "game_id", gameID, "error", err)
		return
	}
	c.log.Infow("round deadline elapsed", "game_id", gameID, "round", expectedRound, "submissions", len(subs))
	c.advanceRound(ctx, g, subs, players, handler, "timeout")
}
