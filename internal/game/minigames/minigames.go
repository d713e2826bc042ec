// Package minigames holds the round handlers for the four KIADISA
// mini-game variants. Handlers are pure: they receive the collected
// submissions for one round and return per-player score deltas. The
// session coordinator applies whatever comes back without clamping.
package minigames

import (
	"sort"

	"kiadisa/internal/game"
)

type Context struct {
	Round   int
	Players []game.Player
	Answers []game.Submission
	Votes   []game.Submission
}

type Handler interface {
	Name() string
	// Requires lists the submission kinds every active player must
	// provide before the round can be evaluated.
	Requires() []game.SubmissionKind
	Evaluate(ctx Context) map[string]int
}

type Registry struct {
	handlers map[string]Handler
}

func NewRegistry(handlers ...Handler) *Registry {
	r := &Registry{handlers: make(map[string]Handler)}
	for _, h := range handlers {
		r.handlers[h.Name()] = h
	}
	return r
}

// DefaultRegistry registers the four shipped variants.
func DefaultRegistry() *Registry {
	return NewRegistry(Kikadi{}, Kidivrai{}, Kideja{}, Kidenous{})
}

func (r *Registry) Get(name string) (Handler, bool) {
	h, ok := r.handlers[name]
	return h, ok
}

const (
	pointsCorrect = 10
	pointsNamed   = 5
	pointsFooled  = 2
)

// Kikadi: players answer a question, then vote on who wrote the
// displayed answer. Correct guessers score; the author scores a little
// for every voter they fooled.
type Kikadi struct{}

func (Kikadi) Name() string { return game.VariantKikadi }

func (Kikadi) Requires() []game.SubmissionKind {
	return []game.SubmissionKind{game.KindAnswer, game.KindVote}
}

func (Kikadi) Evaluate(ctx Context) map[string]int {
	deltas := zeroDeltas(ctx.Players)
	author := displayedAuthor(ctx.Answers)
	if author == "" {
		return deltas
	}
	for _, vote := range ctx.Votes {
		if vote.UserID == author {
			continue
		}
		if vote.Value == author {
			deltas[vote.UserID] += pointsCorrect
		} else {
			deltas[author] += pointsFooled
		}
	}
	return deltas
}

// Kidivrai: truth or bluff. Each player declares, everyone votes on the
// table's verdict; players who voted with the majority score.
type Kidivrai struct{}

func (Kidivrai) Name() string { return game.VariantKidivrai }

func (Kidivrai) Requires() []game.SubmissionKind {
	return []game.SubmissionKind{game.KindAnswer, game.KindVote}
}

func (Kidivrai) Evaluate(ctx Context) map[string]int {
	deltas := zeroDeltas(ctx.Players)
	verdict, count := plurality(ctx.Votes)
	if verdict == "" || count == 0 {
		return deltas
	}
	for _, vote := range ctx.Votes {
		if vote.Value == verdict {
			deltas[vote.UserID] += pointsCorrect
		}
	}
	return deltas
}

// Kideja: "who has already". Vote-only; voters in the plurality score,
// and the named player picks up points per vote received.
type Kideja struct{}

func (Kideja) Name() string { return game.VariantKideja }

func (Kideja) Requires() []game.SubmissionKind {
	return []game.SubmissionKind{game.KindVote}
}

func (Kideja) Evaluate(ctx Context) map[string]int {
	return pluralityDeltas(ctx)
}

// Kidenous: "who of us matches". Same voting shape as Kideja.
type Kidenous struct{}

func (Kidenous) Name() string { return game.VariantKidenous }

func (Kidenous) Requires() []game.SubmissionKind {
	return []game.SubmissionKind{game.KindVote}
}

func (Kidenous) Evaluate(ctx Context) map[string]int {
	return pluralityDeltas(ctx)
}

func pluralityDeltas(ctx Context) map[string]int {
	deltas := zeroDeltas(ctx.Players)
	named, _ := plurality(ctx.Votes)
	if named == "" {
		return deltas
	}
	for _, vote := range ctx.Votes {
		if vote.Value != named {
			continue
		}
		deltas[vote.UserID] += pointsCorrect
		if _, isPlayer := deltas[named]; isPlayer && named != vote.UserID {
			deltas[named] += pointsNamed
		}
	}
	return deltas
}

func zeroDeltas(players []game.Player) map[string]int {
	deltas := make(map[string]int, len(players))
	for _, p := range players {
		deltas[p.UserID] = 0
	}
	return deltas
}

// displayedAuthor picks the answer shown to the table this round: the
// earliest submission, ties broken by id so every client agrees.
func displayedAuthor(answers []game.Submission) string {
	if len(answers) == 0 {
		return ""
	}
	sorted := make([]game.Submission, len(answers))
	copy(sorted, answers)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].CreatedAt.Equal(sorted[j].CreatedAt) {
			return sorted[i].ID < sorted[j].ID
		}
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})
	return sorted[0].UserID
}

// plurality returns the most voted value. Ties break toward the
// lexicographically smaller value so evaluation is deterministic.
func plurality(votes []game.Submission) (string, int) {
	counts := make(map[string]int)
	for _, vote := range votes {
		counts[vote.Value]++
	}
	best, bestCount := "", 0
	for value, count := range counts {
		if count > bestCount || (count == bestCount && value < best) {
			best, bestCount = value, count
		}
	}
	return best, bestCount
}
