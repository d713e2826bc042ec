package minigames

import (
	"testing"
	"time"

	"kiadisa/internal/game"
)

func roster(userIDs ...string) []game.Player {
	players := make([]game.Player, 0, len(userIDs))
	for _, id := range userIDs {
		players = append(players, game.Player{UserID: id, GameID: "g1"})
	}
	return players
}

func answer(userID, value string, offset time.Duration) game.Submission {
	return game.Submission{
		ID:        userID + "-answer",
		UserID:    userID,
		Kind:      game.KindAnswer,
		Value:     value,
		CreatedAt: time.Unix(0, 0).Add(offset),
	}
}

func vote(userID, value string) game.Submission {
	return game.Submission{
		ID:     userID + "-vote",
		UserID: userID,
		Kind:   game.KindVote,
		Value:  value,
	}
}

func TestDefaultRegistryHasAllVariants(t *testing.T) {
	reg := DefaultRegistry()
	for _, name := range []string{game.VariantKikadi, game.VariantKidivrai, game.VariantKideja, game.VariantKidenous} {
		if _, ok := reg.Get(name); !ok {
			t.Fatalf("missing handler for %s", name)
		}
	}
	if _, ok := reg.Get("nope"); ok {
		t.Fatal("unexpected handler for unknown variant")
	}
}

func TestKikadiScoresCorrectGuessers(t *testing.T) {
	// u1's answer is displayed (earliest). u2 guesses right, u3 wrong.
	ctx := Context{
		Round:   1,
		Players: roster("u1", "u2", "u3"),
		Answers: []game.Submission{
			answer("u2", "b", 2*time.Second),
			answer("u1", "a", time.Second),
			answer("u3", "c", 3*time.Second),
		},
		Votes: []game.Submission{
			vote("u2", "u1"),
			vote("u3", "u2"),
		},
	}
	deltas := Kikadi{}.Evaluate(ctx)
	if deltas["u2"] != pointsCorrect {
		t.Fatalf("correct guesser: expected %d, got %d", pointsCorrect, deltas["u2"])
	}
	if deltas["u3"] != 0 {
		t.Fatalf("wrong guesser: expected 0, got %d", deltas["u3"])
	}
	if deltas["u1"] != pointsFooled {
		t.Fatalf("author: expected %d for the fooled voter, got %d", pointsFooled, deltas["u1"])
	}
}

func TestKikadiAuthorVoteIgnored(t *testing.T) {
	ctx := Context{
		Players: roster("u1", "u2"),
		Answers: []game.Submission{answer("u1", "a", 0)},
		Votes:   []game.Submission{vote("u1", "u1"), vote("u2", "u1")},
	}
	deltas := Kikadi{}.Evaluate(ctx)
	if deltas["u1"] != 0 {
		t.Fatalf("author voting for themselves must not score, got %d", deltas["u1"])
	}
	if deltas["u2"] != pointsCorrect {
		t.Fatalf("expected %d, got %d", pointsCorrect, deltas["u2"])
	}
}

func TestKidivraiMajorityScores(t *testing.T) {
	ctx := Context{
		Players: roster("u1", "u2", "u3"),
		Answers: []game.Submission{answer("u1", "truth", 0)},
		Votes: []game.Submission{
			vote("u1", "truth"),
			vote("u2", "truth"),
			vote("u3", "bluff"),
		},
	}
	deltas := Kidivrai{}.Evaluate(ctx)
	if deltas["u1"] != pointsCorrect || deltas["u2"] != pointsCorrect {
		t.Fatalf("majority voters should score: %v", deltas)
	}
	if deltas["u3"] != 0 {
		t.Fatalf("minority voter should not score: %v", deltas)
	}
}

func TestKidejaNamedPlayerScores(t *testing.T) {
	ctx := Context{
		Players: roster("u1", "u2", "u3"),
		Votes: []game.Submission{
			vote("u1", "u3"),
			vote("u2", "u3"),
			vote("u3", "u1"),
		},
	}
	deltas := Kideja{}.Evaluate(ctx)
	if deltas["u1"] != pointsCorrect || deltas["u2"] != pointsCorrect {
		t.Fatalf("plurality voters should score: %v", deltas)
	}
	// u3 was named by two voters.
	if deltas["u3"] != 2*pointsNamed {
		t.Fatalf("named player: expected %d, got %d", 2*pointsNamed, deltas["u3"])
	}
}

func TestEvaluateEmptyRound(t *testing.T) {
	players := roster("u1", "u2")
	for _, h := range []Handler{Kikadi{}, Kidivrai{}, Kideja{}, Kidenous{}} {
		deltas := h.Evaluate(Context{Players: players})
		for userID, delta := range deltas {
			if delta != 0 {
				t.Fatalf("%s: expected zero delta for %s with no submissions, got %d", h.Name(), userID, delta)
			}
		}
		if len(deltas) != len(players) {
			t.Fatalf("%s: every player should appear in the outcome", h.Name())
		}
	}
}
