package session

import (
	"context"
	"errors"
	"strings"
	"testing"

	"kiadisa/internal/config"
	"kiadisa/internal/game"
	"kiadisa/internal/game/minigames"
	"kiadisa/internal/realtime"
	"kiadisa/internal/store"
)

func testConfig() config.Config {
	cfg := config.Default()
	// Deadlines are driven manually in tests.
	cfg.RoundDeadlineSeconds = 0
	return cfg
}

func newTestCoordinator(t *testing.T) (*Coordinator, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	c := New(mem, realtime.NewLocal(), minigames.DefaultRegistry(), testConfig(), nil)
	t.Cleanup(c.Close)
	return c, mem
}

func testSettings() game.Settings {
	return game.Settings{
		Mode:        game.ModeClassique,
		Ambiance:    game.AmbianceSafe,
		MiniGames:   []string{game.VariantKikadi, game.VariantKidivrai, game.VariantKideja},
		TotalRounds: 3,
		MaxPlayers:  4,
	}
}

func TestCreateRoom(t *testing.T) {
	c, _ := newTestCoordinator(t)
	ctx := context.Background()

	g, err := c.CreateRoom(ctx, testSettings(), "host")
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	if len(g.Code) != game.CodeLength {
		t.Fatalf("bad join code %q", g.Code)
	}
	if g.Status != game.StatusWaiting || g.CurrentRound != 0 {
		t.Fatalf("new room not in waiting state: %+v", g)
	}
	if g.HostID != "host" {
		t.Fatalf("host not recorded: %+v", g)
	}
}

func TestCreateRoomRejectsBadSettings(t *testing.T) {
	c, _ := newTestCoordinator(t)
	settings := testSettings()
	settings.TotalRounds = 0

	_, err := c.CreateRoom(context.Background(), settings, "host")
	var verr *game.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestJoinRoomNormalizesCode(t *testing.T) {
	c, _ := newTestCoordinator(t)
	ctx := context.Background()
	g, err := c.CreateRoom(ctx, testSettings(), "host")
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}

	joined, player, err := c.JoinRoom(ctx, "  "+strings.ToLower(g.Code)+" ", "u2")
	if err != nil {
		t.Fatalf("JoinRoom: %v", err)
	}
	if joined.ID != g.ID {
		t.Fatalf("joined wrong game: %s", joined.ID)
	}
	if player.UserID != "u2" || player.IsHost {
		t.Fatalf("bad player row: %+v", player)
	}
}

func TestJoinRoomIdempotent(t *testing.T) {
	c, _ := newTestCoordinator(t)
	ctx := context.Background()
	g, err := c.CreateRoom(ctx, testSettings(), "host")
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}

	_, first, err := c.JoinRoom(ctx, g.Code, "u2")
	if err != nil {
		t.Fatalf("JoinRoom: %v", err)
	}
	_, again, err := c.JoinRoom(ctx, g.Code, "u2")
	if err != nil {
		t.Fatalf("re-join: %v", err)
	}
	if again.ID != first.ID {
		t.Fatalf("re-join created a new player row")
	}
}

func TestJoinRoomErrors(t *testing.T) {
	c, _ := newTestCoordinator(t)
	ctx := context.Background()

	_, _, err := c.JoinRoom(ctx, "abc", "u2")
	var verr *game.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("short code: expected ValidationError, got %v", err)
	}
	_, _, err = c.JoinRoom(ctx, "ZZZZZZ", "u2")
	if !errors.Is(err, game.ErrNotFound) {
		t.Fatalf("unknown code: expected ErrNotFound, got %v", err)
	}
}

func TestStartGamePreconditions(t *testing.T) {
	c, _ := newTestCoordinator(t)
	ctx := context.Background()
	g, err := c.CreateRoom(ctx, testSettings(), "host")
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}

	if _, err := c.StartGame(ctx, g.ID, "host"); !errors.Is(err, game.ErrInsufficientPlayers) {
		t.Fatalf("solo start: expected ErrInsufficientPlayers, got %v", err)
	}
	if _, _, err := c.JoinRoom(ctx, g.Code, "u2"); err != nil {
		t.Fatalf("JoinRoom: %v", err)
	}
	if _, err := c.StartGame(ctx, g.ID, "u2"); !errors.Is(err, game.ErrForbidden) {
		t.Fatalf("non-host start: expected ErrForbidden, got %v", err)
	}
	current, err := c.store.GetGame(ctx, g.ID)
	if err != nil {
		t.Fatalf("GetGame: %v", err)
	}
	if current.Status != game.StatusWaiting {
		t.Fatalf("rejected start mutated state: %s", current.Status)
	}

	started, err := c.StartGame(ctx, g.ID, "host")
	if err != nil {
		t.Fatalf("StartGame: %v", err)
	}
	if started.Status != game.StatusActive || started.CurrentRound != 1 {
		t.Fatalf("bad start: %+v", started)
	}
	if _, err := c.StartGame(ctx, g.ID, "host"); !errors.Is(err, game.ErrInvalidState) {
		t.Fatalf("double start: expected ErrInvalidState, got %v", err)
	}
}

func TestJoinAfterStart(t *testing.T) {
	c, _ := newTestCoordinator(t)
	ctx := context.Background()
	g, _ := c.CreateRoom(ctx, testSettings(), "host")
	c.JoinRoom(ctx, g.Code, "u2")
	if _, err := c.StartGame(ctx, g.ID, "host"); err != nil {
		t.Fatalf("StartGame: %v", err)
	}

	_, _, err := c.JoinRoom(ctx, g.Code, "u3")
	if !errors.Is(err, game.ErrAlreadyStarted) {
		t.Fatalf("expected ErrAlreadyStarted, got %v", err)
	}
}

// TestFullGameFlow drives a two-player game through all three rounds:
// kikadi, then kidivrai, then kideja.
func TestFullGameFlow(t *testing.T) {
	c, mem := newTestCoordinator(t)
	ctx := context.Background()
	g, err := c.CreateRoom(ctx, testSettings(), "host")
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	if _, _, err := c.JoinRoom(ctx, g.Code, "u2"); err != nil {
		t.Fatalf("JoinRoom: %v", err)
	}
	if _, err := c.StartGame(ctx, g.ID, "host"); err != nil {
		t.Fatalf("StartGame: %v", err)
	}

	// Round 1, kikadi. Host answers first and is the displayed author;
	// u2 guesses correctly for 10, host's own vote is ignored.
	mustSubmit(t, c.SubmitAnswer(ctx, g.ID, "host", 1, "mercredi"))
	mustSubmit(t, c.SubmitAnswer(ctx, g.ID, "u2", 1, "jeudi"))
	mustSubmit(t, c.SubmitVote(ctx, g.ID, "host", 1, "u2"))
	mustSubmit(t, c.SubmitVote(ctx, g.ID, "u2", 1, "host"))

	state, _ := mem.GetGame(ctx, g.ID)
	if state.CurrentRound != 2 {
		t.Fatalf("round 1 did not advance: %+v", state)
	}

	// Round 2, kidivrai. Both vote with the table, 10 each.
	mustSubmit(t, c.SubmitAnswer(ctx, g.ID, "host", 2, "vrai"))
	mustSubmit(t, c.SubmitAnswer(ctx, g.ID, "u2", 2, "faux"))
	mustSubmit(t, c.SubmitVote(ctx, g.ID, "host", 2, "vrai"))
	mustSubmit(t, c.SubmitVote(ctx, g.ID, "u2", 2, "vrai"))

	state, _ = mem.GetGame(ctx, g.ID)
	if state.CurrentRound != 3 {
		t.Fatalf("round 2 did not advance: %+v", state)
	}

	// Round 3, kideja. Both name u2: each voter scores 10, u2 picks up
	// 5 for the host's vote. Final round, so the game finishes.
	mustSubmit(t, c.SubmitVote(ctx, g.ID, "host", 3, "u2"))
	mustSubmit(t, c.SubmitVote(ctx, g.ID, "u2", 3, "u2"))

	final, players, err := c.Results(ctx, g.ID)
	if err != nil {
		t.Fatalf("Results: %v", err)
	}
	if final.Status != game.StatusFinished || final.FinishedAt == nil {
		t.Fatalf("game did not finish: %+v", final)
	}
	if len(players) != 2 {
		t.Fatalf("expected 2 players, got %d", len(players))
	}
	if players[0].UserID != "u2" || players[0].Score != 35 {
		t.Fatalf("leader wrong: %+v", players[0])
	}
	if players[1].UserID != "host" || players[1].Score != 20 {
		t.Fatalf("runner-up wrong: %+v", players[1])
	}

	profile, err := c.Profile(ctx, "u2")
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}
	if profile.XP != 35 || profile.Coins != 3 {
		t.Fatalf("unexpected award: %+v", profile)
	}

	events, err := c.Events(ctx, g.ID)
	if err != nil {
		t.Fatalf("Events: %v", err)
	}
	types := make([]string, 0, len(events))
	for _, e := range events {
		types = append(types, e.Type)
	}
	want := []string{"game_created", "player_joined", "game_started", "round_advanced", "round_advanced", "game_finished"}
	if len(types) != len(want) {
		t.Fatalf("event trail %v, want %v", types, want)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Fatalf("event trail %v, want %v", types, want)
		}
	}
}

func TestSubmitRejections(t *testing.T) {
	c, _ := newTestCoordinator(t)
	ctx := context.Background()
	g, _ := c.CreateRoom(ctx, testSettings(), "host")
	c.JoinRoom(ctx, g.Code, "u2")

	// Not started yet.
	if err := c.SubmitAnswer(ctx, g.ID, "host", 1, "x"); !errors.Is(err, game.ErrInvalidState) {
		t.Fatalf("submit in lobby: expected ErrInvalidState, got %v", err)
	}

	if _, err := c.StartGame(ctx, g.ID, "host"); err != nil {
		t.Fatalf("StartGame: %v", err)
	}

	if err := c.SubmitAnswer(ctx, g.ID, "host", 1, "   "); err == nil {
		t.Fatal("blank value accepted")
	}
	if err := c.SubmitAnswer(ctx, g.ID, "host", 1, strings.Repeat("x", maxSubmissionLength+1)); err == nil {
		t.Fatal("oversized value accepted")
	}
	if err := c.SubmitAnswer(ctx, g.ID, "host", 2, "early"); !errors.Is(err, game.ErrInvalidState) {
		t.Fatalf("future round: expected ErrInvalidState, got %v", err)
	}
	if err := c.SubmitAnswer(ctx, g.ID, "stranger", 1, "hello"); !errors.Is(err, game.ErrForbidden) {
		t.Fatalf("non-member: expected ErrForbidden, got %v", err)
	}
	if err := c.SubmitAnswer(ctx, g.ID, "host", 1, "first"); err != nil {
		t.Fatalf("SubmitAnswer: %v", err)
	}
	if err := c.SubmitAnswer(ctx, g.ID, "host", 1, "second"); !errors.Is(err, game.ErrDuplicateSubmission) {
		t.Fatalf("duplicate: expected ErrDuplicateSubmission, got %v", err)
	}
}

func TestSubmitKindNotRequired(t *testing.T) {
	c, _ := newTestCoordinator(t)
	ctx := context.Background()
	settings := testSettings()
	settings.MiniGames = []string{game.VariantKideja}
	settings.TotalRounds = 1
	g, _ := c.CreateRoom(ctx, settings, "host")
	c.JoinRoom(ctx, g.Code, "u2")
	if _, err := c.StartGame(ctx, g.ID, "host"); err != nil {
		t.Fatalf("StartGame: %v", err)
	}

	err := c.SubmitAnswer(ctx, g.ID, "host", 1, "not a vote round")
	var verr *game.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

// TestDeadlineAdvance evaluates a round with partial submissions, the
// way the round timer does when the clock runs out.
func TestDeadlineAdvance(t *testing.T) {
	c, mem := newTestCoordinator(t)
	ctx := context.Background()
	settings := testSettings()
	settings.MiniGames = []string{game.VariantKideja}
	settings.TotalRounds = 1
	g, _ := c.CreateRoom(ctx, settings, "host")
	c.JoinRoom(ctx, g.Code, "u2")
	if _, err := c.StartGame(ctx, g.ID, "host"); err != nil {
		t.Fatalf("StartGame: %v", err)
	}

	// Only the host votes before the deadline.
	mustSubmit(t, c.SubmitVote(ctx, g.ID, "host", 1, "u2"))

	c.deadlineAdvance(g.ID, 1)

	final, _ := mem.GetGame(ctx, g.ID)
	if final.Status != game.StatusFinished {
		t.Fatalf("deadline did not finish the game: %+v", final)
	}
	players, _ := mem.ListPlayers(ctx, g.ID)
	scores := map[string]int{}
	for _, p := range players {
		scores[p.UserID] = p.Score
	}
	if scores["host"] != 10 || scores["u2"] != 5 {
		t.Fatalf("unexpected timeout scoring: %v", scores)
	}

	// A stale deadline for an already-settled round is absorbed.
	c.deadlineAdvance(g.ID, 1)
	again, _ := mem.GetGame(ctx, g.ID)
	if again.Status != game.StatusFinished {
		t.Fatalf("stale deadline mutated state: %+v", again)
	}
}

// collidingStore fails the first CreateGame calls with ErrCodeTaken to
// exercise the code regeneration loop.
type collidingStore struct {
	store.Store
	collisions int
}

func (s *collidingStore) CreateGame(ctx context.Context, g *game.Game, host *game.Player) error {
	if s.collisions > 0 {
		s.collisions--
		return game.ErrCodeTaken
	}
	return s.Store.CreateGame(ctx, g, host)
}

func TestCreateRoomRegeneratesCollidingCode(t *testing.T) {
	st := &collidingStore{Store: store.NewMemory(), collisions: 2}
	c := New(st, realtime.NewLocal(), minigames.DefaultRegistry(), testConfig(), nil)
	t.Cleanup(c.Close)

	g, err := c.CreateRoom(context.Background(), testSettings(), "host")
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	if len(g.Code) != game.CodeLength {
		t.Fatalf("bad join code %q", g.Code)
	}
}

func TestCreateRoomGivesUpAfterRepeatedCollisions(t *testing.T) {
	st := &collidingStore{Store: store.NewMemory(), collisions: codeAttempts}
	c := New(st, realtime.NewLocal(), minigames.DefaultRegistry(), testConfig(), nil)
	t.Cleanup(c.Close)

	if _, err := c.CreateRoom(context.Background(), testSettings(), "host"); !errors.Is(err, game.ErrCodeTaken) {
		t.Fatalf("expected ErrCodeTaken, got %v", err)
	}
}

func mustSubmit(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
}
