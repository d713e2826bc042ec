package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"kiadisa/internal/game"
)

// Memory is the in-memory store. It is the reference implementation the
// Postgres store mirrors, and the live store when DATABASE_URL is unset.
type Memory struct {
	mu          sync.Mutex
	games       map[string]*game.Game
	players     map[string][]game.Player
	submissions map[string][]game.Submission
	events      map[string][]game.Event
	profiles    map[string]*game.Profile
	nextEventID uint
}

func NewMemory() *Memory {
	return &Memory{
		games:       make(map[string]*game.Game),
		players:     make(map[string][]game.Player),
		submissions: make(map[string][]game.Submission),
		events:      make(map[string][]game.Event),
		profiles:    make(map[string]*game.Profile),
		nextEventID: 1,
	}
}

func (m *Memory) CreateGame(ctx context.Context, g *game.Game, host *game.Player) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.games {
		if existing.Code == g.Code && existing.Status != game.StatusFinished {
			return game.ErrCodeTaken
		}
	}
	stored := *g
	m.games[g.ID] = &stored
	m.players[g.ID] = []game.Player{*host}
	return nil
}

func (m *Memory) GetGame(ctx context.Context, id string) (*game.Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.games[id]
	if !ok {
		return nil, game.ErrNotFound
	}
	out := *g
	return &out, nil
}

func (m *Memory) FindGameByCode(ctx context.Context, code string) (*game.Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, g := range m.games {
		if g.Code == code && g.Status != game.StatusFinished {
			out := *g
			return &out, nil
		}
	}
	return nil, game.ErrNotFound
}

func (m *Memory) AddPlayer(ctx context.Context, p *game.Player) (*game.Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.games[p.GameID]
	if !ok {
		return nil, game.ErrNotFound
	}
	roster := m.players[p.GameID]
	for i := range roster {
		if roster[i].UserID == p.UserID {
			existing := roster[i]
			return &existing, nil
		}
	}
	if g.Status != game.StatusWaiting {
		return nil, game.ErrAlreadyStarted
	}
	if len(roster) >= g.MaxPlayers {
		return nil, game.ErrRoomFull
	}
	m.players[p.GameID] = append(roster, *p)
	out := *p
	return &out, nil
}

func (m *Memory) SetReady(ctx context.Context, gameID, userID string, ready bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	roster, ok := m.players[gameID]
	if !ok {
		return game.ErrNotFound
	}
	for i := range roster {
		if roster[i].UserID == userID {
			roster[i].IsReady = ready
			return nil
		}
	}
	return game.ErrNotFound
}

func (m *Memory) ListPlayers(ctx context.Context, gameID string) ([]game.Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.games[gameID]; !ok {
		return nil, game.ErrNotFound
	}
	roster := m.players[gameID]
	out := make([]game.Player, len(roster))
	copy(out, roster)
	sort.Slice(out, func(i, j int) bool { return out[i].JoinedAt.Before(out[j].JoinedAt) })
	return out, nil
}

func (m *Memory) StartGame(ctx context.Context, gameID, requesterID string, t game.StartTransition) (*game.Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.games[gameID]
	if !ok {
		return nil, game.ErrNotFound
	}
	if g.HostID != requesterID {
		return nil, game.ErrForbidden
	}
	if g.Status != game.StatusWaiting {
		return nil, game.ErrInvalidState
	}
	startedAt := t.StartedAt
	g.Status = game.StatusActive
	g.StartedAt = &startedAt
	g.CurrentRound = 1
	out := *g
	return &out, nil
}

func (m *Memory) AdvanceRound(ctx context.Context, gameID string, t game.AdvanceTransition) (*game.Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.games[gameID]
	if !ok {
		return nil, game.ErrNotFound
	}
	if g.Status != game.StatusActive {
		return nil, game.ErrInvalidState
	}
	if g.CurrentRound != t.ExpectedRound {
		return nil, game.ErrConflictOnAdvance
	}
	roster := m.players[gameID]
	for i := range roster {
		if delta, ok := t.Deltas[roster[i].UserID]; ok {
			roster[i].Score += delta
		}
	}
	if t.Finish {
		finishedAt := t.At
		g.Status = game.StatusFinished
		g.FinishedAt = &finishedAt
	} else {
		g.CurrentRound++
	}
	out := *g
	return &out, nil
}

func (m *Memory) AddSubmission(ctx context.Context, sub *game.Submission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.games[sub.GameID]; !ok {
		return game.ErrNotFound
	}
	for _, existing := range m.submissions[sub.GameID] {
		if existing.Round == sub.Round && existing.UserID == sub.UserID && existing.Kind == sub.Kind {
			return game.ErrDuplicateSubmission
		}
	}
	m.submissions[sub.GameID] = append(m.submissions[sub.GameID], *sub)
	return nil
}

func (m *Memory) ListSubmissions(ctx context.Context, gameID string, round int) ([]game.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []game.Submission
	for _, sub := range m.submissions[gameID] {
		if sub.Round == round {
			out = append(out, sub)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) GetProfile(ctx context.Context, userID string) (*game.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[userID]
	if !ok {
		return nil, game.ErrNotFound
	}
	out := *p
	return &out, nil
}

// PutProfile seeds a profile; identity itself lives with the external
// provider, the store only mirrors the gameplay-facing fields.
func (m *Memory) PutProfile(p *game.Profile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := *p
	m.profiles[p.ID] = &stored
}

func (m *Memory) AwardProfile(ctx context.Context, userID string, xp, coins int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[userID]
	if !ok {
		p = &game.Profile{ID: userID, Level: 1}
		m.profiles[userID] = p
	}
	p.XP += xp
	p.Coins += coins
	p.Level = LevelForXP(p.XP)
	return nil
}

func (m *Memory) AppendEvent(ctx context.Context, gameID, eventType string, payload game.EventPayload) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.games[gameID]; !ok {
		return game.ErrNotFound
	}
	m.events[gameID] = append(m.events[gameID], game.Event{
		ID:        m.nextEventID,
		GameID:    gameID,
		Type:      eventType,
		Payload:   payload,
		CreatedAt: time.Now().UTC(),
	})
	m.nextEventID++
	return nil
}

func (m *Memory) ListEvents(ctx context.Context, gameID string) ([]game.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	events := m.events[gameID]
	out := make([]game.Event, len(events))
	copy(out, events)
	return out, nil
}
