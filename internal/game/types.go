package game

import "time"

type Status string

const (
	StatusWaiting  Status = "waiting"
	StatusActive   Status = "active"
	StatusFinished Status = "finished"
)

type Mode string

const (
	ModeClassique Mode = "classique"
	ModeBluff     Mode = "bluff"
	ModeDuel      Mode = "duel"
	ModeCouple    Mode = "couple"
)

type Ambiance string

const (
	AmbianceSafe     Ambiance = "safe"
	AmbianceIntime   Ambiance = "intime"
	AmbianceNoFilter Ambiance = "nofilter"
)

// Mini-game variants. One round plays one variant; games rotate through
// the variants selected at creation.
const (
	VariantKikadi   = "kikadi"
	VariantKidivrai = "kidivrai"
	VariantKideja   = "kideja"
	VariantKidenous = "kidenous"
)

func KnownVariant(name string) bool {
	switch name {
	case VariantKikadi, VariantKidivrai, VariantKideja, VariantKidenous:
		return true
	}
	return false
}

func KnownMode(m Mode) bool {
	switch m {
	case ModeClassique, ModeBluff, ModeDuel, ModeCouple:
		return true
	}
	return false
}

func KnownAmbiance(a Ambiance) bool {
	switch a {
	case AmbianceSafe, AmbianceIntime, AmbianceNoFilter:
		return true
	}
	return false
}

// Settings is the immutable room configuration fixed at creation.
type Settings struct {
	Mode        Mode
	Ambiance    Ambiance
	MiniGames   []string
	TotalRounds int
	MaxPlayers  int
}

type Game struct {
	ID           string
	Code         string
	HostID       string
	Status       Status
	Mode         Mode
	Ambiance     Ambiance
	MiniGames    []string
	TotalRounds  int
	CurrentRound int
	MaxPlayers   int
	CreatedAt    time.Time
	StartedAt    *time.Time
	FinishedAt   *time.Time
}

// Variant returns the mini-game played in the given round (1-based).
func (g *Game) Variant(round int) string {
	if len(g.MiniGames) == 0 || round < 1 {
		return ""
	}
	return g.MiniGames[(round-1)%len(g.MiniGames)]
}

type Player struct {
	ID       string
	GameID   string
	UserID   string
	IsHost   bool
	IsReady  bool
	Score    int
	JoinedAt time.Time
}

type SubmissionKind string

const (
	KindAnswer SubmissionKind = "answer"
	KindVote   SubmissionKind = "vote"
)

type Submission struct {
	ID        string
	GameID    string
	Round     int
	UserID    string
	Kind      SubmissionKind
	Value     string
	CreatedAt time.Time
}

// StartTransition moves a waiting game to active. CurrentRound becomes 1.
type StartTransition struct {
	StartedAt time.Time
}

// AdvanceTransition applies one round's score deltas and either increments
// CurrentRound or finishes the game. The store must reject it unless the
// persisted CurrentRound still equals ExpectedRound.
type AdvanceTransition struct {
	ExpectedRound int
	Deltas        map[string]int
	Finish        bool
	At            time.Time
}

type Profile struct {
	ID        string
	Pseudo    string
	AvatarURL string
	Title     string
	Level     int
	XP        int
	Coins     int
}

type EventPayload struct {
	JoinCode    string `json:"join_code,omitempty"`
	UserID      string `json:"user_id,omitempty"`
	Round       int    `json:"round,omitempty"`
	Variant     string `json:"variant,omitempty"`
	Status      string `json:"status,omitempty"`
	Reason      string `json:"reason,omitempty"`
	PlayerCount int    `json:"player_count,omitempty"`
}

type Event struct {
	ID        uint
	GameID    string
	Type      string
	Payload   EventPayload
	CreatedAt time.Time
}
