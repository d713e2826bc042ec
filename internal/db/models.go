package db

import (
	"time"

	"gorm.io/datatypes"
)

type Game struct {
	ID           string         `gorm:"primaryKey;size:36"`
	Code         string         `gorm:"size:6;uniqueIndex;not null"`
	HostID       string         `gorm:"size:36;index;not null"`
	Status       string         `gorm:"size:16;not null"`
	Mode         string         `gorm:"size:16;not null"`
	Ambiance     string         `gorm:"size:16;not null"`
	MiniGames    datatypes.JSON `gorm:"type:jsonb;not null"`
	TotalRounds  int            `gorm:"not null"`
	CurrentRound int            `gorm:"not null;default:0"`
	MaxPlayers   int            `gorm:"not null"`
	CreatedAt    time.Time      `gorm:"not null"`
	StartedAt    *time.Time
	FinishedAt   *time.Time
	Players      []Player
	Submissions  []Submission
	Events       []GameEvent
}

type Player struct {
	ID       string    `gorm:"primaryKey;size:36"`
	GameID   string    `gorm:"size:36;index;not null;uniqueIndex:idx_players_game_user"`
	UserID   string    `gorm:"size:36;not null;uniqueIndex:idx_players_game_user"`
	IsHost   bool      `gorm:"not null;default:false"`
	IsReady  bool      `gorm:"not null;default:false"`
	Score    int       `gorm:"not null;default:0"`
	JoinedAt time.Time `gorm:"not null"`
}

type Submission struct {
	ID        string    `gorm:"primaryKey;size:36"`
	GameID    string    `gorm:"size:36;index;not null;uniqueIndex:idx_submissions_round_user_kind"`
	Round     int       `gorm:"not null;uniqueIndex:idx_submissions_round_user_kind"`
	UserID    string    `gorm:"size:36;not null;uniqueIndex:idx_submissions_round_user_kind"`
	Kind      string    `gorm:"size:16;not null;uniqueIndex:idx_submissions_round_user_kind"`
	Value     string    `gorm:"size:280;not null"`
	CreatedAt time.Time `gorm:"not null"`
}

type GameEvent struct {
	ID        uint           `gorm:"primaryKey"`
	GameID    string         `gorm:"size:36;index;not null"`
	Type      string         `gorm:"size:64;not null"`
	Payload   datatypes.JSON `gorm:"type:jsonb;not null"`
	CreatedAt time.Time      `gorm:"not null"`
}

type Profile struct {
	ID        string    `gorm:"primaryKey;size:36"`
	Pseudo    string    `gorm:"size:64;not null"`
	AvatarURL string    `gorm:"size:255"`
	Title     string    `gorm:"size:64"`
	Level     int       `gorm:"not null;default:1"`
	XP        int       `gorm:"not null;default:0"`
	Coins     int       `gorm:"not null;default:0"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}
