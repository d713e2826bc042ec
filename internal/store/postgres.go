package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"kiadisa/internal/db"
	"kiadisa/internal/game"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Postgres is the store of record backed by GORM.
type Postgres struct {
	conn *gorm.DB
}

func NewPostgres(conn *gorm.DB) *Postgres {
	return &Postgres{conn: conn}
}

func (p *Postgres) CreateGame(ctx context.Context, g *game.Game, host *game.Player) error {
	record, err := gameToRecord(g)
	if err != nil {
		return err
	}
	hostRecord := playerToRecord(host)
	err = p.conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&record).Error; err != nil {
			return err
		}
		return tx.Create(&hostRecord).Error
	})
	if err != nil {
		if isUniqueViolation(err) {
			return game.ErrCodeTaken
		}
		return unavailable(err)
	}
	return nil
}

func (p *Postgres) GetGame(ctx context.Context, id string) (*game.Game, error) {
	var record db.Game
	if err := p.conn.WithContext(ctx).First(&record, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, game.ErrNotFound
		}
		return nil, unavailable(err)
	}
	return gameFromRecord(&record)
}

func (p *Postgres) FindGameByCode(ctx context.Context, code string) (*game.Game, error) {
	var record db.Game
	err := p.conn.WithContext(ctx).
		Where("code = ? AND status <> ?", code, string(game.StatusFinished)).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, game.ErrNotFound
		}
		return nil, unavailable(err)
	}
	return gameFromRecord(&record)
}

func (p *Postgres) AddPlayer(ctx context.Context, pl *game.Player) (*game.Player, error) {
	var admitted game.Player
	err := p.conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var g db.Game
		// Lock the game row so concurrent joins re-check capacity in turn.
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&g, "id = ?", pl.GameID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return game.ErrNotFound
			}
			return err
		}
		var existing db.Player
		err := tx.Where("game_id = ? AND user_id = ?", pl.GameID, pl.UserID).First(&existing).Error
		if err == nil {
			admitted = playerFromRecord(&existing)
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if g.Status != string(game.StatusWaiting) {
			return game.ErrAlreadyStarted
		}
		var count int64
		if err := tx.Model(&db.Player{}).Where("game_id = ?", pl.GameID).Count(&count).Error; err != nil {
			return err
		}
		if count >= int64(g.MaxPlayers) {
			return game.ErrRoomFull
		}
		record := playerToRecord(pl)
		if err := tx.Create(&record).Error; err != nil {
			return err
		}
		admitted = *pl
		return nil
	})
	if err != nil {
		if isDomainErr(err) {
			return nil, err
		}
		if isUniqueViolation(err) {
			// Lost a duplicate-join race; the row that won is ours.
			var existing db.Player
			lookupErr := p.conn.WithContext(ctx).
				Where("game_id = ? AND user_id = ?", pl.GameID, pl.UserID).
				First(&existing).Error
			if lookupErr == nil {
				found := playerFromRecord(&existing)
				return &found, nil
			}
		}
		return nil, unavailable(err)
	}
	return &admitted, nil
}

func (p *Postgres) SetReady(ctx context.Context, gameID, userID string, ready bool) error {
	result := p.conn.WithContext(ctx).Model(&db.Player{}).
		Where("game_id = ? AND user_id = ?", gameID, userID).
		Update("is_ready", ready)
	if result.Error != nil {
		return unavailable(result.Error)
	}
	if result.RowsAffected == 0 {
		return game.ErrNotFound
	}
	return nil
}

func (p *Postgres) ListPlayers(ctx context.Context, gameID string) ([]game.Player, error) {
	var records []db.Player
	err := p.conn.WithContext(ctx).
		Where("game_id = ?", gameID).
		Order("joined_at asc").
		Find(&records).Error
	if err != nil {
		return nil, unavailable(err)
	}
	players := make([]game.Player, 0, len(records))
	for i := range records {
		players = append(players, playerFromRecord(&records[i]))
	}
	return players, nil
}

func (p *Postgres) StartGame(ctx context.Context, gameID, requesterID string, t game.StartTransition) (*game.Game, error) {
	result := p.conn.WithContext(ctx).Model(&db.Game{}).
		Where("id = ? AND host_id = ? AND status = ?", gameID, requesterID, string(game.StatusWaiting)).
		Updates(map[string]any{
			"status":        string(game.StatusActive),
			"started_at":    t.StartedAt,
			"current_round": 1,
		})
	if result.Error != nil {
		return nil, unavailable(result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, p.classifyStartFailure(ctx, gameID, requesterID)
	}
	return p.GetGame(ctx, gameID)
}

func (p *Postgres) classifyStartFailure(ctx context.Context, gameID, requesterID string) error {
	g, err := p.GetGame(ctx, gameID)
	if err != nil {
		return err
	}
	if g.HostID != requesterID {
		return game.ErrForbidden
	}
	return game.ErrInvalidState
}

func (p *Postgres) AdvanceRound(ctx context.Context, gameID string, t game.AdvanceTransition) (*game.Game, error) {
	err := p.conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]any{}
		if t.Finish {
			updates["status"] = string(game.StatusFinished)
			updates["finished_at"] = t.At
		} else {
			updates["current_round"] = t.ExpectedRound + 1
		}
		result := tx.Model(&db.Game{}).
			Where("id = ? AND status = ? AND current_round = ?",
				gameID, string(game.StatusActive), t.ExpectedRound).
			Updates(updates)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return p.classifyAdvanceFailure(tx, gameID)
		}
		for userID, delta := range t.Deltas {
			if delta == 0 {
				continue
			}
			err := tx.Model(&db.Player{}).
				Where("game_id = ? AND user_id = ?", gameID, userID).
				Update("score", gorm.Expr("score + ?", delta)).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if isDomainErr(err) {
			return nil, err
		}
		return nil, unavailable(err)
	}
	return p.GetGame(ctx, gameID)
}

func (p *Postgres) classifyAdvanceFailure(tx *gorm.DB, gameID string) error {
	var record db.Game
	if err := tx.First(&record, "id = ?", gameID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return game.ErrNotFound
		}
		return err
	}
	if record.Status != string(game.StatusActive) {
		return game.ErrInvalidState
	}
	return game.ErrConflictOnAdvance
}

func (p *Postgres) AddSubmission(ctx context.Context, sub *game.Submission) error {
	record := db.Submission{
		ID:        sub.ID,
		GameID:    sub.GameID,
		Round:     sub.Round,
		UserID:    sub.UserID,
		Kind:      string(sub.Kind),
		Value:     sub.Value,
		CreatedAt: sub.CreatedAt,
	}
	if err := p.conn.WithContext(ctx).Create(&record).Error; err != nil {
		if isUniqueViolation(err) {
			return game.ErrDuplicateSubmission
		}
		return unavailable(err)
	}
	return nil
}

func (p *Postgres) ListSubmissions(ctx context.Context, gameID string, round int) ([]game.Submission, error) {
	var records []db.Submission
	err := p.conn.WithContext(ctx).
		Where("game_id = ? AND round = ?", gameID, round).
		Order("created_at asc").
		Find(&records).Error
	if err != nil {
		return nil, unavailable(err)
	}
	subs := make([]game.Submission, 0, len(records))
	for _, r := range records {
		subs = append(subs, game.Submission{
			ID:        r.ID,
			GameID:    r.GameID,
			Round:     r.Round,
			UserID:    r.UserID,
			Kind:      game.SubmissionKind(r.Kind),
			Value:     r.Value,
			CreatedAt: r.CreatedAt,
		})
	}
	return subs, nil
}

func (p *Postgres) GetProfile(ctx context.Context, userID string) (*game.Profile, error) {
	var record db.Profile
	if err := p.conn.WithContext(ctx).First(&record, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, game.ErrNotFound
		}
		return nil, unavailable(err)
	}
	return &game.Profile{
		ID:        record.ID,
		Pseudo:    record.Pseudo,
		AvatarURL: record.AvatarURL,
		Title:     record.Title,
		Level:     record.Level,
		XP:        record.XP,
		Coins:     record.Coins,
	}, nil
}

func (p *Postgres) AwardProfile(ctx context.Context, userID string, xp, coins int) error {
	err := p.conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var record db.Profile
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&record, "id = ?", userID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			record = db.Profile{ID: userID, Level: 1}
			if err := tx.Create(&record).Error; err != nil {
				return err
			}
		} else if err != nil {
			return err
		}
		record.XP += xp
		record.Coins += coins
		record.Level = LevelForXP(record.XP)
		return tx.Save(&record).Error
	})
	if err != nil {
		return unavailable(err)
	}
	return nil
}

func (p *Postgres) AppendEvent(ctx context.Context, gameID, eventType string, payload game.EventPayload) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	record := db.GameEvent{
		GameID:  gameID,
		Type:    eventType,
		Payload: raw,
	}
	if err := p.conn.WithContext(ctx).Create(&record).Error; err != nil {
		return unavailable(err)
	}
	return nil
}

func (p *Postgres) ListEvents(ctx context.Context, gameID string) ([]game.Event, error) {
	var records []db.GameEvent
	err := p.conn.WithContext(ctx).
		Where("game_id = ?", gameID).
		Order("created_at asc").
		Find(&records).Error
	if err != nil {
		return nil, unavailable(err)
	}
	events := make([]game.Event, 0, len(records))
	for _, r := range records {
		var payload game.EventPayload
		_ = json.Unmarshal(r.Payload, &payload)
		events = append(events, game.Event{
			ID:        r.ID,
			GameID:    r.GameID,
			Type:      r.Type,
			Payload:   payload,
			CreatedAt: r.CreatedAt,
		})
	}
	return events, nil
}

func gameToRecord(g *game.Game) (db.Game, error) {
	miniGames, err := json.Marshal(g.MiniGames)
	if err != nil {
		return db.Game{}, err
	}
	return db.Game{
		ID:           g.ID,
		Code:         g.Code,
		HostID:       g.HostID,
		Status:       string(g.Status),
		Mode:         string(g.Mode),
		Ambiance:     string(g.Ambiance),
		MiniGames:    miniGames,
		TotalRounds:  g.TotalRounds,
		CurrentRound: g.CurrentRound,
		MaxPlayers:   g.MaxPlayers,
		CreatedAt:    g.CreatedAt,
		StartedAt:    g.StartedAt,
		FinishedAt:   g.FinishedAt,
	}, nil
}

func gameFromRecord(record *db.Game) (*game.Game, error) {
	var miniGames []string
	if len(record.MiniGames) > 0 {
		if err := json.Unmarshal(record.MiniGames, &miniGames); err != nil {
			return nil, err
		}
	}
	return &game.Game{
		ID:           record.ID,
		Code:         record.Code,
		HostID:       record.HostID,
		Status:       game.Status(record.Status),
		Mode:         game.Mode(record.Mode),
		Ambiance:     game.Ambiance(record.Ambiance),
		MiniGames:    miniGames,
		TotalRounds:  record.TotalRounds,
		CurrentRound: record.CurrentRound,
		MaxPlayers:   record.MaxPlayers,
		CreatedAt:    record.CreatedAt,
		StartedAt:    record.StartedAt,
		FinishedAt:   record.FinishedAt,
	}, nil
}

func playerToRecord(p *game.Player) db.Player {
	return db.Player{
		ID:       p.ID,
		GameID:   p.GameID,
		UserID:   p.UserID,
		IsHost:   p.IsHost,
		IsReady:  p.IsReady,
		Score:    p.Score,
		JoinedAt: p.JoinedAt,
	}
}

func playerFromRecord(record *db.Player) game.Player {
	return game.Player{
		ID:       record.ID,
		GameID:   record.GameID,
		UserID:   record.UserID,
		IsHost:   record.IsHost,
		IsReady:  record.IsReady,
		Score:    record.Score,
		JoinedAt: record.JoinedAt,
	}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func isDomainErr(err error) bool {
	switch {
	case errors.Is(err, game.ErrNotFound),
		errors.Is(err, game.ErrForbidden),
		errors.Is(err, game.ErrInvalidState),
		errors.Is(err, game.ErrRoomFull),
		errors.Is(err, game.ErrAlreadyStarted),
		errors.Is(err, game.ErrConflictOnAdvance),
		errors.Is(err, game.ErrDuplicateSubmission),
		errors.Is(err, game.ErrCodeTaken):
		return true
	}
	return false
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %v", game.ErrStoreUnavailable, err)
}
