package server

import (
	"context"
	"errors"
	"net/http"

	"kiadisa/internal/game"

	"github.com/go-chi/chi/v5"
)

type createGameRequest struct {
	Mode        string   `json:"mode"`
	Ambiance    string   `json:"ambiance"`
	MiniGames   []string `json:"mini_games"`
	TotalRounds int      `json:"total_rounds"`
	MaxPlayers  int      `json:"max_players"`
}

type readyRequest struct {
	Ready bool `json:"ready"`
}

type submissionRequest struct {
	Round int    `json:"round"`
	Value string `json:"value"`
}

func (s *Server) handleCreateGame(w http.ResponseWriter, r *http.Request) {
	var req createGameRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	settings := game.Settings{
		Mode:        game.Mode(req.Mode),
		Ambiance:    game.Ambiance(req.Ambiance),
		MiniGames:   req.MiniGames,
		TotalRounds: req.TotalRounds,
		MaxPlayers:  req.MaxPlayers,
	}
	g, err := s.coordinator.CreateRoom(r.Context(), settings, userID(r))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, gamePayload(g))
}

func (s *Server) handleJoinGame(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	g, player, err := s.coordinator.JoinRoom(r.Context(), code, userID(r))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"game":   gamePayload(g),
		"player": playerPayload(*player),
	})
}

func (s *Server) handleGetGame(w http.ResponseWriter, r *http.Request) {
	gameID := chi.URLParam(r, "id")
	g, err := s.store.GetGame(r.Context(), gameID)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	players, err := s.store.ListPlayers(r.Context(), gameID)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, roomPayload(g, players, userID(r)))
}

func (s *Server) handleStartGame(w http.ResponseWriter, r *http.Request) {
	gameID := chi.URLParam(r, "id")
	g, err := s.coordinator.StartGame(r.Context(), gameID, userID(r))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, gamePayload(g))
}

func (s *Server) handleSetReady(w http.ResponseWriter, r *http.Request) {
	gameID := chi.URLParam(r, "id")
	var req readyRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.coordinator.SetReady(r.Context(), gameID, userID(r), req.Ready); err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ready": req.Ready})
}

func (s *Server) handleSubmitAnswer(w http.ResponseWriter, r *http.Request) {
	s.handleSubmission(w, r, s.coordinator.SubmitAnswer)
}

func (s *Server) handleSubmitVote(w http.ResponseWriter, r *http.Request) {
	s.handleSubmission(w, r, s.coordinator.SubmitVote)
}

func (s *Server) handleSubmission(w http.ResponseWriter, r *http.Request, submit func(ctx context.Context, gameID, userID string, round int, value string) error) {
	gameID := chi.URLParam(r, "id")
	var req submissionRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := submit(r.Context(), gameID, userID(r), req.Round, req.Value); err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"game_id": gameID,
		"round":   req.Round,
	})
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	gameID := chi.URLParam(r, "id")
	g, players, err := s.coordinator.Results(r.Context(), gameID)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	ranked := make([]map[string]any, 0, len(players))
	for _, p := range players {
		ranked = append(ranked, playerPayload(p))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"game":    gamePayload(g),
		"ranking": ranked,
	})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	gameID := chi.URLParam(r, "id")
	events, err := s.coordinator.Events(r.Context(), gameID)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	payload := make([]map[string]any, 0, len(events))
	for _, e := range events {
		payload = append(payload, map[string]any{
			"id":         e.ID,
			"type":       e.Type,
			"payload":    e.Payload,
			"created_at": e.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"game_id": gameID,
		"events":  payload,
	})
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := s.coordinator.Profile(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":         profile.ID,
		"pseudo":     profile.Pseudo,
		"avatar_url": profile.AvatarURL,
		"title":      profile.Title,
		"level":      profile.Level,
		"xp":         profile.XP,
		"coins":      profile.Coins,
	})
}

// writeDomainError maps the error taxonomy onto distinguishable HTTP
// responses. Every failed intent gets a message the presentation layer
// can show.
func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	var verr *game.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, verr.Error())
	case errors.Is(err, game.ErrNotFound):
		writeError(w, http.StatusNotFound, "game not found")
	case errors.Is(err, game.ErrForbidden):
		writeError(w, http.StatusForbidden, "only the host can do that")
	case errors.Is(err, game.ErrAlreadyStarted):
		writeError(w, http.StatusConflict, "game already started")
	case errors.Is(err, game.ErrRoomFull):
		writeError(w, http.StatusConflict, "room is full")
	case errors.Is(err, game.ErrInsufficientPlayers):
		writeError(w, http.StatusConflict, "at least 2 players are needed to start")
	case errors.Is(err, game.ErrDuplicateSubmission):
		writeError(w, http.StatusConflict, "submission already recorded")
	case errors.Is(err, game.ErrInvalidState):
		writeError(w, http.StatusConflict, "not allowed in this game state")
	case errors.Is(err, game.ErrStoreUnavailable):
		writeError(w, http.StatusServiceUnavailable, "store unavailable, try again")
	default:
		s.log.Errorw("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func gamePayload(g *game.Game) map[string]any {
	return map[string]any{
		"id":            g.ID,
		"code":          g.Code,
		"host_id":       g.HostID,
		"status":        g.Status,
		"mode":          g.Mode,
		"ambiance":      g.Ambiance,
		"mini_games":    g.MiniGames,
		"total_rounds":  g.TotalRounds,
		"current_round": g.CurrentRound,
		"max_players":   g.MaxPlayers,
		"created_at":    g.CreatedAt,
		"started_at":    g.StartedAt,
		"finished_at":   g.FinishedAt,
	}
}

func playerPayload(p game.Player) map[string]any {
	return map[string]any{
		"id":        p.ID,
		"game_id":   p.GameID,
		"user_id":   p.UserID,
		"is_host":   p.IsHost,
		"is_ready":  p.IsReady,
		"score":     p.Score,
		"joined_at": p.JoinedAt,
	}
}

func roomPayload(g *game.Game, players []game.Player, viewerID string) map[string]any {
	roster := make([]map[string]any, 0, len(players))
	inGame := false
	for _, p := range players {
		roster = append(roster, playerPayload(p))
		if p.UserID == viewerID {
			inGame = true
		}
	}
	return map[string]any{
		"game":    gamePayload(g),
		"players": roster,
		"is_host": g.HostID == viewerID,
		"in_game": inGame,
	}
}
