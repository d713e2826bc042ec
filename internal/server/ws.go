package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"

	"kiadisa/internal/session"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// wsHub tracks live room connections so a snapshot write and a
// disconnect cannot interleave on the same conn.
type wsHub struct {
	mu    sync.Mutex
	conns map[string]map[*websocket.Conn]*sync.Mutex
	log   *zap.SugaredLogger
}

func newWSHub(log *zap.SugaredLogger) *wsHub {
	return &wsHub{
		conns: make(map[string]map[*websocket.Conn]*sync.Mutex),
		log:   log,
	}
}

func (h *wsHub) Add(gameID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	group := h.conns[gameID]
	if group == nil {
		group = make(map[*websocket.Conn]*sync.Mutex)
		h.conns[gameID] = group
	}
	group[conn] = &sync.Mutex{}
}

func (h *wsHub) Remove(gameID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	group := h.conns[gameID]
	if group == nil {
		return
	}
	delete(group, conn)
	_ = conn.Close()
	if len(group) == 0 {
		delete(h.conns, gameID)
	}
}

func (h *wsHub) Send(gameID string, conn *websocket.Conn, payload any) {
	h.mu.Lock()
	writeMu := h.conns[gameID][conn]
	h.mu.Unlock()
	if writeMu == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	writeMu.Lock()
	defer writeMu.Unlock()
	_ = conn.WriteMessage(websocket.TextMessage, data)
}

// handleWebsocket bridges the change-notification channel to a browser:
// one watcher per connection, full snapshot on connect and after every
// change signal. The watcher is released on every exit path.
func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	gameID := chi.URLParam(r, "id")
	if _, err := s.store.GetGame(r.Context(), gameID); err != nil {
		s.writeDomainError(w, err)
		return
	}
	viewerID := strings.TrimSpace(r.URL.Query().Get("user_id"))
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s.log.Infow("ws connected", "game_id", gameID, "remote", r.RemoteAddr)
	s.ws.Add(gameID, conn)

	onChange := func(snap session.RoomSnapshot) {
		s.ws.Send(gameID, conn, snapshotPayload(snap))
	}
	// The request context dies when this handler returns; the watcher
	// lives until the read loop sees the disconnect.
	watcher, err := session.WatchRoom(context.Background(), s.store, s.channel, gameID, viewerID, onChange, s.log)
	if err != nil {
		s.ws.Remove(gameID, conn)
		return
	}
	s.ws.Send(gameID, conn, snapshotPayload(watcher.Snapshot()))
	go s.readWS(gameID, conn, watcher)
}

func (s *Server) readWS(gameID string, conn *websocket.Conn, watcher *session.Watcher) {
	defer watcher.Close()
	defer s.ws.Remove(gameID, conn)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			s.log.Infow("ws disconnected", "game_id", gameID, "error", err)
			return
		}
	}
}

func snapshotPayload(snap session.RoomSnapshot) map[string]any {
	payload := map[string]any{
		"loading": snap.Loading,
		"is_host": snap.IsHost,
		"in_game": snap.InGame,
	}
	if snap.Game != nil {
		payload["game"] = gamePayload(snap.Game)
	}
	roster := make([]map[string]any, 0, len(snap.Players))
	for _, p := range snap.Players {
		roster = append(roster, playerPayload(p))
	}
	payload["players"] = roster
	return payload
}
