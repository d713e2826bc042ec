package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func readSnapshot(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	if err := conn.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
		t.Fatalf("set deadline: %v", err)
	}
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	return payload
}

func TestWebsocketSnapshots(t *testing.T) {
	srv := newTestServer(t)

	status, created := doRequest(t, http.MethodPost, srv.URL+"/api/games", "host", createGameBody())
	if status != http.StatusCreated {
		t.Fatalf("create: %d %v", status, created)
	}
	gameID, _ := created["id"].(string)
	code, _ := created["code"].(string)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/games/" + gameID + "?user_id=host"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	initial := readSnapshot(t, conn)
	if initial["is_host"] != true || initial["in_game"] != true {
		t.Fatalf("bad initial snapshot: %v", initial)
	}
	if players, ok := initial["players"].([]any); !ok || len(players) != 1 {
		t.Fatalf("initial roster wrong: %v", initial["players"])
	}

	if status, payload := doRequest(t, http.MethodPost, srv.URL+"/api/games/"+code+"/join", "u2", nil); status != http.StatusOK {
		t.Fatalf("join: %d %v", status, payload)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		snap := readSnapshot(t, conn)
		if players, ok := snap["players"].([]any); ok && len(players) == 2 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("roster snapshot never arrived")
		}
	}
}

func TestWebsocketUnknownGame(t *testing.T) {
	srv := newTestServer(t)
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/games/missing"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err == nil {
		t.Fatal("expected dial to fail for unknown game")
	}
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 handshake rejection, got %+v", resp)
	}
}
