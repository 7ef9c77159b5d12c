package stream

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitClients(t *testing.T, h *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if h.Clients() == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("clients = %d, want %d", h.Clients(), want)
}

func TestHub_BroadcastReachesClients(t *testing.T) {
	h := NewHub(nil)
	srv := httptest.NewServer(h)
	defer srv.Close()

	c1 := dial(t, srv)
	c2 := dial(t, srv)
	waitClients(t, h, 2)

	h.Broadcast(map[string]interface{}{"type": "refresh", "total": 42})

	for _, conn := range []*websocket.Conn{c1, c2} {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, payload, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		var msg struct {
			Type  string `json:"type"`
			Total int    `json:"total"`
		}
		if err := json.Unmarshal(payload, &msg); err != nil {
			t.Fatalf("unmarshal %s: %v", payload, err)
		}
		if msg.Type != "refresh" || msg.Total != 42 {
			t.Errorf("message = %+v", msg)
		}
	}
}

func TestHub_DisconnectRemovesClient(t *testing.T) {
	h := NewHub(nil)
	srv := httptest.NewServer(h)
	defer srv.Close()

	conn := dial(t, srv)
	waitClients(t, h, 1)

	conn.Close()
	waitClients(t, h, 0)
}

func TestHub_BroadcastWithNoClients(t *testing.T) {
	h := NewHub(nil)
	// Must not panic or block.
	h.Broadcast(map[string]string{"type": "refresh"})
	if h.Clients() != 0 {
		t.Errorf("clients = %d", h.Clients())
	}
}
