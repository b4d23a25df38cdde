package status

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func dialHub(t *testing.T, h *Hub) *websocket.Conn {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		h.Attach(conn)
	}))
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatal(err)
	}
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatal(err)
	}
	return m
}

func TestHub_ReplayAndBroadcast(t *testing.T) {
	h := NewHub()
	h.Publish(Message{Kind: KindInfo, Text: "loaded"})

	conn := dialHub(t, h)
	if m := readMessage(t, conn); m.Kind != KindInfo || m.Text != "loaded" {
		t.Fatalf("replay = %+v", m)
	}

	h.Publish(Message{Kind: KindProgress, Text: "terrain.trb", Progress: 0.5})
	if m := readMessage(t, conn); m.Kind != KindProgress || m.Progress != 0.5 {
		t.Errorf("progress = %+v", m)
	}
}
