package httpapi

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/lexiqai/alfred/internal/transcript"
)

func dialHub(t *testing.T, hub *Hub) *websocket.Conn {
	t.Helper()
	server := httptest.NewServer(hub)
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	deadline := time.Now().Add(2 * time.Second)
	for hub.Clients() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("Subscriber never registered")
		}
		time.Sleep(time.Millisecond)
	}
	return conn
}

func TestHub_BroadcastsLines(t *testing.T) {
	hub := NewHub()
	conn := dialHub(t, hub)

	hub.Show("You", "What is the weather")
	hub.Show("Alfred", "It is currently cloudy.")

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for _, want := range []string{"You: What is the weather", "Alfred: It is currently cloudy."} {
		var line transcript.Line
		if err := conn.ReadJSON(&line); err != nil {
			t.Fatalf("Read failed: %v", err)
		}
		if line.String() != want {
			t.Errorf("Expected %q, got %q", want, line.String())
		}
	}
}

func TestHub_RemovesClosedSubscriber(t *testing.T) {
	hub := NewHub()
	conn := dialHub(t, hub)

	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.Clients() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("Subscriber was not removed")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestHub_ShowWithoutSubscribers(t *testing.T) {
	NewHub().Show("Alfred", "Nobody is listening, sir.")
}
