package feed_test

import (
	"encoding/json"
	"log/slog"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"ghoststation/internal/feed"
	"ghoststation/internal/logging"
)

func testHub(t *testing.T) (*feed.Hub, func() *websocket.Conn) {
	t.Helper()
	hub := feed.NewHub(logging.NewNop())
	server := httptest.NewServer(hub)
	t.Cleanup(func() {
		hub.Stop()
		server.Close()
	})

	dial := func() *websocket.Conn {
		t.Helper()
		url := "ws" + strings.TrimPrefix(server.URL, "http")
		conn, _, err := websocket.DefaultDialer.Dial(url, nil)
		if err != nil {
			t.Fatalf("dial: %v", err)
		}
		t.Cleanup(func() { _ = conn.Close() })
		return conn
	}
	return hub, dial
}

func waitForClients(t *testing.T, hub *feed.Hub, expected int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if hub.ClientCount() == expected {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("expected %d clients, have %d", expected, hub.ClientCount())
}

func readNotification(t *testing.T, conn *websocket.Conn) feed.Notification {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var n feed.Notification
	if err := json.Unmarshal(data, &n); err != nil {
		t.Fatalf("decode %s: %v", data, err)
	}
	return n
}

func TestHubBroadcastsToAllClients(t *testing.T) {
	hub, dial := testHub(t)
	first, second := dial(), dial()
	waitForClients(t, hub, 2)

	hub.Publish(feed.Notification{Type: feed.TypeEventAccepted, EventID: 7, Data: map[string]any{"score": 3}})

	for _, conn := range []*websocket.Conn{first, second} {
		n := readNotification(t, conn)
		if n.Type != feed.TypeEventAccepted || n.EventID != 7 {
			t.Fatalf("unexpected notification %+v", n)
		}
		if n.Time.IsZero() {
			t.Fatal("expected publish to stamp time")
		}
		if n.Data["score"] != float64(3) {
			t.Fatalf("data = %v", n.Data)
		}
	}
}

func TestHubUnregistersClosedClients(t *testing.T) {
	hub, dial := testHub(t)
	conn := dial()
	waitForClients(t, hub, 1)

	_ = conn.Close()
	waitForClients(t, hub, 0)
}

func TestHubPublishAfterStopDoesNotBlock(t *testing.T) {
	hub := feed.NewHub(logging.NewNop())
	hub.Stop()
	hub.Stop()

	done := make(chan struct{})
	go func() {
		hub.Publish(feed.Notification{Type: feed.TypeLog})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked after stop")
	}
	if hub.ClientCount() != 0 {
		t.Fatal("expected zero clients after stop")
	}
}

type recorder struct {
	mu    sync.Mutex
	items []feed.Notification
}

func (r *recorder) Publish(n feed.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, n)
}

func TestLogHandlerMirrorsWarnings(t *testing.T) {
	rec := &recorder{}
	logger := logging.TeeLogger(logging.NewNop(), feed.NewLogHandler(rec, slog.LevelWarn)).
		With(logging.String(logging.FieldComponent, "enrichment"))

	logger.Info("routine")
	logger.Warn("classification failed", logging.Int64(logging.FieldEventID, 12), logging.String("reason", "timeout"))

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.items) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(rec.items))
	}
	n := rec.items[0]
	if n.Type != feed.TypeLog || n.Message != "classification failed" || n.EventID != 12 {
		t.Fatalf("unexpected notification %+v", n)
	}
	if n.Data["component"] != "enrichment" || n.Data["reason"] != "timeout" || n.Data["level"] != "warn" {
		t.Fatalf("unexpected data %v", n.Data)
	}
}
