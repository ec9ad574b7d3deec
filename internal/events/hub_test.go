package events_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"blockpad/internal/api"
	"blockpad/internal/domain"
	"blockpad/internal/events"
	"blockpad/internal/storage"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestMockEmitter_RecordsEvents(t *testing.T) {
	m := &events.MockEmitter{}
	m.Emit(context.Background(), "block:created", "b1")
	m.Emit(context.Background(), "block:deleted", "b1")

	if len(m.Events) != 2 {
		t.Fatalf("events = %d, want 2", len(m.Events))
	}
	if m.Events[0].Event != "block:created" || m.Events[1].Event != "block:deleted" {
		t.Fatalf("events = %+v", m.Events)
	}
}

// A client on /blocks/stream receives the event for a create issued
// over the REST surface.
func TestHub_StreamsBlockEvents(t *testing.T) {
	db, err := storage.OpenMemory()
	if err != nil {
		t.Fatalf("open memory db: %v", err)
	}
	defer db.Close()

	hub := events.NewHub()
	defer hub.Close()
	ts := httptest.NewServer(api.NewServer(storage.NewSQLStore(db), hub).Routes())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/blocks/stream"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial stream: %v", err)
	}
	defer conn.Close()

	// The handshake completes before the server registers the client;
	// give registration a moment.
	time.Sleep(50 * time.Millisecond)

	body, _ := json.Marshal(domain.CreateBlockInput{Type: domain.BlockTypeText, Content: "hello"})
	resp, err := http.Post(ts.URL+"/blocks", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d", resp.StatusCode)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var env events.Envelope
	if err := conn.ReadJSON(&env); err != nil {
		t.Fatalf("read event: %v", err)
	}
	if env.Event != "block:created" {
		t.Fatalf("event = %q, want block:created", env.Event)
	}
	data, ok := env.Data.(map[string]any)
	if !ok {
		t.Fatalf("data = %T, want object", env.Data)
	}
	if data["content"] != "hello" {
		t.Fatalf("data = %v", data)
	}
}

func TestHub_UnregisterIsIdempotent(t *testing.T) {
	hub := events.NewHub()
	defer hub.Close()

	// Emitting with no clients is a no-op.
	hub.Emit(context.Background(), "block:updated", nil)
}
