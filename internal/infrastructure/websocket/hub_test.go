package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/webforge/backend/internal/domain/workflow"
	"github.com/webforge/backend/internal/infrastructure/config"
)

func newTestHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(&config.WebSocketConfig{ReadBufferSize: 1024, WriteBufferSize: 1024})
	hub.Start()
	t.Cleanup(hub.Stop)
	return hub
}

func dial(t *testing.T, hub *Hub, sessionID string) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeWS(w, r, r.URL.Query().Get("session_id"))
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?session_id=" + sessionID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.Eventually(t, func() bool { return hub.ConnectionCount(sessionID) > 0 }, time.Second, 10*time.Millisecond)
	return conn
}

func TestHub_NotifyStageReachesSession(t *testing.T) {
	hub := newTestHub(t)
	conn := dial(t, hub, "s1")

	hub.NotifyStage(workflow.StageEvent{
		SessionID: "s1",
		RunID:     "run-1",
		Stage:     workflow.StageCreateHTML,
		Status:    workflow.StepStarted,
		At:        time.Now(),
	})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var got workflow.StageEvent
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "run-1", got.RunID)
	assert.Equal(t, workflow.StageCreateHTML, got.Stage)
	assert.Equal(t, workflow.StepStarted, got.Status)
}

func TestHub_SessionIsolation(t *testing.T) {
	hub := newTestHub(t)
	other := dial(t, hub, "s2")
	own := dial(t, hub, "s1")

	hub.NotifyStage(workflow.StageEvent{SessionID: "s1", Stage: workflow.StageAssemble, Status: workflow.StepCompleted})

	_ = own.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := own.ReadMessage()
	require.NoError(t, err)

	_ = other.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	_, _, err = other.ReadMessage()
	assert.Error(t, err, "other session must not receive the event")
}

func TestHub_UnregisterOnClose(t *testing.T) {
	hub := newTestHub(t)
	conn := dial(t, hub, "s3")
	assert.Equal(t, 1, hub.ConnectionCount("s3"))

	conn.Close()
	assert.Eventually(t, func() bool { return hub.ConnectionCount("s3") == 0 }, 2*time.Second, 20*time.Millisecond)
}

func TestHub_NotifyWithoutListeners(t *testing.T) {
	hub := newTestHub(t)
	hub.NotifyStage(workflow.StageEvent{SessionID: "nobody"})
	hub.Stop()
	hub.NotifyStage(workflow.StageEvent{SessionID: "nobody"})
}
