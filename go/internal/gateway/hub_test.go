package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/pomotrack/go/internal/models"
	"github.com/mcdev12/pomotrack/go/internal/timer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type gatewayHarness struct {
	engine *timer.Engine
	hub    *Hub
	server *httptest.Server
}

func newGatewayHarness(t *testing.T) *gatewayHarness {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	hub := NewHub(DefaultConnectionConfig())
	engine := timer.New(
		timer.Config{Clock: clockwork.NewFakeClock()},
		timer.Dependencies{Notifier: hub, Sound: hub},
		models.DefaultPreferences(),
	)
	events := engine.Subscribe(64)
	go func() { _ = engine.Run(ctx) }()

	hub.SetCommandHandler(NewCommandHandler(engine, nil))
	go hub.Start(ctx)
	go hub.Forward(ctx, events)

	mux := http.NewServeMux()
	NewWebSocketHandler(hub, engine).RegisterRoutes(mux)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return &gatewayHarness{engine: engine, hub: hub, server: server}
}

func (h *gatewayHarness) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	before := h.hub.ConnectionCount()
	url := "ws" + strings.TrimPrefix(h.server.URL, "http") + "/ws/timer"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.Eventually(t, func() bool { return h.hub.ConnectionCount() > before }, time.Second, time.Millisecond)
	return conn
}

func send(t *testing.T, conn *websocket.Conn, raw string) {
	t.Helper()
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(raw)))
}

// readUntil skips messages until one of messageType arrives.
func readUntil(t *testing.T, conn *websocket.Conn, messageType MessageType) ServerMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)

		var msg ServerMessage
		require.NoError(t, json.Unmarshal(data, &msg))
		if msg.Type == messageType {
			return msg
		}
	}
}

func TestHubRunsCommands(t *testing.T) {
	h := newGatewayHarness(t)
	conn := h.dial(t)

	send(t, conn, `{"command":"assign_task","task":{"id":"T1","name":"Write report"}}`)
	var result ResultPayload
	require.NoError(t, json.Unmarshal(readUntil(t, conn, MessageTypeResult).Data, &result))
	assert.Equal(t, CommandAssignTask, result.Command)
	require.NotNil(t, result.Session.LinkedTask)
	assert.Equal(t, "T1", result.Session.LinkedTask.ID)

	send(t, conn, `{"command":"start"}`)
	require.NoError(t, json.Unmarshal(readUntil(t, conn, MessageTypeResult).Data, &result))
	assert.True(t, result.Session.IsActive)
}

func TestHubReportsCommandErrors(t *testing.T) {
	h := newGatewayHarness(t)
	conn := h.dial(t)

	send(t, conn, `{"command":"rewind"}`)
	var payload ErrorPayload
	require.NoError(t, json.Unmarshal(readUntil(t, conn, MessageTypeError).Data, &payload))
	assert.Equal(t, CommandType("rewind"), payload.Command)
	assert.Contains(t, payload.Message, "unknown command")
}

func TestHubBroadcastsEventsNotificationsAndSounds(t *testing.T) {
	h := newGatewayHarness(t)
	conn := h.dial(t)

	send(t, conn, `{"command":"skip"}`)

	var event timer.Event
	for event.Type != timer.EventModeChanged {
		require.NoError(t, json.Unmarshal(readUntil(t, conn, MessageTypeEvent).Data, &event))
	}
	assert.Equal(t, models.ModeShortBreak, event.Session.Mode)
	assert.Equal(t, models.ModeWork, event.PreviousMode)

	observer := h.dial(t)
	_, err := h.engine.Skip(context.Background())
	require.NoError(t, err)

	var notification NotificationPayload
	require.NoError(t, json.Unmarshal(readUntil(t, observer, MessageTypeNotification).Data, &notification))
	assert.Equal(t, "Break over", notification.Title)
}

func TestHubPlaysSound(t *testing.T) {
	h := newGatewayHarness(t)
	conn := h.dial(t)

	h.hub.Play("bell")

	var sound SoundPayload
	require.NoError(t, json.Unmarshal(readUntil(t, conn, MessageTypeSound).Data, &sound))
	assert.Equal(t, "bell", sound.SoundID)
}

func TestSessionEndpoint(t *testing.T) {
	h := newGatewayHarness(t)

	resp, err := http.Get(h.server.URL + "/api/session")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body SessionResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, models.ModeWork, body.Session.Mode)
	assert.Equal(t, 25*60, body.Session.TimeRemainingSeconds)
	assert.Equal(t, models.DefaultPreferences(), body.Preferences)

	resp, err = http.Post(h.server.URL+"/api/session", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}
