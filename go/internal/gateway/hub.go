package gateway

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/mcdev12/pomotrack/go/internal/timer"
	"github.com/rs/zerolog/log"
)

// Hub manages the WebSocket connections of timer clients
type Hub struct {
	connections map[*Connection]bool
	mu          sync.RWMutex

	upgrader websocket.Upgrader
	config   ConnectionConfig

	broadcastCh chan []byte

	stateMu  sync.RWMutex
	ctx      context.Context
	commands *CommandHandler
}

// Connection represents a WebSocket connection to a client
type Connection struct {
	ID   string
	Conn *websocket.Conn
	Send chan []byte
	Hub  *Hub

	ConnectedAt time.Time
	LastPing    time.Time
}

// ConnectionConfig holds configuration for WebSocket connections
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	CommandTimeout  time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	CheckOrigin     func(r *http.Request) bool
}

// DefaultConnectionConfig returns default WebSocket configuration
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		CommandTimeout:  10 * time.Second,
		MaxMessageSize:  4096,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
}

// NewHub creates a new hub. Client messages are only logged until a
// command handler is attached.
func NewHub(config ConnectionConfig) *Hub {
	return &Hub{
		connections: make(map[*Connection]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config:      config,
		broadcastCh: make(chan []byte, 1000),
		ctx:         context.Background(),
	}
}

// Start processes broadcasts until ctx is cancelled, then closes every
// connection. Client commands run under ctx.
func (h *Hub) Start(ctx context.Context) {
	h.stateMu.Lock()
	h.ctx = ctx
	h.stateMu.Unlock()

	log.Info().Msg("timer hub started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("timer hub shutting down")
			h.closeAll()
			return
		case data := <-h.broadcastCh:
			h.handleBroadcast(data)
		}
	}
}

// SetCommandHandler attaches the handler for client commands.
func (h *Hub) SetCommandHandler(commands *CommandHandler) {
	h.stateMu.Lock()
	defer h.stateMu.Unlock()
	h.commands = commands
}

func (h *Hub) state() (context.Context, *CommandHandler) {
	h.stateMu.RLock()
	defer h.stateMu.RUnlock()
	return h.ctx, h.commands
}

// UpgradeConnection upgrades an HTTP connection to WebSocket
func (h *Hub) UpgradeConnection(w http.ResponseWriter, r *http.Request) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("failed to upgrade connection: %w", err)
	}

	connection := &Connection{
		ID:          uuid.New().String(),
		Conn:        conn,
		Send:        make(chan []byte, 256),
		Hub:         h,
		ConnectedAt: time.Now(),
		LastPing:    time.Now(),
	}

	h.register(connection)

	go connection.writePump()
	go connection.readPump()

	log.Info().
		Str("connection_id", connection.ID).
		Str("remote_addr", r.RemoteAddr).
		Msg("WebSocket connection established")

	return nil
}

func (h *Hub) register(conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.connections[conn] = true

	log.Debug().
		Str("connection_id", conn.ID).
		Int("total_connections", len(h.connections)).
		Msg("connection registered")
}

func (h *Hub) unregister(conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, exists := h.connections[conn]; exists {
		delete(h.connections, conn)
		close(conn.Send)

		log.Info().
			Str("connection_id", conn.ID).
			Dur("connected_for", time.Since(conn.ConnectedAt)).
			Msg("connection unregistered")
	}
}

func (h *Hub) closeAll() {
	h.mu.RLock()
	conns := make([]*Connection, 0, len(h.connections))
	for conn := range h.connections {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	for _, conn := range conns {
		h.unregister(conn)
	}
}

// Broadcast queues a message for every connection.
func (h *Hub) Broadcast(messageType MessageType, data interface{}) {
	msg, err := newServerMessage(messageType, data)
	if err != nil {
		log.Error().Err(err).Str("type", string(messageType)).Msg("failed to marshal message for broadcast")
		return
	}

	select {
	case h.broadcastCh <- msg:
	default:
		log.Warn().Str("type", string(messageType)).Msg("broadcast channel full, dropping message")
	}
}

func (h *Hub) handleBroadcast(data []byte) {
	var slow []*Connection

	h.mu.RLock()
	for conn := range h.connections {
		select {
		case conn.Send <- data:
		default:
			slow = append(slow, conn)
		}
	}
	count := len(h.connections)
	h.mu.RUnlock()

	for _, conn := range slow {
		log.Warn().
			Str("connection_id", conn.ID).
			Msg("connection send buffer full, closing connection")
		h.unregister(conn)
		conn.Conn.Close()
	}

	log.Debug().Int("connections", count).Msg("message broadcasted")
}

// sendTo writes a message to one connection if it is still registered.
func (h *Hub) sendTo(conn *Connection, messageType MessageType, data interface{}) {
	msg, err := newServerMessage(messageType, data)
	if err != nil {
		log.Error().Err(err).Str("type", string(messageType)).Msg("failed to marshal reply")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	if !h.connections[conn] {
		return
	}
	select {
	case conn.Send <- msg:
	default:
		log.Warn().Str("connection_id", conn.ID).Msg("connection send buffer full, dropping reply")
	}
}

// Forward broadcasts engine events until the channel closes or ctx is done.
func (h *Hub) Forward(ctx context.Context, events <-chan timer.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			h.Broadcast(MessageTypeEvent, event)
		}
	}
}

// Show implements timer.Notifier by pushing a notification to every client.
func (h *Hub) Show(title, body string) {
	h.Broadcast(MessageTypeNotification, NotificationPayload{Title: title, Body: body})
}

// Play implements timer.SoundPlayer by asking every client to play soundID.
func (h *Hub) Play(soundID string) {
	h.Broadcast(MessageTypeSound, SoundPayload{SoundID: soundID})
}

// ConnectionCount returns the number of live connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

func (c *Connection) writePump() {
	ticker := time.NewTicker(c.Hub.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
		c.Hub.unregister(c)
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Hub.config.WriteTimeout))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to write message to WebSocket")
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Hub.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to send ping")
				return
			}
		}
	}
}

func (c *Connection) readPump() {
	defer func() {
		c.Hub.unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(c.Hub.config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.Hub.config.ReadTimeout))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.Hub.config.ReadTimeout))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("unexpected WebSocket close error")
			}
			break
		}

		c.handleClientMessage(message)
		c.Conn.SetReadDeadline(time.Now().Add(c.Hub.config.ReadTimeout))
	}
}

func (c *Connection) handleClientMessage(message []byte) {
	log.Debug().
		Str("connection_id", c.ID).
		RawJSON("message", message).
		Msg("received client message")

	hubCtx, commands := c.Hub.state()
	if commands == nil {
		return
	}

	ctx, cancel := context.WithTimeout(hubCtx, c.Hub.config.CommandTimeout)
	defer cancel()

	result, err := commands.Handle(ctx, message)
	if err != nil {
		c.Hub.sendTo(c, MessageTypeError, ErrorPayload{Command: result.Command, Message: err.Error()})
		return
	}
	c.Hub.sendTo(c, MessageTypeResult, result)
}
