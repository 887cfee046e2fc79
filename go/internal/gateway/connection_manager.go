// Package gateway fans duel events out to WebSocket clients grouped by room.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// ConnectionManager manages WebSocket connections for duel rooms
type ConnectionManager struct {
	// Connection pools organized by room code
	roomConnections map[string]map[*Connection]bool
	rooms           map[string]*Room
	mu              sync.RWMutex

	upgrader websocket.Upgrader
	config   ConnectionConfig
	state    StateProvider

	broadcastCh chan BroadcastMessage
}

// Connection represents a WebSocket connection to a client
type Connection struct {
	ID      string
	Room    string
	Conn    *websocket.Conn
	Send    chan []byte
	Manager *ConnectionManager

	ConnectedAt time.Time
}

// ConnectionConfig holds configuration for WebSocket connections
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	CheckOrigin     func(r *http.Request) bool
}

// BroadcastMessage represents a message to broadcast to a room
type BroadcastMessage struct {
	Room  string
	Event *RoomEvent
}

// DefaultConnectionConfig returns default WebSocket configuration
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  1024,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
}

// NewConnectionManager creates a new WebSocket connection manager. state may be nil.
func NewConnectionManager(config ConnectionConfig, state StateProvider) *ConnectionManager {
	return &ConnectionManager{
		roomConnections: make(map[string]map[*Connection]bool),
		rooms:           make(map[string]*Room),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config:      config,
		state:       state,
		broadcastCh: make(chan BroadcastMessage, 1000),
	}
}

// SetStateProvider replaces the state provider. Call it before serving connections.
func (cm *ConnectionManager) SetStateProvider(state StateProvider) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.state = state
}

// Start begins processing broadcast messages
func (cm *ConnectionManager) Start(ctx context.Context) {
	log.Info().Msg("connection manager started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("connection manager shutting down")
			return
		case message := <-cm.broadcastCh:
			cm.handleBroadcast(message)
		}
	}
}

// Room returns the channel for a room code, creating it on first use.
func (cm *ConnectionManager) Room(code string) *Room {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if r, ok := cm.rooms[code]; ok {
		return r
	}
	r := &Room{code: code, manager: cm}
	cm.rooms[code] = r
	return r
}

// UpgradeConnection upgrades an HTTP connection to WebSocket and joins room
func (cm *ConnectionManager) UpgradeConnection(w http.ResponseWriter, r *http.Request, room string) error {
	conn, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("failed to upgrade connection: %w", err)
	}

	connection := &Connection{
		ID:          uuid.New().String(),
		Room:        room,
		Conn:        conn,
		Send:        make(chan []byte, 256),
		Manager:     cm,
		ConnectedAt: time.Now(),
	}

	cm.registerConnection(connection)
	cm.sendState(connection)

	go connection.writePump()
	go connection.readPump()

	log.Info().
		Str("connection_id", connection.ID).
		Str("room", room).
		Msg("WebSocket connection established")

	return nil
}

func (cm *ConnectionManager) registerConnection(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if cm.roomConnections[conn.Room] == nil {
		cm.roomConnections[conn.Room] = make(map[*Connection]bool)
	}
	cm.roomConnections[conn.Room][conn] = true

	log.Debug().
		Str("connection_id", conn.ID).
		Str("room", conn.Room).
		Int("total_connections", len(cm.roomConnections[conn.Room])).
		Msg("connection registered")
}

func (cm *ConnectionManager) unregisterConnection(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if connections, exists := cm.roomConnections[conn.Room]; exists {
		if _, exists := connections[conn]; exists {
			delete(connections, conn)
			close(conn.Send)

			if len(connections) == 0 {
				delete(cm.roomConnections, conn.Room)
			}

			log.Info().
				Str("connection_id", conn.ID).
				Str("room", conn.Room).
				Msg("connection unregistered")
		}
	}
}

// closeRoom disconnects every client of room and forgets its channel.
func (cm *ConnectionManager) closeRoom(room string) {
	cm.mu.Lock()
	var targets []*Connection
	for conn := range cm.roomConnections[room] {
		targets = append(targets, conn)
	}
	delete(cm.rooms, room)
	cm.mu.Unlock()

	for _, conn := range targets {
		cm.unregisterConnection(conn)
	}
}

// sendState queues the room's current state as the first frame for conn.
func (cm *ConnectionManager) sendState(conn *Connection) {
	cm.mu.RLock()
	provider := cm.state
	cm.mu.RUnlock()
	if provider == nil {
		return
	}
	state, ok := provider.RoomState(conn.Room)
	if !ok {
		return
	}
	event, err := newRoomEvent(conn.Room, EventTypeState, state)
	if err != nil {
		log.Error().Err(err).Str("room", conn.Room).Msg("failed to build room state")
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal room state")
		return
	}
	select {
	case conn.Send <- data:
	default:
	}
}

// BroadcastToRoom sends an event to all connections in a room
func (cm *ConnectionManager) BroadcastToRoom(room string, event *RoomEvent) {
	select {
	case cm.broadcastCh <- BroadcastMessage{Room: room, Event: event}:
	default:
		log.Warn().Str("room", room).Msg("broadcast channel full, dropping message")
	}
}

func (cm *ConnectionManager) handleBroadcast(message BroadcastMessage) {
	eventData, err := json.Marshal(message.Event)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal event for broadcast")
		return
	}

	// Sends happen under the read lock so no Send channel is closed mid-broadcast
	var slow []*Connection
	cm.mu.RLock()
	connections := cm.roomConnections[message.Room]
	for conn := range connections {
		select {
		case conn.Send <- eventData:
		default:
			slow = append(slow, conn)
		}
	}
	delivered := len(connections) - len(slow)
	cm.mu.RUnlock()

	for _, conn := range slow {
		log.Warn().
			Str("connection_id", conn.ID).
			Msg("connection send buffer full, closing connection")
		cm.unregisterConnection(conn)
		conn.Conn.Close()
	}

	log.Debug().
		Str("event_type", message.Event.Type).
		Str("room", message.Room).
		Int("connections", delivered).
		Msg("event broadcasted")
}

// ConnectionStats is a snapshot of active connections.
type ConnectionStats struct {
	TotalConnections int            `json:"total_connections"`
	ActiveRooms      int            `json:"active_rooms"`
	RoomConnections  map[string]int `json:"room_connections"`
}

// GetConnectionStats returns statistics about active connections
func (cm *ConnectionManager) GetConnectionStats() ConnectionStats {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	stats := ConnectionStats{
		ActiveRooms:     len(cm.roomConnections),
		RoomConnections: make(map[string]int, len(cm.roomConnections)),
	}
	for room, connections := range cm.roomConnections {
		stats.TotalConnections += len(connections)
		stats.RoomConnections[room] = len(connections)
	}
	return stats
}

func (cm *ConnectionManager) room(code string) (*Room, bool) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	r, ok := cm.rooms[code]
	return r, ok
}

// writePump handles sending messages to the WebSocket connection
func (c *Connection) writePump() {
	ticker := time.NewTicker(c.Manager.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
		c.Manager.unregisterConnection(c)
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
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
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
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

// readPump handles reading messages from the WebSocket connection
func (c *Connection) readPump() {
	defer func() {
		c.Manager.unregisterConnection(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(c.Manager.config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
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
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	}
}

// handleClientMessage hands a client frame to its room's handlers
func (c *Connection) handleClientMessage(message []byte) {
	var event RoomEvent
	if err := json.Unmarshal(message, &event); err != nil || event.Type == "" {
		log.Debug().
			Str("connection_id", c.ID).
			Msg("ignoring malformed client message")
		return
	}

	room, ok := c.Manager.room(c.Room)
	if !ok {
		return
	}
	room.deliver(event)
}
