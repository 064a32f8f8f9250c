package websocket

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"gatherhub/collab-portal/collab-portal-backend/internal/apperr"
	"gatherhub/collab-portal/collab-portal-backend/internal/notifications"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	sendBuffer = 256
)

// Message types pushed to clients.
const (
	MessageTypeNotification = "notification"
	MessageTypeConnected    = "connected"
)

// Message is the websocket frame format.
type Message struct {
	Type         string                     `json:"type"`
	ConnectionID string                     `json:"connection_id,omitempty"`
	Data         *notifications.PushPayload `json:"data,omitempty"`
	Timestamp    time.Time                  `json:"timestamp"`
}

// Manager handles WebSocket connections and routes push payloads to users.
// It implements notifications.PushSender.
type Manager struct {
	connections map[string]*Connection
	mu          sync.RWMutex
	upgrader    websocket.Upgrader
	logger      *zap.Logger
	closed      bool
}

// Connection represents a WebSocket client connection
type Connection struct {
	ID          string
	UserID      string
	Conn        *websocket.Conn
	Send        chan Message
	ConnectedAt time.Time
	UserAgent   string
	IPAddress   string
}

// NewManager creates a new WebSocket manager. allowedOrigins empty accepts any origin.
func NewManager(logger *zap.Logger, allowedOrigins ...string) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		connections: make(map[string]*Connection),
		logger:      logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

func originChecker(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		for _, o := range allowed {
			if o == origin {
				return true
			}
		}
		return false
	}
}

// HandleConnection upgrades the request for an authenticated user.
func (m *Manager) HandleConnection(w http.ResponseWriter, r *http.Request, userID string) (*Connection, error) {
	if userID == "" {
		return nil, apperr.ErrUnauthorized
	}
	conn, err := m.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to upgrade connection: %w", err)
	}

	connection := &Connection{
		ID:          uuid.NewString(),
		UserID:      userID,
		Conn:        conn,
		Send:        make(chan Message, sendBuffer),
		ConnectedAt: time.Now(),
		UserAgent:   r.Header.Get("User-Agent"),
		IPAddress:   r.RemoteAddr,
	}

	if !m.register(connection) {
		conn.Close()
		return nil, fmt.Errorf("%w: websocket manager closed", apperr.ErrTransportFailure)
	}

	go m.readPump(connection)
	go m.writePump(connection)

	return connection, nil
}

func (m *Manager) register(conn *Connection) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return false
	}
	conn.Send <- Message{Type: MessageTypeConnected, ConnectionID: conn.ID, Timestamp: time.Now()}
	m.connections[conn.ID] = conn
	m.logger.Debug("websocket connection registered",
		zap.String("connection_id", conn.ID), zap.String("user_id", conn.UserID))
	return true
}

// unregister closes Send exactly once; sends happen under the read lock.
func (m *Manager) unregister(conn *Connection) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.connections[conn.ID]; ok {
		delete(m.connections, conn.ID)
		close(conn.Send)
		m.logger.Debug("websocket connection unregistered",
			zap.String("connection_id", conn.ID), zap.String("user_id", conn.UserID))
	}
}

// readPump drains client frames so pongs and close frames are processed.
func (m *Manager) readPump(conn *Connection) {
	defer func() {
		m.unregister(conn)
		conn.Conn.Close()
	}()

	conn.Conn.SetReadLimit(512)
	_ = conn.Conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.Conn.SetPongHandler(func(string) error {
		return conn.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				m.logger.Warn("websocket read failed", zap.String("connection_id", conn.ID), zap.Error(err))
			}
			return
		}
	}
}

// writePump pumps messages from the send queue to the WebSocket connection
func (m *Manager) writePump(conn *Connection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-conn.Send:
			_ = conn.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.Conn.WriteJSON(message); err != nil {
				return
			}

		case <-ticker.C:
			_ = conn.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// SendPush queues the payload on every connection of the user. It fails when
// the user has no connection or every queue is full.
func (m *Manager) SendPush(_ context.Context, userID string, payload notifications.PushPayload) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	message := Message{Type: MessageTypeNotification, Data: &payload, Timestamp: time.Now()}
	found, queued := 0, 0
	for _, conn := range m.connections {
		if conn.UserID != userID {
			continue
		}
		found++
		select {
		case conn.Send <- message:
			queued++
		default:
			m.logger.Warn("websocket send buffer full", zap.String("connection_id", conn.ID))
		}
	}

	switch {
	case found == 0:
		return fmt.Errorf("%w: user %s not connected", apperr.ErrTransportFailure, userID)
	case queued == 0:
		return fmt.Errorf("%w: user %s connection buffers full", apperr.ErrTransportFailure, userID)
	}
	return nil
}

// GetConnectionCount returns the number of active connections
func (m *Manager) GetConnectionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.connections)
}

// GetUserConnections returns all connections for a specific user
func (m *Manager) GetUserConnections(userID string) []*Connection {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var connections []*Connection
	for _, conn := range m.connections {
		if conn.UserID == userID {
			connections = append(connections, conn)
		}
	}
	return connections
}

// Close closes the WebSocket manager and all connections
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	for id, conn := range m.connections {
		close(conn.Send)
		delete(m.connections, id)
	}
}

// ServeWS upgrades the request and discards the connection handle.
func (m *Manager) ServeWS(w http.ResponseWriter, r *http.Request, userID string) error {
	_, err := m.HandleConnection(w, r, userID)
	return err
}
