package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/mapofsmiles/companion/internal/domain"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	sendBufferSize = 256
)

// WebSocket event types
const (
	EventMarkerAdd    = "marker.add"
	EventMarkersClear = "markers.clear"
	EventMarkersSync  = "markers.sync"
	EventToast        = "toast"
)

type Client struct {
	ID   uuid.UUID
	Conn *websocket.Conn
	Send chan []byte
}

// WSEvent is one message on the map stream
type WSEvent struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// MarkerPayload is what the map needs to draw one story pin.
type MarkerPayload struct {
	ID        string         `json:"id"`
	Lat       float64        `json:"lat"`
	Lng       float64        `json:"lng"`
	Label     string         `json:"label"`
	Icon      string         `json:"icon"`
	Emotion   domain.Emotion `json:"emotion"`
	Text      string         `json:"text"`
	CreatedAt time.Time      `json:"created_at"`
	Local     bool           `json:"local"`
	DistanceM *float64       `json:"distance_m,omitempty"`
}

// MarkerSource supplies what a new connection needs to catch up.
type MarkerSource interface {
	Markers() []*domain.Story
	CurrentPosition() (domain.Position, bool)
}

// WebSocketManager is the rendering surface: it streams marker commands
// and toasts to every connected map view.
type WebSocketManager struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	source     MarkerSource
	upgrader   websocket.Upgrader
	done       chan struct{}
	mu         sync.RWMutex
	logger     *zap.Logger
}

// NewWebSocketManager creates the hub. checkOrigin vets the upgrade request.
func NewWebSocketManager(checkOrigin func(r *http.Request) bool, logger *zap.Logger) *WebSocketManager {
	return &WebSocketManager{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
		done:   make(chan struct{}),
		logger: logger,
	}
}

// SetSource attaches the session. Must be called before Run.
func (m *WebSocketManager) SetSource(source MarkerSource) {
	m.source = source
}

// Run processes (un)registrations until ctx is done, then disconnects everyone.
func (m *WebSocketManager) Run(ctx context.Context) {
	defer close(m.done)

	for {
		select {
		case client := <-m.register:
			m.mu.Lock()
			m.clients[client] = true
			m.mu.Unlock()
			m.sendSnapshot(client)
			m.logger.Debug("Client registered", zap.String("clientID", client.ID.String()))

		case client := <-m.unregister:
			m.mu.Lock()
			if _, ok := m.clients[client]; ok {
				delete(m.clients, client)
				close(client.Send)
				m.logger.Debug("Client unregistered", zap.String("clientID", client.ID.String()))
			}
			m.mu.Unlock()

		case <-ctx.Done():
			m.mu.Lock()
			for client := range m.clients {
				delete(m.clients, client)
				close(client.Send)
			}
			m.mu.Unlock()
			return
		}
	}
}

// ClientCount returns the number of connected views.
func (m *WebSocketManager) ClientCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients)
}

// AddMarker implements domain.Renderer.
func (m *WebSocketManager) AddMarker(story *domain.Story) {
	m.publish(WSEvent{Type: EventMarkerAdd, Payload: m.markerPayload(story)})
}

// ClearMarkers implements domain.Renderer.
func (m *WebSocketManager) ClearMarkers() {
	m.publish(WSEvent{Type: EventMarkersClear})
}

// Notify implements domain.Notifier.
func (m *WebSocketManager) Notify(_ context.Context, n domain.Notification) {
	m.publish(WSEvent{Type: EventToast, Payload: n})
}

// ServeWS upgrades the request and attaches a new map view.
func (m *WebSocketManager) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := m.upgrader.Upgrade(w, r, nil)
	if err != nil {
		m.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &Client{
		ID:   uuid.New(),
		Conn: conn,
		Send: make(chan []byte, sendBufferSize),
	}

	select {
	case m.register <- client:
	case <-m.done:
		conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump(m)
}

// publish never blocks: a view that cannot keep up is dropped and will
// resync from the snapshot when it reconnects.
func (m *WebSocketManager) publish(event WSEvent) {
	msg, err := json.Marshal(event)
	if err != nil {
		m.logger.Error("Failed to marshal message", zap.Error(err))
		return
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	for client := range m.clients {
		select {
		case client.Send <- msg:
		default:
			m.logger.Warn("client send buffer full, disconnecting", zap.String("clientID", client.ID.String()))
			go m.drop(client)
		}
	}
}

func (m *WebSocketManager) drop(client *Client) {
	select {
	case m.unregister <- client:
	case <-m.done:
	}
}

func (m *WebSocketManager) sendSnapshot(client *Client) {
	if m.source == nil {
		return
	}

	stories := m.source.Markers()
	markers := make([]MarkerPayload, 0, len(stories))
	for _, s := range stories {
		markers = append(markers, m.markerPayload(s))
	}

	msg, err := json.Marshal(WSEvent{Type: EventMarkersSync, Payload: markers})
	if err != nil {
		m.logger.Error("Failed to marshal snapshot", zap.Error(err))
		return
	}
	select {
	case client.Send <- msg:
	default:
	}
}

func (m *WebSocketManager) markerPayload(s *domain.Story) MarkerPayload {
	p := MarkerPayload{
		ID:        s.ID,
		Lat:       s.Lat,
		Lng:       s.Lng,
		Label:     s.Emotion.Label(),
		Icon:      s.Emotion.Icon(),
		Emotion:   s.Emotion,
		Text:      s.Text,
		CreatedAt: s.CreatedAt,
		Local:     s.IsLocal(),
	}
	if m.source != nil {
		if origin, ok := m.source.CurrentPosition(); ok {
			d := origin.DistanceTo(s.Position())
			p.DistanceM = &d
		}
	}
	return p
}

func (c *Client) ReadPump(manager *WebSocketManager) {
	defer func() {
		manager.drop(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(512)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		// The stream is server -> client only; reads just detect closure.
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				manager.logger.Debug("websocket closed unexpectedly", zap.Error(err))
			}
			return
		}
	}
}

func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			// One frame per event; the page parses each frame as one JSON document.
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
