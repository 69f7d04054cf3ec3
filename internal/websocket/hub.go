package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
	"go.uber.org/zap"

	"github.com/aiimpactmedia/casting/internal/model"
	"github.com/aiimpactmedia/casting/internal/service"
)

// Client represents a WebSocket client
type Client struct {
	SessionID string
	Conn      *websocket.Conn
	Send      chan []byte

	// closed is set under Hub.mu once Send has been closed
	closed bool
}

// Hub maintains active WebSocket connections
type Hub struct {
	// Clients grouped by session ID
	clients map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan *BroadcastMessage

	// done is closed when Run returns
	done     chan struct{}
	stopOnce sync.Once

	logger *zap.Logger
	mu     sync.RWMutex
}

// BroadcastMessage represents a message to broadcast
type BroadcastMessage struct {
	SessionID string
	Message   []byte
}

// NewHub creates a new Hub
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients:    make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *BroadcastMessage, 256),
		done:       make(chan struct{}),
		logger:     logger.With(zap.String("component", "websocket")),
	}
}

// Run starts the hub's main loop
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.stop()
			return

		case client := <-h.register:
			h.mu.Lock()
			if h.clients[client.SessionID] == nil {
				h.clients[client.SessionID] = make(map[*Client]bool)
			}
			h.clients[client.SessionID][client] = true
			h.mu.Unlock()
			h.logger.Debug("client registered", zap.String("sessionId", client.SessionID))

		case client := <-h.unregister:
			h.mu.Lock()
			h.removeLocked(client)
			h.mu.Unlock()
			h.logger.Debug("client unregistered", zap.String("sessionId", client.SessionID))

		case msg := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients[msg.SessionID] {
				select {
				case client.Send <- msg.Message:
				default:
					h.removeLocked(client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// stop disconnects every client and releases callers blocked on the hub
func (h *Hub) stop() {
	h.stopOnce.Do(func() {
		close(h.done)
		h.mu.Lock()
		for _, clients := range h.clients {
			for client := range clients {
				h.removeLocked(client)
			}
		}
		h.mu.Unlock()
	})
}

// removeLocked must be called with h.mu held
func (h *Hub) removeLocked(client *Client) {
	clients, ok := h.clients[client.SessionID]
	if !ok {
		return
	}
	if _, ok := clients[client]; !ok {
		return
	}
	delete(clients, client)
	client.closed = true
	close(client.Send)
	if len(clients) == 0 {
		delete(h.clients, client.SessionID)
	}
}

// Register adds a new client. After the hub stopped the client is closed
// right away.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		h.mu.Lock()
		if !client.closed {
			client.closed = true
			close(client.Send)
		}
		h.mu.Unlock()
	}
}

// Unregister removes a client
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Reply queues a direct message to one client. Returns false when the
// client was already evicted or its buffer is full.
func (h *Hub) Reply(client *Client, data []byte) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if client.closed {
		return false
	}
	select {
	case client.Send <- data:
		return true
	default:
		return false
	}
}

// Subscribers returns how many clients listen on a session
func (h *Hub) Subscribers(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[sessionID])
}

// BroadcastProgress sends a pipeline progress update to session subscribers
func (h *Hub) BroadcastProgress(sessionID string, progress int, phase model.PipelinePhase, step string) {
	h.send(sessionID, model.WSProgressMessage{
		Type:        model.WSMessageTypeProgress,
		SessionID:   sessionID,
		Progress:    progress,
		Phase:       phase,
		CurrentStep: step,
	})
}

// BroadcastComplete sends a completion message to session subscribers
func (h *Hub) BroadcastComplete(sessionID string, result interface{}) {
	h.send(sessionID, model.WSCompleteMessage{
		Type:      model.WSMessageTypeComplete,
		SessionID: sessionID,
		Result:    result,
	})
}

// BroadcastError sends an error message to session subscribers
func (h *Hub) BroadcastError(sessionID string, code, message string) {
	h.send(sessionID, model.WSErrorMessage{
		Type:      model.WSMessageTypeError,
		SessionID: sessionID,
		Error: model.WSError{
			Code:    code,
			Message: message,
		},
	})
}

// send never blocks the caller; a saturated hub drops the update
func (h *Hub) send(sessionID string, msg interface{}) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("failed to marshal message", zap.Error(err))
		return
	}

	select {
	case h.broadcast <- &BroadcastMessage{SessionID: sessionID, Message: data}:
	default:
		h.logger.Warn("broadcast queue full, dropping message", zap.String("sessionId", sessionID))
	}
}

// Observer reports one session's submission pipeline to its subscribers
func (h *Hub) Observer(sessionID string) service.ProgressObserver {
	return &sessionObserver{hub: h, sessionID: sessionID}
}

type sessionObserver struct {
	hub       *Hub
	sessionID string
}

func (o *sessionObserver) Progress(phase model.PipelinePhase, percent int, current string) {
	o.hub.BroadcastProgress(o.sessionID, percent, phase, current)
}

func (o *sessionObserver) Completed(rec model.SubmissionRecord) {
	o.hub.BroadcastComplete(o.sessionID, rec)
}

func (o *sessionObserver) Failed(err error) {
	o.hub.BroadcastError(o.sessionID, "SUBMISSION_FAILED", model.SubmissionFailedMessage)
}

// HandleConnection handles a WebSocket connection
func (h *Hub) HandleConnection(c *websocket.Conn, sessionID string) {
	client := &Client{
		SessionID: sessionID,
		Conn:      c,
		Send:      make(chan []byte, 256),
	}

	h.Register(client)
	defer h.Unregister(client)

	// Start writer goroutine
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case message, ok := <-client.Send:
				if !ok {
					_ = c.WriteMessage(websocket.CloseMessage, []byte{})
					return
				}
				if err := c.WriteMessage(websocket.TextMessage, message); err != nil {
					return
				}

			case <-ticker.C:
				// Send ping for keep-alive
				if err := c.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	// Reader loop
	for {
		_, message, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Warn("websocket error", zap.Error(err))
			}
			break
		}

		var msg model.WSMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}

		if msg.Type == model.WSMessageTypePing {
			pong, _ := json.Marshal(model.WSMessage{Type: model.WSMessageTypePong})
			h.Reply(client, pong)
		}
	}
}
