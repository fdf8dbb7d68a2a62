package devserver

import (
	"encoding/json"
	"sync"

	"github.com/gofiber/websocket/v2"
)

type envelope struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

type wsClient struct {
	userID string
	conn   *websocket.Conn
	send   chan envelope
	done   chan struct{}
	once   sync.Once
}

func newWSClient(userID string, conn *websocket.Conn) *wsClient {
	return &wsClient{
		userID: userID,
		conn:   conn,
		send:   make(chan envelope, 16),
		done:   make(chan struct{}),
	}
}

// close stops the write pump. The send channel is never closed, so a
// concurrent push can at worst land in the buffer of a dead client.
func (c *wsClient) close() {
	c.once.Do(func() {
		close(c.done)
		if c.conn != nil {
			_ = c.conn.Close()
		}
	})
}

func (c *wsClient) writePump() {
	for {
		select {
		case msg := <-c.send:
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

// hub tracks one realtime connection per user.
type hub struct {
	mu      sync.RWMutex
	clients map[string]*wsClient
}

func newHub() *hub {
	return &hub{clients: make(map[string]*wsClient)}
}

func (h *hub) add(c *wsClient) {
	h.mu.Lock()
	old := h.clients[c.userID]
	h.clients[c.userID] = c
	h.mu.Unlock()
	if old != nil {
		old.close()
	}
}

func (h *hub) remove(c *wsClient) {
	h.mu.Lock()
	if h.clients[c.userID] == c {
		delete(h.clients, c.userID)
	}
	h.mu.Unlock()
	c.close()
}

// push delivers an event to one user, dropped silently when offline or the
// buffer is full.
func (h *hub) push(userID, event string, data interface{}) {
	h.mu.RLock()
	c := h.clients[userID]
	h.mu.RUnlock()
	if c == nil {
		return
	}
	select {
	case c.send <- envelope{Event: event, Data: data}:
	case <-c.done:
	default:
	}
}

// handleWS is the upgraded connection loop: register, then consume inbound
// frames (typing relays to the conversation counterpart, join/leave are
// accepted and ignored by the stub).
func (s *Server) handleWS(conn *websocket.Conn) {
	userID, _ := conn.Locals("user_id").(string)
	if userID == "" {
		_ = conn.Close()
		return
	}
	client := newWSClient(userID, conn)
	s.hub.add(client)
	go client.writePump()
	defer s.hub.remove(client)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var ev struct {
			Event string          `json:"event"`
			Data  json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(data, &ev); err != nil {
			continue
		}
		if ev.Event == "typing" {
			var p struct {
				ConversationID string `json:"conversationId"`
				IsTyping       bool   `json:"isTyping"`
			}
			if err := json.Unmarshal(ev.Data, &p); err != nil {
				continue
			}
			if peer := s.peerOf(p.ConversationID, userID); peer != "" {
				s.hub.push(peer, "typing", map[string]interface{}{
					"senderId":       userID,
					"conversationId": p.ConversationID,
					"isTyping":       p.IsTyping,
				})
			}
		}
	}
}
