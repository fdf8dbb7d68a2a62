// Package devserver is a self-contained stand-in for the production backend:
// the REST endpoints and realtime events the sync engine consumes, over
// in-memory state. It exists so the engine can be exercised end to end in
// development and integration tests.
package devserver

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hackn3y/intentionalmovement-sub001/internal/model"
)

type Server struct {
	app    *fiber.App
	log    *zap.SugaredLogger
	secret []byte
	hub    *hub

	mu           sync.Mutex
	users        map[string]model.User
	usersByEmail map[string]model.User
	convs        map[string]*conversation
	notifs       map[string][]model.Notification // newest first, per user
}

func New(jwtSecret string, log *zap.SugaredLogger) *Server {
	s := &Server{
		log:          log,
		secret:       []byte(jwtSecret),
		hub:          newHub(),
		users:        make(map[string]model.User),
		usersByEmail: make(map[string]model.User),
		convs:        make(map[string]*conversation),
		notifs:       make(map[string][]model.Notification),
	}
	s.seed()

	app := fiber.New(fiber.Config{DisableStartupMessage: true})

	app.Post("/auth/login", s.login)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		userID, err := s.verifyToken(c.Query("token"))
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid token"})
		}
		c.Locals("user_id", userID)
		return c.Next()
	})
	app.Get("/ws", websocket.New(s.handleWS))

	auth := app.Group("", s.requireAuth)
	auth.Get("/messages/conversations", s.listConversations)
	auth.Delete("/messages/conversations/:id", s.deleteConversation)
	auth.Get("/messages/:userId", s.listMessages)
	auth.Post("/messages", s.sendMessage)
	auth.Get("/notifications", s.listNotifications)
	auth.Get("/notifications/unread-count", s.unreadCount)
	auth.Put("/notifications/mark-all-read", s.markAllRead)
	auth.Put("/notifications/:id/read", s.markRead)
	auth.Delete("/notifications/:id", s.deleteNotification)

	s.app = app
	return s
}

// App exposes the fiber app for app.Test in tests.
func (s *Server) App() *fiber.App { return s.app }

func (s *Server) Listen(addr string) error {
	s.log.Infow("dev server listening", "addr", addr)
	return s.app.Listen(addr)
}

func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

func (s *Server) login(c *fiber.Ctx) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
	}
	s.mu.Lock()
	u, ok := s.usersByEmail[req.Email]
	s.mu.Unlock()
	// any non-empty password passes, this is a stub
	if !ok || req.Password == "" {
		return c.Status(400).JSON(fiber.Map{"error": "invalid credentials"})
	}
	token, err := s.mintToken(u.ID, u.Username)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "token mint failed"})
	}
	return c.JSON(fiber.Map{"status": "ok", "data": fiber.Map{"token": token, "user": u}})
}

func (s *Server) listConversations(c *fiber.Ctx) error {
	user := c.Locals("user_id").(string)
	s.mu.Lock()
	convs := s.conversationsFor(user)
	s.mu.Unlock()
	return c.JSON(fiber.Map{"status": "ok", "data": convs})
}

func (s *Server) listMessages(c *fiber.Ctx) error {
	user := c.Locals("user_id").(string)
	counterpart := c.Params("userId")
	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", 50)

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, conv := range s.convs {
		if conv.has(user) && conv.has(counterpart) {
			msgs := threadPage(conv.messages, page, limit)
			if page <= 1 {
				// opening the thread implicitly reads it
				conv.unreadBy[user] = 0
			}
			return c.JSON(fiber.Map{"status": "ok", "data": msgs})
		}
	}
	return c.JSON(fiber.Map{"status": "ok", "data": []model.Message{}})
}

func (s *Server) sendMessage(c *fiber.Ctx) error {
	sender := c.Locals("user_id").(string)
	var req struct {
		ReceiverID string `json:"receiverId"`
		Content    string `json:"content"`
		MediaURL   string `json:"mediaUrl"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
	}
	if req.ReceiverID == "" || (req.Content == "" && req.MediaURL == "") {
		return c.Status(400).JSON(fiber.Map{"error": "receiverId and content are required"})
	}

	s.mu.Lock()
	if _, ok := s.users[req.ReceiverID]; !ok {
		s.mu.Unlock()
		return c.Status(404).JSON(fiber.Map{"error": "recipient not found"})
	}
	conv := s.findOrCreateConv(sender, req.ReceiverID)
	m := model.Message{
		ID:             uuid.NewString(),
		ConversationID: conv.id,
		SenderID:       sender,
		ReceiverID:     req.ReceiverID,
		Content:        req.Content,
		MediaURL:       req.MediaURL,
		Status:         model.StatusSent,
		CreatedAt:      time.Now().UTC(),
	}
	conv.messages = append(conv.messages, m)
	conv.updatedAt = m.CreatedAt
	conv.unreadBy[req.ReceiverID]++
	s.mu.Unlock()

	s.hub.push(req.ReceiverID, "new_message", m)
	s.hub.push(sender, "message_status", fiber.Map{
		"messageId":      m.ID,
		"conversationId": m.ConversationID,
		"status":         string(model.StatusDelivered),
	})
	return c.Status(201).JSON(fiber.Map{"status": "ok", "data": m})
}

func (s *Server) deleteConversation(c *fiber.Ctx) error {
	user := c.Locals("user_id").(string)
	id := c.Params("id")
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.convs[id]
	if !ok || !conv.has(user) {
		return c.Status(404).JSON(fiber.Map{"error": "conversation not found"})
	}
	delete(s.convs, id)
	return c.JSON(fiber.Map{"status": "ok"})
}

func (s *Server) listNotifications(c *fiber.Ctx) error {
	user := c.Locals("user_id").(string)
	limit := c.QueryInt("limit", 20)
	offset := c.QueryInt("offset", 0)
	unreadOnly := c.Query("unreadOnly") == "true"

	s.mu.Lock()
	defer s.mu.Unlock()
	all := s.notifs[user]
	filtered := make([]model.Notification, 0, len(all))
	for _, n := range all {
		if unreadOnly && n.IsRead {
			continue
		}
		filtered = append(filtered, n)
	}
	if offset >= len(filtered) {
		return c.JSON(fiber.Map{"status": "ok", "data": []model.Notification{}})
	}
	end := offset + limit
	if end > len(filtered) {
		end = len(filtered)
	}
	return c.JSON(fiber.Map{"status": "ok", "data": filtered[offset:end]})
}

func (s *Server) unreadCount(c *fiber.Ctx) error {
	user := c.Locals("user_id").(string)
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, n := range s.notifs[user] {
		if !n.IsRead {
			count++
		}
	}
	return c.JSON(fiber.Map{"status": "ok", "data": fiber.Map{"count": count}})
}

func (s *Server) markRead(c *fiber.Ctx) error {
	user := c.Locals("user_id").(string)
	id := c.Params("id")
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.notifs[user]
	for i := range list {
		if list[i].ID == id {
			if !list[i].IsRead {
				now := time.Now().UTC()
				list[i].IsRead = true
				list[i].ReadAt = &now
			}
			return c.JSON(fiber.Map{"status": "ok"})
		}
	}
	return c.Status(404).JSON(fiber.Map{"error": "notification not found"})
}

func (s *Server) markAllRead(c *fiber.Ctx) error {
	user := c.Locals("user_id").(string)
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	list := s.notifs[user]
	for i := range list {
		if !list[i].IsRead {
			list[i].IsRead = true
			list[i].ReadAt = &now
		}
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

func (s *Server) deleteNotification(c *fiber.Ctx) error {
	user := c.Locals("user_id").(string)
	id := c.Params("id")
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.notifs[user]
	for i := range list {
		if list[i].ID == id {
			s.notifs[user] = append(list[:i], list[i+1:]...)
			return c.JSON(fiber.Map{"status": "ok"})
		}
	}
	return c.Status(404).JSON(fiber.Map{"error": "notification not found"})
}

// PushNotification injects a notification for a user and fans it out over
// the realtime channel. Used by the demo wiring.
func (s *Server) PushNotification(userID string, n model.Notification) {
	s.mu.Lock()
	s.notifs[userID] = append([]model.Notification{n}, s.notifs[userID]...)
	s.mu.Unlock()
	s.hub.push(userID, "notification", n)
}

// PushAchievement fans an achievement unlock out to one user.
func (s *Server) PushAchievement(userID, name, description string) {
	s.hub.push(userID, "achievement_unlocked", fiber.Map{
		"id":          uuid.NewString(),
		"name":        name,
		"description": description,
		"unlockedAt":  time.Now().UTC(),
	})
}
