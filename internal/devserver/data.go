package devserver

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/hackn3y/intentionalmovement-sub001/internal/model"
)

type conversation struct {
	id           string
	participants [2]string
	messages     []model.Message // ascending
	unreadBy     map[string]int
	updatedAt    time.Time
}

func (c *conversation) has(userID string) bool {
	return c.participants[0] == userID || c.participants[1] == userID
}

func (c *conversation) peer(userID string) string {
	if c.participants[0] == userID {
		return c.participants[1]
	}
	if c.participants[1] == userID {
		return c.participants[0]
	}
	return ""
}

// view serializes the conversation as seen by one participant.
func (c *conversation) view(userID string) model.Conversation {
	out := model.Conversation{
		ID:           c.id,
		Participants: []string{c.participants[0], c.participants[1]},
		UnreadCount:  c.unreadBy[userID],
		UpdatedAt:    c.updatedAt,
	}
	if n := len(c.messages); n > 0 {
		last := c.messages[n-1]
		out.LastMessage = &last
	}
	return out
}

// seed installs the demo accounts and a little starting state. Callers hold
// s.mu or run before the server is reachable.
func (s *Server) seed() {
	users := []model.User{
		{ID: "u-maya", Username: "maya", Email: "maya@intentionalmovement.com"},
		{ID: "u-jordan", Username: "jordan", Email: "jordan@intentionalmovement.com"},
		{ID: "u-riley", Username: "riley", Email: "riley@intentionalmovement.com"},
	}
	for _, u := range users {
		s.users[u.ID] = u
		s.usersByEmail[u.Email] = u
	}

	now := time.Now().UTC()
	conv := &conversation{
		id:           uuid.NewString(),
		participants: [2]string{"u-maya", "u-jordan"},
		unreadBy:     map[string]int{},
		updatedAt:    now,
	}
	conv.messages = []model.Message{
		{
			ID: uuid.NewString(), ConversationID: conv.id,
			SenderID: "u-jordan", ReceiverID: "u-maya",
			Content: "Welcome to the movement challenge!", Status: model.StatusRead,
			CreatedAt: now.Add(-2 * time.Hour),
		},
		{
			ID: uuid.NewString(), ConversationID: conv.id,
			SenderID: "u-maya", ReceiverID: "u-jordan",
			Content: "Thanks, just finished week one.", Status: model.StatusRead,
			CreatedAt: now.Add(-time.Hour),
		},
	}
	s.convs[conv.id] = conv

	for _, u := range users {
		s.notifs[u.ID] = []model.Notification{
			{
				ID:        uuid.NewString(),
				Type:      model.NotifProgram,
				Message:   "Your 30-day mobility program starts today",
				CreatedAt: now.Add(-30 * time.Minute),
			},
			{
				ID:        uuid.NewString(),
				Type:      model.NotifGeneric,
				Message:   "Welcome to Intentional Movement",
				IsRead:    true,
				CreatedAt: now.Add(-24 * time.Hour),
			},
		}
	}
}

// findOrCreateConv returns the direct conversation between two users,
// creating it on first message send. Callers hold s.mu.
func (s *Server) findOrCreateConv(a, b string) *conversation {
	for _, c := range s.convs {
		if c.has(a) && c.has(b) {
			return c
		}
	}
	c := &conversation{
		id:           uuid.NewString(),
		participants: [2]string{a, b},
		unreadBy:     map[string]int{},
		updatedAt:    time.Now().UTC(),
	}
	s.convs[c.id] = c
	return c
}

func (s *Server) peerOf(conversationID, userID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c := s.convs[conversationID]; c != nil {
		return c.peer(userID)
	}
	return ""
}

// conversationsFor lists a user's conversations, most recent first.
// Callers hold s.mu.
func (s *Server) conversationsFor(userID string) []model.Conversation {
	out := make([]model.Conversation, 0, len(s.convs))
	for _, c := range s.convs {
		if c.has(userID) {
			out = append(out, c.view(userID))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out
}

// threadPage slices one page out of the thread between self and
// counterpart. Page 1 is the most recent window; every page is ascending
// within itself. Callers hold s.mu.
func threadPage(msgs []model.Message, page, limit int) []model.Message {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 50
	}
	end := len(msgs) - (page-1)*limit
	if end <= 0 {
		return []model.Message{}
	}
	start := end - limit
	if start < 0 {
		start = 0
	}
	return msgs[start:end]
}
