package model

import "time"

// Wire payloads tolerate the field-name drift of the backend: Mongo-style
// "_id" next to "id", "read" next to "isRead", snake_case timestamps next to
// camelCase. Normalize() collapses each payload to the canonical entity
// exactly once, at the decode boundary, so nothing downstream branches on
// variants.

type MessagePayload struct {
	ID              string     `json:"id"`
	LegacyID        string     `json:"_id"`
	ConversationID  string     `json:"conversationId"`
	SenderID        string     `json:"senderId"`
	ReceiverID      string     `json:"receiverId"`
	Content         string     `json:"content"`
	MediaURL        string     `json:"mediaUrl"`
	Status          string     `json:"status"`
	CreatedAt       time.Time  `json:"createdAt"`
	LegacyCreatedAt *time.Time `json:"created_at"`
}

func (p MessagePayload) Normalize() Message {
	id := p.ID
	if id == "" {
		id = p.LegacyID
	}
	status := DeliveryStatus(p.Status)
	if status == "" {
		status = StatusSent
	}
	created := p.CreatedAt
	if created.IsZero() && p.LegacyCreatedAt != nil {
		created = *p.LegacyCreatedAt
	}
	return Message{
		ID:             id,
		ConversationID: p.ConversationID,
		SenderID:       p.SenderID,
		ReceiverID:     p.ReceiverID,
		Content:        p.Content,
		MediaURL:       p.MediaURL,
		Status:         status,
		CreatedAt:      created,
	}
}

type ConversationPayload struct {
	ID           string          `json:"id"`
	LegacyID     string          `json:"_id"`
	Participants []string        `json:"participants"`
	LastMessage  *MessagePayload `json:"lastMessage"`
	UnreadCount  int             `json:"unreadCount"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

func (p ConversationPayload) Normalize() Conversation {
	id := p.ID
	if id == "" {
		id = p.LegacyID
	}
	c := Conversation{
		ID:           id,
		Participants: p.Participants,
		UnreadCount:  p.UnreadCount,
		UpdatedAt:    p.UpdatedAt,
	}
	if p.LastMessage != nil {
		m := p.LastMessage.Normalize()
		c.LastMessage = &m
	}
	return c
}

type NotificationPayload struct {
	ID              string     `json:"id"`
	LegacyID        string     `json:"_id"`
	Type            string     `json:"type"`
	ActorID         string     `json:"actorId"`
	Message         string     `json:"message"`
	IsRead          *bool      `json:"isRead"`
	Read            *bool      `json:"read"`
	ReadAt          *time.Time `json:"readAt"`
	CreatedAt       time.Time  `json:"createdAt"`
	LegacyCreatedAt *time.Time `json:"created_at"`
}

func (p NotificationPayload) Normalize() Notification {
	id := p.ID
	if id == "" {
		id = p.LegacyID
	}
	typ := NotificationType(p.Type)
	switch typ {
	case NotifFollow, NotifLike, NotifComment, NotifAchievement, NotifProgram:
	default:
		typ = NotifGeneric
	}
	read := false
	switch {
	case p.IsRead != nil:
		read = *p.IsRead
	case p.Read != nil:
		read = *p.Read
	}
	created := p.CreatedAt
	if created.IsZero() && p.LegacyCreatedAt != nil {
		created = *p.LegacyCreatedAt
	}
	return Notification{
		ID:        id,
		Type:      typ,
		ActorID:   p.ActorID,
		Message:   p.Message,
		IsRead:    read,
		ReadAt:    p.ReadAt,
		CreatedAt: created,
	}
}

func NormalizeMessages(ps []MessagePayload) []Message {
	out := make([]Message, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.Normalize())
	}
	return out
}

func NormalizeConversations(ps []ConversationPayload) []Conversation {
	out := make([]Conversation, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.Normalize())
	}
	return out
}

func NormalizeNotifications(ps []NotificationPayload) []Notification {
	out := make([]Notification, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.Normalize())
	}
	return out
}
