package model

import "time"

// DeliveryStatus of a message. Only "sent" is guaranteed by the backend;
// "delivered" and "read" arrive via message_status events when available.
type DeliveryStatus string

const (
	StatusSent      DeliveryStatus = "sent"
	StatusDelivered DeliveryStatus = "delivered"
	StatusRead      DeliveryStatus = "read"
)

type NotificationType string

const (
	NotifFollow      NotificationType = "follow"
	NotifLike        NotificationType = "like"
	NotifComment     NotificationType = "comment"
	NotifAchievement NotificationType = "achievement"
	NotifProgram     NotificationType = "program"
	NotifGeneric     NotificationType = "generic"
)

type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	Avatar   string `json:"avatar,omitempty"`
}

type Message struct {
	ID             string         `json:"id"`
	ConversationID string         `json:"conversationId"`
	SenderID       string         `json:"senderId"`
	ReceiverID     string         `json:"receiverId"`
	Content        string         `json:"content"`
	MediaURL       string         `json:"mediaUrl,omitempty"`
	Status         DeliveryStatus `json:"status"`
	CreatedAt      time.Time      `json:"createdAt"`
}

// Conversation is a direct two-party thread. Participants always holds
// exactly two user ids.
type Conversation struct {
	ID           string    `json:"id"`
	Participants []string  `json:"participants"`
	LastMessage  *Message  `json:"lastMessage,omitempty"`
	UnreadCount  int       `json:"unreadCount"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Counterpart returns the participant other than selfID, or "" when the
// conversation does not include selfID.
func (c Conversation) Counterpart(selfID string) string {
	for _, p := range c.Participants {
		if p != selfID {
			return p
		}
	}
	return ""
}

type Notification struct {
	ID        string           `json:"id"`
	Type      NotificationType `json:"type"`
	ActorID   string           `json:"actorId,omitempty"`
	Message   string           `json:"message"`
	IsRead    bool             `json:"isRead"`
	ReadAt    *time.Time       `json:"readAt,omitempty"`
	CreatedAt time.Time        `json:"createdAt"`
}
