package realtime

import (
	"encoding/json"
	"time"

	"github.com/hackn3y/intentionalmovement-sub001/internal/model"
)

type TypingPayload struct {
	SenderID       string `json:"senderId"`
	ConversationID string `json:"conversationId"`
	IsTyping       bool   `json:"isTyping"`
}

type MessageStatusPayload struct {
	MessageID      string `json:"messageId"`
	ConversationID string `json:"conversationId"`
	Status         string `json:"status"`
}

type AchievementPayload struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	UnlockedAt  time.Time `json:"unlockedAt"`
}

type ChallengeUpdatePayload struct {
	ChallengeID string `json:"challengeId"`
	Title       string `json:"title"`
	Progress    int    `json:"progress"`
	Goal        int    `json:"goal"`
}

type joinLeavePayload struct {
	ConversationID string `json:"conversationId"`
}

// Typed subscription helpers. Each returns a handle; unsubscribing is by
// handle only, so handlers registered by different consumers never displace
// one another.

func (c *Client) OnNewMessage(h func(model.MessagePayload)) Subscription {
	return c.bus.Subscribe(EventNewMessage, func(ev Envelope) {
		var p model.MessagePayload
		if err := json.Unmarshal(ev.Data, &p); err != nil {
			c.log.Warnw("bad new_message payload", "err", err)
			return
		}
		h(p)
	})
}

func (c *Client) OnNotification(h func(model.NotificationPayload)) Subscription {
	return c.bus.Subscribe(EventNotification, func(ev Envelope) {
		var p model.NotificationPayload
		if err := json.Unmarshal(ev.Data, &p); err != nil {
			c.log.Warnw("bad notification payload", "err", err)
			return
		}
		h(p)
	})
}

func (c *Client) OnAchievementUnlocked(h func(AchievementPayload)) Subscription {
	return c.bus.Subscribe(EventAchievementUnlocked, func(ev Envelope) {
		var p AchievementPayload
		if err := json.Unmarshal(ev.Data, &p); err != nil {
			c.log.Warnw("bad achievement payload", "err", err)
			return
		}
		h(p)
	})
}

func (c *Client) OnChallengeUpdate(h func(ChallengeUpdatePayload)) Subscription {
	return c.bus.Subscribe(EventChallengeUpdate, func(ev Envelope) {
		var p ChallengeUpdatePayload
		if err := json.Unmarshal(ev.Data, &p); err != nil {
			c.log.Warnw("bad challenge_update payload", "err", err)
			return
		}
		h(p)
	})
}

func (c *Client) OnTyping(h func(TypingPayload)) Subscription {
	return c.bus.Subscribe(EventTyping, func(ev Envelope) {
		var p TypingPayload
		if err := json.Unmarshal(ev.Data, &p); err != nil {
			return
		}
		h(p)
	})
}

func (c *Client) OnMessageStatus(h func(MessageStatusPayload)) Subscription {
	return c.bus.Subscribe(EventMessageStatus, func(ev Envelope) {
		var p MessageStatusPayload
		if err := json.Unmarshal(ev.Data, &p); err != nil {
			return
		}
		h(p)
	})
}

func (c *Client) Off(s Subscription) {
	c.bus.Unsubscribe(s)
}

// SendTyping reports typing state for a conversation.
func (c *Client) SendTyping(conversationID string, typing bool) error {
	return c.Emit(EventTyping, TypingPayload{ConversationID: conversationID, IsTyping: typing})
}

// JoinConversation tells the server which thread is on screen.
func (c *Client) JoinConversation(conversationID string) error {
	return c.Emit(EventJoinConversation, joinLeavePayload{ConversationID: conversationID})
}

func (c *Client) LeaveConversation(conversationID string) error {
	return c.Emit(EventLeaveConversation, joinLeavePayload{ConversationID: conversationID})
}
