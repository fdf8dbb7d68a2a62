package store

import (
	"time"

	"github.com/hackn3y/intentionalmovement-sub001/internal/metrics"
	"github.com/hackn3y/intentionalmovement-sub001/internal/model"
)

// SetConversations replaces the conversation list with a fetched page and
// recomputes the global unread-message counter from the per-conversation
// counters, keeping the two consistent by construction.
func (s *Store) SetConversations(convs []model.Conversation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversations = make(map[string]*model.Conversation, len(convs))
	for i := range convs {
		c := convs[i]
		s.conversations[c.ID] = &c
	}
	s.recountMessageUnread()
}

// BeginMessageFetch opens a new fetch generation for a counterpart's thread.
// Any earlier in-flight fetch for the same counterpart becomes stale.
func (s *Store) BeginMessageFetch(counterpart string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgGen[counterpart]++
	return s.msgGen[counterpart]
}

// CommitMessagePage writes a fetched page into the thread. Page 1 replaces
// the list; later pages hold older messages and are prepended, so index
// order stays chronological ascending as long as each page is ascending
// within itself. A stale generation is discarded and false is returned.
func (s *Store) CommitMessagePage(counterpart string, gen uint64, page int, msgs []model.Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.msgGen[counterpart] {
		s.log.Debugw("discarding stale message page", "counterpart", counterpart, "gen", gen)
		return false
	}
	if page <= 1 {
		s.messages[counterpart] = append([]model.Message(nil), msgs...)
	} else {
		merged := make([]model.Message, 0, len(msgs)+len(s.messages[counterpart]))
		merged = append(merged, msgs...)
		merged = append(merged, s.messages[counterpart]...)
		s.messages[counterpart] = merged
	}
	return true
}

// IngestMessage merges one realtime-delivered or just-sent message into the
// counterpart's thread. A message whose id is already present is dropped
// and false is returned. For an inbound message on a conversation that is
// not open, the conversation's unread counter and the global counter each
// grow by one; the open conversation never accrues unread (the open screen
// refetches, which implicitly marks it read).
func (s *Store) IngestMessage(counterpart string, m model.Message, inbound bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.messages[counterpart] {
		if existing.ID == m.ID {
			metrics.MessagesDeduplicated.Inc()
			return false
		}
	}
	s.messages[counterpart] = append(s.messages[counterpart], m)
	metrics.MessagesIngested.Inc()

	conv := s.conversations[m.ConversationID]
	if conv == nil {
		conv = &model.Conversation{
			ID:           m.ConversationID,
			Participants: []string{m.SenderID, m.ReceiverID},
		}
		s.conversations[m.ConversationID] = conv
	}
	last := m
	conv.LastMessage = &last
	conv.UpdatedAt = m.CreatedAt
	if conv.UpdatedAt.IsZero() {
		conv.UpdatedAt = time.Now()
	}

	if inbound && counterpart != s.open {
		conv.UnreadCount++
		s.unreadMessages++
	}
	return true
}

// MarkConversationRead zeroes a conversation's unread counter, shrinking
// the global counter by the same amount.
func (s *Store) MarkConversationRead(conversationID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv := s.conversations[conversationID]
	if conv == nil || conv.UnreadCount == 0 {
		return
	}
	s.unreadMessages -= conv.UnreadCount
	if s.unreadMessages < 0 {
		s.unreadMessages = 0
	}
	conv.UnreadCount = 0
}

// UpdateMessageStatus applies a message_status event. Unknown ids are
// ignored.
func (s *Store) UpdateMessageStatus(counterpart, messageID string, status model.DeliveryStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs := s.messages[counterpart]
	for i := range msgs {
		if msgs[i].ID == messageID {
			msgs[i].Status = status
			if conv := s.conversations[msgs[i].ConversationID]; conv != nil && conv.LastMessage != nil && conv.LastMessage.ID == messageID {
				conv.LastMessage.Status = status
			}
			return
		}
	}
}

// ConversationByID returns a conversation by its id, if loaded.
func (s *Store) ConversationByID(id string) (model.Conversation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c := s.conversations[id]; c != nil {
		return *c, true
	}
	return model.Conversation{}, false
}

// ConversationWith returns the conversation whose participant set includes
// counterpart, if loaded.
func (s *Store) ConversationWith(counterpart string) (model.Conversation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.conversations {
		for _, p := range c.Participants {
			if p == counterpart {
				return *c, true
			}
		}
	}
	return model.Conversation{}, false
}
