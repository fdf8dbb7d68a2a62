// Package store holds the client-side view of conversations, messages and
// notifications. It is the single owner of that state: the REST and realtime
// clients only produce payloads that get committed here. One mutex serializes
// every mutation, and each fetchable collection carries a monotonic
// generation number so a slow fetch that resolves after a newer one started
// is discarded instead of written.
package store

import (
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/hackn3y/intentionalmovement-sub001/internal/model"
)

type Store struct {
	mu  sync.Mutex
	log *zap.SugaredLogger

	conversations map[string]*model.Conversation // by conversation id
	messages      map[string][]model.Message     // by counterpart user id, ascending
	msgGen        map[string]uint64              // fetch generation per counterpart
	open          string                         // counterpart of the open conversation, "" when none

	unreadMessages int

	notifications       []model.Notification // newest first
	notifGen            uint64
	unreadNotifications int
}

func New(log *zap.SugaredLogger) *Store {
	return &Store{
		log:           log,
		conversations: make(map[string]*model.Conversation),
		messages:      make(map[string][]model.Message),
		msgGen:        make(map[string]uint64),
	}
}

// SetOpen marks the conversation with the given counterpart as on-screen.
// Pass "" when no conversation is open.
func (s *Store) SetOpen(counterpart string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.open = counterpart
}

func (s *Store) Open() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open
}

// Conversations returns the conversation list ordered by recency.
func (s *Store) Conversations() []model.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Conversation, 0, len(s.conversations))
	for _, c := range s.conversations {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out
}

// Messages returns a copy of the thread with counterpart, ascending by
// creation time.
func (s *Store) Messages(counterpart string) []model.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs := s.messages[counterpart]
	out := make([]model.Message, len(msgs))
	copy(out, msgs)
	return out
}

func (s *Store) UnreadMessages() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unreadMessages
}

func (s *Store) UnreadNotifications() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unreadNotifications
}

// recountMessageUnread recomputes the global counter from the per-
// conversation counters. Callers hold s.mu.
func (s *Store) recountMessageUnread() {
	total := 0
	for _, c := range s.conversations {
		total += c.UnreadCount
	}
	s.unreadMessages = total
}
