// Package engine wires the REST client, the realtime client and the store
// together. It owns which conversation is on screen, routes every realtime
// event into the store, and pairs each fetch with a store commit under the
// store's generation guard. All dependencies are passed in explicitly; there
// are no package-level singletons.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hackn3y/intentionalmovement-sub001/internal/api"
	"github.com/hackn3y/intentionalmovement-sub001/internal/apperr"
	"github.com/hackn3y/intentionalmovement-sub001/internal/model"
	"github.com/hackn3y/intentionalmovement-sub001/internal/realtime"
	"github.com/hackn3y/intentionalmovement-sub001/internal/session"
	"github.com/hackn3y/intentionalmovement-sub001/internal/store"
)

// Area names a slice of UI-facing state for error reporting.
type Area string

const (
	AreaConversations Area = "conversations"
	AreaMessages      Area = "messages"
	AreaNotifications Area = "notifications"
	AreaSend          Area = "send"
)

type Engine struct {
	log  *zap.SugaredLogger
	sess *session.Store
	api  *api.Client
	rt   *realtime.Client
	st   *store.Store

	mu         sync.Mutex
	subs       []realtime.Subscription
	lastErr    map[Area]string
	openConvID string
}

func New(sess *session.Store, apiClient *api.Client, rt *realtime.Client, st *store.Store, log *zap.SugaredLogger) *Engine {
	return &Engine{
		log:     log,
		sess:    sess,
		api:     apiClient,
		rt:      rt,
		st:      st,
		lastErr: make(map[Area]string),
	}
}

func (e *Engine) Store() *store.Store { return e.st }

func (e *Engine) Realtime() *realtime.Client { return e.rt }

// Start subscribes to the realtime bus and connects. Connect is a no-op
// without a session, so Start before login is harmless.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if len(e.subs) == 0 {
		e.subs = []realtime.Subscription{
			e.rt.OnNewMessage(e.onNewMessage),
			e.rt.OnNotification(e.onNotification),
			e.rt.OnAchievementUnlocked(e.onAchievement),
			e.rt.OnChallengeUpdate(e.onChallengeUpdate),
			e.rt.OnMessageStatus(e.onMessageStatus),
		}
	}
	e.mu.Unlock()
	return e.rt.Connect(ctx)
}

// Stop unsubscribes and tears the realtime connection down.
func (e *Engine) Stop() {
	e.mu.Lock()
	subs := e.subs
	e.subs = nil
	e.mu.Unlock()
	for _, s := range subs {
		e.rt.Off(s)
	}
	e.rt.Disconnect()
}

func (e *Engine) onNewMessage(p model.MessagePayload) {
	m := p.Normalize()
	self := e.sess.UserID()
	counterpart := m.SenderID
	inbound := true
	if m.SenderID == self {
		// echo of our own message from another device
		counterpart = m.ReceiverID
		inbound = false
	}
	e.st.IngestMessage(counterpart, m, inbound)
}

func (e *Engine) onNotification(p model.NotificationPayload) {
	e.st.IngestNotification(p.Normalize())
}

// Achievement unlocks arrive as their own event but surface in the
// notification feed like everything else.
func (e *Engine) onAchievement(p realtime.AchievementPayload) {
	id := p.ID
	if id == "" {
		id = uuid.NewString()
	}
	e.st.IngestNotification(model.Notification{
		ID:        id,
		Type:      model.NotifAchievement,
		Message:   fmt.Sprintf("Achievement unlocked: %s", p.Name),
		CreatedAt: p.UnlockedAt,
	})
}

func (e *Engine) onChallengeUpdate(p realtime.ChallengeUpdatePayload) {
	e.st.IngestNotification(model.Notification{
		ID:        uuid.NewString(),
		Type:      model.NotifProgram,
		Message:   fmt.Sprintf("%s: %d/%d", p.Title, p.Progress, p.Goal),
		CreatedAt: time.Now().UTC(),
	})
}

func (e *Engine) onMessageStatus(p realtime.MessageStatusPayload) {
	conv, ok := e.st.ConversationByID(p.ConversationID)
	if !ok {
		return
	}
	counterpart := conv.Counterpart(e.sess.UserID())
	if counterpart == "" {
		return
	}
	e.st.UpdateMessageStatus(counterpart, p.MessageID, model.DeliveryStatus(p.Status))
}

// FetchConversations replaces the conversation list. On failure the store
// is left untouched and the error surfaces once.
func (e *Engine) FetchConversations(ctx context.Context) error {
	convs, err := e.api.ListConversations(ctx)
	if err != nil {
		e.setErr(AreaConversations, err)
		return err
	}
	e.st.SetConversations(convs)
	e.clearErr(AreaConversations)
	return nil
}

// DeleteConversation removes a conversation server-side and refetches the
// list; deletion is not modeled locally beyond the refetch.
func (e *Engine) DeleteConversation(ctx context.Context, conversationID string) error {
	if err := e.api.DeleteConversation(ctx, conversationID); err != nil {
		e.setErr(AreaConversations, err)
		return err
	}
	return e.FetchConversations(ctx)
}

// FetchMessages loads one page of a thread under the generation guard: if a
// newer fetch for the same counterpart starts before this one resolves, the
// result is dropped.
func (e *Engine) FetchMessages(ctx context.Context, counterpart string, page, limit int) error {
	gen := e.st.BeginMessageFetch(counterpart)
	msgs, err := e.api.ListMessages(ctx, counterpart, page, limit)
	if err != nil {
		e.setErr(AreaMessages, err)
		return err
	}
	e.st.CommitMessagePage(counterpart, gen, page, msgs)
	e.clearErr(AreaMessages)
	return nil
}

func (e *Engine) FetchNotifications(ctx context.Context, limit, offset int, unreadOnly bool) error {
	gen := e.st.BeginNotificationFetch()
	items, err := e.api.ListNotifications(ctx, limit, offset, unreadOnly)
	if err != nil {
		e.setErr(AreaNotifications, err)
		return err
	}
	e.st.CommitNotificationPage(gen, offset, items)
	e.clearErr(AreaNotifications)
	return nil
}

// Send posts a message. There is no optimistic append: the thread only
// changes once the server accepted the message, and a rejected send leaves
// the store exactly as it was.
func (e *Engine) Send(ctx context.Context, receiverID, content, mediaURL string) (*model.Message, error) {
	m, err := e.api.SendMessage(ctx, receiverID, content, mediaURL)
	if err != nil {
		e.setErr(AreaSend, err)
		return nil, err
	}
	e.st.IngestMessage(receiverID, *m, false)
	e.clearErr(AreaSend)
	return m, nil
}

// OpenConversation marks the thread with counterpart as on-screen, tells
// the server, clears its unread count and refetches the first page.
func (e *Engine) OpenConversation(ctx context.Context, counterpart string, limit int) error {
	e.st.SetOpen(counterpart)
	if conv, ok := e.st.ConversationWith(counterpart); ok {
		e.st.MarkConversationRead(conv.ID)
		e.mu.Lock()
		e.openConvID = conv.ID
		e.mu.Unlock()
		if err := e.rt.JoinConversation(conv.ID); err != nil {
			e.log.Debugw("join_conversation not sent", "err", err)
		}
	}
	return e.FetchMessages(ctx, counterpart, 1, limit)
}

func (e *Engine) CloseConversation() {
	e.mu.Lock()
	convID := e.openConvID
	e.openConvID = ""
	e.mu.Unlock()
	if convID != "" {
		if err := e.rt.LeaveConversation(convID); err != nil {
			e.log.Debugw("leave_conversation not sent", "err", err)
		}
	}
	e.st.SetOpen("")
}

// MarkNotificationRead flips a notification server-side first; the store
// only changes after the server accepted.
func (e *Engine) MarkNotificationRead(ctx context.Context, id string) error {
	if err := e.api.MarkNotificationRead(ctx, id); err != nil {
		e.setErr(AreaNotifications, err)
		return err
	}
	e.st.MarkNotificationRead(id)
	e.clearErr(AreaNotifications)
	return nil
}

func (e *Engine) MarkAllNotificationsRead(ctx context.Context) error {
	if err := e.api.MarkAllNotificationsRead(ctx); err != nil {
		e.setErr(AreaNotifications, err)
		return err
	}
	e.st.MarkAllNotificationsRead()
	e.clearErr(AreaNotifications)
	return nil
}

// ServerUnreadNotifications fetches the server-side unread total, a
// cross-check for the local counter after a sync.
func (e *Engine) ServerUnreadNotifications(ctx context.Context) (int, error) {
	count, err := e.api.UnreadNotificationCount(ctx)
	if err != nil {
		e.setErr(AreaNotifications, err)
		return 0, err
	}
	return count, nil
}

func (e *Engine) DeleteNotification(ctx context.Context, id string) error {
	if err := e.api.DeleteNotification(ctx, id); err != nil {
		e.setErr(AreaNotifications, err)
		return err
	}
	e.st.DeleteNotification(id)
	e.clearErr(AreaNotifications)
	return nil
}

// Typing reports typing state for the open conversation, when connected.
func (e *Engine) Typing(typing bool) {
	e.mu.Lock()
	convID := e.openConvID
	e.mu.Unlock()
	if convID == "" {
		return
	}
	if err := e.rt.SendTyping(convID, typing); err != nil {
		e.log.Debugw("typing not sent", "err", err)
	}
}

// LastError returns the user-facing message of the most recent failure in
// an area, "" when the last operation succeeded.
func (e *Engine) LastError(area Area) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastErr[area]
}

func (e *Engine) setErr(area Area, err error) {
	e.mu.Lock()
	e.lastErr[area] = apperr.MessageOf(err)
	e.mu.Unlock()
	if apperr.IsAuth(err) {
		// the 401 path cleared the credentials; the socket can't outlive them
		e.rt.Disconnect()
	}
}

func (e *Engine) clearErr(area Area) {
	e.mu.Lock()
	delete(e.lastErr, area)
	e.mu.Unlock()
}
