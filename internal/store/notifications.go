package store

import (
	"time"

	"github.com/hackn3y/intentionalmovement-sub001/internal/metrics"
	"github.com/hackn3y/intentionalmovement-sub001/internal/model"
)

// Notifications returns a copy of the list, newest first.
func (s *Store) Notifications() []model.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Notification, len(s.notifications))
	copy(out, s.notifications)
	return out
}

// BeginNotificationFetch opens a new fetch generation for the notification
// stream.
func (s *Store) BeginNotificationFetch() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifGen++
	return s.notifGen
}

// CommitNotificationPage writes a fetched window. Offset 0 replaces the
// list, a later offset appends. The unread counter is recomputed over the
// merged list, so it always equals the number of unread notifications.
func (s *Store) CommitNotificationPage(gen uint64, offset int, items []model.Notification) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.notifGen {
		s.log.Debugw("discarding stale notification page", "gen", gen)
		return false
	}
	if offset == 0 {
		s.notifications = append([]model.Notification(nil), items...)
	} else {
		s.notifications = append(s.notifications, items...)
	}
	s.recountNotificationUnread()
	return true
}

// IngestNotification prepends a realtime-pushed notification.
func (s *Store) IngestNotification(n model.Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications = append([]model.Notification{n}, s.notifications...)
	if !n.IsRead {
		s.unreadNotifications++
	}
	metrics.NotificationsIngested.Inc()
}

// MarkNotificationRead flips one notification to read. The counter shrinks
// exactly once per notification: re-marking an already-read one changes
// nothing. Returns whether the transition happened.
func (s *Store) MarkNotificationRead(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.notifications {
		if s.notifications[i].ID != id {
			continue
		}
		if s.notifications[i].IsRead {
			return false
		}
		now := time.Now()
		s.notifications[i].IsRead = true
		s.notifications[i].ReadAt = &now
		if s.unreadNotifications > 0 {
			s.unreadNotifications--
		}
		return true
	}
	return false
}

// MarkAllNotificationsRead zeroes the counter and stamps every unread
// notification with a read timestamp.
func (s *Store) MarkAllNotificationsRead() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for i := range s.notifications {
		if !s.notifications[i].IsRead {
			s.notifications[i].IsRead = true
			s.notifications[i].ReadAt = &now
		}
	}
	s.unreadNotifications = 0
}

// DeleteNotification removes a notification; deleting an unread one shrinks
// the counter.
func (s *Store) DeleteNotification(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.notifications {
		if s.notifications[i].ID != id {
			continue
		}
		if !s.notifications[i].IsRead && s.unreadNotifications > 0 {
			s.unreadNotifications--
		}
		s.notifications = append(s.notifications[:i], s.notifications[i+1:]...)
		return
	}
}

// Callers hold s.mu.
func (s *Store) recountNotificationUnread() {
	count := 0
	for i := range s.notifications {
		if !s.notifications[i].IsRead {
			count++
		}
	}
	s.unreadNotifications = count
}
