package store

import (
	"testing"
	"time"

	"github.com/hackn3y/intentionalmovement-sub001/internal/model"
)

func notif(id string, read bool, at time.Time) model.Notification {
	return model.Notification{
		ID:        id,
		Type:      model.NotifGeneric,
		Message:   "n-" + id,
		IsRead:    read,
		CreatedAt: at,
	}
}

// checkUnreadInvariant asserts unreadCount == count(isRead == false).
func checkUnreadInvariant(t *testing.T, s *Store) {
	t.Helper()
	count := 0
	for _, n := range s.Notifications() {
		if !n.IsRead {
			count++
		}
	}
	if got := s.UnreadNotifications(); got != count {
		t.Fatalf("unread counter drifted: counter=%d, actual unread=%d", got, count)
	}
}

func TestNotificationFetchAndMarkAll(t *testing.T) {
	s := newTestStore()
	now := time.Now()

	gen := s.BeginNotificationFetch()
	s.CommitNotificationPage(gen, 0, []model.Notification{
		notif("n1", false, now),
		notif("n2", false, now.Add(-time.Minute)),
		notif("n3", true, now.Add(-2*time.Minute)),
	})

	if s.UnreadNotifications() != 2 {
		t.Fatalf("expected unreadCount 2 after fetch, got %d", s.UnreadNotifications())
	}
	checkUnreadInvariant(t, s)

	s.MarkAllNotificationsRead()
	if s.UnreadNotifications() != 0 {
		t.Fatalf("expected unreadCount 0 after mark-all, got %d", s.UnreadNotifications())
	}
	for _, n := range s.Notifications() {
		if !n.IsRead {
			t.Fatalf("notification %s still unread after mark-all", n.ID)
		}
		if n.ID != "n3" && n.ReadAt == nil {
			t.Errorf("notification %s has no read timestamp", n.ID)
		}
	}
	checkUnreadInvariant(t, s)
}

func TestOffsetZeroReplacesOffsetAppends(t *testing.T) {
	s := newTestStore()
	now := time.Now()

	gen := s.BeginNotificationFetch()
	s.CommitNotificationPage(gen, 0, []model.Notification{notif("old", false, now)})

	gen = s.BeginNotificationFetch()
	s.CommitNotificationPage(gen, 0, []model.Notification{notif("n1", false, now), notif("n2", true, now)})
	got := s.Notifications()
	if len(got) != 2 || got[0].ID != "n1" {
		t.Fatalf("offset 0 did not replace: %v", got)
	}

	gen = s.BeginNotificationFetch()
	s.CommitNotificationPage(gen, 2, []model.Notification{notif("n3", false, now)})
	got = s.Notifications()
	if len(got) != 3 || got[2].ID != "n3" {
		t.Fatalf("offset > 0 did not append: %v", got)
	}
	checkUnreadInvariant(t, s)
}

func TestStaleNotificationPageDiscarded(t *testing.T) {
	s := newTestStore()
	old := s.BeginNotificationFetch()
	fresh := s.BeginNotificationFetch()

	if s.CommitNotificationPage(old, 0, []model.Notification{notif("stale", false, time.Now())}) {
		t.Fatal("stale notification page accepted")
	}
	if len(s.Notifications()) != 0 {
		t.Fatal("stale page wrote state")
	}
	if !s.CommitNotificationPage(fresh, 0, nil) {
		t.Fatal("current generation rejected")
	}
}

func TestMarkReadIdempotent(t *testing.T) {
	s := newTestStore()
	gen := s.BeginNotificationFetch()
	s.CommitNotificationPage(gen, 0, []model.Notification{
		notif("n1", false, time.Now()),
		notif("n2", false, time.Now()),
	})

	if !s.MarkNotificationRead("n1") {
		t.Fatal("first mark-read reported no transition")
	}
	if s.UnreadNotifications() != 1 {
		t.Fatalf("expected 1 unread, got %d", s.UnreadNotifications())
	}
	if s.MarkNotificationRead("n1") {
		t.Fatal("second mark-read reported a transition")
	}
	if s.UnreadNotifications() != 1 {
		t.Fatalf("re-marking moved the counter: %d", s.UnreadNotifications())
	}
	if s.MarkNotificationRead("missing") {
		t.Fatal("unknown id reported a transition")
	}
	checkUnreadInvariant(t, s)
}

func TestDeleteKeepsCounterConsistent(t *testing.T) {
	s := newTestStore()
	gen := s.BeginNotificationFetch()
	s.CommitNotificationPage(gen, 0, []model.Notification{
		notif("unread", false, time.Now()),
		notif("read", true, time.Now()),
	})

	s.DeleteNotification("read")
	if s.UnreadNotifications() != 1 {
		t.Fatalf("deleting a read notification moved the counter: %d", s.UnreadNotifications())
	}
	checkUnreadInvariant(t, s)

	s.DeleteNotification("unread")
	if s.UnreadNotifications() != 0 {
		t.Fatalf("deleting an unread notification did not decrement: %d", s.UnreadNotifications())
	}
	if len(s.Notifications()) != 0 {
		t.Fatal("delete left entries behind")
	}
	checkUnreadInvariant(t, s)

	// unknown id is a no-op
	s.DeleteNotification("missing")
}

func TestRealtimePushPrepends(t *testing.T) {
	s := newTestStore()
	gen := s.BeginNotificationFetch()
	s.CommitNotificationPage(gen, 0, []model.Notification{notif("n1", true, time.Now())})

	s.IngestNotification(notif("pushed", false, time.Now()))
	got := s.Notifications()
	if got[0].ID != "pushed" {
		t.Fatalf("pushed notification not at the head: %v", got)
	}
	if s.UnreadNotifications() != 1 {
		t.Fatalf("expected unread 1, got %d", s.UnreadNotifications())
	}

	// a pushed notification already marked read does not move the counter
	s.IngestNotification(notif("pushed-read", true, time.Now()))
	if s.UnreadNotifications() != 1 {
		t.Fatalf("read push moved the counter: %d", s.UnreadNotifications())
	}
	checkUnreadInvariant(t, s)
}
