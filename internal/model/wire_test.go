package model

import (
	"encoding/json"
	"testing"
	"time"
)

func TestMessagePayloadDrift(t *testing.T) {
	cases := []struct {
		name     string
		raw      string
		wantID   string
		wantStat DeliveryStatus
		wantTime time.Time
	}{
		{
			name:     "canonical fields",
			raw:      `{"id":"m1","status":"read","createdAt":"2026-08-01T10:00:00Z"}`,
			wantID:   "m1",
			wantStat: StatusRead,
			wantTime: time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC),
		},
		{
			name:     "mongo id and snake timestamp",
			raw:      `{"_id":"m2","created_at":"2026-08-01T11:00:00Z"}`,
			wantID:   "m2",
			wantStat: StatusSent,
			wantTime: time.Date(2026, 8, 1, 11, 0, 0, 0, time.UTC),
		},
		{
			name:     "id wins over _id",
			raw:      `{"id":"m3","_id":"legacy"}`,
			wantID:   "m3",
			wantStat: StatusSent,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var p MessagePayload
			if err := json.Unmarshal([]byte(tc.raw), &p); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			m := p.Normalize()
			if m.ID != tc.wantID {
				t.Errorf("ID = %q, want %q", m.ID, tc.wantID)
			}
			if m.Status != tc.wantStat {
				t.Errorf("Status = %s, want %s", m.Status, tc.wantStat)
			}
			if !tc.wantTime.IsZero() && !m.CreatedAt.Equal(tc.wantTime) {
				t.Errorf("CreatedAt = %v, want %v", m.CreatedAt, tc.wantTime)
			}
		})
	}
}

func TestNotificationPayloadDrift(t *testing.T) {
	cases := []struct {
		name     string
		raw      string
		wantRead bool
		wantType NotificationType
	}{
		{"isRead variant", `{"id":"n1","type":"like","isRead":true}`, true, NotifLike},
		{"read variant", `{"id":"n2","type":"follow","read":true}`, true, NotifFollow},
		{"isRead wins over read", `{"id":"n3","type":"comment","isRead":false,"read":true}`, false, NotifComment},
		{"unknown type becomes generic", `{"id":"n4","type":"mystery"}`, false, NotifGeneric},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var p NotificationPayload
			if err := json.Unmarshal([]byte(tc.raw), &p); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			n := p.Normalize()
			if n.IsRead != tc.wantRead {
				t.Errorf("IsRead = %v, want %v", n.IsRead, tc.wantRead)
			}
			if n.Type != tc.wantType {
				t.Errorf("Type = %s, want %s", n.Type, tc.wantType)
			}
		})
	}
}
