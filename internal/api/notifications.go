package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/hackn3y/intentionalmovement-sub001/internal/model"
)

// ListNotifications fetches a window of notifications, newest first.
func (c *Client) ListNotifications(ctx context.Context, limit, offset int, unreadOnly bool) ([]model.Notification, error) {
	path := fmt.Sprintf("/notifications?limit=%d&offset=%d", limit, offset)
	if unreadOnly {
		path += "&unreadOnly=true"
	}
	var payload []model.NotificationPayload
	if err := c.do(ctx, http.MethodGet, path, nil, &payload); err != nil {
		return nil, err
	}
	return model.NormalizeNotifications(payload), nil
}

// UnreadNotificationCount fetches the server-side unread total.
func (c *Client) UnreadNotificationCount(ctx context.Context) (int, error) {
	var out struct {
		Count int `json:"count"`
	}
	if err := c.do(ctx, http.MethodGet, "/notifications/unread-count", nil, &out); err != nil {
		return 0, err
	}
	return out.Count, nil
}

func (c *Client) MarkNotificationRead(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPut, "/notifications/"+url.PathEscape(id)+"/read", nil, nil)
}

func (c *Client) MarkAllNotificationsRead(ctx context.Context) error {
	return c.do(ctx, http.MethodPut, "/notifications/mark-all-read", nil, nil)
}

func (c *Client) DeleteNotification(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/notifications/"+url.PathEscape(id), nil, nil)
}
