package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/hackn3y/intentionalmovement-sub001/internal/model"
)

// ListConversations fetches the conversation list, most recent first.
func (c *Client) ListConversations(ctx context.Context) ([]model.Conversation, error) {
	var payload []model.ConversationPayload
	if err := c.do(ctx, http.MethodGet, "/messages/conversations", nil, &payload); err != nil {
		return nil, err
	}
	return model.NormalizeConversations(payload), nil
}

// ListMessages fetches one page of the thread with counterpartID. Pages are
// 1-based; each page is ascending by creation time within itself.
func (c *Client) ListMessages(ctx context.Context, counterpartID string, page, limit int) ([]model.Message, error) {
	if page < 1 {
		page = 1
	}
	path := fmt.Sprintf("/messages/%s?page=%d&limit=%d", url.PathEscape(counterpartID), page, limit)
	var payload []model.MessagePayload
	if err := c.do(ctx, http.MethodGet, path, nil, &payload); err != nil {
		return nil, err
	}
	return model.NormalizeMessages(payload), nil
}

type sendMessageRequest struct {
	ReceiverID string `json:"receiverId"`
	Content    string `json:"content"`
	MediaURL   string `json:"mediaUrl,omitempty"`
}

// SendMessage posts a new message and returns the accepted copy.
func (c *Client) SendMessage(ctx context.Context, receiverID, content, mediaURL string) (*model.Message, error) {
	req := sendMessageRequest{ReceiverID: receiverID, Content: content, MediaURL: mediaURL}
	var payload model.MessagePayload
	if err := c.do(ctx, http.MethodPost, "/messages", req, &payload); err != nil {
		return nil, err
	}
	m := payload.Normalize()
	return &m, nil
}

// DeleteConversation removes a conversation server-side. The store does not
// model deletion beyond the caller refetching afterwards.
func (c *Client) DeleteConversation(ctx context.Context, conversationID string) error {
	path := "/messages/conversations/" + url.PathEscape(conversationID)
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}
