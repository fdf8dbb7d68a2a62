package api

import (
	"context"
	"net/http"

	"github.com/hackn3y/intentionalmovement-sub001/internal/model"
	"github.com/hackn3y/intentionalmovement-sub001/internal/session"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

// Login exchanges credentials for a token and persists the session. The
// full signup/OAuth surface is out of scope; this exists so the engine can
// authenticate against the dev stub.
func (c *Client) Login(ctx context.Context, email, password string) (*session.Credentials, error) {
	var out loginResponse
	if err := c.do(ctx, http.MethodPost, "/auth/login", loginRequest{Email: email, Password: password}, &out); err != nil {
		return nil, err
	}
	creds := &session.Credentials{Token: out.Token, User: out.User}
	if err := c.sess.Set(creds); err != nil {
		return nil, err
	}
	return creds, nil
}
