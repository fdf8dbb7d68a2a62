package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/hackn3y/intentionalmovement-sub001/internal/apperr"
	"github.com/hackn3y/intentionalmovement-sub001/internal/metrics"
	"github.com/hackn3y/intentionalmovement-sub001/internal/session"
)

type Config struct {
	BaseURL         string
	Timeout         time.Duration
	MaxIdleConns    int
	IdleConnTimeout time.Duration
}

// Client wraps the backend REST API: it attaches the bearer token, decodes
// the {status, data} envelope and normalizes every failure into an
// *apperr.Error. No retries: each failure surfaces to the caller once.
type Client struct {
	http    *http.Client
	baseURL string
	sess    *session.Store
	log     *zap.SugaredLogger
}

func NewClient(conf Config, sess *session.Store, log *zap.SugaredLogger) *Client {
	if conf.Timeout == 0 {
		conf.Timeout = 30 * time.Second
	}
	if conf.IdleConnTimeout == 0 {
		conf.IdleConnTimeout = 90 * time.Second
	}
	tr := &http.Transport{
		DialContext:     (&net.Dialer{Timeout: 5 * time.Second}).DialContext,
		MaxIdleConns:    conf.MaxIdleConns,
		IdleConnTimeout: conf.IdleConnTimeout,
	}
	return &Client{
		http:    &http.Client{Transport: tr, Timeout: conf.Timeout},
		baseURL: conf.BaseURL,
		sess:    sess,
		log:     log,
	}
}

type envelope struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
	Error  string          `json:"error"`
}

// do runs one request and decodes the data envelope into out (out may be
// nil). On 401 the cached and persisted credentials are cleared before the
// error is returned; dispatching a logout is the caller's job.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return apperr.Wrap(apperr.KindRequest, "could not encode request", err)
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return apperr.Wrap(apperr.KindRequest, "invalid request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if tok := c.sess.Token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		metrics.APIErrors.WithLabelValues(string(apperr.KindConnectivity)).Inc()
		return apperr.Wrap(apperr.KindConnectivity, "network unavailable", err)
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		if err := c.sess.Clear(); err != nil {
			c.log.Warnw("clearing credentials after 401", "err", err)
		}
		metrics.APIErrors.WithLabelValues(string(apperr.KindAuth)).Inc()
		e := apperr.New(apperr.KindAuth, "session expired")
		e.Status = resp.StatusCode
		return e
	case resp.StatusCode >= 500:
		metrics.APIErrors.WithLabelValues(string(apperr.KindServer)).Inc()
		e := apperr.New(apperr.KindServer, "server error")
		e.Status = resp.StatusCode
		return e
	case resp.StatusCode >= 400:
		msg := "request failed"
		var env envelope
		if err := json.NewDecoder(resp.Body).Decode(&env); err == nil && env.Error != "" {
			msg = env.Error
		}
		metrics.APIErrors.WithLabelValues(string(apperr.KindRequest)).Inc()
		e := apperr.New(apperr.KindRequest, msg)
		e.Status = resp.StatusCode
		return e
	}

	if out == nil {
		return nil
	}
	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return apperr.Wrap(apperr.KindServer, "malformed response", err)
	}
	if len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return apperr.Wrap(apperr.KindServer, "malformed response", err)
	}
	return nil
}
