package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/hackn3y/intentionalmovement-sub001/internal/apperr"
	"github.com/hackn3y/intentionalmovement-sub001/internal/metrics"
	"github.com/hackn3y/intentionalmovement-sub001/internal/session"
)

const (
	pongWait     = 60 * time.Second
	pingInterval = 30 * time.Second
	writeWait    = 10 * time.Second
)

var errManualClose = errors.New("manual disconnect")

type Config struct {
	URL               string // ws://host/ws
	ReconnectAttempts int
	ReconnectDelay    time.Duration
	HandshakeTimeout  time.Duration
}

// Client holds at most one live websocket connection per session,
// authenticated with the same bearer token the REST client uses. After a
// dropped connection it retries a bounded number of times at a fixed delay,
// then stays down until Connect is called again.
type Client struct {
	conf Config
	sess *session.Store
	log  *zap.SugaredLogger
	bus  *Bus

	mu          sync.Mutex
	cur         *wsSession
	manualClose bool
}

type wsSession struct {
	conn *websocket.Conn
	send chan Envelope
	done chan struct{}
	once sync.Once
}

func (s *wsSession) close() {
	s.once.Do(func() {
		close(s.done)
		_ = s.conn.Close()
	})
}

func NewClient(conf Config, sess *session.Store, log *zap.SugaredLogger) *Client {
	if conf.ReconnectDelay == 0 {
		conf.ReconnectDelay = 2 * time.Second
	}
	if conf.ReconnectAttempts == 0 {
		conf.ReconnectAttempts = 5
	}
	if conf.HandshakeTimeout == 0 {
		conf.HandshakeTimeout = 10 * time.Second
	}
	return &Client{conf: conf, sess: sess, log: log, bus: NewBus()}
}

// Bus exposes the event bus for subscription by the engine and tests.
func (c *Client) Bus() *Bus { return c.bus }

// Connect dials the realtime endpoint. It is a no-op when already connected
// and — deliberately — when no usable token is present: an unauthenticated
// client never attempts the handshake.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cur != nil {
		return nil
	}
	if !c.sess.TokenValid() {
		c.log.Debug("realtime connect skipped: no usable token")
		return nil
	}

	d := websocket.Dialer{HandshakeTimeout: c.conf.HandshakeTimeout}
	addr := c.conf.URL + "?token=" + url.QueryEscape(c.sess.Token())
	conn, _, err := d.DialContext(ctx, addr, nil)
	if err != nil {
		return apperr.Wrap(apperr.KindConnectivity, "realtime dial failed", err)
	}

	s := &wsSession{
		conn: conn,
		send: make(chan Envelope, 16),
		done: make(chan struct{}),
	}
	c.cur = s
	c.manualClose = false
	go c.readPump(s)
	go c.writePump(s)
	c.log.Infow("realtime connected", "url", c.conf.URL)
	return nil
}

// Disconnect tears the connection down and suppresses reconnection.
// Idempotent.
func (c *Client) Disconnect() {
	c.mu.Lock()
	c.manualClose = true
	s := c.cur
	c.cur = nil
	c.mu.Unlock()
	if s != nil {
		s.close()
	}
}

func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cur != nil
}

// Emit queues an outbound event. Fails when disconnected; nothing is
// buffered across connections.
func (c *Client) Emit(event EventName, data interface{}) error {
	b, err := json.Marshal(data)
	if err != nil {
		return apperr.Wrap(apperr.KindRequest, "could not encode event", err)
	}
	c.mu.Lock()
	s := c.cur
	c.mu.Unlock()
	if s == nil {
		return apperr.New(apperr.KindConnectivity, "realtime not connected")
	}
	select {
	case s.send <- Envelope{Event: event, Data: b}:
		return nil
	case <-s.done:
		return apperr.New(apperr.KindConnectivity, "realtime not connected")
	}
}

func (c *Client) readPump(s *wsSession) {
	defer func() {
		s.close()
		c.mu.Lock()
		if c.cur == s {
			c.cur = nil
		}
		manual := c.manualClose
		c.mu.Unlock()
		if !manual {
			go c.reconnect()
		}
	}()

	s.conn.SetReadLimit(32 * 1024)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			c.log.Debugw("realtime read closed", "err", err)
			return
		}
		var ev Envelope
		if err := json.Unmarshal(data, &ev); err != nil {
			// ignore malformed frames, don't disconnect
			continue
		}
		c.bus.Publish(ev)
	}
}

func (c *Client) writePump(s *wsSession) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		s.close()
	}()
	for {
		select {
		case ev := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ticker.C:
			if err := s.conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(time.Second)); err != nil {
				return
			}
		case <-s.done:
			_ = s.conn.WriteControl(websocket.CloseMessage, []byte{}, time.Now().Add(time.Second))
			return
		}
	}
}

func (c *Client) reconnect() {
	attempt := 0
	op := func() error {
		c.mu.Lock()
		manual := c.manualClose
		c.mu.Unlock()
		if manual {
			return backoff.Permanent(errManualClose)
		}
		attempt++
		metrics.RealtimeReconnects.Inc()
		ctx, cancel := context.WithTimeout(context.Background(), c.conf.HandshakeTimeout)
		defer cancel()
		if err := c.Connect(ctx); err != nil {
			c.log.Warnw("realtime reconnect failed", "attempt", attempt, "err", err)
			return err
		}
		return nil
	}
	b := backoff.WithMaxRetries(backoff.NewConstantBackOff(c.conf.ReconnectDelay), uint64(c.conf.ReconnectAttempts))
	if err := backoff.Retry(op, b); err != nil && !errors.Is(err, errManualClose) {
		c.log.Warnw("realtime reconnect attempts exhausted, staying disconnected", "err", err)
	}
}
