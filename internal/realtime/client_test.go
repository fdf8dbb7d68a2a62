package realtime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"

	"github.com/hackn3y/intentionalmovement-sub001/internal/apperr"
	"github.com/hackn3y/intentionalmovement-sub001/internal/logger"
	"github.com/hackn3y/intentionalmovement-sub001/internal/model"
	"github.com/hackn3y/intentionalmovement-sub001/internal/session"
)

func mintToken() string {
	claims := jwt.MapClaims{"sub": "u1", "exp": time.Now().Add(time.Hour).Unix()}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test"))
	if err != nil {
		panic(err)
	}
	return tok
}

type wsHarness struct {
	srv      *httptest.Server
	accepted atomic.Int32
	onConn   func(*websocket.Conn)
}

// newWSHarness runs a websocket endpoint; onConn owns each accepted
// connection until it returns.
func newWSHarness(t *testing.T, onConn func(*websocket.Conn)) *wsHarness {
	t.Helper()
	h := &wsHarness{onConn: onConn}
	upgrader := websocket.Upgrader{}
	h.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		h.accepted.Add(1)
		if h.onConn != nil {
			h.onConn(conn)
		}
	}))
	t.Cleanup(h.srv.Close)
	return h
}

func (h *wsHarness) wsURL() string {
	return "ws" + strings.TrimPrefix(h.srv.URL, "http")
}

func newRTClient(t *testing.T, url string, withToken bool) *Client {
	t.Helper()
	sess := session.NewStore(filepath.Join(t.TempDir(), "creds.json"))
	if withToken {
		if err := sess.Set(&session.Credentials{Token: mintToken(), User: &model.User{ID: "u1"}}); err != nil {
			t.Fatalf("Set: %v", err)
		}
	}
	return NewClient(Config{
		URL:               url,
		ReconnectAttempts: 2,
		ReconnectDelay:    20 * time.Millisecond,
		HandshakeTimeout:  2 * time.Second,
	}, sess, logger.Nop())
}

// drain keeps a server-side connection alive until the peer goes away.
func drain(conn *websocket.Conn) {
	defer conn.Close()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func waitFor(t *testing.T, cond func() bool, what string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestConnectWithoutTokenIsNoop(t *testing.T) {
	h := newWSHarness(t, drain)
	c := newRTClient(t, h.wsURL(), false)

	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect without token must be a silent no-op, got %v", err)
	}
	if c.Connected() {
		t.Fatal("client claims connected without a token")
	}
	if h.accepted.Load() != 0 {
		t.Fatal("client dialed without a token")
	}
}

func TestConnectIsIdempotent(t *testing.T) {
	h := newWSHarness(t, drain)
	c := newRTClient(t, h.wsURL(), true)
	defer c.Disconnect()

	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("second Connect: %v", err)
	}
	if got := h.accepted.Load(); got != 1 {
		t.Fatalf("expected one connection, server accepted %d", got)
	}
	if !c.Connected() {
		t.Fatal("not connected")
	}
}

func TestEventsDispatchToSubscribers(t *testing.T) {
	h := newWSHarness(t, func(conn *websocket.Conn) {
		_ = conn.WriteMessage(websocket.TextMessage, []byte(
			`{"event":"new_message","data":{"id":"m1","senderId":"u2","receiverId":"u1","content":"hello"}}`,
		))
		drain(conn)
	})
	c := newRTClient(t, h.wsURL(), true)
	defer c.Disconnect()

	got := make(chan model.MessagePayload, 1)
	c.OnNewMessage(func(p model.MessagePayload) { got <- p })

	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	select {
	case p := <-got:
		if p.ID != "m1" || p.Content != "hello" {
			t.Fatalf("unexpected payload: %+v", p)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("new_message never dispatched")
	}
}

func TestEmitReachesServer(t *testing.T) {
	frames := make(chan Envelope, 1)
	h := newWSHarness(t, func(conn *websocket.Conn) {
		defer conn.Close()
		var ev Envelope
		if err := conn.ReadJSON(&ev); err != nil {
			return
		}
		frames <- ev
		drain(conn)
	})
	c := newRTClient(t, h.wsURL(), true)
	defer c.Disconnect()

	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := c.JoinConversation("c1"); err != nil {
		t.Fatalf("JoinConversation: %v", err)
	}
	select {
	case ev := <-frames:
		if ev.Event != EventJoinConversation {
			t.Fatalf("expected join_conversation, got %s", ev.Event)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server never received the frame")
	}
}

func TestEmitWhileDisconnected(t *testing.T) {
	c := newRTClient(t, "ws://127.0.0.1:1/ws", true)
	err := c.SendTyping("c1", true)
	if apperr.KindOf(err) != apperr.KindConnectivity {
		t.Fatalf("expected connectivity error, got %v", err)
	}
}

func TestReconnectAfterDrop(t *testing.T) {
	h := newWSHarness(t, nil)
	h.onConn = func(conn *websocket.Conn) {
		// kill the first connection, keep later ones
		if h.accepted.Load() == 1 {
			conn.Close()
			return
		}
		drain(conn)
	}
	c := newRTClient(t, h.wsURL(), true)
	defer c.Disconnect()

	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	waitFor(t, func() bool { return h.accepted.Load() >= 2 && c.Connected() }, "reconnect")
}

func TestDisconnectIsIdempotentAndFinal(t *testing.T) {
	h := newWSHarness(t, drain)
	c := newRTClient(t, h.wsURL(), true)

	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	c.Disconnect()
	c.Disconnect()
	if c.Connected() {
		t.Fatal("still connected after Disconnect")
	}
	// a manual disconnect must not trigger the reconnect loop
	time.Sleep(150 * time.Millisecond)
	if got := h.accepted.Load(); got != 1 {
		t.Fatalf("client reconnected after manual disconnect: %d connections", got)
	}
}
