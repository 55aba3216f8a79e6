package feed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

var testUpgrader = websocket.Upgrader{}

// newFakeStream serves a minimal Alpaca-style trade stream: it validates the
// auth and subscribe messages, then runs handler with the connection.
func newFakeStream(t *testing.T, handler func(conn *websocket.Conn)) string {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()

		var auth authMessage
		if err := conn.ReadJSON(&auth); err != nil {
			t.Errorf("read auth: %v", err)
			return
		}
		if auth.Action != "auth" || auth.Key != "k" || auth.Secret != "s" {
			t.Errorf("auth message = %+v", auth)
		}

		var sub subscribeMessage
		if err := conn.ReadJSON(&sub); err != nil {
			t.Errorf("read subscribe: %v", err)
			return
		}
		if sub.Action != "subscribe" || len(sub.Trades) == 0 {
			t.Errorf("subscribe message = %+v", sub)
		}

		handler(conn)
	}))
	t.Cleanup(srv.Close)

	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func testClientConfig(url string) ClientConfig {
	return ClientConfig{
		URL:          url,
		Key:          "k",
		Secret:       "s",
		Symbols:      []string{"NVDA", "SPY"},
		PingTimeout:  90 * time.Second,
		WriteTimeout: 5 * time.Second,
		BufferSize:   16,
	}
}

func TestClientForwardsTrades(t *testing.T) {
	frame := []map[string]any{
		{"T": "success", "msg": "authenticated"},
		{"T": "t", "S": "NVDA", "p": 950.25, "s": 10.0},
		{"T": "q", "S": "NVDA"}, // quote record, ignored
		{"T": "t", "S": "SPY", "p": 512.0, "s": 1.0},
	}

	url := newFakeStream(t, func(conn *websocket.Conn) {
		data, _ := json.Marshal(frame)
		conn.WriteMessage(websocket.TextMessage, data)
		time.Sleep(200 * time.Millisecond)
	})

	c := NewClient(testClientConfig(url), nil)
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer c.Close()

	var got []Trade
	timeout := time.After(2 * time.Second)
	for len(got) < 2 {
		select {
		case tr := <-c.Trades():
			got = append(got, tr)
		case <-timeout:
			t.Fatalf("timed out, received %d trades", len(got))
		}
	}

	if got[0].Symbol != "NVDA" || got[0].Price != 950.25 || got[0].Size != 10.0 {
		t.Errorf("first trade = %+v", got[0])
	}
	if got[1].Symbol != "SPY" || got[1].Price != 512.0 {
		t.Errorf("second trade = %+v", got[1])
	}
	if got[0].ReceivedAt.IsZero() {
		t.Error("ReceivedAt not set")
	}
}

func TestClientSurfacesAuthFailure(t *testing.T) {
	url := newFakeStream(t, func(conn *websocket.Conn) {
		conn.WriteMessage(websocket.TextMessage, []byte(`[{"T":"error","msg":"auth failed"}]`))
		time.Sleep(200 * time.Millisecond)
	})

	c := NewClient(testClientConfig(url), nil)
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer c.Close()

	select {
	case err := <-c.Errors():
		if err != ErrAuthFailed {
			t.Errorf("err = %v, want ErrAuthFailed", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no error surfaced")
	}
}

func TestClientIgnoresUnparseableFrames(t *testing.T) {
	url := newFakeStream(t, func(conn *websocket.Conn) {
		conn.WriteMessage(websocket.TextMessage, []byte(`not json`))
		conn.WriteMessage(websocket.TextMessage, []byte(`[{"T":"t","S":"NVDA","p":1.0,"s":1.0}]`))
		time.Sleep(200 * time.Millisecond)
	})

	c := NewClient(testClientConfig(url), nil)
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer c.Close()

	select {
	case tr := <-c.Trades():
		if tr.Symbol != "NVDA" {
			t.Errorf("trade = %+v", tr)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("trade after garbage frame never arrived")
	}
}

func TestClientCloseIsIdempotent(t *testing.T) {
	url := newFakeStream(t, func(conn *websocket.Conn) {
		time.Sleep(100 * time.Millisecond)
	})

	c := NewClient(testClientConfig(url), nil)
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	if err := c.Close(); err != nil {
		t.Errorf("first close: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("second close: %v", err)
	}
	if c.IsConnected() {
		t.Error("still connected after close")
	}

	// Connecting a closed client is rejected.
	if err := c.Connect(context.Background()); err != ErrAlreadyClosed {
		t.Errorf("reconnect err = %v, want ErrAlreadyClosed", err)
	}
}
