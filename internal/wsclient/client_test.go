package wsclient_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campuschat/internal/models"
	"campuschat/internal/wsclient"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// echoServer upgrades each connection, counts dials, and echoes every frame
// back to the client.
func echoServer(t *testing.T, dials *atomic.Int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		dials.Add(1)
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			var env models.Envelope
			if err := conn.ReadJSON(&env); err != nil {
				return
			}
			if err := conn.WriteJSON(env); err != nil {
				return
			}
		}
	}))
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

// TestClientConnectAndExchange verifies the dial, the status notification
// and a full frame round trip.
func TestClientConnectAndExchange(t *testing.T) {
	var dials atomic.Int32
	srv := echoServer(t, &dials)
	defer srv.Close()

	c := wsclient.New(wsURL(srv), zerolog.Nop())
	c.Connect()
	defer c.Close()

	select {
	case connected := <-c.Status():
		assert.True(t, connected)
	case <-time.After(2 * time.Second):
		require.FailNow(t, "never connected")
	}

	env, err := models.NewEnvelope(models.TypeMessage, models.MessagePayload{ID: "m1", Content: "ping"})
	require.NoError(t, err)
	require.NoError(t, c.SendFrame(env))

	select {
	case got := <-c.Frames():
		assert.Equal(t, models.TypeMessage, got.Type)
		var msg models.MessagePayload
		require.NoError(t, got.Decode(&msg))
		assert.Equal(t, "ping", msg.Content)
	case <-time.After(2 * time.Second):
		require.FailNow(t, "no echoed frame")
	}
}

// TestClientIntentionalClose verifies Close stops the manager: sends fail
// immediately and no redial ever happens.
func TestClientIntentionalClose(t *testing.T) {
	var dials atomic.Int32
	srv := echoServer(t, &dials)
	defer srv.Close()

	c := wsclient.New(wsURL(srv), zerolog.Nop())
	c.Connect()
	select {
	case <-c.Status():
	case <-time.After(2 * time.Second):
		require.FailNow(t, "never connected")
	}

	c.Close()

	assert.ErrorIs(t, c.SendFrame(models.Envelope{Type: models.TypeLeave}), wsclient.ErrClosed)

	// The redial backoff is two seconds; give one full cycle to prove the
	// manager stayed down.
	time.Sleep(2500 * time.Millisecond)
	assert.Equal(t, int32(1), dials.Load(), "intentional close must not redial")
}

// TestClientReconnectsAfterDrop verifies an unintentional disconnect leads
// to a redial after the backoff.
func TestClientReconnectsAfterDrop(t *testing.T) {
	var dials atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := dials.Add(1)
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		if n == 1 {
			// First connection is dropped by the server right away.
			conn.Close()
			return
		}
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	c := wsclient.New(wsURL(srv), zerolog.Nop())
	c.Connect()
	defer c.Close()

	require.Eventually(t, func() bool {
		return dials.Load() >= 2
	}, 6*time.Second, 50*time.Millisecond, "client never redialed")

	// Status saw down then up again.
	var last bool
	require.Eventually(t, func() bool {
		for {
			select {
			case s := <-c.Status():
				last = s
			default:
				return last
			}
		}
	}, 2*time.Second, 50*time.Millisecond)
}

// TestClientSendBufferFull verifies the bounded outgoing queue rejects
// overflow instead of blocking the caller.
func TestClientSendBufferFull(t *testing.T) {
	c := wsclient.New("ws://127.0.0.1:0/ws", zerolog.Nop())

	var err error
	for i := 0; i < 64; i++ {
		err = c.SendFrame(models.Envelope{Type: models.TypeTyping})
		if err != nil {
			break
		}
	}
	assert.ErrorIs(t, err, wsclient.ErrBufferFull)
}
