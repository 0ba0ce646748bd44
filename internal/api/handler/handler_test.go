package handler_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campuschat/internal/api/handler"
	"campuschat/internal/chathub"
	"campuschat/internal/models"
)

func newTestRouter() (*gin.Engine, *chathub.Hub) {
	gin.SetMode(gin.TestMode)
	hub := chathub.NewHub(zerolog.Nop())
	h := handler.NewHandler(hub, zerolog.Nop())

	h.STUNServer = "stun:stun.example.org:3478"

	r := gin.New()
	r.GET("/ws", h.ServeWebSocket)
	r.GET("/api/health", h.Health)
	r.GET("/api/status", h.Status)
	r.GET("/api/config", h.Config)
	return r, hub
}

// TestHealthEndpoint verifies the liveness response shape.
func TestHealthEndpoint(t *testing.T) {
	router, _ := newTestRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, float64(0), body["activeUsers"])
}

// TestStatusEndpoint verifies the counters snapshot is served as JSON.
func TestStatusEndpoint(t *testing.T) {
	router, _ := newTestRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var stats chathub.Stats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Zero(t, stats.ActiveUsers)
	assert.Zero(t, stats.WaitingUsers)
	assert.Zero(t, stats.ActiveRooms)
}

// TestConfigEndpoint verifies clients can fetch their ICE defaults.
func TestConfigEndpoint(t *testing.T) {
	router, _ := newTestRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/config", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "stun:stun.example.org:3478", body["stunServer"])
}

func dialWS(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func writeFrame(t *testing.T, conn *websocket.Conn, msgType string, payload any) {
	t.Helper()
	env, err := models.NewEnvelope(msgType, payload)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(env))
}

func readFrame(t *testing.T, conn *websocket.Conn) models.Envelope {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var env models.Envelope
	require.NoError(t, conn.ReadJSON(&env))
	return env
}

// TestWebSocketPairingEndToEnd runs two real websocket clients through the
// full pairing, messaging and disconnect flow.
func TestWebSocketPairingEndToEnd(t *testing.T) {
	router, hub := newTestRouter()
	srv := httptest.NewServer(router)
	defer srv.Close()

	alice := dialWS(t, srv)
	bob := dialWS(t, srv)

	writeFrame(t, alice, models.TypeJoin, models.JoinPayload{Nickname: "Alice", Department: "Math"})
	writeFrame(t, bob, models.TypeJoin, models.JoinPayload{Nickname: "Bob", Department: "Physics"})

	env := readFrame(t, alice)
	require.Equal(t, models.TypePartnerInfo, env.Type)
	var aliceInfo models.PartnerInfoPayload
	require.NoError(t, env.Decode(&aliceInfo))
	assert.Equal(t, "Bob", aliceInfo.Nickname)
	require.NotEmpty(t, aliceInfo.SelfID)
	require.NotEmpty(t, aliceInfo.PeerID)

	env = readFrame(t, bob)
	require.Equal(t, models.TypePartnerInfo, env.Type)
	var bobInfo models.PartnerInfoPayload
	require.NoError(t, env.Decode(&bobInfo))
	assert.Equal(t, "Alice", bobInfo.Nickname)
	assert.Equal(t, aliceInfo.SelfID, bobInfo.PeerID)
	assert.Equal(t, aliceInfo.PeerID, bobInfo.SelfID)

	// Chat relay.
	writeFrame(t, alice, models.TypeMessage, models.MessagePayload{Content: "hi bob"})
	env = readFrame(t, bob)
	require.Equal(t, models.TypeMessage, env.Type)
	var msg models.MessagePayload
	require.NoError(t, env.Decode(&msg))
	assert.Equal(t, "hi bob", msg.Content)

	// Signal relay with the sender id stamped on.
	writeFrame(t, bob, models.TypeWebRTCSignal, models.SignalPayload{
		PeerID: bobInfo.PeerID,
		Signal: json.RawMessage(`{"type":"offer","sdp":"x"}`),
	})
	env = readFrame(t, alice)
	require.Equal(t, models.TypeWebRTCSignal, env.Type)
	var sig models.SignalPayload
	require.NoError(t, env.Decode(&sig))
	assert.Equal(t, aliceInfo.PeerID, sig.PeerID)

	assert.Equal(t, 1, hub.Stats().ActiveRooms)

	// Alice drops; Bob hears about it and returns to the pool.
	alice.Close()
	env = readFrame(t, bob)
	require.Equal(t, models.TypePartnerDisconnected, env.Type)

	require.Eventually(t, func() bool {
		stats := hub.Stats()
		return stats.ActiveUsers == 1 && stats.WaitingUsers == 1 && stats.ActiveRooms == 0
	}, 2*time.Second, 20*time.Millisecond)
}
