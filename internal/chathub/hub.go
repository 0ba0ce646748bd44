package chathub

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"campuschat/internal/models"
	"campuschat/internal/storage"
)

// Hub is the protocol state machine at the center of the server. It owns
// the connection registry, the waiting queue and the session directory, and
// mutates them only while holding a single mutex, so every inbound event is
// handled to completion as one atomic unit. A disconnect and a concurrent
// find-new-partner on the same room therefore cannot interleave.
type Hub struct {
	mu       sync.Mutex
	registry *Registry
	queue    *WaitQueue
	rooms    *RoomDirectory
	users    map[string]*models.ChatUser
	matcher  Matcher

	recorder storage.Recorder
	log      zerolog.Logger
}

// Stats is a read-only snapshot for the status endpoints.
type Stats struct {
	ActiveUsers  int `json:"activeUsers"`
	WaitingUsers int `json:"waitingUsers"`
	ActiveRooms  int `json:"activeRooms"`
}

func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		registry: NewRegistry(),
		queue:    NewWaitQueue(),
		rooms:    NewRoomDirectory(),
		users:    make(map[string]*models.ChatUser),
		log:      log,
	}
}

// SetRecorder attaches an optional session recorder. The hub never depends
// on it succeeding; failures are logged and forgotten.
func (h *Hub) SetRecorder(r storage.Recorder) {
	h.recorder = r
}

// Register adds a freshly connected client to the registry. The user stays
// idle until a join frame arrives.
func (h *Hub) Register(c Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.registry.Add(c)
	h.log.Debug().Str("user", c.GetUserID()).Msg("client registered")
}

// Unregister is the teardown path shared by leave frames, transport close
// and transport errors. It is idempotent: a user torn down twice (error
// then close) ends in the same state as once.
func (h *Hub) Unregister(userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeUserLocked(userID)
}

// HandleFrame dispatches one inbound frame. Unknown types are dropped and
// logged; no frame is ever fatal to the process.
func (h *Hub) HandleFrame(userID string, env models.Envelope) {
	h.mu.Lock()
	defer h.mu.Unlock()

	switch env.Type {
	case models.TypeJoin:
		h.handleJoinLocked(userID, env)
	case models.TypeMessage:
		h.handleMessageLocked(userID, env)
	case models.TypeTyping:
		h.handleTypingLocked(userID, true)
	case models.TypeStopTyping:
		h.handleTypingLocked(userID, false)
	case models.TypeFindNewPartner:
		h.handleFindNewPartnerLocked(userID)
	case models.TypeLeave:
		h.removeUserLocked(userID)
	case models.TypeWebRTCSignal:
		h.handleSignalLocked(userID, env)
	default:
		h.log.Warn().Str("user", userID).Str("type", env.Type).Msg("unhandled message type")
	}
}

// Broadcast sends a server-originated notice to every connected user.
func (h *Hub) Broadcast(content string) {
	env, err := models.NewEnvelope(models.TypeSystemMessage, models.SystemMessagePayload{Content: content})
	if err != nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.registry.Broadcast(env)
}

func (h *Hub) Stats() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()
	return Stats{
		ActiveUsers:  h.registry.Count(),
		WaitingUsers: h.queue.Len(),
		ActiveRooms:  h.rooms.Count(),
	}
}

func (h *Hub) handleJoinLocked(userID string, env models.Envelope) {
	if !h.registry.Contains(userID) {
		return
	}
	if _, paired := h.rooms.RoomOf(userID); paired {
		// A join while paired would put the user in the queue and a room
		// at once; rotation goes through findNewPartner.
		return
	}
	var join models.JoinPayload
	if len(env.Data) > 0 {
		if err := env.Decode(&join); err != nil {
			h.log.Warn().Str("user", userID).Err(err).Msg("malformed join payload")
			return
		}
	}
	if join.Nickname == "" {
		join.Nickname = "Anonymous"
	}
	if join.Department == "" {
		join.Department = "Unknown"
	}

	h.users[userID] = &models.ChatUser{
		ID:         userID,
		Nickname:   join.Nickname,
		Department: join.Department,
	}
	h.queue.Enqueue(userID)
	h.tryMatchLocked()
}

func (h *Hub) handleMessageLocked(userID string, env models.Envelope) {
	partnerID, ok := h.rooms.PartnerOf(userID)
	if !ok {
		// Stale message for a room that no longer exists.
		return
	}
	var msg models.MessagePayload
	if err := env.Decode(&msg); err != nil {
		h.log.Warn().Str("user", userID).Err(err).Msg("malformed message payload")
		return
	}
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.Timestamp == 0 {
		msg.Timestamp = time.Now().UnixMilli()
	}
	out, err := models.NewEnvelope(models.TypeMessage, msg)
	if err != nil {
		return
	}
	h.registry.Send(partnerID, out)
}

func (h *Hub) handleTypingLocked(userID string, isTyping bool) {
	partnerID, ok := h.rooms.PartnerOf(userID)
	if !ok {
		return
	}
	if user, ok := h.users[userID]; ok {
		user.IsTyping = isTyping
	}
	msgType := models.TypeStopTyping
	if isTyping {
		msgType = models.TypeTyping
	}
	h.registry.Send(partnerID, models.Envelope{Type: msgType})
}

func (h *Hub) handleFindNewPartnerLocked(userID string) {
	h.releasePartnerLocked(userID)
	h.queue.Enqueue(userID)
	h.tryMatchLocked()
}

func (h *Hub) handleSignalLocked(userID string, env models.Envelope) {
	partnerID, ok := h.rooms.PartnerOf(userID)
	if !ok {
		return
	}
	var sig models.SignalPayload
	if err := env.Decode(&sig); err != nil {
		h.log.Warn().Str("user", userID).Err(err).Msg("malformed signal payload")
		return
	}
	// Rewrite the routing id to the sender so the receiver can check the
	// signal against its current partner; the signal blob itself is relayed
	// untouched.
	out, err := models.NewEnvelope(models.TypeWebRTCSignal, models.SignalPayload{
		PeerID: userID,
		Signal: sig.Signal,
	})
	if err != nil {
		return
	}
	h.registry.Send(partnerID, out)
}

// releasePartnerLocked dissolves the user's current room, if any: the
// partner is notified, re-enqueued and immediately offered to the matcher.
func (h *Hub) releasePartnerLocked(userID string) {
	room, ok := h.rooms.RoomOf(userID)
	if !ok {
		return
	}
	partnerID, _ := room.Other(userID)

	// Delete before re-enqueueing the partner so no user is ever in the
	// queue and a room at the same time.
	h.rooms.Delete(room.ID)
	h.recordRoomClosed(room.ID)

	h.registry.Send(partnerID, models.Envelope{Type: models.TypePartnerDisconnected})
	if h.registry.Contains(partnerID) {
		h.queue.Enqueue(partnerID)
		h.tryMatchLocked()
	}
}

// removeUserLocked tears a user down from any state.
func (h *Hub) removeUserLocked(userID string) {
	h.releasePartnerLocked(userID)
	h.queue.Dequeue(userID)
	h.registry.Remove(userID)
	delete(h.users, userID)
}

// tryMatchLocked runs one pairing attempt against the current queue state.
func (h *Hub) tryMatchLocked() {
	userA, userB, ok := h.matcher.TryMatch(h.queue)
	if !ok {
		return
	}
	room := h.rooms.Create(userA, userB)
	h.recordRoomOpened(room)

	profileA := h.profileLocked(userA)
	profileB := h.profileLocked(userB)

	h.sendPartnerInfoLocked(userA, userB, profileB)
	h.sendPartnerInfoLocked(userB, userA, profileA)

	h.log.Info().Str("room", room.ID).Str("userA", userA).Str("userB", userB).Msg("match found")
}

func (h *Hub) profileLocked(userID string) *models.ChatUser {
	if user, ok := h.users[userID]; ok {
		return user
	}
	return &models.ChatUser{ID: userID, Nickname: "Anonymous", Department: "Unknown"}
}

func (h *Hub) sendPartnerInfoLocked(to, partnerID string, partner *models.ChatUser) {
	env, err := models.NewEnvelope(models.TypePartnerInfo, models.PartnerInfoPayload{
		Nickname:   partner.Nickname,
		Department: partner.Department,
		PeerID:     partnerID,
		SelfID:     to,
	})
	if err != nil {
		return
	}
	h.registry.Send(to, env)
}

func (h *Hub) recordRoomOpened(room *Room) {
	if h.recorder == nil {
		return
	}
	rec := &models.ChatRoom{
		RoomID:    room.ID,
		User1ID:   room.Members[0],
		User2ID:   room.Members[1],
		IsActive:  true,
		StartedAt: room.StartedAt,
	}
	go func() {
		if err := h.recorder.RoomOpened(rec); err != nil {
			h.log.Warn().Str("room", rec.RoomID).Err(err).Msg("failed to record room open")
		}
	}()
}

func (h *Hub) recordRoomClosed(roomID string) {
	if h.recorder == nil {
		return
	}
	go func() {
		if err := h.recorder.RoomClosed(roomID); err != nil {
			h.log.Warn().Str("room", roomID).Err(err).Msg("failed to record room close")
		}
	}()
}
