// Package chatclient is the client-side protocol state machine. It drives
// the transport through join/paired/waiting transitions, surfaces chat
// events to the UI, and republishes exactly two facts to the media layer:
// "you are now paired with partner P" and "a signal arrived from your
// current partner".
package chatclient

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"campuschat/internal/models"
)

// Status is the connection state as the user experiences it.
type Status int

const (
	StatusDisconnected Status = iota
	StatusConnecting
	StatusWaiting
	StatusConnected
)

func (s Status) String() string {
	switch s {
	case StatusConnecting:
		return "connecting"
	case StatusWaiting:
		return "waiting"
	case StatusConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// Transport is the wire the session talks through; *wsclient.Client
// satisfies it.
type Transport interface {
	Connect()
	SendFrame(models.Envelope) error
	Frames() <-chan models.Envelope
	Status() <-chan bool
	Close()
}

// PartnerListener receives pairing and signaling facts. The session calls
// it from its event loop, so a partner change is always delivered before
// any signal that belongs to the new pairing.
type PartnerListener interface {
	PartnerChanged(selfID, partnerID string)
	PartnerLost()
	HandleSignal(fromPeer string, signal json.RawMessage)
}

// EventKind tags a session event for the UI.
type EventKind int

const (
	EventStatus EventKind = iota
	EventMessage
	EventTyping
	EventPartner
)

// Message is a chat line as shown to the user.
type Message struct {
	ID        string
	SenderID  string
	Content   string
	Timestamp int64
	IsSystem  bool
}

// Event is one UI-visible occurrence.
type Event struct {
	Kind    EventKind
	Status  Status
	Message Message
	Typing  bool
	Partner string
}

// Session is the protocol state machine for one user.
type Session struct {
	transport Transport
	profile   models.JoinPayload
	log       zerolog.Logger

	listener PartnerListener
	events   chan Event

	mu        sync.Mutex
	status    Status
	selfID    string
	partnerID string
}

func NewSession(t Transport, nickname, department string, log zerolog.Logger) *Session {
	return &Session{
		transport: t,
		profile:   models.JoinPayload{Nickname: nickname, Department: department},
		log:       log,
		events:    make(chan Event, 64),
		status:    StatusConnecting,
	}
}

// SetPartnerListener attaches the media layer. Must be called before Run.
func (s *Session) SetPartnerListener(l PartnerListener) {
	s.listener = l
}

// Events returns the UI event channel. Single consumer.
func (s *Session) Events() <-chan Event {
	return s.events
}

// Status returns the current connection status.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// PartnerID returns the current partner's id, empty when unpaired.
func (s *Session) PartnerID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.partnerID
}

// Run connects and processes transport events until ctx is cancelled. All
// state transitions happen on this goroutine, which is what guarantees the
// ordering the media layer relies on.
func (s *Session) Run(ctx context.Context) {
	s.transport.Connect()

	for {
		select {
		case <-ctx.Done():
			return
		case connected := <-s.transport.Status():
			s.handleConnectionStatus(connected)
		case env := <-s.transport.Frames():
			s.handleFrame(env)
		}
	}
}

func (s *Session) handleConnectionStatus(connected bool) {
	if connected {
		s.setStatus(StatusWaiting)
		s.sendJoin()
		return
	}
	s.clearPartner()
	s.setStatus(StatusDisconnected)
}

func (s *Session) handleFrame(env models.Envelope) {
	switch env.Type {
	case models.TypeMessage:
		var msg models.MessagePayload
		if err := env.Decode(&msg); err != nil {
			return
		}
		if msg.Timestamp == 0 {
			msg.Timestamp = time.Now().UnixMilli()
		}
		s.emit(Event{Kind: EventMessage, Message: Message{
			ID:        msg.ID,
			SenderID:  "partner",
			Content:   msg.Content,
			Timestamp: msg.Timestamp,
		}})

	case models.TypeTyping:
		s.emit(Event{Kind: EventTyping, Typing: true})

	case models.TypeStopTyping:
		s.emit(Event{Kind: EventTyping, Typing: false})

	case models.TypePartnerInfo:
		var info models.PartnerInfoPayload
		if err := env.Decode(&info); err != nil {
			return
		}
		if info.Nickname == "" {
			info.Nickname = "Anonymous"
		}
		s.mu.Lock()
		s.selfID = info.SelfID
		s.partnerID = info.PeerID
		s.status = StatusConnected
		s.mu.Unlock()

		s.emit(Event{Kind: EventStatus, Status: StatusConnected})
		s.emit(Event{Kind: EventPartner, Partner: info.Nickname + " (" + info.Department + ")"})
		s.emitSystem("You're now connected with a random partner.")
		if s.listener != nil {
			s.listener.PartnerChanged(info.SelfID, info.PeerID)
		}

	case models.TypePartnerDisconnected:
		s.clearPartner()
		s.setStatus(StatusWaiting)
		s.emitSystem("Your chat partner has disconnected.")

	case models.TypeSystemMessage:
		var sys models.SystemMessagePayload
		if err := env.Decode(&sys); err != nil {
			return
		}
		s.emitSystem(sys.Content)

	case models.TypeWebRTCSignal:
		var sig models.SignalPayload
		if err := env.Decode(&sig); err != nil {
			return
		}
		if s.listener != nil {
			s.listener.HandleSignal(sig.PeerID, sig.Signal)
		}

	default:
		s.log.Debug().Str("type", env.Type).Msg("unhandled message type")
	}
}

// SendMessage sends a chat line to the partner and echoes it locally; the
// server never sends a message back to its author.
func (s *Session) SendMessage(content string) {
	if s.Status() != StatusConnected {
		return
	}
	msg := models.MessagePayload{
		ID:        uuid.New().String(),
		Content:   content,
		Timestamp: time.Now().UnixMilli(),
	}
	s.emit(Event{Kind: EventMessage, Message: Message{
		ID:        msg.ID,
		SenderID:  "you",
		Content:   msg.Content,
		Timestamp: msg.Timestamp,
	}})
	s.send(models.TypeMessage, msg)
}

// SetTyping forwards the typing indicator; a no-op while unpaired.
func (s *Session) SetTyping(isTyping bool) {
	if s.Status() != StatusConnected {
		return
	}
	msgType := models.TypeStopTyping
	if isTyping {
		msgType = models.TypeTyping
	}
	s.send(msgType, nil)
}

// FindNewPartner abandons the current pairing and rejoins the pool.
func (s *Session) FindNewPartner() {
	if s.Status() == StatusDisconnected {
		return
	}
	s.clearPartner()
	s.setStatus(StatusWaiting)
	s.send(models.TypeFindNewPartner, nil)
}

// SendSignal relays one opaque peer-connection signal to the partner. The
// media layer hands us the blob already serialized; it is never inspected
// here.
func (s *Session) SendSignal(peerID string, signal json.RawMessage) {
	if s.Status() != StatusConnected {
		return
	}
	s.send(models.TypeWebRTCSignal, models.SignalPayload{PeerID: peerID, Signal: signal})
}

// Leave announces the departure and closes the transport for good.
func (s *Session) Leave() {
	s.send(models.TypeLeave, nil)
	s.clearPartner()
	s.setStatus(StatusDisconnected)
	s.transport.Close()
}

func (s *Session) sendJoin() {
	s.send(models.TypeJoin, s.profile)
}

func (s *Session) send(msgType string, payload any) {
	env, err := models.NewEnvelope(msgType, payload)
	if err != nil {
		return
	}
	if err := s.transport.SendFrame(env); err != nil {
		s.log.Warn().Err(err).Str("type", msgType).Msg("send failed")
	}
}

// clearPartner drops the pairing and tells the media layer to tear its
// peer down before anything about a new partner is processed.
func (s *Session) clearPartner() {
	s.mu.Lock()
	hadPartner := s.partnerID != ""
	s.partnerID = ""
	s.mu.Unlock()
	if hadPartner && s.listener != nil {
		s.listener.PartnerLost()
	}
}

func (s *Session) setStatus(status Status) {
	s.mu.Lock()
	changed := s.status != status
	s.status = status
	s.mu.Unlock()
	if changed {
		s.emit(Event{Kind: EventStatus, Status: status})
	}
}

func (s *Session) emitSystem(content string) {
	s.emit(Event{Kind: EventMessage, Message: Message{
		ID:        uuid.New().String(),
		SenderID:  "system",
		Content:   content,
		Timestamp: time.Now().UnixMilli(),
		IsSystem:  true,
	}})
}

// emit drops the event when the UI lags rather than stalling the protocol
// loop.
func (s *Session) emit(ev Event) {
	select {
	case s.events <- ev:
	default:
	}
}
