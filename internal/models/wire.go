package models

import "encoding/json"

// Wire message types. Every frame on the socket is an Envelope with one of
// these types; Data is type-specific and may be null for signal-free events.
const (
	TypeJoin                = "join"
	TypeLeave               = "leave"
	TypeMessage             = "message"
	TypeTyping              = "typing"
	TypeStopTyping          = "stopTyping"
	TypeFindNewPartner      = "findNewPartner"
	TypePartnerInfo         = "partnerInfo"
	TypePartnerDisconnected = "partnerDisconnected"
	TypeSystemMessage       = "systemMessage"
	TypeWebRTCSignal        = "webrtc-signal"
)

// Envelope is the single frame format of the chat protocol, in both
// directions. Data stays raw so that opaque payloads (WebRTC signals) are
// relayed byte-for-byte without re-encoding.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// NewEnvelope builds an Envelope with the payload marshalled into Data.
// A nil payload produces a frame with no data field.
func NewEnvelope(msgType string, payload any) (Envelope, error) {
	env := Envelope{Type: msgType}
	if payload == nil {
		return env, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	env.Data = data
	return env, nil
}

// Decode unmarshals the envelope payload into v.
func (e Envelope) Decode(v any) error {
	return json.Unmarshal(e.Data, v)
}

// JoinPayload is sent by a client entering the waiting pool.
type JoinPayload struct {
	Nickname   string `json:"nickname,omitempty"`
	Department string `json:"department"`
}

// MessagePayload is a relayed text message. The server never echoes a
// message back to its sender.
type MessagePayload struct {
	ID        string `json:"id"`
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp"`
}

// PartnerInfoPayload announces a new pairing. PeerID is the partner's
// transport-bound identity, SelfID the recipient's own; both are needed by
// the client for the deterministic WebRTC initiator election.
type PartnerInfoPayload struct {
	Nickname   string `json:"nickname"`
	Department string `json:"department"`
	PeerID     string `json:"peerId"`
	SelfID     string `json:"selfId"`
}

// SignalPayload carries an opaque WebRTC signaling blob. The server rewrites
// PeerID to the sender's identity when relaying; Signal itself is never
// interpreted or re-encoded.
type SignalPayload struct {
	PeerID string          `json:"peerId"`
	Signal json.RawMessage `json:"signal"`
}

// SystemMessagePayload is a server-originated notice.
type SystemMessagePayload struct {
	Content string `json:"content"`
}
