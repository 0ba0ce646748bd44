package rtcpeer

import (
	"encoding/json"
	"fmt"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
)

// PeerState is the transport half of the state machine.
type PeerState int

const (
	PeerNone PeerState = iota
	PeerCreated
	PeerConnected
	PeerClosed
)

// signalBlob is the shape of one relayed signal: either a session
// description or a trickled ICE candidate. The relay never looks inside;
// this type exists only at the two endpoints.
type signalBlob struct {
	Type      string                   `json:"type,omitempty"`
	SDP       string                   `json:"sdp,omitempty"`
	Candidate *webrtc.ICECandidateInit `json:"candidate,omitempty"`
}

// peerHooks are the callbacks a Peer reports through. All of them may be
// invoked from pion's internal goroutines.
type peerHooks struct {
	sendSignal    func(signal json.RawMessage)
	onRemoteTrack func(track *webrtc.TrackRemote)
	onStateChange func(state webrtc.PeerConnectionState)
}

// Peer owns one webrtc.PeerConnection and translates between relayed
// signal blobs and the pion API.
type Peer struct {
	pc    *webrtc.PeerConnection
	hooks peerHooks
	log   zerolog.Logger
}

func newPeer(iceServers []string, localMedia *LocalMedia, hooks peerHooks, log zerolog.Logger) (*Peer, error) {
	cfg := webrtc.Configuration{}
	if len(iceServers) > 0 {
		cfg.ICEServers = []webrtc.ICEServer{{URLs: iceServers}}
	}

	pc, err := webrtc.NewPeerConnection(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create peer connection: %w", err)
	}

	p := &Peer{pc: pc, hooks: hooks, log: log}

	for _, t := range localMedia.Tracks() {
		if _, err := pc.AddTrack(t.Local()); err != nil {
			pc.Close()
			return nil, fmt.Errorf("failed to add local track: %w", err)
		}
	}

	pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		if c == nil {
			return
		}
		init := c.ToJSON()
		raw, err := json.Marshal(signalBlob{Candidate: &init})
		if err != nil {
			return
		}
		p.hooks.sendSignal(raw)
	})

	pc.OnTrack(func(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		if p.hooks.onRemoteTrack != nil {
			p.hooks.onRemoteTrack(track)
		}
	})

	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		p.log.Debug().Str("state", state.String()).Msg("peer connection state")
		if p.hooks.onStateChange != nil {
			p.hooks.onStateChange(state)
		}
	})

	return p, nil
}

// Offer creates the local offer and sends it through the relay without
// waiting for ICE gathering (trickle ICE; candidates follow one by one).
func (p *Peer) Offer() error {
	offer, err := p.pc.CreateOffer(nil)
	if err != nil {
		return fmt.Errorf("failed to create offer: %w", err)
	}
	if err := p.pc.SetLocalDescription(offer); err != nil {
		return fmt.Errorf("failed to set local description: %w", err)
	}
	return p.sendDescription(p.pc.LocalDescription())
}

// HandleSignal feeds one relayed blob into the peer connection, answering
// when the blob is a remote offer.
func (p *Peer) HandleSignal(raw json.RawMessage) error {
	var blob signalBlob
	if err := json.Unmarshal(raw, &blob); err != nil {
		return fmt.Errorf("failed to parse signal: %w", err)
	}

	if blob.SDP != "" {
		switch blob.Type {
		case "offer":
			desc := webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: blob.SDP}
			if err := p.pc.SetRemoteDescription(desc); err != nil {
				return fmt.Errorf("failed to set remote offer: %w", err)
			}
			answer, err := p.pc.CreateAnswer(nil)
			if err != nil {
				return fmt.Errorf("failed to create answer: %w", err)
			}
			if err := p.pc.SetLocalDescription(answer); err != nil {
				return fmt.Errorf("failed to set local answer: %w", err)
			}
			return p.sendDescription(p.pc.LocalDescription())

		case "answer":
			desc := webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: blob.SDP}
			if err := p.pc.SetRemoteDescription(desc); err != nil {
				return fmt.Errorf("failed to set remote answer: %w", err)
			}
			return nil

		default:
			return fmt.Errorf("unexpected signal type: %s", blob.Type)
		}
	}

	if blob.Candidate != nil {
		if err := p.pc.AddICECandidate(*blob.Candidate); err != nil {
			return fmt.Errorf("failed to add ICE candidate: %w", err)
		}
	}
	return nil
}

func (p *Peer) sendDescription(desc *webrtc.SessionDescription) error {
	raw, err := json.Marshal(signalBlob{Type: desc.Type.String(), SDP: desc.SDP})
	if err != nil {
		return err
	}
	p.hooks.sendSignal(raw)
	return nil
}

// Close tears the peer connection down.
func (p *Peer) Close() error {
	return p.pc.Close()
}
