// Package rtcpeer is the client-side peer-connection state machine. It
// reacts to exactly two facts from the chat session — "paired with partner
// P" and "signal arrived from the current partner" — and drives pion
// through media acquisition, deterministic initiator election, signal
// exchange and teardown.
package rtcpeer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
)

// ErrPeerFailed means the media transport failed; the text chat session is
// untouched.
var ErrPeerFailed = errors.New("rtcpeer: peer connection failed")

// SignalFunc carries one locally generated signal to the relay, addressed
// to the current partner.
type SignalFunc func(peerID string, signal json.RawMessage)

// Manager runs one media session at a time. Every partner change bumps a
// session epoch; an asynchronous media acquisition that resolves for an
// old epoch is discarded instead of cancelled, and a stale peer is always
// destroyed before a peer for a new partner exists.
type Manager struct {
	source     MediaSource
	iceServers []string
	sendFn     SignalFunc
	log        zerolog.Logger

	onError       func(error)
	onRemoteTrack func(track *webrtc.TrackRemote)

	mu           sync.Mutex
	epoch        uint64
	selfID       string
	partnerID    string
	media        *LocalMedia
	mediaState   MediaState
	peer         *Peer
	peerState    PeerState
	pending      []json.RawMessage
	remoteActive bool
	lastErr      error
}

func NewManager(source MediaSource, iceServers []string, send SignalFunc, log zerolog.Logger) *Manager {
	return &Manager{
		source:     source,
		iceServers: iceServers,
		sendFn:     send,
		log:        log,
	}
}

// SetOnError registers the handler for surfaced media/peer errors.
func (m *Manager) SetOnError(fn func(error)) {
	m.onError = fn
}

// SetOnRemoteTrack registers the handler for incoming remote tracks.
func (m *Manager) SetOnRemoteTrack(fn func(track *webrtc.TrackRemote)) {
	m.onRemoteTrack = fn
}

// PartnerChanged starts a fresh media session. Any previous session is
// destroyed first.
func (m *Manager) PartnerChanged(selfID, partnerID string) {
	m.mu.Lock()
	m.teardownLocked()
	m.epoch++
	epoch := m.epoch
	m.selfID = selfID
	m.partnerID = partnerID
	m.mediaState = MediaRequested
	m.mu.Unlock()

	go m.setup(epoch, selfID, partnerID)
}

// PartnerLost destroys the current session: peer closed, local tracks
// stopped, remote stream cleared.
func (m *Manager) PartnerLost() {
	m.mu.Lock()
	m.epoch++
	m.teardownLocked()
	m.mu.Unlock()
}

// Close ends whatever session is active.
func (m *Manager) Close() {
	m.PartnerLost()
}

// HandleSignal consumes one relayed signal. Signals not from the current
// partner are stale and dropped; a signal that arrives before local setup
// completes is buffered and replayed once media is ready.
func (m *Manager) HandleSignal(fromPeer string, signal json.RawMessage) {
	m.mu.Lock()
	if m.partnerID == "" || fromPeer != m.partnerID {
		m.mu.Unlock()
		return
	}
	if m.peer == nil {
		if m.media == nil {
			// Remote side signalled before our media resolved.
			m.pending = append(m.pending, signal)
			m.mu.Unlock()
			return
		}
		if err := m.createPeerLocked(m.epoch); err != nil {
			m.mu.Unlock()
			m.surfaceError(err)
			return
		}
	}
	peer := m.peer
	m.mu.Unlock()

	if err := peer.HandleSignal(signal); err != nil {
		m.surfaceError(err)
	}
}

// ToggleVideo flips the local video track's enabled flag in place and
// returns the new state. No renegotiation happens. False when the session
// has no video track.
func (m *Manager) ToggleVideo() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.media == nil || m.media.Video == nil {
		return false
	}
	next := !m.media.Video.Enabled()
	m.media.Video.SetEnabled(next)
	return next
}

// ToggleAudio flips the local audio track's enabled flag in place and
// returns the new state.
func (m *Manager) ToggleAudio() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.media == nil || m.media.Audio == nil {
		return false
	}
	next := !m.media.Audio.Enabled()
	m.media.Audio.SetEnabled(next)
	return next
}

// MediaState returns the local-capture state.
func (m *Manager) MediaState() MediaState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mediaState
}

// PeerState returns the transport state.
func (m *Manager) PeerState() PeerState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.peerState
}

// RemoteActive reports whether a remote stream is currently attached.
func (m *Manager) RemoteActive() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.remoteActive
}

// LastError returns the most recently surfaced error, if any.
func (m *Manager) LastError() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

// setup acquires media and, when this side won the initiator election,
// creates the offering peer. Results are applied only if the epoch is
// still current.
func (m *Manager) setup(epoch uint64, selfID, partnerID string) {
	localMedia, err := m.acquireMedia(context.Background())

	m.mu.Lock()
	if m.epoch != epoch {
		m.mu.Unlock()
		if localMedia != nil {
			localMedia.StopAll()
		}
		return
	}
	if err != nil {
		// Stay in MediaRequested: the error is persistent until the user
		// reconnects or changes permissions. No peer is created.
		m.lastErr = err
		m.mu.Unlock()
		m.surfaceError(err)
		return
	}

	m.media = localMedia
	m.mediaState = MediaReady

	var peerErr error
	if ShouldInitiate(selfID, partnerID) {
		peerErr = m.createPeerLocked(epoch)
		if peerErr == nil {
			peer := m.peer
			go func() {
				if err := peer.Offer(); err != nil {
					m.surfaceError(err)
				}
			}()
		}
	} else if len(m.pending) > 0 {
		// The remote offer beat our media acquisition; consume it now.
		peerErr = m.createPeerLocked(epoch)
		if peerErr == nil {
			pending := m.pending
			m.pending = nil
			peer := m.peer
			go func() {
				for _, raw := range pending {
					if err := peer.HandleSignal(raw); err != nil {
						m.surfaceError(err)
					}
				}
			}()
		}
	}
	m.mu.Unlock()

	if peerErr != nil {
		m.surfaceError(peerErr)
	}
}

// acquireMedia tries audio+video first and falls back to audio-only, the
// same ladder the media-access error policy expects.
func (m *Manager) acquireMedia(ctx context.Context) (*LocalMedia, error) {
	localMedia, err := m.source.Acquire(ctx, true)
	if err == nil {
		return localMedia, nil
	}
	m.log.Warn().Err(err).Msg("video capture failed, trying audio only")

	localMedia, err = m.source.Acquire(ctx, false)
	if err == nil {
		return localMedia, nil
	}
	return nil, fmt.Errorf("%w: %v", ErrMediaAccess, err)
}

func (m *Manager) createPeerLocked(epoch uint64) error {
	hooks := peerHooks{
		sendSignal: func(raw json.RawMessage) {
			m.mu.Lock()
			current := m.epoch == epoch
			partner := m.partnerID
			m.mu.Unlock()
			if current && partner != "" {
				m.sendFn(partner, raw)
			}
		},
		onRemoteTrack: func(track *webrtc.TrackRemote) {
			m.mu.Lock()
			if m.epoch == epoch {
				m.remoteActive = true
			}
			m.mu.Unlock()
			if m.onRemoteTrack != nil {
				m.onRemoteTrack(track)
			}
		},
		onStateChange: func(state webrtc.PeerConnectionState) {
			m.handlePeerState(epoch, state)
		},
	}

	peer, err := newPeer(m.iceServers, m.media, hooks, m.log)
	if err != nil {
		return err
	}
	m.peer = peer
	m.peerState = PeerCreated
	return nil
}

func (m *Manager) handlePeerState(epoch uint64, state webrtc.PeerConnectionState) {
	m.mu.Lock()
	if m.epoch != epoch {
		m.mu.Unlock()
		return
	}
	switch state {
	case webrtc.PeerConnectionStateConnected:
		m.peerState = PeerConnected
		m.mu.Unlock()
	case webrtc.PeerConnectionStateFailed:
		// The media link is gone but the chat-text session survives.
		m.remoteActive = false
		m.lastErr = ErrPeerFailed
		m.mu.Unlock()
		m.surfaceError(ErrPeerFailed)
	case webrtc.PeerConnectionStateClosed:
		m.peerState = PeerClosed
		m.mu.Unlock()
	default:
		m.mu.Unlock()
	}
}

// teardownLocked destroys the peer, stops local tracks and clears the
// remote stream. Callers hold the mutex.
func (m *Manager) teardownLocked() {
	if m.peer != nil {
		m.peer.Close()
		m.peer = nil
		m.peerState = PeerClosed
	} else {
		m.peerState = PeerNone
	}
	if m.media != nil {
		m.media.StopAll()
		m.media = nil
	}
	m.mediaState = MediaNone
	m.partnerID = ""
	m.selfID = ""
	m.pending = nil
	m.remoteActive = false
}

func (m *Manager) surfaceError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
	m.log.Warn().Err(err).Msg("media session error")
	if m.onError != nil {
		m.onError(err)
	}
}
