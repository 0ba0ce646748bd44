package rtcpeer

import (
	"context"
	"errors"
	"sync"

	"github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media"
)

// ErrMediaAccess means neither audio+video nor audio-only capture could be
// acquired. The session keeps working as text chat; no peer is created.
var ErrMediaAccess = errors.New("rtcpeer: could not access camera or microphone")

// ErrTrackStopped is returned by WriteSample after the track's session
// ended.
var ErrTrackStopped = errors.New("rtcpeer: track stopped")

// MediaState is the local-capture half of the state machine.
type MediaState int

const (
	MediaNone MediaState = iota
	MediaRequested
	MediaReady
)

// Track wraps a local outbound track with an in-place mute flag. Toggling
// never renegotiates the connection: a disabled track stays in the SDP and
// simply drops samples.
type Track struct {
	local *webrtc.TrackLocalStaticSample

	mu      sync.Mutex
	enabled bool
	stopped bool
}

func newTrack(codec webrtc.RTPCodecCapability, id, streamID string) (*Track, error) {
	local, err := webrtc.NewTrackLocalStaticSample(codec, id, streamID)
	if err != nil {
		return nil, err
	}
	return &Track{local: local, enabled: true}, nil
}

// Local exposes the underlying pion track for AddTrack.
func (t *Track) Local() webrtc.TrackLocal {
	return t.local
}

func (t *Track) Enabled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.enabled && !t.stopped
}

func (t *Track) SetEnabled(enabled bool) {
	t.mu.Lock()
	t.enabled = enabled
	t.mu.Unlock()
}

// Stop ends the track for good; a stopped track cannot be re-enabled.
func (t *Track) Stop() {
	t.mu.Lock()
	t.stopped = true
	t.mu.Unlock()
}

// WriteSample feeds one captured sample into the track. Samples written
// while the track is muted are discarded without error.
func (t *Track) WriteSample(s media.Sample) error {
	t.mu.Lock()
	stopped, enabled := t.stopped, t.enabled
	t.mu.Unlock()
	if stopped {
		return ErrTrackStopped
	}
	if !enabled {
		return nil
	}
	return t.local.WriteSample(s)
}

// LocalMedia is the set of local tracks for one session. Video is nil when
// capture fell back to audio-only.
type LocalMedia struct {
	Audio *Track
	Video *Track
}

// Tracks returns the non-nil tracks.
func (m *LocalMedia) Tracks() []*Track {
	var out []*Track
	if m.Audio != nil {
		out = append(out, m.Audio)
	}
	if m.Video != nil {
		out = append(out, m.Video)
	}
	return out
}

// StopAll ends every track. Runs as part of session teardown, before any
// peer for a new partner is created.
func (m *LocalMedia) StopAll() {
	for _, t := range m.Tracks() {
		t.Stop()
	}
}

// MediaSource acquires local capture. Acquisition may suspend (permission
// prompts, device warm-up); the manager discards results that resolve after
// the session epoch has moved on.
type MediaSource interface {
	Acquire(ctx context.Context, wantVideo bool) (*LocalMedia, error)
}

// StaticSource builds negotiable Opus/VP8 sample tracks. A capture pipeline
// pushes frames through Track.WriteSample; the tracks themselves carry no
// device I/O, which keeps this usable on headless hosts.
type StaticSource struct{}

func (StaticSource) Acquire(ctx context.Context, wantVideo bool) (*LocalMedia, error) {
	audio, err := newTrack(webrtc.RTPCodecCapability{
		MimeType:  webrtc.MimeTypeOpus,
		ClockRate: 48000,
		Channels:  2,
	}, "audio", "campuschat")
	if err != nil {
		return nil, err
	}

	lm := &LocalMedia{Audio: audio}
	if wantVideo {
		video, err := newTrack(webrtc.RTPCodecCapability{
			MimeType:  webrtc.MimeTypeVP8,
			ClockRate: 90000,
		}, "video", "campuschat")
		if err != nil {
			return nil, err
		}
		lm.Video = video
	}
	return lm, nil
}
