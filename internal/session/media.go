package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media"
)

// Constraints selects which local tracks to capture.
type Constraints struct {
	Audio bool
	Video bool
}

// MediaSource acquires local capture. Acquire fails when capture is denied
// or unavailable; the session maps that to ErrMediaAccess.
type MediaSource interface {
	Acquire(ctx context.Context, c Constraints) (LocalMedia, error)
}

// LocalMedia is a capture handle owned exclusively by one session.
type LocalMedia interface {
	Tracks() []webrtc.TrackLocal
	HasVideo() bool
	SetAudioEnabled(enabled bool)
	SetVideoEnabled(enabled bool)
	// Release stops all tracks. Calling it more than once is safe.
	Release() error
}

// opusSilence is a single 20ms opus frame encoding silence.
var opusSilence = []byte{0xf8, 0xff, 0xfe}

const audioFrame = 20 * time.Millisecond

// SyntheticMediaSource produces pion sample tracks without a capture device:
// an opus track fed with silence and, when requested, an idle VP8 track.
// It stands in for a microphone and camera on headless dialers.
type SyntheticMediaSource struct {
	// StreamID groups the tracks; a random id is used when empty.
	StreamID string
}

func (s SyntheticMediaSource) Acquire(ctx context.Context, c Constraints) (LocalMedia, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !c.Audio && !c.Video {
		return nil, errors.New("no tracks requested")
	}

	streamID := s.StreamID
	if streamID == "" {
		streamID = "local-" + uuid.NewString()
	}

	m := &syntheticMedia{
		audioOn: true,
		videoOn: true,
		stop:    make(chan struct{}),
	}
	if c.Audio {
		t, err := webrtc.NewTrackLocalStaticSample(webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus}, "audio", streamID)
		if err != nil {
			return nil, fmt.Errorf("audio track: %w", err)
		}
		m.audio = t
	}
	if c.Video {
		t, err := webrtc.NewTrackLocalStaticSample(webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8}, "video", streamID)
		if err != nil {
			return nil, fmt.Errorf("video track: %w", err)
		}
		m.video = t
	}
	if m.audio != nil {
		m.wg.Add(1)
		go m.pumpAudio()
	}
	return m, nil
}

type syntheticMedia struct {
	audio *webrtc.TrackLocalStaticSample
	video *webrtc.TrackLocalStaticSample

	mu      sync.Mutex
	audioOn bool
	videoOn bool

	once sync.Once
	stop chan struct{}
	wg   sync.WaitGroup
}

func (m *syntheticMedia) Tracks() []webrtc.TrackLocal {
	var out []webrtc.TrackLocal
	if m.audio != nil {
		out = append(out, m.audio)
	}
	if m.video != nil {
		out = append(out, m.video)
	}
	return out
}

func (m *syntheticMedia) HasVideo() bool { return m.video != nil }

func (m *syntheticMedia) SetAudioEnabled(enabled bool) {
	m.mu.Lock()
	m.audioOn = enabled
	m.mu.Unlock()
}

func (m *syntheticMedia) SetVideoEnabled(enabled bool) {
	m.mu.Lock()
	m.videoOn = enabled
	m.mu.Unlock()
}

func (m *syntheticMedia) Release() error {
	m.once.Do(func() { close(m.stop) })
	m.wg.Wait()
	return nil
}

func (m *syntheticMedia) pumpAudio() {
	defer m.wg.Done()
	tick := time.NewTicker(audioFrame)
	defer tick.Stop()
	for {
		select {
		case <-m.stop:
			return
		case <-tick.C:
			m.mu.Lock()
			on := m.audioOn
			m.mu.Unlock()
			if !on {
				continue
			}
			// Unbound tracks drop samples; errors here only mean the link closed.
			_ = m.audio.WriteSample(media.Sample{Data: opusSilence, Duration: audioFrame})
		}
	}
}
