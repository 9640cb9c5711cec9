package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/pion/webrtc/v4"
)

// LinkConfig configures one peer link.
type LinkConfig struct {
	ICEServers []string
}

// PeerFactory builds peer links. Every event of the link, for its whole
// lifetime, goes through emit.
type PeerFactory interface {
	NewLink(ctx context.Context, cfg LinkConfig, emit Emit) (PeerLink, error)
}

// PeerLink is the peer-to-peer media transport of one session.
type PeerLink interface {
	AddLocalMedia(m LocalMedia) error
	// CreateOffer produces the local description and applies it locally.
	CreateOffer(ctx context.Context) (Offer, error)
	// Close tears the link down. Calling it more than once is safe.
	Close() error
}

// PionPeerFactory builds links on pion/webrtc peer connections.
type PionPeerFactory struct {
	// API is optional; webrtc.NewPeerConnection defaults are used when nil.
	API *webrtc.API
}

func (f PionPeerFactory) NewLink(ctx context.Context, cfg LinkConfig, emit Emit) (PeerLink, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	conf := webrtc.Configuration{}
	if len(cfg.ICEServers) > 0 {
		conf.ICEServers = []webrtc.ICEServer{{URLs: cfg.ICEServers}}
	}

	var (
		pc  *webrtc.PeerConnection
		err error
	)
	if f.API != nil {
		pc, err = f.API.NewPeerConnection(conf)
	} else {
		pc, err = webrtc.NewPeerConnection(conf)
	}
	if err != nil {
		return nil, fmt.Errorf("new peer connection: %w", err)
	}

	l := &pionLink{pc: pc}
	pc.OnTrack(func(tr *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		emit(Event{Kind: EventTrackReceived, Remote: &RemoteMedia{
			TrackID:  tr.ID(),
			StreamID: tr.StreamID(),
			Kind:     tr.Kind().String(),
			Codec:    tr.Codec().MimeType,
		}})
	})
	pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		// nil marks the end of gathering.
		if c == nil {
			return
		}
		init := c.ToJSON()
		emit(Event{Kind: EventICECandidate, Candidate: &Candidate{
			Candidate:     init.Candidate,
			SDPMid:        init.SDPMid,
			SDPMLineIndex: init.SDPMLineIndex,
		}})
	})
	pc.OnConnectionStateChange(func(s webrtc.PeerConnectionState) {
		if s == webrtc.PeerConnectionStateFailed {
			emit(Event{Kind: EventLinkFailed, Err: fmt.Errorf("peer connection %s", s)})
		}
	})
	return l, nil
}

type pionLink struct {
	pc   *webrtc.PeerConnection
	once sync.Once
	err  error
}

func (l *pionLink) AddLocalMedia(m LocalMedia) error {
	for _, t := range m.Tracks() {
		if _, err := l.pc.AddTrack(t); err != nil {
			return fmt.Errorf("add %s track: %w", t.Kind(), err)
		}
	}
	return nil
}

func (l *pionLink) CreateOffer(ctx context.Context) (Offer, error) {
	if err := ctx.Err(); err != nil {
		return Offer{}, err
	}
	offer, err := l.pc.CreateOffer(nil)
	if err != nil {
		return Offer{}, fmt.Errorf("create offer: %w", err)
	}
	if err := l.pc.SetLocalDescription(offer); err != nil {
		return Offer{}, fmt.Errorf("set local description: %w", err)
	}
	return Offer{Type: offer.Type.String(), SDP: offer.SDP}, nil
}

func (l *pionLink) Close() error {
	l.once.Do(func() { l.err = l.pc.Close() })
	return l.err
}
