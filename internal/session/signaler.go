package session

import (
	"context"
	"log/slog"
)

// Signaler carries offers and candidates to the remote peer. The transport
// lives outside this package.
type Signaler interface {
	SendOffer(ctx context.Context, callID string, offer Offer) error
	SendCandidate(ctx context.Context, callID string, c Candidate) error
}

// LogSignaler only logs what it would send.
type LogSignaler struct {
	Logger *slog.Logger
}

func (s LogSignaler) SendOffer(ctx context.Context, callID string, offer Offer) error {
	s.logger().InfoContext(ctx, "signaling offer", "call_id", callID, "type", offer.Type, "sdp_bytes", len(offer.SDP))
	return nil
}

func (s LogSignaler) SendCandidate(ctx context.Context, callID string, c Candidate) error {
	s.logger().DebugContext(ctx, "signaling candidate", "call_id", callID, "candidate", c.Candidate)
	return nil
}

func (s LogSignaler) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}
