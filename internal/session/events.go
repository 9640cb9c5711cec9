package session

// EventKind identifies a peer-link notification.
type EventKind int

const (
	EventTrackReceived EventKind = iota + 1
	EventICECandidate
	EventLinkFailed
)

// Event is a message from the peer link to the owning session. Links never
// touch session state directly; they emit events that the session's loop
// applies in order.
type Event struct {
	Kind EventKind

	// Set for EventTrackReceived.
	Remote *RemoteMedia
	// Set for EventICECandidate.
	Candidate *Candidate
	// Set for EventLinkFailed.
	Err error
}

// RemoteMedia describes an inbound stream from the remote peer.
type RemoteMedia struct {
	TrackID  string `json:"trackId"`
	StreamID string `json:"streamId"`
	Kind     string `json:"kind"`
	Codec    string `json:"codec,omitempty"`
}

// Candidate is a local ICE candidate to be relayed to the remote peer.
type Candidate struct {
	Candidate     string  `json:"candidate"`
	SDPMid        *string `json:"sdpMid,omitempty"`
	SDPMLineIndex *uint16 `json:"sdpMLineIndex,omitempty"`
}

// Offer is the local session description sent to the remote peer.
type Offer struct {
	Type string `json:"type"`
	SDP  string `json:"sdp"`
}

// Emit delivers an event to the session that created the link.
type Emit func(Event)
