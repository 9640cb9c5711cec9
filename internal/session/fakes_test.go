package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"dating-platform/internal/calls"
	"dating-platform/pkg/logger"

	"github.com/pion/webrtc/v4"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// countingStore wraps a MemoryStore and records every call made to it.
type countingStore struct {
	*calls.MemoryStore

	mu        sync.Mutex
	creates   int
	updates   []calls.Patch
	failWith  error
	createErr error
	// failStatus fails only updates to this status.
	failStatus calls.Status
	// commitGate, when set, holds Create after the row is stored, like a
	// remote store whose response has not arrived yet. The response is lost
	// if ctx ends first.
	commitGate    chan struct{}
	commitEntered chan struct{}
}

func (s *countingStore) Create(ctx context.Context, in calls.NewRecord) (calls.Record, error) {
	s.mu.Lock()
	s.creates++
	err := s.createErr
	s.mu.Unlock()
	if err != nil {
		return calls.Record{}, err
	}
	rec, err := s.MemoryStore.Create(ctx, in)
	if err != nil || s.commitGate == nil {
		return rec, err
	}
	close(s.commitEntered)
	select {
	case <-s.commitGate:
		return rec, nil
	case <-ctx.Done():
		return calls.Record{}, ctx.Err()
	}
}

func (s *countingStore) Update(ctx context.Context, id string, p calls.Patch) (calls.Record, error) {
	s.mu.Lock()
	s.updates = append(s.updates, p)
	err := s.failWith
	if s.failStatus != "" && p.Status == s.failStatus {
		err = errors.New("store unavailable")
	}
	s.mu.Unlock()
	if err != nil {
		return calls.Record{}, err
	}
	return s.MemoryStore.Update(ctx, id, p)
}

func (s *countingStore) counts() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.creates, len(s.updates)
}

func (s *countingStore) only(t *testing.T, userID string) calls.Record {
	t.Helper()
	recs, err := s.List(context.Background(), calls.Filter{UserID: userID})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected 1 record, got %d", len(recs))
	}
	return recs[0]
}

type fakeLocal struct {
	mu       sync.Mutex
	audioOn  bool
	videoOn  bool
	video    bool
	released int
}

func (l *fakeLocal) Tracks() []webrtc.TrackLocal { return nil }
func (l *fakeLocal) HasVideo() bool              { return l.video }

func (l *fakeLocal) SetAudioEnabled(enabled bool) {
	l.mu.Lock()
	l.audioOn = enabled
	l.mu.Unlock()
}

func (l *fakeLocal) SetVideoEnabled(enabled bool) {
	l.mu.Lock()
	l.videoOn = enabled
	l.mu.Unlock()
}

func (l *fakeLocal) Release() error {
	l.mu.Lock()
	l.released++
	l.mu.Unlock()
	return nil
}

func (l *fakeLocal) releases() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.released
}

type fakeMedia struct {
	err error
	// gate, when set, blocks Acquire until closed or ctx is done.
	gate    chan struct{}
	entered chan struct{}

	mu   sync.Mutex
	last *fakeLocal
}

func (f *fakeMedia) Acquire(ctx context.Context, c Constraints) (LocalMedia, error) {
	if f.entered != nil {
		close(f.entered)
	}
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	l := &fakeLocal{audioOn: true, videoOn: c.Video, video: c.Video}
	f.mu.Lock()
	f.last = l
	f.mu.Unlock()
	return l, nil
}

func (f *fakeMedia) local() *fakeLocal {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last
}

type fakeLink struct {
	emit   Emit
	mu     sync.Mutex
	closed int
	// onOffer runs inside CreateOffer, e.g. to emit a remote track.
	onOffer func(Emit)
}

func (l *fakeLink) AddLocalMedia(LocalMedia) error { return nil }

func (l *fakeLink) CreateOffer(ctx context.Context) (Offer, error) {
	if l.onOffer != nil {
		l.onOffer(l.emit)
	}
	return Offer{Type: "offer", SDP: "v=0"}, nil
}

func (l *fakeLink) Close() error {
	l.mu.Lock()
	l.closed++
	l.mu.Unlock()
	return nil
}

func (l *fakeLink) closes() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}

type fakePeers struct {
	err     error
	onOffer func(Emit)

	mu   sync.Mutex
	last *fakeLink
}

func (f *fakePeers) NewLink(ctx context.Context, cfg LinkConfig, emit Emit) (PeerLink, error) {
	if f.err != nil {
		return nil, f.err
	}
	l := &fakeLink{emit: emit, onOffer: f.onOffer}
	f.mu.Lock()
	f.last = l
	f.mu.Unlock()
	return l, nil
}

func (f *fakePeers) link() *fakeLink {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last
}

type recordingSignaler struct {
	mu         sync.Mutex
	offers     []string
	candidates []Candidate
}

func (s *recordingSignaler) SendOffer(ctx context.Context, callID string, offer Offer) error {
	s.mu.Lock()
	s.offers = append(s.offers, callID)
	s.mu.Unlock()
	return nil
}

func (s *recordingSignaler) SendCandidate(ctx context.Context, callID string, c Candidate) error {
	s.mu.Lock()
	s.candidates = append(s.candidates, c)
	s.mu.Unlock()
	return nil
}

func (s *recordingSignaler) candidateCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.candidates)
}

// ctxGuard hands out the slot only once ctx is done, so setup is always
// canceled before the record is created.
type ctxGuard struct {
	entered  chan struct{}
	mu       sync.Mutex
	released int
}

func (g *ctxGuard) Acquire(ctx context.Context, userID string) (bool, error) {
	close(g.entered)
	<-ctx.Done()
	return true, nil
}

func (g *ctxGuard) Release(ctx context.Context, userID string) error {
	g.mu.Lock()
	g.released++
	g.mu.Unlock()
	return nil
}

func (g *ctxGuard) releases() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.released
}

type brokenGuard struct{ err error }

func (g brokenGuard) Acquire(context.Context, string) (bool, error) { return false, g.err }
func (g brokenGuard) Release(context.Context, string) error         { return nil }

type harness struct {
	clock    *fakeClock
	store    *countingStore
	media    *fakeMedia
	peers    *fakePeers
	signaler *recordingSignaler
	mgr      *Manager
}

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newHarness(t *testing.T, opts Options, tweak func(*Deps)) *harness {
	t.Helper()
	clock := &fakeClock{now: t0}
	n := 0
	mem := calls.NewMemoryStore().WithClock(clock.Now).WithIDs(func() string {
		n++
		return "call_" + string(rune('0'+n))
	})
	h := &harness{
		clock:    clock,
		store:    &countingStore{MemoryStore: mem},
		media:    &fakeMedia{},
		peers:    &fakePeers{},
		signaler: &recordingSignaler{},
	}
	deps := Deps{
		Store:    h.store,
		Media:    h.media,
		Peers:    h.peers,
		Signaler: h.signaler,
		Logger:   logger.Discard(),
		Clock:    clock.Now,
	}
	if tweak != nil {
		tweak(&deps)
	}
	if opts.ConnectTimeout == 0 {
		opts.ConnectTimeout = time.Hour
	}
	m, err := NewManager(deps, opts)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	h.mgr = m
	return h
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

var errDenied = errors.New("permission denied")
