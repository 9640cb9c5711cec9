package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"dating-platform/internal/calls"
)

const eventBuffer = 64

// Journal receives lifecycle transitions. *audit.Service satisfies it.
type Journal interface {
	LogTransition(ctx context.Context, userID, callID, from, to string) error
	LogCleanupFailure(ctx context.Context, userID, callID, step string, cause error) error
}

// Deps are the collaborators of a Manager. Guard and Journal are optional.
type Deps struct {
	Store    calls.Store
	Media    MediaSource
	Peers    PeerFactory
	Signaler Signaler
	Guard    Guard
	Journal  Journal
	Logger   *slog.Logger
	Clock    func() time.Time
}

type Options struct {
	VideoEnabled bool
	// ConnectTimeout bounds the wait for remote media after the offer is out.
	ConnectTimeout time.Duration
	ICEServers     []string
}

// Manager drives one outbound call attempt at a time, keeping local media,
// the peer link and the remote call record consistent.
type Manager struct {
	store    calls.Store
	media    MediaSource
	peers    PeerFactory
	signaler Signaler
	guard    Guard
	journal  Journal
	log      *slog.Logger
	clock    func() time.Time
	opts     Options

	mu    sync.Mutex
	state State
	sess  *callSession
	err   error
}

func NewManager(d Deps, o Options) (*Manager, error) {
	switch {
	case d.Store == nil:
		return nil, errors.New("session: store is required")
	case d.Media == nil:
		return nil, errors.New("session: media source is required")
	case d.Peers == nil:
		return nil, errors.New("session: peer factory is required")
	case d.Signaler == nil:
		return nil, errors.New("session: signaler is required")
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Clock == nil {
		d.Clock = time.Now
	}
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = 30 * time.Second
	}
	return &Manager{
		store:    d.Store,
		media:    d.Media,
		peers:    d.Peers,
		signaler: d.Signaler,
		guard:    d.Guard,
		journal:  d.Journal,
		log:      d.Logger,
		clock:    d.Clock,
		opts:     o,
	}, nil
}

// callSession is the transient state of one attempt. Resource fields are
// guarded by Manager.mu.
type callSession struct {
	callerID   string
	receiverID string

	record  *calls.Record
	local   LocalMedia
	remote  *RemoteMedia
	link    PeerLink
	guarded bool

	muted   bool
	videoOn bool

	cancel    context.CancelFunc
	setupDone chan struct{}

	events   chan Event
	done     chan struct{}
	doneOnce sync.Once

	// torn is closed once a failed session has released everything.
	torn chan struct{}
}

func (s *callSession) emit(e Event) {
	select {
	case s.events <- e:
	case <-s.done:
	}
}

func (s *callSession) stop() {
	s.doneOnce.Do(func() { close(s.done) })
}

// InitiateCall creates the call record, acquires local media, builds the
// peer link, sends the offer and marks the record ongoing. On success the
// manager is Connecting and waits for remote media in the background.
//
// Any failure after the record exists marks it missed before the error is
// returned, and leaves the manager Errored until Reset.
func (m *Manager) InitiateCall(ctx context.Context, callerID, receiverID string) (calls.Record, error) {
	req, verr := calls.NewRecord{CallerID: callerID, ReceiverID: receiverID, Status: calls.StatusInitiated}.Normalize()

	m.mu.Lock()
	if m.state != StateIdle {
		st := m.state
		m.mu.Unlock()
		return calls.Record{}, fmt.Errorf("%w: cannot initiate a call while %s", ErrInvalidState, st)
	}
	if verr != nil {
		m.mu.Unlock()
		return calls.Record{}, fmt.Errorf("%w: %w", ErrValidation, verr)
	}

	setupCtx, cancel := context.WithCancel(ctx)
	s := &callSession{
		callerID:   req.CallerID,
		receiverID: req.ReceiverID,
		videoOn:    m.opts.VideoEnabled,
		cancel:     cancel,
		setupDone:  make(chan struct{}),
		events:     make(chan Event, eventBuffer),
		done:       make(chan struct{}),
		torn:       make(chan struct{}),
	}
	m.sess = s
	m.err = nil
	m.state = StateInitiating
	m.mu.Unlock()
	m.logTransition(ctx, s, "", StateIdle, StateInitiating)

	rec, err := m.setup(setupCtx, s, req)
	cancel()

	m.mu.Lock()
	if m.state == StateEnding {
		// EndCall owns teardown and is waiting for setupDone.
		m.mu.Unlock()
		close(s.setupDone)
		if err == nil || !errors.Is(err, ErrCanceled) {
			err = fmt.Errorf("%w: call ended during setup", ErrCanceled)
		}
		return calls.Record{}, err
	}

	if err != nil {
		if errors.Is(err, ErrInvalidState) || errors.Is(err, ErrGuardUnavailable) {
			// Stopped at the guard before anything was acquired.
			m.state = StateIdle
			m.sess = nil
			m.mu.Unlock()
			close(s.setupDone)
			s.stop()
			m.logTransition(ctx, s, "", StateInitiating, StateIdle)
			return calls.Record{}, err
		}
		m.state = StateErrored
		m.err = err
		callID := s.callIDLocked()
		m.mu.Unlock()
		close(s.setupDone)

		m.logTransition(ctx, s, callID, StateInitiating, StateErrored)
		m.log.WarnContext(ctx, "call setup failed", "user_id", s.callerID, "call_id", callID, "error", err)
		m.releaseAfterFailure(context.WithoutCancel(ctx), s, calls.StatusMissed)
		return calls.Record{}, err
	}

	m.state = StateConnecting
	m.mu.Unlock()
	close(s.setupDone)
	m.logTransition(ctx, s, rec.ID, StateInitiating, StateConnecting)

	go m.run(context.WithoutCancel(ctx), s, rec.ID)
	return rec, nil
}

func (m *Manager) setup(ctx context.Context, s *callSession, req calls.NewRecord) (calls.Record, error) {
	if m.guard != nil {
		ok, err := m.guard.Acquire(ctx, s.callerID)
		if err != nil {
			return calls.Record{}, fmt.Errorf("%w: %w", ErrGuardUnavailable, err)
		}
		if !ok {
			return calls.Record{}, fmt.Errorf("%w: user %s already has a live call", ErrInvalidState, s.callerID)
		}
		m.mu.Lock()
		s.guarded = true
		m.mu.Unlock()
	}
	if err := ctx.Err(); err != nil {
		return calls.Record{}, fmt.Errorf("%w: %w", ErrCanceled, err)
	}

	// A create that was already sent may commit even if the caller hangs up,
	// so it runs to completion and the id is kept for teardown.
	rec, err := m.store.Create(context.WithoutCancel(ctx), req)
	if err != nil {
		return calls.Record{}, stepErr(ctx, ErrRecordStore, fmt.Errorf("create record: %w", err))
	}
	m.mu.Lock()
	s.record = &rec
	m.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return calls.Record{}, fmt.Errorf("%w: %w", ErrCanceled, err)
	}

	local, err := m.media.Acquire(ctx, Constraints{Audio: true, Video: m.opts.VideoEnabled})
	if err != nil {
		return calls.Record{}, stepErr(ctx, ErrMediaAccess, err)
	}
	m.mu.Lock()
	s.local = local
	m.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return calls.Record{}, fmt.Errorf("%w: %w", ErrCanceled, err)
	}

	link, err := m.peers.NewLink(ctx, LinkConfig{ICEServers: m.opts.ICEServers}, s.emit)
	if err != nil {
		return calls.Record{}, stepErr(ctx, ErrSignaling, err)
	}
	m.mu.Lock()
	s.link = link
	m.mu.Unlock()

	if err := link.AddLocalMedia(local); err != nil {
		return calls.Record{}, stepErr(ctx, ErrSignaling, err)
	}
	offer, err := link.CreateOffer(ctx)
	if err != nil {
		return calls.Record{}, stepErr(ctx, ErrSignaling, err)
	}
	// An offer built after cancellation is dropped, never sent.
	if err := ctx.Err(); err != nil {
		return calls.Record{}, fmt.Errorf("%w: %w", ErrCanceled, err)
	}
	if err := m.signaler.SendOffer(ctx, rec.ID, offer); err != nil {
		return calls.Record{}, stepErr(ctx, ErrSignaling, fmt.Errorf("send offer: %w", err))
	}

	updated, err := m.store.Update(ctx, rec.ID, calls.Patch{Status: calls.StatusOngoing})
	if err != nil {
		return calls.Record{}, stepErr(ctx, ErrRecordStore, fmt.Errorf("mark ongoing: %w", err))
	}
	m.mu.Lock()
	s.record = &updated
	m.mu.Unlock()
	return updated, nil
}

// stepErr classifies a setup failure, preferring ErrCanceled when the
// failure was caused by cancellation.
func stepErr(ctx context.Context, kind, err error) error {
	if ctx.Err() != nil {
		return fmt.Errorf("%w: %w", ErrCanceled, err)
	}
	return fmt.Errorf("%w: %w", kind, err)
}

// EndCall releases local media, closes the peer link and records the call
// as ended. It is a no-op unless a session is initiating, connecting or
// active. When called during setup, setup is canceled first and whatever
// it acquired is released.
func (m *Manager) EndCall(ctx context.Context) error {
	m.mu.Lock()
	s, from := m.sess, m.state
	if !from.live() {
		m.mu.Unlock()
		return nil
	}
	m.state = StateEnding
	callID := s.callIDLocked()
	m.mu.Unlock()
	m.logTransition(ctx, s, callID, from, StateEnding)

	if from == StateInitiating {
		s.cancel()
		<-s.setupDone
	}

	err := m.teardown(ctx, s, calls.StatusEnded)

	m.mu.Lock()
	m.state = StateIdle
	m.sess = nil
	callID = s.callIDLocked()
	m.mu.Unlock()
	m.logTransition(ctx, s, callID, StateEnding, StateIdle)

	if err != nil {
		return fmt.Errorf("%w: %w", ErrRecordStore, err)
	}
	return nil
}

// teardown releases local resources, then updates the record to outcome.
// Release failures are logged; only the record update error is returned.
func (m *Manager) teardown(ctx context.Context, s *callSession, outcome calls.Status) error {
	s.stop()

	m.mu.Lock()
	local, link, rec, guarded := s.local, s.link, s.record, s.guarded
	s.local, s.link, s.guarded = nil, nil, false
	m.mu.Unlock()

	callID := ""
	if rec != nil {
		callID = rec.ID
	}
	if local != nil {
		if err := local.Release(); err != nil {
			m.cleanupFailed(ctx, s, callID, "release_media", err)
		}
	}
	if link != nil {
		if err := link.Close(); err != nil {
			m.cleanupFailed(ctx, s, callID, "close_link", err)
		}
	}
	if guarded {
		if err := m.guard.Release(ctx, s.callerID); err != nil {
			m.cleanupFailed(ctx, s, callID, "release_guard", err)
		}
	}

	if rec == nil {
		if outcome == calls.StatusEnded {
			m.recordAbandoned(ctx, s)
		}
		return nil
	}

	patch := calls.Patch{Status: outcome}
	if outcome == calls.StatusEnded {
		end := m.clock().UTC()
		patch.EndTime = &end
	}
	updated, err := m.store.Update(ctx, rec.ID, patch)
	if err != nil {
		return fmt.Errorf("mark %s: %w", outcome, err)
	}
	m.mu.Lock()
	s.record = &updated
	m.mu.Unlock()
	return nil
}

// recordAbandoned leaves a missed record for an attempt that was ended
// before the store assigned an id.
func (m *Manager) recordAbandoned(ctx context.Context, s *callSession) {
	rec, err := m.store.Create(ctx, calls.NewRecord{CallerID: s.callerID, ReceiverID: s.receiverID})
	if err == nil {
		rec, err = m.store.Update(ctx, rec.ID, calls.Patch{Status: calls.StatusMissed})
	}
	if err != nil {
		m.cleanupFailed(ctx, s, "", "record_abandoned", err)
		return
	}
	m.mu.Lock()
	s.record = &rec
	m.mu.Unlock()
}

// releaseAfterFailure is teardown where the record update is best-effort.
func (m *Manager) releaseAfterFailure(ctx context.Context, s *callSession, outcome calls.Status) {
	defer close(s.torn)
	if err := m.teardown(ctx, s, outcome); err != nil {
		m.cleanupFailed(ctx, s, m.callID(s), "mark_"+string(outcome), err)
	}
}

// run applies peer-link events and enforces the connect timeout until the
// session is torn down.
func (m *Manager) run(ctx context.Context, s *callSession, callID string) {
	timer := time.NewTimer(m.opts.ConnectTimeout)
	defer timer.Stop()
	timeout := timer.C

	for {
		select {
		case <-s.done:
			return
		case <-timeout:
			m.fail(ctx, s, fmt.Errorf("%w after %s", ErrConnectTimeout, m.opts.ConnectTimeout))
			return
		case ev := <-s.events:
			switch ev.Kind {
			case EventTrackReceived:
				if m.attachRemote(ctx, s, ev.Remote) {
					timeout = nil
				}
			case EventICECandidate:
				if ev.Candidate == nil {
					continue
				}
				if err := m.signaler.SendCandidate(ctx, callID, *ev.Candidate); err != nil {
					m.log.WarnContext(ctx, "send ice candidate failed", "call_id", callID, "error", err)
				}
			case EventLinkFailed:
				m.fail(ctx, s, fmt.Errorf("%w: %w", ErrSignaling, ev.Err))
				return
			}
		}
	}
}

func (m *Manager) attachRemote(ctx context.Context, s *callSession, r *RemoteMedia) bool {
	if r == nil {
		return false
	}
	m.mu.Lock()
	if m.sess != s || (m.state != StateConnecting && m.state != StateActive) {
		m.mu.Unlock()
		return false
	}
	from := m.state
	s.remote = r
	m.state = StateActive
	callID := s.callIDLocked()
	m.mu.Unlock()

	if from != StateActive {
		m.logTransition(ctx, s, callID, from, StateActive)
	}
	return true
}

// fail moves a connecting or active session to Errored. A call that never
// got remote media is missed; one that did is ended.
func (m *Manager) fail(ctx context.Context, s *callSession, cause error) {
	m.mu.Lock()
	if m.sess != s || (m.state != StateConnecting && m.state != StateActive) {
		m.mu.Unlock()
		return
	}
	from := m.state
	m.state = StateErrored
	m.err = cause
	callID := s.callIDLocked()
	m.mu.Unlock()

	m.logTransition(ctx, s, callID, from, StateErrored)
	m.log.WarnContext(ctx, "call failed", "user_id", s.callerID, "call_id", callID, "error", cause)

	outcome := calls.StatusMissed
	if from == StateActive {
		outcome = calls.StatusEnded
	}
	m.releaseAfterFailure(ctx, s, outcome)
}

// ToggleMute flips the mute flag of the held local media and returns the
// new value. Without local media it changes nothing.
func (m *Manager) ToggleMute() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.sess
	if s == nil {
		return false
	}
	if s.local == nil {
		return s.muted
	}
	s.muted = !s.muted
	s.local.SetAudioEnabled(!s.muted)
	return s.muted
}

// ToggleVideoEnabled flips the outgoing video flag and returns the new value.
func (m *Manager) ToggleVideoEnabled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.sess
	if s == nil {
		return false
	}
	if s.local == nil || !s.local.HasVideo() {
		return s.videoOn
	}
	s.videoOn = !s.videoOn
	s.local.SetVideoEnabled(s.videoOn)
	return s.videoOn
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Err returns the error that moved the manager to Errored, if any.
func (m *Manager) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

// Reset returns an Errored manager to Idle so a new call can be placed. It
// waits until the failed session has released its resources.
func (m *Manager) Reset() error {
	m.mu.Lock()
	switch m.state {
	case StateIdle:
		m.mu.Unlock()
		return nil
	case StateErrored:
	default:
		st := m.state
		m.mu.Unlock()
		return fmt.Errorf("%w: cannot reset while %s", ErrInvalidState, st)
	}
	s := m.sess
	m.mu.Unlock()

	if s != nil {
		<-s.torn
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StateErrored && m.sess == s {
		m.state = StateIdle
		m.sess = nil
		m.err = nil
	}
	return nil
}

// Snapshot is a point-in-time view of the manager.
type Snapshot struct {
	State         State
	Record        *calls.Record
	Remote        *RemoteMedia
	HasLocalMedia bool
	Muted         bool
	VideoEnabled  bool
	LastError     error
}

func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := Snapshot{State: m.state, LastError: m.err}
	if s := m.sess; s != nil {
		if s.record != nil {
			rec := *s.record
			snap.Record = &rec
		}
		if s.remote != nil {
			r := *s.remote
			snap.Remote = &r
		}
		snap.HasLocalMedia = s.local != nil
		snap.Muted = s.muted
		snap.VideoEnabled = s.videoOn
	}
	return snap
}

func (s *callSession) callIDLocked() string {
	if s.record == nil {
		return ""
	}
	return s.record.ID
}

func (m *Manager) callID(s *callSession) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return s.callIDLocked()
}

func (m *Manager) logTransition(ctx context.Context, s *callSession, callID string, from, to State) {
	m.log.DebugContext(ctx, "call state", "user_id", s.callerID, "call_id", callID, "from", from.String(), "to", to.String())
	if m.journal == nil {
		return
	}
	if err := m.journal.LogTransition(ctx, s.callerID, callID, from.String(), to.String()); err != nil {
		m.log.WarnContext(ctx, "journal append failed", "call_id", callID, "error", err)
	}
}

func (m *Manager) cleanupFailed(ctx context.Context, s *callSession, callID, step string, cause error) {
	m.log.WarnContext(ctx, "call cleanup step failed", "user_id", s.callerID, "call_id", callID, "step", step, "error", cause)
	if m.journal == nil {
		return
	}
	if err := m.journal.LogCleanupFailure(ctx, s.callerID, callID, step, cause); err != nil {
		m.log.WarnContext(ctx, "journal append failed", "call_id", callID, "error", err)
	}
}
