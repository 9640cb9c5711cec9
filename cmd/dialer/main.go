// Command dialer places one outbound call from the command line and keeps
// it up until interrupted, the peer never answers, or -max-duration passes.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dating-platform/internal/audit"
	"dating-platform/internal/auth"
	"dating-platform/internal/calls"
	"dating-platform/internal/config"
	"dating-platform/internal/session"
	"dating-platform/pkg/logger"
	"dating-platform/pkg/utils"
)

func main() {
	var (
		callerID    = flag.String("caller", "", "caller user id")
		receiverID  = flag.String("receiver", "", "receiver user id")
		maxDuration = flag.Duration("max-duration", 0, "end the call after this long (0 = until interrupted)")
	)
	flag.Parse()

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}
	log := logger.New(cfg.App.Env).With("component", "dialer")
	slog.SetDefault(log)

	if err := run(rootCtx, cfg, log, *callerID, *receiverID, *maxDuration); err != nil {
		log.Error("call failed", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger, callerID, receiverID string, maxDuration time.Duration) error {
	token := cfg.Call.APIToken
	if token == "" {
		// Same secret as the API, so a locally minted token is accepted.
		am, err := auth.NewManager(cfg.Auth)
		if err != nil {
			return err
		}
		if token, err = am.Issue(time.Now(), callerID); err != nil {
			return fmt.Errorf("issue token: %w", err)
		}
	}

	var guard session.Guard = session.NewLocalGuard()
	if cfg.UsesRedis() {
		rdb, err := utils.OpenRedis(ctx, utils.RedisConfig{Addr: cfg.RedisAddr()})
		if err != nil {
			return err
		}
		defer rdb.Close()
		guard = session.NewRedisGuard(rdb, 0)
	}

	journal := newWatchJournal(audit.NewService(audit.NewMemoryRepo()))
	mgr, err := session.NewManager(session.Deps{
		Store:    calls.NewClient(cfg.Call.APIBaseURL, token),
		Media:    session.SyntheticMediaSource{},
		Peers:    session.PionPeerFactory{},
		Signaler: session.LogSignaler{Logger: log},
		Guard:    guard,
		Journal:  journal,
		Logger:   log,
	}, session.Options{
		VideoEnabled:   cfg.Call.VideoEnabled,
		ConnectTimeout: cfg.Call.ConnectTimeout,
		ICEServers:     cfg.Call.ICEServers,
	})
	if err != nil {
		return err
	}

	rec, err := mgr.InitiateCall(ctx, callerID, receiverID)
	if err != nil {
		return err
	}
	log.Info("call placed", "call_id", rec.ID, "receiver_id", rec.ReceiverID, "connect_timeout", cfg.Call.ConnectTimeout.String())

	var deadline <-chan time.Time
	if maxDuration > 0 {
		t := time.NewTimer(maxDuration)
		defer t.Stop()
		deadline = t.C
	}

	select {
	case <-ctx.Done():
		log.Info("interrupted, ending call", "call_id", rec.ID)
	case <-deadline:
		log.Info("max duration reached, ending call", "call_id", rec.ID)
	case <-journal.errored:
		err := settleFailure(mgr, log, rec.ID)
		reportCleanup(context.WithoutCancel(ctx), journal.Service, log, rec.ID)
		return err
	}

	endCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := mgr.EndCall(endCtx); err != nil {
		return err
	}
	log.Info("call ended", "call_id", rec.ID)
	return nil
}

type failedSession interface {
	Err() error
	Reset() error
}

// settleFailure returns the cause of a failed call once its teardown is done.
// Reset clears the cause, so it is read first.
func settleFailure(mgr failedSession, log *slog.Logger, callID string) error {
	cause := mgr.Err()
	if err := mgr.Reset(); err != nil {
		log.Warn("reset after failed call", "call_id", callID, "err", err)
	}
	return cause
}

// reportCleanup logs every teardown step of the call that failed.
func reportCleanup(ctx context.Context, journal *audit.Service, log *slog.Logger, callID string) {
	evs, err := journal.History(ctx, audit.Query{CallID: callID, Type: audit.EventTypeCallCleanupFailed})
	if err != nil {
		log.Warn("read call journal", "call_id", callID, "err", err)
		return
	}
	for _, e := range evs {
		log.Warn("call cleanup failed", "call_id", callID, "detail", e.Metadata, "at", e.CreatedAt)
	}
}

// watchJournal forwards to the audit journal and signals when the session
// reaches the errored state.
type watchJournal struct {
	*audit.Service
	errored chan struct{}
}

func newWatchJournal(svc *audit.Service) *watchJournal {
	return &watchJournal{Service: svc, errored: make(chan struct{}, 1)}
}

func (j *watchJournal) LogTransition(ctx context.Context, userID, callID, from, to string) error {
	if to == session.StateErrored.String() {
		select {
		case j.errored <- struct{}{}:
		default:
		}
	}
	return j.Service.LogTransition(ctx, userID, callID, from, to)
}
