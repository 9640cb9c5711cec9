package calls

import (
	"errors"
	"testing"
	"time"
)

func TestCanTransition_ForwardOnly(t *testing.T) {
	cases := []struct {
		from, to Status
		ok       bool
	}{
		{StatusInitiated, StatusOngoing, true},
		{StatusInitiated, StatusMissed, true},
		{StatusInitiated, StatusEnded, true},
		{StatusOngoing, StatusEnded, true},
		{StatusOngoing, StatusMissed, true},
		{StatusOngoing, StatusInitiated, false},
		{StatusEnded, StatusOngoing, false},
		{StatusEnded, StatusEnded, false},
		{StatusMissed, StatusInitiated, false},
		{StatusMissed, StatusEnded, false},
		{StatusInitiated, Status("ringing"), false},
	}
	for _, c := range cases {
		if got := CanTransition(c.from, c.to); got != c.ok {
			t.Fatalf("CanTransition(%s, %s) = %v, want %v", c.from, c.to, got, c.ok)
		}
	}
}

func TestNewRecordNormalize_RejectsSameParticipants(t *testing.T) {
	_, err := NewRecord{CallerID: "u1", ReceiverID: " u1 "}.Normalize()
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestNewRecordNormalize_DefaultsStatus(t *testing.T) {
	n, err := NewRecord{CallerID: "u1", ReceiverID: "u2"}.Normalize()
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if n.Status != StatusInitiated {
		t.Fatalf("expected initiated, got %q", n.Status)
	}
	if _, err := (NewRecord{CallerID: "u1", ReceiverID: "u2", Status: StatusEnded}).Normalize(); err == nil {
		t.Fatalf("expected terminal status to be rejected at creation")
	}
}

func TestApplyPatch_EndedComputesRoundedDuration(t *testing.T) {
	t0 := time.Unix(1700000000, 0).UTC()
	rec := Record{ID: "call_1", CallerID: "u1", ReceiverID: "u2", Status: StatusOngoing, StartTime: t0}
	end := t0.Add(125 * time.Second)

	out, err := ApplyPatch(rec, Patch{Status: StatusEnded, EndTime: &end}, t0)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if out.Status != StatusEnded || out.EndTime == nil || !out.EndTime.Equal(end) {
		t.Fatalf("unexpected record: %+v", out)
	}
	if out.Duration == nil || *out.Duration != 2 {
		t.Fatalf("expected duration 2, got %v", out.Duration)
	}
}

func TestApplyPatch_EndedWithoutEndTimeUsesNow(t *testing.T) {
	t0 := time.Unix(1700000000, 0).UTC()
	rec := Record{Status: StatusInitiated, StartTime: t0}
	out, err := ApplyPatch(rec, Patch{Status: StatusEnded}, t0.Add(90*time.Second))
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if out.EndTime == nil || out.Duration == nil || *out.Duration != 2 {
		t.Fatalf("expected end time stamped and duration 2, got %+v", out)
	}
}

func TestApplyPatch_EndTimeOnlyWithEnded(t *testing.T) {
	end := time.Now()
	_, err := ApplyPatch(Record{Status: StatusOngoing}, Patch{Status: StatusMissed, EndTime: &end}, end)
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestApplyPatch_RejectsRegression(t *testing.T) {
	_, err := ApplyPatch(Record{Status: StatusMissed}, Patch{Status: StatusOngoing}, time.Now())
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected invalid transition, got %v", err)
	}
}

func TestDurationMinutes(t *testing.T) {
	t0 := time.Unix(0, 0)
	cases := []struct {
		span time.Duration
		want int
	}{
		{0, 0},
		{29 * time.Second, 0},
		{30 * time.Second, 1},
		{89 * time.Second, 1},
		{125 * time.Second, 2},
		{-5 * time.Minute, 0},
	}
	for _, c := range cases {
		if got := DurationMinutes(t0, t0.Add(c.span)); got != c.want {
			t.Fatalf("DurationMinutes(%s) = %d, want %d", c.span, got, c.want)
		}
	}
}

// Random forward/backward patch sequences never break the end-time invariant.
func TestApplyPatch_EndTimeInvariantHolds(t *testing.T) {
	t0 := time.Unix(1700000000, 0).UTC()
	statuses := []Status{StatusInitiated, StatusOngoing, StatusEnded, StatusMissed}
	seed := uint32(7)
	next := func() uint32 {
		seed = seed*1664525 + 1013904223
		return seed >> 16
	}

	for run := 0; run < 200; run++ {
		rec := Record{ID: "c", CallerID: "a", ReceiverID: "b", Status: StatusInitiated, StartTime: t0}
		for step := 0; step < 6; step++ {
			p := Patch{Status: statuses[next()%4]}
			if next()%2 == 0 {
				e := t0.Add(time.Duration(next()%600) * time.Second)
				p.EndTime = &e
			}
			if out, err := ApplyPatch(rec, p, t0.Add(time.Minute)); err == nil {
				rec = out
			}
			hasEnd := rec.EndTime != nil && rec.Duration != nil
			if hasEnd != (rec.Status == StatusEnded) {
				t.Fatalf("invariant broken: %+v", rec)
			}
			if rec.Duration != nil && *rec.Duration < 0 {
				t.Fatalf("negative duration: %+v", rec)
			}
		}
	}
}
