package utils

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestPostgresPoolDefaults(t *testing.T) {
	c := PostgresPoolConfig{MaxOpenConns: 8}.withDefaults()
	if c.MaxOpenConns != 8 || c.MaxIdleConns != 8 {
		t.Fatalf("expected idle to follow open conns, got %+v", c)
	}
	if c.ConnMaxLifetime <= 0 || c.PingTimeout <= 0 {
		t.Fatalf("expected defaults, got %+v", c)
	}
	if c := (PostgresPoolConfig{MaxOpenConns: 4, MaxIdleConns: 10}).withDefaults(); c.MaxIdleConns != 4 {
		t.Fatalf("idle conns must not exceed open conns, got %d", c.MaxIdleConns)
	}
}

func TestRetryableTx(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"serialization", &pgconn.PgError{Code: "40001"}, true},
		{"deadlock wrapped", fmt.Errorf("mark ended: %w", &pgconn.PgError{Code: "40P01"}), true},
		{"unique violation", &pgconn.PgError{Code: "23505"}, false},
		{"plain", errors.New("calls: call not found"), false},
	}
	for _, tc := range cases {
		if got := retryableTx(tc.err); got != tc.want {
			t.Fatalf("%s: got %v want %v", tc.name, got, tc.want)
		}
	}
}

func TestMissingTables(t *testing.T) {
	if err := missingTables(nil); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
	err := missingTables([]string{"calls", "chat_messages"})
	if err == nil || err.Error() != "db schema incomplete: missing calls, chat_messages" {
		t.Fatalf("unexpected error: %v", err)
	}
}
