package calls

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"dating-platform/pkg/utils"

	"github.com/google/uuid"
)

// Schema creates the calls table. EnsureSchema applies it.
const Schema = `
CREATE TABLE IF NOT EXISTS calls (
  id          TEXT PRIMARY KEY,
  caller_id   TEXT NOT NULL,
  receiver_id TEXT NOT NULL,
  status      TEXT NOT NULL,
  start_time  TIMESTAMPTZ NOT NULL,
  end_time    TIMESTAMPTZ,
  duration    INTEGER,
  CHECK (caller_id <> receiver_id),
  CHECK ((status = 'ended') = (end_time IS NOT NULL AND duration IS NOT NULL))
);
CREATE INDEX IF NOT EXISTS calls_caller_start_idx ON calls (caller_id, start_time DESC);
CREATE INDEX IF NOT EXISTS calls_receiver_start_idx ON calls (receiver_id, start_time DESC);
`

// PostgresStore persists call records through database/sql (pgx stdlib driver).
type PostgresStore struct {
	db    *sql.DB
	clock func() time.Time
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, clock: time.Now}
}

func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, Schema)
	return err
}

func (s *PostgresStore) Create(ctx context.Context, in NewRecord) (Record, error) {
	in, err := in.Normalize()
	if err != nil {
		return Record{}, err
	}

	rec := Record{
		ID:         "call_" + uuid.NewString(),
		CallerID:   in.CallerID,
		ReceiverID: in.ReceiverID,
		Status:     in.Status,
		StartTime:  s.clock().UTC(),
	}
	const q = `
INSERT INTO calls (id, caller_id, receiver_id, status, start_time)
VALUES ($1,$2,$3,$4,$5)
`
	if _, err := s.db.ExecContext(ctx, q, rec.ID, rec.CallerID, rec.ReceiverID, rec.Status, rec.StartTime); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// Update locks the row, applies the patch in Go and writes it back in one transaction,
// so concurrent updates cannot regress the status.
func (s *PostgresStore) Update(ctx context.Context, id string, p Patch) (Record, error) {
	if id == "" {
		return Record{}, &ValidationError{Problems: []string{"callId is required"}}
	}

	var out Record
	err := utils.WithTx(ctx, s.db, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		rec, err := lockCall(ctx, tx, id)
		if err != nil {
			return err
		}
		updated, err := ApplyPatch(rec, p, s.clock())
		if err != nil {
			return err
		}
		const q = `
UPDATE calls SET status = $2, end_time = $3, duration = $4
WHERE id = $1
`
		if _, err := tx.ExecContext(ctx, q, updated.ID, updated.Status, nullTime(updated.EndTime), nullInt(updated.Duration)); err != nil {
			return err
		}
		out = updated
		return nil
	})
	return out, err
}

func (s *PostgresStore) List(ctx context.Context, f Filter) ([]Record, error) {
	if f.UserID == "" {
		return nil, &ValidationError{Problems: []string{"userId is required"}}
	}
	const q = `
SELECT id, caller_id, receiver_id, status, start_time, end_time, duration
FROM calls
WHERE caller_id = $1 OR receiver_id = $1
ORDER BY start_time DESC
`
	rows, err := s.db.QueryContext(ctx, q, f.UserID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Record, 0)
	for rows.Next() {
		rec, err := scanCall(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func lockCall(ctx context.Context, tx *sql.Tx, id string) (Record, error) {
	const q = `
SELECT id, caller_id, receiver_id, status, start_time, end_time, duration
FROM calls
WHERE id = $1
FOR UPDATE
`
	rec, err := scanCall(tx.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, err
	}
	return rec, nil
}

func scanCall(row rowScanner) (Record, error) {
	var (
		rec      Record
		endTime  sql.NullTime
		duration sql.NullInt64
	)
	if err := row.Scan(
		&rec.ID,
		&rec.CallerID,
		&rec.ReceiverID,
		&rec.Status,
		&rec.StartTime,
		&endTime,
		&duration,
	); err != nil {
		return Record{}, err
	}
	rec.StartTime = rec.StartTime.UTC()
	if endTime.Valid {
		t := endTime.Time.UTC()
		rec.EndTime = &t
	}
	if duration.Valid {
		d := int(duration.Int64)
		rec.Duration = &d
	}
	return rec, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullInt(n *int) sql.NullInt64 {
	if n == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*n), Valid: true}
}
