package users

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

const Schema = `
CREATE TABLE IF NOT EXISTS users (
  id            TEXT PRIMARY KEY,
  email         TEXT NOT NULL UNIQUE,
  name          TEXT NOT NULL,
  age           INTEGER,
  bio           TEXT NOT NULL DEFAULT '',
  location      TEXT NOT NULL DEFAULT '',
  profile_image TEXT NOT NULL DEFAULT '',
  interests     JSONB NOT NULL DEFAULT '[]',
  password_hash TEXT NOT NULL DEFAULT '',
  created_at    TIMESTAMPTZ NOT NULL,
  updated_at    TIMESTAMPTZ NOT NULL
);
`

const uniqueViolation = "23505"

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) EnsureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, Schema)
	return err
}

func (r *PostgresRepo) Create(ctx context.Context, u User) error {
	interests, err := json.Marshal(nonNil(u.Interests))
	if err != nil {
		return err
	}
	const q = `
INSERT INTO users (id, email, name, age, bio, location, profile_image, interests, password_hash, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
`
	_, err = r.db.ExecContext(ctx, q,
		u.ID, u.Email, u.Name, nullAge(u.Age), u.Bio, u.Location, u.ProfileImage,
		string(interests), u.PasswordHash, u.CreatedAt, u.UpdatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrConflict
	}
	return err
}

func (r *PostgresRepo) FindByEmail(ctx context.Context, email string) (User, error) {
	const q = `
SELECT id, email, name, age, bio, location, profile_image, interests, password_hash, created_at, updated_at
FROM users
WHERE email = $1
`
	u, err := scanUser(r.db.QueryRowContext(ctx, q, email))
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	return u, err
}

func (r *PostgresRepo) List(ctx context.Context) ([]User, error) {
	const q = `
SELECT id, email, name, age, bio, location, profile_image, interests, password_hash, created_at, updated_at
FROM users
ORDER BY created_at DESC, id
`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (User, error) {
	var (
		u         User
		age       sql.NullInt64
		interests []byte
	)
	if err := row.Scan(
		&u.ID, &u.Email, &u.Name, &age, &u.Bio, &u.Location, &u.ProfileImage,
		&interests, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt,
	); err != nil {
		return User{}, err
	}
	if age.Valid {
		n := int(age.Int64)
		u.Age = &n
	}
	if err := json.Unmarshal(interests, &u.Interests); err != nil {
		return User{}, err
	}
	u.CreatedAt = u.CreatedAt.UTC()
	u.UpdatedAt = u.UpdatedAt.UTC()
	return u, nil
}

func nullAge(n *int) sql.NullInt64 {
	if n == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*n), Valid: true}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
