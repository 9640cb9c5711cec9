package chat

import (
	"context"
	"database/sql"
)

const Schema = `
CREATE TABLE IF NOT EXISTS chat_messages (
  id          TEXT PRIMARY KEY,
  chat_id     TEXT NOT NULL,
  sender_id   TEXT NOT NULL,
  receiver_id TEXT NOT NULL,
  content     TEXT NOT NULL CHECK (char_length(content) BETWEEN 1 AND 1000),
  sent_at     TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS chat_messages_chat_sent_idx ON chat_messages (chat_id, sent_at);
`

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

func (r *PostgresRepo) Append(ctx context.Context, m Message) error {
	const q = `
INSERT INTO chat_messages (id, chat_id, sender_id, receiver_id, content, sent_at)
VALUES ($1,$2,$3,$4,$5,$6)
`
	_, err := r.db.ExecContext(ctx, q, m.ID, m.ChatID, m.SenderID, m.ReceiverID, m.Content, m.Timestamp)
	return err
}

func (r *PostgresRepo) ByChat(ctx context.Context, chatID string) ([]Message, error) {
	const q = `
SELECT id, chat_id, sender_id, receiver_id, content, sent_at
FROM chat_messages
WHERE chat_id = $1
ORDER BY sent_at ASC
`
	rows, err := r.db.QueryContext(ctx, q, chatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Message, 0)
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.ChatID, &m.SenderID, &m.ReceiverID, &m.Content, &m.Timestamp); err != nil {
			return nil, err
		}
		m.Timestamp = m.Timestamp.UTC()
		out = append(out, m)
	}
	return out, rows.Err()
}
