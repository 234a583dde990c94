package contentstore

import (
	"context"
	"database/sql"
	"time"

	_ "modernc.org/sqlite"

	"github.com/alpinesboltltd/docwell/internal/entity"
	apperrors "github.com/alpinesboltltd/docwell/internal/errors"
)

// ChatStore persists ChatSession and ChatMessage rows in a dedicated
// SQLite file, separate from the content store so the agent's memory
// can be wiped or migrated independently of the indexed corpus.
type ChatStore struct {
	db *sql.DB
}

const chatSchema = `
CREATE TABLE IF NOT EXISTS chat_sessions (
  id         TEXT PRIMARY KEY,
  title      TEXT NOT NULL DEFAULT '',
  created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS chat_messages (
  id         INTEGER PRIMARY KEY AUTOINCREMENT,
  session_id TEXT NOT NULL,
  role       TEXT NOT NULL,
  content    TEXT NOT NULL,
  timestamp  INTEGER NOT NULL,
  FOREIGN KEY (session_id) REFERENCES chat_sessions(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_chat_messages_session_ts ON chat_messages(session_id, timestamp);
`

// OpenChatStore opens (creating if needed) the chat history database.
func OpenChatStore(ctx context.Context, path string) (*ChatStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, apperrors.NewDatabaseLocked(path, err.Error())
	}
	if _, err := db.ExecContext(ctx, `PRAGMA journal_mode=WAL;`); err != nil {
		db.Close()
		return nil, apperrors.NewDatabaseLocked(path, err.Error())
	}
	if _, err := db.ExecContext(ctx, `PRAGMA foreign_keys=ON;`); err != nil {
		db.Close()
		return nil, apperrors.NewDatabaseLocked(path, err.Error())
	}
	if _, err := db.ExecContext(ctx, chatSchema); err != nil {
		db.Close()
		return nil, err
	}
	return &ChatStore{db: db}, nil
}

// Close releases the underlying database handle.
func (c *ChatStore) Close() error {
	return c.db.Close()
}

// EnsureSession creates a session row if it doesn't already exist,
// letting the caller mint a session id client-side without a round-trip.
// An existing session keeps its title, unless that title is empty and a
// non-empty one is passed, which then fills it.
func (c *ChatStore) EnsureSession(ctx context.Context, sessionID, title string) error {
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO chat_sessions(id, title, created_at) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET title = excluded.title
		 WHERE chat_sessions.title = '' AND excluded.title <> ''`,
		sessionID, title, time.Now().Unix(),
	)
	if err != nil {
		return apperrors.WrapDatabaseError(err, "ensure chat session")
	}
	return nil
}

// ListSessions returns every chat session, most recently created first.
func (c *ChatStore) ListSessions(ctx context.Context) ([]entity.ChatSession, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT id, title, created_at FROM chat_sessions ORDER BY created_at DESC, rowid DESC`,
	)
	if err != nil {
		return nil, apperrors.WrapDatabaseError(err, "list chat sessions")
	}
	defer rows.Close()

	var sessions []entity.ChatSession
	for rows.Next() {
		var s entity.ChatSession
		var ts int64
		if err := rows.Scan(&s.ID, &s.Title, &ts); err != nil {
			return nil, apperrors.WrapDatabaseError(err, "scan chat session")
		}
		s.CreatedAt = time.Unix(ts, 0).UTC()
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// RecentMessages returns the most recent limit messages for a session in
// ascending conversation order, ready to seed the agent's running
// conversation. Ordering breaks timestamp ties with id, since
// timestamp has only second resolution and a user message and the
// model's reply can land in the same second.
func (c *ChatStore) RecentMessages(ctx context.Context, sessionID string, limit int) ([]entity.ChatMessage, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT id, session_id, role, content, timestamp FROM (
			SELECT id, session_id, role, content, timestamp
			FROM chat_messages
			WHERE session_id = ?
			ORDER BY timestamp DESC, id DESC
			LIMIT ?
		) ORDER BY timestamp ASC, id ASC
	`, sessionID, limit)
	if err != nil {
		return nil, apperrors.WrapDatabaseError(err, "load recent chat messages")
	}
	defer rows.Close()

	var messages []entity.ChatMessage
	for rows.Next() {
		var m entity.ChatMessage
		var ts int64
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Role, &m.Content, &ts); err != nil {
			return nil, apperrors.WrapDatabaseError(err, "scan chat message")
		}
		m.Timestamp = time.Unix(ts, 0).UTC()
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// AppendMessage persists a single ChatMessage. Only user and final-model
// messages are meant to be passed here; intermediate tool turns are
// reconstructable from the model's replies and are not persisted.
func (c *ChatStore) AppendMessage(ctx context.Context, sessionID string, role entity.ChatRole, content string) error {
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO chat_messages(session_id, role, content, timestamp) VALUES (?, ?, ?, ?)`,
		sessionID, string(role), content, time.Now().Unix(),
	)
	if err != nil {
		return apperrors.WrapDatabaseError(err, "append chat message")
	}
	return nil
}
