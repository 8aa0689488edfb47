package transcript

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/xperiencelabs/archat/internal/interfaces"
	"github.com/xperiencelabs/archat/internal/logging"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS conversations (
	id         TEXT PRIMARY KEY,
	session_id TEXT NOT NULL DEFAULT '',
	started_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS messages (
	seq             INTEGER PRIMARY KEY AUTOINCREMENT,
	conversation_id TEXT NOT NULL,
	direction       TEXT NOT NULL,
	kind            TEXT NOT NULL,
	text            TEXT NOT NULL DEFAULT '',
	image_ref       TEXT NOT NULL DEFAULT '',
	created_at      INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id, seq);
`

// SQLiteStore archives transcripts in a local SQLite database
type SQLiteStore struct {
	db     *sql.DB
	logger *logging.Logger
}

// OpenSQLiteStore opens (creating if needed) the database at path.
// ":memory:" gives a private in-memory database.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return nil, storageError("open", fmt.Errorf("failed to create database directory: %w", err))
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, storageError("open", fmt.Errorf("failed to open database: %w", err))
	}
	// A single connection keeps ":memory:" databases coherent and serializes writers
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, storageError("open", fmt.Errorf("database ping failed: %w", err))
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, storageError("migrate", fmt.Errorf("failed to create schema: %w", err))
	}

	return &SQLiteStore{db: db, logger: logging.GetTranscriptLogger().WithField("backend", BackendSQLite)}, nil
}

func (s *SQLiteStore) Append(ctx context.Context, conversationID string, msg interfaces.ChatMessage) error {
	ts := stamp(msg).UnixNano()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storageError("append", err)
	}
	defer tx.Rollback()

	if err := touchConversation(ctx, tx, conversationID, ts); err != nil {
		return storageError("append", err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO messages (conversation_id, direction, kind, text, image_ref, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		conversationID, string(msg.Direction), string(msg.Kind), msg.Text, msg.ImageRef, ts)
	if err != nil {
		return storageError("append", fmt.Errorf("insert failed: %w", err))
	}

	if err := tx.Commit(); err != nil {
		return storageError("append", err)
	}
	s.logger.Debug("Message archived", "conversation_id", conversationID, "direction", msg.Direction)
	return nil
}

func touchConversation(ctx context.Context, tx *sql.Tx, conversationID string, ts int64) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO conversations (id, started_at, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET updated_at = excluded.updated_at`,
		conversationID, ts, ts)
	if err != nil {
		return fmt.Errorf("upsert conversation failed: %w", err)
	}
	return nil
}

func (s *SQLiteStore) BindSession(ctx context.Context, conversationID, sessionID string) error {
	now := time.Now().UnixNano()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO conversations (id, session_id, started_at, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET session_id = excluded.session_id`,
		conversationID, sessionID, now, now)
	if err != nil {
		return storageError("bind_session", err)
	}
	return nil
}

func (s *SQLiteStore) Load(ctx context.Context, conversationID string) ([]interfaces.ChatMessage, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM conversations WHERE id = ?`, conversationID).Scan(&exists)
	if err != nil {
		return nil, storageError("load", err)
	}
	if exists == 0 {
		return nil, notFound(conversationID)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT direction, kind, text, image_ref, created_at FROM messages WHERE conversation_id = ? ORDER BY seq`,
		conversationID)
	if err != nil {
		return nil, storageError("load", fmt.Errorf("query failed: %w", err))
	}
	defer rows.Close()

	messages := []interfaces.ChatMessage{}
	for rows.Next() {
		var (
			msg       interfaces.ChatMessage
			direction string
			kind      string
			createdAt int64
		)
		if err := rows.Scan(&direction, &kind, &msg.Text, &msg.ImageRef, &createdAt); err != nil {
			return nil, storageError("load", fmt.Errorf("scan failed: %w", err))
		}
		msg.Direction = interfaces.Direction(direction)
		msg.Kind = interfaces.MessageKind(kind)
		msg.Timestamp = time.Unix(0, createdAt)
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("load", fmt.Errorf("rows iteration error: %w", err))
	}
	return messages, nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]interfaces.Conversation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.session_id, c.started_at, c.updated_at, COUNT(m.seq)
		FROM conversations c LEFT JOIN messages m ON m.conversation_id = c.id
		GROUP BY c.id`)
	if err != nil {
		return nil, storageError("list", fmt.Errorf("query failed: %w", err))
	}
	defer rows.Close()

	var convs []interfaces.Conversation
	for rows.Next() {
		var (
			conv             interfaces.Conversation
			started, updated int64
		)
		if err := rows.Scan(&conv.ID, &conv.SessionID, &started, &updated, &conv.MessageCount); err != nil {
			return nil, storageError("list", fmt.Errorf("scan failed: %w", err))
		}
		conv.StartedAt = time.Unix(0, started)
		conv.UpdatedAt = time.Unix(0, updated)
		convs = append(convs, conv)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("list", fmt.Errorf("rows iteration error: %w", err))
	}

	sortConversations(convs)
	return convs, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
