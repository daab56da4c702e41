package ledger

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store on an embedded SQLite database.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore opens (or creates) the database at dsn and runs migrations.
// A nil clock uses time.Now.
func NewSQLiteStore(dsn string, clock func() time.Time) (*SQLiteStore, error) {
	if clock == nil {
		clock = time.Now
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// For in-memory SQLite, separate connections see separate databases.
	// Pin a single connection so schema and data survive across goroutines.
	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	s := &SQLiteStore{db: db, now: clock}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			session_id TEXT PRIMARY KEY,
			owner_id TEXT,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			summary TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS messages (
			session_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			message_id TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			metadata TEXT,
			result_set BLOB,
			PRIMARY KEY (session_id, seq),
			FOREIGN KEY (session_id) REFERENCES sessions(session_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_session_seq ON messages(session_id, seq)`,
	}
	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return err
		}
	}
	return nil
}

// AppendTx implements Store. The sequence number is assigned inside the
// transaction so it stays monotonic even if callers race (the ledger
// additionally serializes per session).
func (s *SQLiteStore) AppendTx(ctx context.Context, sessionID string, msg Message) (Message, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Message{}, fmt.Errorf("begin append: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := s.now().UTC()
	if msg.Timestamp.IsZero() {
		msg.Timestamp = now
	}
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	msg.SessionID = sessionID

	var seq sql.NullInt64
	if err := tx.QueryRowContext(ctx,
		`SELECT MAX(seq) FROM messages WHERE session_id = ?`, sessionID).Scan(&seq); err != nil {
		return Message{}, fmt.Errorf("next seq: %w", err)
	}
	msg.Seq = seq.Int64 + 1

	// Session row: created on first message, updated_at bumped on every
	// append.
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO sessions (session_id, owner_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(session_id) DO UPDATE SET updated_at = excluded.updated_at`,
		sessionID, msg.Metadata["owner_id"], now, now); err != nil {
		return Message{}, fmt.Errorf("upsert session: %w", err)
	}

	var metadata []byte
	if len(msg.Metadata) > 0 {
		metadata, err = json.Marshal(msg.Metadata)
		if err != nil {
			return Message{}, fmt.Errorf("encode metadata: %w", err)
		}
	}
	resultSet, err := encodeResultSet(msg.ResultSet)
	if err != nil {
		return Message{}, fmt.Errorf("encode result set: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO messages (session_id, seq, message_id, role, content, created_at, metadata, result_set)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		sessionID, msg.Seq, msg.ID, msg.Role, msg.Content, msg.Timestamp.UTC(), metadata, resultSet); err != nil {
		return Message{}, fmt.Errorf("insert message: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return Message{}, fmt.Errorf("commit append: %w", err)
	}
	return msg, nil
}

// Recent implements Store.
func (s *SQLiteStore) Recent(ctx context.Context, sessionID string, limit int) ([]Message, error) {
	query := `SELECT seq, message_id, role, content, created_at, metadata, result_set
		FROM messages WHERE session_id = ? ORDER BY seq DESC`
	args := []any{sessionID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	msgs, err := scanMessages(rows, sessionID)
	if err != nil {
		return nil, err
	}
	// Scanned newest-first; return ascending.
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

// RangeBySeq implements Store.
func (s *SQLiteStore) RangeBySeq(ctx context.Context, sessionID string, fromSeq, toSeq int64) ([]Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT seq, message_id, role, content, created_at, metadata, result_set
		 FROM messages WHERE session_id = ? AND seq >= ? AND seq <= ? ORDER BY seq ASC`,
		sessionID, fromSeq, toSeq)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	return scanMessages(rows, sessionID)
}

// Count implements Store.
func (s *SQLiteStore) Count(ctx context.Context, sessionID string) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM messages WHERE session_id = ?`, sessionID).Scan(&n)
	return n, err
}

// Session implements Store.
func (s *SQLiteStore) Session(ctx context.Context, sessionID string) (*Session, error) {
	var sess Session
	var owner sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT session_id, owner_id, created_at, updated_at, summary
		 FROM sessions WHERE session_id = ?`, sessionID).
		Scan(&sess.ID, &owner, &sess.CreatedAt, &sess.UpdatedAt, &sess.Summary)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	sess.OwnerID = owner.String
	return &sess, nil
}

// UpdateSummary implements Store.
func (s *SQLiteStore) UpdateSummary(ctx context.Context, sessionID, summary string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET summary = ?, updated_at = ? WHERE session_id = ?`,
		summary, s.now().UTC(), sessionID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("session %s not found", sessionID)
	}
	return nil
}

// Clear implements Store.
func (s *SQLiteStore) Clear(ctx context.Context, sessionID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE session_id = ?`, sessionID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE session_id = ?`, sessionID); err != nil {
		return err
	}
	return tx.Commit()
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func scanMessages(rows *sql.Rows, sessionID string) ([]Message, error) {
	var out []Message
	for rows.Next() {
		var m Message
		var metadata sql.NullString
		var resultSet []byte
		if err := rows.Scan(&m.Seq, &m.ID, &m.Role, &m.Content, &m.Timestamp, &metadata, &resultSet); err != nil {
			return nil, err
		}
		m.SessionID = sessionID
		if metadata.Valid && metadata.String != "" {
			if err := json.Unmarshal([]byte(metadata.String), &m.Metadata); err != nil {
				return nil, fmt.Errorf("decode metadata seq %d: %w", m.Seq, err)
			}
		}
		rs, err := decodeResultSet(resultSet)
		if err != nil {
			return nil, fmt.Errorf("decode result set seq %d: %w", m.Seq, err)
		}
		m.ResultSet = rs
		out = append(out, m)
	}
	return out, rows.Err()
}

// encodeResultSet gzips the attachment JSON. Result sets carry full item
// lists and compress well; nil attachments store as NULL.
func encodeResultSet(rs *ResultSetAttachment) ([]byte, error) {
	if rs == nil {
		return nil, nil
	}
	raw, err := json.Marshal(rs)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(raw); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeResultSet(b []byte) (*ResultSetAttachment, error) {
	if len(b) == 0 {
		return nil, nil
	}
	zr, err := gzip.NewReader(bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	raw, err := io.ReadAll(zr)
	if err != nil {
		return nil, err
	}
	if err := zr.Close(); err != nil {
		return nil, err
	}
	var rs ResultSetAttachment
	if err := json.Unmarshal(raw, &rs); err != nil {
		return nil, err
	}
	return &rs, nil
}
