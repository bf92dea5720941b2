// Package sqlite persists audit records in a SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hupe1980/agentcouncil/audit"
)

// Logger is an audit.Logger backed by SQLite.
type Logger struct {
	db *sql.DB
}

var _ audit.Logger = (*Logger)(nil)

// Open opens or creates the database at path. Use ":memory:" for an
// ephemeral store.
func Open(path string) (*Logger, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open audit db: %w", err)
	}

	// a single connection keeps ":memory:" databases shared
	db.SetMaxOpenConns(1)

	l := &Logger{db: db}
	if err := l.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return l, nil
}

func (l *Logger) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS audit_records (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		ts INTEGER NOT NULL,
		chat_id TEXT,
		user_id TEXT,
		agent_id TEXT,
		agent_type TEXT,
		action TEXT NOT NULL,
		status TEXT,
		detail TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_audit_chat ON audit_records(chat_id);
	CREATE INDEX IF NOT EXISTS idx_audit_agent ON audit_records(agent_id);
	`

	if _, err := l.db.Exec(schema); err != nil {
		return fmt.Errorf("init audit schema: %w", err)
	}

	return nil
}

// Log inserts a record.
func (l *Logger) Log(ctx context.Context, r audit.Record) error {
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now().UTC()
	}

	_, err := l.db.ExecContext(ctx,
		`INSERT INTO audit_records (ts, chat_id, user_id, agent_id, agent_type, action, status, detail)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.Timestamp.UnixNano(), r.ChatID, r.UserID, r.AgentID, r.AgentType, string(r.Action), r.Status, r.Detail,
	)
	if err != nil {
		return fmt.Errorf("insert audit record: %w", err)
	}

	return nil
}

// Query returns matching records ordered by insertion.
func (l *Logger) Query(ctx context.Context, f audit.Filter) ([]audit.Record, error) {
	var (
		where []string
		args  []any
	)

	eq := func(col, val string) {
		if val != "" {
			where = append(where, col+" = ?")
			args = append(args, val)
		}
	}

	eq("chat_id", f.ChatID)
	eq("user_id", f.UserID)
	eq("agent_id", f.AgentID)
	eq("agent_type", f.AgentType)
	eq("action", string(f.Action))
	eq("status", f.Status)

	if !f.Since.IsZero() {
		where = append(where, "ts >= ?")
		args = append(args, f.Since.UnixNano())
	}

	if !f.Until.IsZero() {
		where = append(where, "ts <= ?")
		args = append(args, f.Until.UnixNano())
	}

	query := "SELECT ts, chat_id, user_id, agent_id, agent_type, action, status, detail FROM audit_records"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}

	query += " ORDER BY id"

	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit records: %w", err)
	}
	defer rows.Close()

	var records []audit.Record

	for rows.Next() {
		var (
			r                                                  audit.Record
			ts                                                 int64
			action                                             string
			chatID, userID, agentID, agentType, status, detail sql.NullString
		)

		if err := rows.Scan(&ts, &chatID, &userID, &agentID, &agentType, &action, &status, &detail); err != nil {
			return nil, fmt.Errorf("scan audit record: %w", err)
		}

		r.Timestamp = time.Unix(0, ts).UTC()
		r.ChatID = chatID.String
		r.UserID = userID.String
		r.AgentID = agentID.String
		r.AgentType = agentType.String
		r.Action = audit.Action(action)
		r.Status = status.String
		r.Detail = detail.String

		records = append(records, r)
	}

	return records, rows.Err()
}

// Close closes the database.
func (l *Logger) Close() error {
	return l.db.Close()
}
