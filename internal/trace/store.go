package trace

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"sort"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers "pgx" driver
)

//go:embed migrations/*.sql
var migrationFS embed.FS

const maxSessions = 500

// Writer receives trace records. *Store implements it.
type Writer interface {
	CreateSession(ctx context.Context, sess Session) error
	EndSession(ctx context.Context, id string, at time.Time) error
	RecordTurn(ctx context.Context, turn Turn) error
}

// Store persists chat sessions and turns to PostgreSQL.
type Store struct {
	db *sql.DB
}

// Open connects to the trace database at connStr and applies migrations.
func Open(ctx context.Context, connStr string) (*Store, error) {
	db, err := sql.Open("pgx", connStr)
	if err != nil {
		return nil, fmt.Errorf("trace open: %w", err)
	}
	if err = db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("trace ping: %w", err)
	}
	if err = migrate(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("trace migrate: %w", err)
	}
	return &Store{db: db}, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS chat_schema_version (version INTEGER NOT NULL)`); err != nil {
		return err
	}

	var current int
	if err := db.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), -1) FROM chat_schema_version`).Scan(&current); err != nil {
		return err
	}

	entries, err := migrationFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for i := current + 1; i < len(entries); i++ {
		data, readErr := migrationFS.ReadFile("migrations/" + entries[i].Name())
		if readErr != nil {
			return fmt.Errorf("read migration %s: %w", entries[i].Name(), readErr)
		}
		if _, execErr := db.ExecContext(ctx, string(data)); execErr != nil {
			return fmt.Errorf("migration %s: %w", entries[i].Name(), execErr)
		}
		if _, execErr := db.ExecContext(ctx, `INSERT INTO chat_schema_version (version) VALUES ($1)`, i); execErr != nil {
			return fmt.Errorf("migration %s record: %w", entries[i].Name(), execErr)
		}
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// CreateSession inserts sess and prunes all but the newest sessions.
func (s *Store) CreateSession(ctx context.Context, sess Session) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO chat_sessions (id, remote_addr, user_agent, started_at) VALUES ($1, $2, $3, $4)`,
		sess.ID, sess.RemoteAddr, sess.UserAgent, sess.StartedAt.UTC(),
	)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`DELETE FROM chat_sessions WHERE id NOT IN (SELECT id FROM chat_sessions ORDER BY started_at DESC LIMIT $1)`,
		maxSessions,
	)
	return err
}

func (s *Store) EndSession(ctx context.Context, id string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `UPDATE chat_sessions SET ended_at = $1 WHERE id = $2`, at.UTC(), id)
	return err
}

func (s *Store) RecordTurn(ctx context.Context, t Turn) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO chat_turns (id, session_id, request_id, started_at, duration_ms, user_text, bot_text, intent, confidence, emotion, status, error_msg)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		t.ID, t.SessionID, t.RequestID, t.StartedAt.UTC(), t.DurationMs,
		t.UserText, t.BotText, t.Intent, t.Confidence, t.Emotion, t.Status, t.Error,
	)
	return err
}

// ListSessions returns sessions newest first with turn counts, and the total.
func (s *Store) ListSessions(ctx context.Context, limit, offset int) ([]Session, int, error) {
	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chat_sessions`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, s.remote_addr, s.user_agent, s.started_at, s.ended_at, COUNT(t.id) AS turn_count
		FROM chat_sessions s
		LEFT JOIN chat_turns t ON t.session_id = s.id
		GROUP BY s.id
		ORDER BY s.started_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var sess Session
		var endedAt sql.NullTime
		if err = rows.Scan(&sess.ID, &sess.RemoteAddr, &sess.UserAgent, &sess.StartedAt, &endedAt, &sess.TurnCount); err != nil {
			return nil, 0, err
		}
		if endedAt.Valid {
			sess.EndedAt = &endedAt.Time
		}
		sessions = append(sessions, sess)
	}
	return sessions, total, rows.Err()
}

// GetSession returns one session with its turns in order. A missing session
// yields sql.ErrNoRows.
func (s *Store) GetSession(ctx context.Context, id string) (*Session, []Turn, error) {
	var sess Session
	var endedAt sql.NullTime
	err := s.db.QueryRowContext(ctx,
		`SELECT id, remote_addr, user_agent, started_at, ended_at FROM chat_sessions WHERE id = $1`, id,
	).Scan(&sess.ID, &sess.RemoteAddr, &sess.UserAgent, &sess.StartedAt, &endedAt)
	if err != nil {
		return nil, nil, err
	}
	if endedAt.Valid {
		sess.EndedAt = &endedAt.Time
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, request_id, started_at, duration_ms, user_text, bot_text, intent, confidence, emotion, status, error_msg
		FROM chat_turns
		WHERE session_id = $1
		ORDER BY started_at ASC
	`, id)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var turns []Turn
	for rows.Next() {
		var t Turn
		if err = rows.Scan(&t.ID, &t.SessionID, &t.RequestID, &t.StartedAt, &t.DurationMs,
			&t.UserText, &t.BotText, &t.Intent, &t.Confidence, &t.Emotion, &t.Status, &t.Error); err != nil {
			return nil, nil, err
		}
		turns = append(turns, t)
	}
	sess.TurnCount = len(turns)
	return &sess, turns, rows.Err()
}

// IntentCounts aggregates turns by intent across all sessions.
func (s *Store) IntentCounts(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT intent, COUNT(*) FROM chat_turns WHERE status = $1 GROUP BY intent`, StatusOK)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var intent string
		var n int
		if err = rows.Scan(&intent, &n); err != nil {
			return nil, err
		}
		counts[intent] = n
	}
	return counts, rows.Err()
}
