// internal/storage/sqlite.go
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"sms-webhook/internal/model"
)

// SQLiteStore is the embedded single-file backend. WAL mode lets
// readers and the writer interleave without blocking each other.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		dbPath = "./data/messages.db"
	}

	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to db: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(ctx); err != nil {
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS messages (
		message_id  TEXT PRIMARY KEY,
		from_msisdn TEXT NOT NULL,
		to_msisdn   TEXT NOT NULL,
		ts          TEXT NOT NULL,
		text        TEXT,
		received_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_messages_ts ON messages (ts, message_id);
	CREATE INDEX IF NOT EXISTS idx_messages_from ON messages (from_msisdn);
	`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// InsertMessage inserts a message, mapping the primary key violation on
// message_id to ResultDuplicate.
func (s *SQLiteStore) InsertMessage(ctx context.Context, m *model.Message) (InsertResult, error) {
	m.ReceivedAt = time.Now().UTC().Format(time.RFC3339)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (message_id, from_msisdn, to_msisdn, ts, text, received_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, m.MessageID, m.FromMSISDN, m.ToMSISDN, m.Timestamp, m.Text, m.ReceivedAt)
	if err != nil {
		var sqErr sqlite3.Error
		if errors.As(err, &sqErr) && sqErr.Code == sqlite3.ErrConstraint {
			return ResultDuplicate, nil
		}
		return "", fmt.Errorf("insert failed: %w", err)
	}
	return ResultCreated, nil
}

// ListMessages retrieves a filtered page ordered by (ts, message_id).
func (s *SQLiteStore) ListMessages(ctx context.Context, f model.MessageFilter) (*model.MessagePage, error) {
	var where []string
	var args []interface{}

	if f.From != "" {
		where = append(where, "from_msisdn = ?")
		args = append(args, f.From)
	}
	if f.Since != "" {
		where = append(where, "ts >= ?")
		args = append(args, f.Since)
	}
	if f.Query != "" {
		where = append(where, "LOWER(text) LIKE ?")
		args = append(args, "%"+strings.ToLower(f.Query)+"%")
	}

	whereSQL := ""
	if len(where) > 0 {
		whereSQL = "WHERE " + strings.Join(where, " AND ")
	}

	// Total ignores pagination; computed from the same filter.
	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM messages %s", whereSQL)
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count failed: %w", err)
	}

	pageQuery := fmt.Sprintf(`
		SELECT message_id, from_msisdn, to_msisdn, ts, text, received_at
		FROM messages
		%s
		ORDER BY ts ASC, message_id ASC
		LIMIT ? OFFSET ?
	`, whereSQL)

	rows, err := s.db.QueryContext(ctx, pageQuery, append(args, f.Limit, f.Offset)...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	data := make([]model.Message, 0)
	for rows.Next() {
		var m model.Message
		if err := rows.Scan(&m.MessageID, &m.FromMSISDN, &m.ToMSISDN, &m.Timestamp, &m.Text, &m.ReceivedAt); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		data = append(data, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows failed: %w", err)
	}

	return &model.MessagePage{
		Data:   data,
		Total:  total,
		Limit:  f.Limit,
		Offset: f.Offset,
	}, nil
}

// Stats aggregates message counts, the top senders and the timestamp range.
func (s *SQLiteStore) Stats(ctx context.Context) (*model.Stats, error) {
	stats := &model.Stats{MessagesPerSender: make([]model.SenderCount, 0)}

	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COUNT(DISTINCT from_msisdn) FROM messages`,
	).Scan(&stats.TotalMessages, &stats.SendersCount)
	if err != nil {
		return nil, fmt.Errorf("count failed: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT from_msisdn, COUNT(*) AS cnt
		FROM messages
		GROUP BY from_msisdn
		ORDER BY cnt DESC, from_msisdn ASC
		LIMIT 10
	`)
	if err != nil {
		return nil, fmt.Errorf("sender breakdown failed: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var sc model.SenderCount
		if err := rows.Scan(&sc.From, &sc.Count); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		stats.MessagesPerSender = append(stats.MessagesPerSender, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows failed: %w", err)
	}

	err = s.db.QueryRowContext(ctx,
		`SELECT MIN(ts), MAX(ts) FROM messages`,
	).Scan(&stats.FirstMessageTs, &stats.LastMessageTs)
	if err != nil {
		return nil, fmt.Errorf("timestamp range failed: %w", err)
	}

	return stats, nil
}
