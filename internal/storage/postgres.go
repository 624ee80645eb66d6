// internal/storage/postgres.go
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"sms-webhook/internal/model"
)

// uniqueViolation is the Postgres error code for a unique constraint failure.
const uniqueViolation = "23505"

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to db: %w", err)
	}

	s := &PostgresStore{db: db}
	if err := s.initSchema(ctx); err != nil {
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}
	return s, nil
}

func (s *PostgresStore) initSchema(ctx context.Context) error {
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

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// InsertMessage inserts a message; the primary key on message_id turns a
// concurrent duplicate delivery into a unique violation, never a second row.
func (s *PostgresStore) InsertMessage(ctx context.Context, m *model.Message) (InsertResult, error) {
	m.ReceivedAt = time.Now().UTC().Format(time.RFC3339)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (message_id, from_msisdn, to_msisdn, ts, text, received_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, m.MessageID, m.FromMSISDN, m.ToMSISDN, m.Timestamp, m.Text, m.ReceivedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return ResultDuplicate, nil
		}
		return "", fmt.Errorf("insert failed: %w", err)
	}
	return ResultCreated, nil
}

// ListMessages retrieves a filtered page ordered by (ts, message_id).
func (s *PostgresStore) ListMessages(ctx context.Context, f model.MessageFilter) (*model.MessagePage, error) {
	var where []string
	var args []interface{}

	if f.From != "" {
		args = append(args, f.From)
		where = append(where, fmt.Sprintf("from_msisdn = $%d", len(args)))
	}
	if f.Since != "" {
		args = append(args, f.Since)
		where = append(where, fmt.Sprintf("ts >= $%d", len(args)))
	}
	if f.Query != "" {
		args = append(args, "%"+strings.ToLower(f.Query)+"%")
		where = append(where, fmt.Sprintf("LOWER(text) LIKE $%d", len(args)))
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

	args = append(args, f.Limit, f.Offset)
	pageQuery := fmt.Sprintf(`
		SELECT message_id, from_msisdn, to_msisdn, ts, text, received_at
		FROM messages
		%s
		ORDER BY ts ASC, message_id ASC
		LIMIT $%d OFFSET $%d
	`, whereSQL, len(args)-1, len(args))

	rows, err := s.db.QueryContext(ctx, pageQuery, args...)
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
func (s *PostgresStore) Stats(ctx context.Context) (*model.Stats, error) {
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
