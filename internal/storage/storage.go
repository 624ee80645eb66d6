// internal/storage/storage.go
package storage

import (
	"context"
	"strings"

	"sms-webhook/internal/model"
)

// InsertResult classifies the outcome of an idempotent insert.
type InsertResult string

const (
	ResultCreated   InsertResult = "created"
	ResultDuplicate InsertResult = "duplicate"
)

// Store is the persistence interface for messages. Both PostgresStore
// and SQLiteStore implement it. Duplicate detection is delegated to the
// engine's primary key on message_id; implementations must never
// pre-check existence before inserting.
type Store interface {
	Ping(ctx context.Context) error
	Close() error

	// InsertMessage persists m, assigning ReceivedAt. A second insert
	// with the same MessageID returns ResultDuplicate and leaves the
	// stored record untouched.
	InsertMessage(ctx context.Context, m *model.Message) (InsertResult, error)

	// ListMessages returns one page of messages matching the filter,
	// ordered ascending by (ts, message_id). Total counts all matching
	// rows regardless of Limit/Offset.
	ListMessages(ctx context.Context, f model.MessageFilter) (*model.MessagePage, error)

	// Stats returns aggregate counts over all stored messages.
	Stats(ctx context.Context) (*model.Stats, error)
}

// New opens a store for the given URL. postgres:// and postgresql://
// URLs get the Postgres backend; everything else is treated as a SQLite
// path, with an optional sqlite:// prefix.
func New(ctx context.Context, databaseURL string) (Store, error) {
	if strings.HasPrefix(databaseURL, "postgres://") || strings.HasPrefix(databaseURL, "postgresql://") {
		return NewPostgresStore(ctx, databaseURL)
	}

	path := strings.TrimPrefix(databaseURL, "sqlite:///")
	path = strings.TrimPrefix(path, "sqlite://")
	return NewSQLiteStore(ctx, path)
}
