package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sms-webhook/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	s, err := NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func strPtr(s string) *string { return &s }

func testMessage(id, from, ts string) *model.Message {
	return &model.Message{
		MessageID:  id,
		FromMSISDN: from,
		ToMSISDN:   "+2000",
		Timestamp:  ts,
		Text:       strPtr("hello"),
	}
}

func TestNewDispatchesSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dispatch.db")

	s, err := New(context.Background(), "sqlite:///"+path)
	require.NoError(t, err)
	defer s.Close()

	_, ok := s.(*SQLiteStore)
	assert.True(t, ok)
}

func TestInsertMessageIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	result, err := s.InsertMessage(ctx, testMessage("m1", "+1000", "2024-01-01T00:00:00Z"))
	require.NoError(t, err)
	assert.Equal(t, ResultCreated, result)

	// Same id with a different body must not touch the stored record.
	dup := testMessage("m1", "+9999", "2025-01-01T00:00:00Z")
	result, err = s.InsertMessage(ctx, dup)
	require.NoError(t, err)
	assert.Equal(t, ResultDuplicate, result)

	page, err := s.ListMessages(ctx, model.MessageFilter{Limit: 10})
	require.NoError(t, err)
	require.Len(t, page.Data, 1)
	assert.Equal(t, 1, page.Total)
	assert.Equal(t, "+1000", page.Data[0].FromMSISDN)
	assert.Equal(t, "2024-01-01T00:00:00Z", page.Data[0].Timestamp)
}

func TestInsertMessageAssignsReceivedAt(t *testing.T) {
	s := newTestStore(t)

	m := testMessage("m1", "+1000", "2024-01-01T00:00:00Z")
	_, err := s.InsertMessage(context.Background(), m)
	require.NoError(t, err)
	assert.NotEmpty(t, m.ReceivedAt)

	page, err := s.ListMessages(context.Background(), model.MessageFilter{Limit: 1})
	require.NoError(t, err)
	require.Len(t, page.Data, 1)
	assert.Equal(t, m.ReceivedAt, page.Data[0].ReceivedAt)
}

func TestInsertMessageConcurrentDuplicates(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	const n = 20
	results := make([]InsertResult, n)
	errs := make([]error, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = s.InsertMessage(ctx, testMessage("race", "+1000", "2024-01-01T00:00:00Z"))
		}(i)
	}
	wg.Wait()

	created := 0
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		if results[i] == ResultCreated {
			created++
		}
	}
	assert.Equal(t, 1, created)

	page, err := s.ListMessages(ctx, model.MessageFilter{Limit: 100})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)
}

func TestListMessagesOrdering(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Inserted out of order on purpose.
	for _, m := range []*model.Message{
		testMessage("m2", "+1000", "2024-01-02T00:00:00Z"),
		testMessage("m1", "+1000", "2024-01-01T00:00:00Z"),
		testMessage("m3", "+1000", "2024-01-03T00:00:00Z"),
		testMessage("m0", "+1000", "2024-01-02T00:00:00Z"), // ties with m2 on ts
	} {
		_, err := s.InsertMessage(ctx, m)
		require.NoError(t, err)
	}

	page, err := s.ListMessages(ctx, model.MessageFilter{Limit: 10})
	require.NoError(t, err)
	require.Len(t, page.Data, 4)

	var ids []string
	for _, m := range page.Data {
		ids = append(ids, m.MessageID)
	}
	assert.Equal(t, []string{"m1", "m0", "m2", "m3"}, ids)
}

func TestListMessagesPagination(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := s.InsertMessage(ctx, testMessage(
			fmt.Sprintf("m%d", i), "+1000", fmt.Sprintf("2024-01-0%dT00:00:00Z", i+1)))
		require.NoError(t, err)
	}

	page, err := s.ListMessages(ctx, model.MessageFilter{Limit: 2, Offset: 2})
	require.NoError(t, err)
	assert.Equal(t, 5, page.Total)
	require.Len(t, page.Data, 2)
	assert.Equal(t, "m2", page.Data[0].MessageID)
	assert.Equal(t, "m3", page.Data[1].MessageID)

	// Offset beyond total: empty page, unchanged total.
	page, err = s.ListMessages(ctx, model.MessageFilter{Limit: 10, Offset: 100})
	require.NoError(t, err)
	assert.Equal(t, 5, page.Total)
	assert.Empty(t, page.Data)
	assert.NotNil(t, page.Data)
}

func TestListMessagesFilterConjunction(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	insert := func(id, from, ts, text string) {
		m := testMessage(id, from, ts)
		m.Text = strPtr(text)
		_, err := s.InsertMessage(ctx, m)
		require.NoError(t, err)
	}

	insert("a", "+1000", "2024-01-01T00:00:00Z", "Hello world") // fails since
	insert("b", "+1000", "2024-02-01T00:00:00Z", "goodbye")     // fails q
	insert("c", "+2000", "2024-02-01T00:00:00Z", "hello again") // fails from
	insert("d", "+1000", "2024-02-01T00:00:00Z", "say HELLO")   // matches all

	page, err := s.ListMessages(ctx, model.MessageFilter{
		From:  "+1000",
		Since: "2024-02-01T00:00:00Z",
		Query: "hello",
		Limit: 10,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)
	require.Len(t, page.Data, 1)
	assert.Equal(t, "d", page.Data[0].MessageID)
}

func TestListMessagesCaseInsensitiveSearch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	m := testMessage("m1", "+1000", "2024-01-01T00:00:00Z")
	m.Text = strPtr("URGENT: call back")
	_, err := s.InsertMessage(ctx, m)
	require.NoError(t, err)

	page, err := s.ListMessages(ctx, model.MessageFilter{Query: "urgent", Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)
}

func TestListMessagesNullText(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	m := testMessage("m1", "+1000", "2024-01-01T00:00:00Z")
	m.Text = nil
	_, err := s.InsertMessage(ctx, m)
	require.NoError(t, err)

	page, err := s.ListMessages(ctx, model.MessageFilter{Limit: 10})
	require.NoError(t, err)
	require.Len(t, page.Data, 1)
	assert.Nil(t, page.Data[0].Text)

	// A text filter must not match messages without a body.
	page, err = s.ListMessages(ctx, model.MessageFilter{Query: "anything", Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 0, page.Total)
}

func TestStatsEmptyStore(t *testing.T) {
	s := newTestStore(t)

	stats, err := s.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalMessages)
	assert.Equal(t, 0, stats.SendersCount)
	assert.Empty(t, stats.MessagesPerSender)
	assert.NotNil(t, stats.MessagesPerSender)
	assert.Nil(t, stats.FirstMessageTs)
	assert.Nil(t, stats.LastMessageTs)
}

func TestStatsPopulated(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i, from := range []string{"+1000", "+1000", "+1000", "+3000", "+2000"} {
		_, err := s.InsertMessage(ctx, testMessage(
			fmt.Sprintf("m%d", i), from, fmt.Sprintf("2024-01-0%dT00:00:00Z", i+1)))
		require.NoError(t, err)
	}

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, stats.TotalMessages)
	assert.Equal(t, 3, stats.SendersCount)

	// Count descending, ties broken by sender ascending.
	require.Len(t, stats.MessagesPerSender, 3)
	assert.Equal(t, model.SenderCount{From: "+1000", Count: 3}, stats.MessagesPerSender[0])
	assert.Equal(t, model.SenderCount{From: "+2000", Count: 1}, stats.MessagesPerSender[1])
	assert.Equal(t, model.SenderCount{From: "+3000", Count: 1}, stats.MessagesPerSender[2])

	require.NotNil(t, stats.FirstMessageTs)
	require.NotNil(t, stats.LastMessageTs)
	assert.Equal(t, "2024-01-01T00:00:00Z", *stats.FirstMessageTs)
	assert.Equal(t, "2024-01-05T00:00:00Z", *stats.LastMessageTs)
}

func TestStoreSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "durable.db")
	ctx := context.Background()

	s, err := NewSQLiteStore(ctx, path)
	require.NoError(t, err)
	_, err = s.InsertMessage(ctx, testMessage("m1", "+1000", "2024-01-01T00:00:00Z"))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	reopened, err := NewSQLiteStore(ctx, path)
	require.NoError(t, err)
	defer reopened.Close()

	page, err := reopened.ListMessages(ctx, model.MessageFilter{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)

	result, err := reopened.InsertMessage(ctx, testMessage("m1", "+1000", "2024-01-01T00:00:00Z"))
	require.NoError(t, err)
	assert.Equal(t, ResultDuplicate, result)
}
