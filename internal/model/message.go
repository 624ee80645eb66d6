// internal/model/message.go
package model

import "fmt"

// Message is a single stored SMS record. Messages are immutable once
// persisted; MessageID is the client-supplied idempotency key.
type Message struct {
	MessageID  string  `json:"message_id" db:"message_id"`
	FromMSISDN string  `json:"from" db:"from_msisdn"`
	ToMSISDN   string  `json:"to" db:"to_msisdn"`
	Timestamp  string  `json:"ts" db:"ts"`
	Text       *string `json:"text" db:"text"`
	ReceivedAt string  `json:"received_at" db:"received_at"`
}

// WebhookPayload is the inbound webhook body.
type WebhookPayload struct {
	MessageID string  `json:"message_id"`
	From      string  `json:"from"`
	To        string  `json:"to"`
	Ts        string  `json:"ts"`
	Text      *string `json:"text"`
}

// Validate checks that all required fields are present.
func (p *WebhookPayload) Validate() error {
	required := []struct {
		name  string
		value string
	}{
		{"message_id", p.MessageID},
		{"from", p.From},
		{"to", p.To},
		{"ts", p.Ts},
	}
	for _, f := range required {
		if f.value == "" {
			return fmt.Errorf("missing required field: %s", f.name)
		}
	}
	return nil
}

// Message converts the payload into a storable record. ReceivedAt is
// assigned by the store at insert time.
func (p *WebhookPayload) Message() *Message {
	return &Message{
		MessageID:  p.MessageID,
		FromMSISDN: p.From,
		ToMSISDN:   p.To,
		Timestamp:  p.Ts,
		Text:       p.Text,
	}
}

// MessageFilter controls ListMessages queries. All set predicates are
// combined with AND.
type MessageFilter struct {
	From   string // sender equals
	Since  string // ts >=
	Query  string // case-insensitive substring on text
	Limit  int
	Offset int
}

// MessagePage is one page of list results. Total counts every row
// matching the filter, ignoring Limit/Offset.
type MessagePage struct {
	Data   []Message `json:"data"`
	Total  int       `json:"total"`
	Limit  int       `json:"limit"`
	Offset int       `json:"offset"`
}

// SenderCount is one row of the per-sender breakdown.
type SenderCount struct {
	From  string `json:"from"`
	Count int    `json:"count"`
}

// Stats is the aggregate view over all stored messages. The timestamp
// fields are nil when the store is empty.
type Stats struct {
	TotalMessages     int           `json:"total_messages"`
	SendersCount      int           `json:"senders_count"`
	MessagesPerSender []SenderCount `json:"messages_per_sender"`
	FirstMessageTs    *string       `json:"first_message_ts"`
	LastMessageTs     *string       `json:"last_message_ts"`
}
