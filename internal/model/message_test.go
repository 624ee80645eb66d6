package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebhookPayloadValidate(t *testing.T) {
	text := "hi"
	valid := WebhookPayload{
		MessageID: "m1",
		From:      "+1000",
		To:        "+2000",
		Ts:        "2024-01-01T00:00:00Z",
		Text:      &text,
	}
	require.NoError(t, valid.Validate())

	// Text is optional.
	noText := valid
	noText.Text = nil
	require.NoError(t, noText.Validate())

	cases := []struct {
		field  string
		mutate func(*WebhookPayload)
	}{
		{"message_id", func(p *WebhookPayload) { p.MessageID = "" }},
		{"from", func(p *WebhookPayload) { p.From = "" }},
		{"to", func(p *WebhookPayload) { p.To = "" }},
		{"ts", func(p *WebhookPayload) { p.Ts = "" }},
	}
	for _, tc := range cases {
		p := valid
		tc.mutate(&p)
		err := p.Validate()
		require.Error(t, err, tc.field)
		assert.Contains(t, err.Error(), tc.field)
	}
}

func TestWebhookPayloadMessage(t *testing.T) {
	text := "hi"
	p := WebhookPayload{
		MessageID: "m1",
		From:      "+1000",
		To:        "+2000",
		Ts:        "2024-01-01T00:00:00Z",
		Text:      &text,
	}

	m := p.Message()
	assert.Equal(t, "m1", m.MessageID)
	assert.Equal(t, "+1000", m.FromMSISDN)
	assert.Equal(t, "+2000", m.ToMSISDN)
	assert.Equal(t, "2024-01-01T00:00:00Z", m.Timestamp)
	assert.Equal(t, &text, m.Text)
	assert.Empty(t, m.ReceivedAt)
}
