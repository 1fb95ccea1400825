package alert

import (
	"bytes"
	"errors"
	"log/slog"
	"net/smtp"
	"testing"

	"github.com/soundprediction/multirag/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmailAlerterFormatsMessage(t *testing.T) {
	a := NewEmailAlerter(config.AlertConfig{
		Enabled:  true,
		SMTPHost: "smtp.example.com",
		SMTPPort: 587,
		From:     "rag@example.com",
		To:       []string{"ops@example.com", "oncall@example.com"},
	})

	var gotAddr string
	var gotMsg []byte
	a.send = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr = addr
		gotMsg = msg
		assert.Equal(t, "rag@example.com", from)
		assert.Len(t, to, 2)
		return nil
	}

	require.NoError(t, a.Alert("breaker open", "graph backend failing"))
	assert.Equal(t, "smtp.example.com:587", gotAddr)
	assert.Contains(t, string(gotMsg), "Subject: breaker open")
	assert.Contains(t, string(gotMsg), "To: ops@example.com,oncall@example.com")
}

func TestEmailAlerterWrapsSendError(t *testing.T) {
	a := NewEmailAlerter(config.AlertConfig{Enabled: true, SMTPHost: "h", To: []string{"x"}})
	a.send = func(string, smtp.Auth, string, []string, []byte) error { return errors.New("refused") }
	assert.ErrorContains(t, a.Alert("s", "m"), "failed to send alert email")
}

func TestNewFallsBackToLogAlerter(t *testing.T) {
	var buf bytes.Buffer
	a := New(config.AlertConfig{Enabled: true}, slog.New(slog.NewTextHandler(&buf, nil)))

	_, isLog := a.(*LogAlerter)
	require.True(t, isLog)
	require.NoError(t, a.Alert("breaker open", "details"))
	assert.Contains(t, buf.String(), "breaker open")
}
