package logger

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrettyHandler_RedactsCredentials(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewPrettyHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	log.Info("session issued",
		"user_id", "user-1",
		"access_token", "eyJhbGciOi.super.secret",
		"otp", "123456",
	)

	out := buf.String()
	assert.Contains(t, out, "user-1")
	assert.Contains(t, out, "[redacted]")
	assert.NotContains(t, out, "super.secret")
	assert.NotContains(t, out, "123456")
}

func TestPrettyHandler_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	h := NewPrettyHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn})

	assert.False(t, h.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, h.Enabled(context.Background(), slog.LevelError))
}
