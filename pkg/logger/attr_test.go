package logger_test

import (
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifykit/pkg/logger"
)

func TestGroup(t *testing.T) {
	attr := logger.Group("req", slog.String("id", "1"), slog.Int("n", 2))
	require.Equal(t, "req", attr.Key)
	require.Equal(t, slog.KindGroup, attr.Value.Kind())
	g := attr.Value.Group()
	require.Len(t, g, 2)
	assert.Equal(t, "id", g[0].Key)
	assert.Equal(t, "n", g[1].Key)
}

func TestErrors(t *testing.T) {
	err1 := errors.New("first")
	err2 := errors.New("second")

	attr := logger.Errors(err1, nil, err2)
	require.Equal(t, "errors", attr.Key)
	require.Equal(t, slog.KindGroup, attr.Value.Kind())
	g := attr.Value.Group()
	require.Len(t, g, 2)
	assert.Equal(t, err1, g[0].Value.Any())
	assert.Equal(t, err2, g[1].Value.Any())

	empty := logger.Errors(nil)
	assert.True(t, empty.Equal(slog.Attr{}))
}

func TestError(t *testing.T) {
	err := errors.New("boom")
	attr := logger.Error(err)
	require.Equal(t, "error", attr.Key)
	assert.Equal(t, err, attr.Value.Any())

	empty := logger.Error(nil)
	assert.True(t, empty.Equal(slog.Attr{}))
}

func TestUserID(t *testing.T) {
	attr := logger.UserID("123")
	require.Equal(t, "user_id", attr.Key)
	assert.Equal(t, "123", attr.Value.Any())
}

func TestNotificationID(t *testing.T) {
	attr := logger.NotificationID("n-1")
	require.Equal(t, "notification_id", attr.Key)
	assert.Equal(t, "n-1", attr.Value.Any())

	assert.True(t, logger.NotificationID(nil).Equal(slog.Attr{}))
}

func TestEntryID(t *testing.T) {
	attr := logger.EntryID("e-1")
	require.Equal(t, "entry_id", attr.Key)
	assert.Equal(t, "e-1", attr.Value.Any())

	assert.True(t, logger.EntryID(nil).Equal(slog.Attr{}))
}

func TestChannelAndAttempts(t *testing.T) {
	ch := logger.Channel("email")
	require.Equal(t, "channel", ch.Key)
	assert.Equal(t, "email", ch.Value.Any())

	at := logger.Attempts(3)
	require.Equal(t, "attempts", at.Key)
	assert.Equal(t, int64(3), at.Value.Int64())
}

func TestConnectionID(t *testing.T) {
	attr := logger.ConnectionID("c-1")
	require.Equal(t, "connection_id", attr.Key)
	assert.Equal(t, "c-1", attr.Value.String())
}

func TestRequestID(t *testing.T) {
	attr := logger.RequestID("abc")
	require.Equal(t, "request_id", attr.Key)
	assert.Equal(t, "abc", attr.Value.Any())
}
