package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifykit/pkg/logger"
)

func TestContextWith(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	log := logger.New(logger.WithOutput(buf))

	ctx := logger.ContextWith(context.Background(), logger.EntryID("e1"))
	ctx = logger.ContextWith(ctx, logger.Attempts(2), logger.Error(nil))
	log.InfoContext(ctx, "sending")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "e1", entry["entry_id"])
	assert.EqualValues(t, 2, entry["attempts"])
	assert.NotContains(t, entry, "error")
	assert.Len(t, logger.AttrsFromContext(ctx), 2)
}

func TestContextWith_ParentUnchanged(t *testing.T) {
	t.Parallel()

	parent := logger.ContextWith(context.Background(), logger.UserID("u1"))
	_ = logger.ContextWith(parent, logger.NotificationID("n1"))

	attrs := logger.AttrsFromContext(parent)
	require.Len(t, attrs, 1)
	assert.Equal(t, "user_id", attrs[0].Key)

	assert.Nil(t, logger.AttrsFromContext(context.Background()))
	assert.Equal(t, parent, logger.ContextWith(parent))
}

func TestContextWith_SurvivesWithAttrs(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	log := logger.New(logger.WithOutput(buf)).With(logger.Component("worker"))

	log.InfoContext(logger.ContextWith(context.Background(), slog.String("channel", "email")), "sent")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "worker", entry["component"])
	assert.Equal(t, "email", entry["channel"])
}
