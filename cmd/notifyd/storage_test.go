package main

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenStorage(t *testing.T) {
	t.Parallel()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("memory", func(t *testing.T) {
		t.Parallel()
		s, err := openStorage(context.Background(), driverMemory, log)
		require.NoError(t, err)
		assert.NotNil(t, s.notifications)
		assert.NotNil(t, s.queue)
		assert.NoError(t, s.ready.Fn(context.Background()))
		assert.NoError(t, s.close(context.Background()))
	})

	t.Run("unknown driver", func(t *testing.T) {
		t.Parallel()
		_, err := openStorage(context.Background(), "cassandra", log)
		assert.ErrorIs(t, err, errUnknownDriver)
	})
}
