package mongo_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	driver "go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/dmitrymomot/notifykit/pkg/mongo"
)

func TestIsNotFound(t *testing.T) {
	t.Parallel()

	assert.True(t, mongo.IsNotFound(driver.ErrNoDocuments))
	assert.True(t, mongo.IsNotFound(fmt.Errorf("get notification: %w", driver.ErrNoDocuments)))
	assert.False(t, mongo.IsNotFound(errors.New("boom")))
	assert.False(t, mongo.IsNotFound(nil))
}

func TestConnect_CanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := mongo.Connect(ctx, mongo.Config{
		ConnectionURL:  "mongodb://127.0.0.1:1",
		ConnectTimeout: 50 * time.Millisecond,
		RetryAttempts:  3,
		RetryInterval:  time.Second,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, mongo.ErrFailedToConnectToMongo)
}

func TestEnsureIndexes_NoModels(t *testing.T) {
	t.Parallel()

	assert.NoError(t, mongo.EnsureIndexes(context.Background(), nil))
}
