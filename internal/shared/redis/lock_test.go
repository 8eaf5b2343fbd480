package redis

import (
	"context"
	"testing"
	"time"

	"planets-universe/internal/shared/logger"

	"github.com/stretchr/testify/assert"
)

func TestLock_NilClientIsNoop(t *testing.T) {
	lock := NewLock(nil, "planets:universe:maintenance", time.Minute, logger.Discard())

	assert.NoError(t, lock.Acquire(context.Background()))
	assert.NoError(t, lock.Release(context.Background()))
}

func TestLock_TokensAreUnique(t *testing.T) {
	a := NewLock(nil, "k", time.Minute, logger.Discard())
	b := NewLock(nil, "k", time.Minute, logger.Discard())

	assert.NotEmpty(t, a.Token())
	assert.NotEqual(t, a.Token(), b.Token())
}

func TestClient_CloseNil(t *testing.T) {
	var c *Client
	assert.NoError(t, c.Close())
}
