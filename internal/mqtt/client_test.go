package mqtt

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osci-render/osci-go/internal/errors"
	"github.com/osci-render/osci-go/internal/logger"
)

func TestNewClientRejectsBadBroker(t *testing.T) {
	t.Parallel()

	for _, broker := range []string{"", "not a url", "://missing-scheme"} {
		_, err := NewClient(Config{Broker: broker})
		require.Error(t, err, broker)
		assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
	}
}

func TestPublishWithoutConnection(t *testing.T) {
	t.Parallel()

	c, err := NewClient(Config{Broker: "tcp://127.0.0.1:1883"}, WithClientLogger(logger.NewDiscardLogger()))
	require.NoError(t, err)
	assert.False(t, c.IsConnected())

	err = c.Publish(context.Background(), "t", []byte("x"))
	require.ErrorIs(t, err, ErrNotConnected)

	// disconnecting a never-connected client is a no-op
	c.Disconnect()
}

func TestConnectRefused(t *testing.T) {
	t.Parallel()

	// grab a free port and release it so nothing is listening there
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	cfg := DefaultConfig()
	cfg.Broker = "tcp://" + addr
	cfg.ClientID = "oscigo-test"
	cfg.ConnectTimeout = time.Second

	c, err := NewClient(cfg, WithClientLogger(logger.NewDiscardLogger()))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err = c.Connect(ctx)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryMQTTConnection))
	assert.False(t, c.IsConnected())
	c.Disconnect()
}
