package instance

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doeshing/sift/internal/pkg/logger"
)

func freeAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())
	return addr
}

func TestSecondInstanceSignalsPrimary(t *testing.T) {
	addr := freeAddr(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	primary := New(addr, logger.NewNop())
	require.NoError(t, primary.Acquire(ctx))
	served := make(chan error, 1)
	go func() { served <- primary.Serve(ctx) }()

	secondary := New(addr, logger.NewNop())
	err := secondary.Acquire(ctx)
	assert.True(t, errors.Is(err, ErrAlreadyRunning))

	select {
	case <-primary.Signals():
	case <-time.After(2 * time.Second):
		t.Fatal("primary never observed the signal")
	}
	select {
	case <-primary.Signals():
		t.Fatal("primary observed more than one signal")
	case <-time.After(100 * time.Millisecond):
	}

	cancel()
	select {
	case err := <-served:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

func TestAcquireFailsWhenNothingAnswers(t *testing.T) {
	// An invalid address fails both the bind and the dial.
	c := New("256.0.0.1:1", logger.NewNop())
	err := c.Acquire(context.Background())
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrAlreadyRunning))
}

func TestServeRequiresAcquire(t *testing.T) {
	c := New(freeAddr(t), logger.NewNop())
	assert.Error(t, c.Serve(context.Background()))
	assert.NoError(t, c.Close())
}

func TestCloseReleasesEndpoint(t *testing.T) {
	addr := freeAddr(t)
	first := New(addr, logger.NewNop())
	require.NoError(t, first.Acquire(context.Background()))
	assert.Equal(t, addr, first.Addr())
	require.NoError(t, first.Close())

	second := New(addr, logger.NewNop())
	require.NoError(t, second.Acquire(context.Background()))
	require.NoError(t, second.Close())
}
