// Package instance makes sure only one launcher host runs per user session.
//
// The first process binds a loopback port and becomes the primary. Later
// launches fail to bind, connect instead, write a single byte and exit;
// the primary turns each connection into an activation signal.
package instance

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/doeshing/sift/internal/domain"
	"github.com/doeshing/sift/internal/ports"
)

// ErrAlreadyRunning is returned by Acquire after a running primary has
// been signalled.
var ErrAlreadyRunning = errors.New("another instance is already running")

const dialTimeout = 2 * time.Second

// Coordinator owns the single-instance endpoint.
type Coordinator struct {
	addr    string
	logger  ports.Logger
	signals chan struct{}

	mu       sync.Mutex
	listener net.Listener
	closed   bool
}

// New builds a coordinator for addr.
func New(addr string, logger ports.Logger) *Coordinator {
	if addr == "" {
		addr = domain.DefaultInstanceAddr
	}
	return &Coordinator{
		addr:    addr,
		logger:  logger,
		signals: make(chan struct{}, 8),
	}
}

// Acquire binds the endpoint. On success the caller is the primary and
// should call Serve. If the endpoint is taken, the running primary is
// signalled and ErrAlreadyRunning is returned.
func (c *Coordinator) Acquire(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", c.addr)
	if err == nil {
		c.mu.Lock()
		c.listener = ln
		c.mu.Unlock()
		c.logger.Debug("single-instance endpoint bound", map[string]interface{}{"addr": ln.Addr().String()})
		return nil
	}

	if sigErr := Signal(ctx, c.addr); sigErr != nil {
		return fmt.Errorf("bind %s: %w (signal failed: %v)", c.addr, err, sigErr)
	}
	return ErrAlreadyRunning
}

// Signal asks the primary at addr to show itself.
func Signal(ctx context.Context, addr string) error {
	d := net.Dialer{Timeout: dialTimeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	defer conn.Close()
	_ = conn.SetWriteDeadline(time.Now().Add(dialTimeout))
	_, err = conn.Write([]byte{domain.ActivateSignal})
	return err
}

// Addr is the bound address, or the configured one before Acquire.
func (c *Coordinator) Addr() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.listener != nil {
		return c.listener.Addr().String()
	}
	return c.addr
}

// Signals delivers one value per accepted connection. Signals arriving
// while the buffer is full are coalesced; the surface only needs to be
// shown once.
func (c *Coordinator) Signals() <-chan struct{} {
	return c.signals
}

// Serve accepts connections until ctx is done or Close is called.
func (c *Coordinator) Serve(ctx context.Context) error {
	c.mu.Lock()
	ln := c.listener
	c.mu.Unlock()
	if ln == nil {
		return errors.New("instance: Serve called before a successful Acquire")
	}

	stop := context.AfterFunc(ctx, func() { _ = c.Close() })
	defer stop()

	for {
		conn, err := ln.Accept()
		if err != nil {
			c.mu.Lock()
			closed := c.closed
			c.mu.Unlock()
			if closed {
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			return fmt.Errorf("accept: %w", err)
		}
		// The connection itself is the signal; the payload byte is not
		// inspected.
		_ = conn.Close()
		c.logger.Debug("activation signal received", nil)
		select {
		case c.signals <- struct{}{}:
		default:
		}
	}
}

// Close releases the endpoint.
func (c *Coordinator) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.listener == nil {
		c.closed = true
		return nil
	}
	c.closed = true
	return c.listener.Close()
}
