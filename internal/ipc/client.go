package ipc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/1broseidon/deskpet/internal/logging"
	"github.com/1broseidon/deskpet/internal/runtimepath"
)

// closeFlushTimeout bounds how long Close waits for queued messages.
const closeFlushTimeout = time.Second

// Client is the presentation/control end of the sync layer. Handlers run on
// a single read goroutine, one envelope at a time.
type Client struct {
	peer   *Peer
	logger *slog.Logger

	mu       sync.Mutex
	handlers map[Kind][]func(Envelope)
	pending  map[Kind][]*reply

	done chan struct{}
	err  error
}

// Dial connects to the host at socketPath and announces role.
func Dial(ctx context.Context, socketPath string, role Role, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = logging.Discard()
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to host: %w (is the host running?)", err)
	}

	c := &Client{
		peer:     newPeer(conn, logger),
		logger:   logger,
		handlers: make(map[Kind][]func(Envelope)),
		pending:  make(map[Kind][]*reply),
		done:     make(chan struct{}),
	}
	if err := c.peer.Send(KindHello, HelloPayload{Role: role}); err != nil {
		c.peer.Close()
		return nil, err
	}

	go c.readLoop()
	return c, nil
}

// DialDefault connects to the host on the standard runtime socket.
func DialDefault(ctx context.Context, role Role, logger *slog.Logger) (*Client, error) {
	socketPath, err := runtimepath.SocketPath()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve IPC socket path: %w", err)
	}
	return Dial(ctx, socketPath, role, logger)
}

// Send queues a fire-and-forget message.
func (c *Client) Send(kind Kind, payload any) error {
	return c.peer.Send(kind, payload)
}

// On subscribes fn to every envelope of kind.
func (c *Client) On(kind Kind, fn func(Envelope)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[kind] = append(c.handlers[kind], fn)
}

// reply is a one-shot wait for the next envelope of a kind.
type reply struct {
	fn func(Envelope)
}

// Query sends kind and calls fn with the next replyKind envelope. There is
// no timeout: if the host never answers, fn never runs.
func (c *Client) Query(kind, replyKind Kind, fn func(Envelope)) error {
	_, err := c.query(kind, nil, replyKind, fn)
	return err
}

// Await is Query for callers that can block; ctx bounds the wait.
func (c *Client) Await(ctx context.Context, kind, replyKind Kind) (Envelope, error) {
	return c.Call(ctx, kind, nil, replyKind)
}

// Call sends kind with payload and waits for the next replyKind envelope.
// Commands whose effect is broadcast (toggles, set-scale) can be awaited
// this way because the sender receives the broadcast too. An abandoned wait
// is withdrawn so it cannot swallow a later reply.
func (c *Client) Call(ctx context.Context, kind Kind, payload any, replyKind Kind) (Envelope, error) {
	ch := make(chan Envelope, 1)
	r, err := c.query(kind, payload, replyKind, func(env Envelope) { ch <- env })
	if err != nil {
		return Envelope{}, err
	}

	select {
	case env := <-ch:
		return env, nil
	case <-c.done:
		c.dropPending(replyKind, r)
		return Envelope{}, ErrClosed
	case <-ctx.Done():
		c.dropPending(replyKind, r)
		return Envelope{}, ctx.Err()
	}
}

func (c *Client) query(kind Kind, payload any, replyKind Kind, fn func(Envelope)) (*reply, error) {
	r := &reply{fn: fn}
	c.mu.Lock()
	c.pending[replyKind] = append(c.pending[replyKind], r)
	c.mu.Unlock()

	if err := c.peer.Send(kind, payload); err != nil {
		c.dropPending(replyKind, r)
		return nil, err
	}
	return r, nil
}

// Done is closed when the connection ends.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Err returns the error that ended the connection, if any.
func (c *Client) Err() error {
	<-c.done
	return c.err
}

// Close writes any queued messages and disconnects from the host.
func (c *Client) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), closeFlushTimeout)
	defer cancel()
	if err := c.peer.Flush(ctx); err != nil && !errors.Is(err, ErrClosed) {
		c.logger.Debug("closing with unsent ipc messages", "error", err)
	}
	return c.peer.Close()
}

func (c *Client) readLoop() {
	err := c.peer.readLoop(c.dispatch)
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
		err = nil
	}
	c.err = err
	c.peer.Close()
	close(c.done)
}

func (c *Client) dispatch(env Envelope) {
	c.mu.Lock()
	var oneShot func(Envelope)
	if q := c.pending[env.Kind]; len(q) > 0 {
		oneShot = q[0].fn
		c.pending[env.Kind] = q[1:]
	}
	subs := append([]func(Envelope){}, c.handlers[env.Kind]...)
	c.mu.Unlock()

	if oneShot != nil {
		oneShot(env)
	}
	for _, fn := range subs {
		fn(env)
	}
	if oneShot == nil && len(subs) == 0 {
		c.logger.Debug("unhandled ipc message", "kind", env.Kind)
	}
}

// dropPending withdraws r if it has not been served yet.
func (c *Client) dropPending(kind Kind, r *reply) {
	c.mu.Lock()
	defer c.mu.Unlock()
	q := c.pending[kind]
	for i, p := range q {
		if p == r {
			c.pending[kind] = append(q[:i:i], q[i+1:]...)
			return
		}
	}
}
