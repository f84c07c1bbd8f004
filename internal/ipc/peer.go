package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"sync"
)

var (
	// ErrClosed is returned when sending on a closed connection.
	ErrClosed = errors.New("ipc: connection closed")
	// ErrDropped is returned when a peer's outbox is full. The message is
	// lost; sends are fire-and-forget and are not retried.
	ErrDropped = errors.New("ipc: outbox full, message dropped")
)

const outboxSize = 64

// outgoing is one outbox entry. An entry with a non-nil flushed channel is a
// marker: the writer closes it once everything queued before it is written.
type outgoing struct {
	env     Envelope
	flushed chan struct{}
}

// Peer is one end of a connection. Sends are queued and written by a
// dedicated goroutine so callers never block on the socket.
type Peer struct {
	conn   net.Conn
	reader *bufio.Reader
	logger *slog.Logger

	outbox    chan outgoing
	done      chan struct{}
	closeOnce sync.Once

	roleMu sync.RWMutex
	role   Role
}

func newPeer(conn net.Conn, logger *slog.Logger) *Peer {
	p := &Peer{
		conn:   conn,
		reader: bufio.NewReader(conn),
		logger: logger,
		outbox: make(chan outgoing, outboxSize),
		done:   make(chan struct{}),
	}
	go p.writeLoop()
	return p
}

// Role returns the role announced in the peer's hello.
func (p *Peer) Role() Role {
	p.roleMu.RLock()
	defer p.roleMu.RUnlock()
	return p.role
}

func (p *Peer) setRole(r Role) {
	p.roleMu.Lock()
	defer p.roleMu.Unlock()
	p.role = r
}

// Send queues payload under kind.
func (p *Peer) Send(kind Kind, payload any) error {
	env, err := NewEnvelope(kind, payload)
	if err != nil {
		return err
	}
	return p.SendEnvelope(env)
}

// SendEnvelope queues a pre-built envelope.
func (p *Peer) SendEnvelope(env Envelope) error {
	select {
	case <-p.done:
		return ErrClosed
	default:
	}

	select {
	case p.outbox <- outgoing{env: env}:
		return nil
	case <-p.done:
		return ErrClosed
	default:
		p.logger.Warn("ipc message dropped", "kind", env.Kind, "role", p.Role())
		return ErrDropped
	}
}

// Done is closed once the peer is closed.
func (p *Peer) Done() <-chan struct{} {
	return p.done
}

// Flush blocks until every envelope queued before the call has been written
// to the socket, the peer closes, or ctx ends.
func (p *Peer) Flush(ctx context.Context) error {
	flushed := make(chan struct{})
	select {
	case p.outbox <- outgoing{flushed: flushed}:
	case <-p.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-flushed:
		return nil
	case <-p.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close shuts the connection down. Queued messages not yet written are lost;
// call Flush first to keep them.
func (p *Peer) Close() error {
	var err error
	p.closeOnce.Do(func() {
		close(p.done)
		err = p.conn.Close()
	})
	return err
}

// readLoop parses envelopes until the connection fails and hands each to fn.
// Malformed lines are logged and skipped.
func (p *Peer) readLoop(fn func(Envelope)) error {
	for {
		line, err := p.reader.ReadBytes('\n')
		if err != nil {
			return err
		}
		env, err := ParseEnvelope(line)
		if err != nil {
			p.logger.Debug("ignoring malformed ipc message", "error", err)
			continue
		}
		fn(env)
	}
}

func (p *Peer) writeLoop() {
	for {
		select {
		case <-p.done:
			return
		case out := <-p.outbox:
			if out.flushed != nil {
				close(out.flushed)
				continue
			}
			env := out.env
			data, err := json.Marshal(env)
			if err != nil {
				p.logger.Warn("failed to marshal envelope", "kind", env.Kind, "error", err)
				continue
			}
			data = append(data, '\n')
			if _, err := p.conn.Write(data); err != nil {
				p.logger.Debug("ipc write failed", "kind", env.Kind, "error", err)
				p.Close()
				return
			}
		}
	}
}
