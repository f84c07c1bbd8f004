package ipc

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"

	"github.com/1broseidon/deskpet/internal/logging"
)

// HandlerFunc handles one envelope from peer p. Replies go through p.Send.
type HandlerFunc func(p *Peer, env Envelope)

// Server is the host end of the sync layer. It keeps every connected peer
// so mode changes can be pushed to all of them.
type Server struct {
	socketPath string
	listener   net.Listener
	logger     *slog.Logger

	mu           sync.Mutex
	peers        map[*Peer]struct{}
	handlers     map[Kind]HandlerFunc
	onHello      []func(*Peer)
	shuttingDown bool
	wg           sync.WaitGroup
}

// NewServer creates a server for socketPath. A stale socket file is removed.
func NewServer(socketPath string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = logging.Discard()
	}
	os.Remove(socketPath)

	return &Server{
		socketPath: socketPath,
		logger:     logger,
		peers:      make(map[*Peer]struct{}),
		handlers:   make(map[Kind]HandlerFunc),
	}
}

// Handle registers fn for kind, replacing any previous handler.
func (s *Server) Handle(kind Kind, fn HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[kind] = fn
}

// OnHello registers fn to run after a peer announces its role.
func (s *Server) OnHello(fn func(*Peer)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onHello = append(s.onHello, fn)
}

// Start begins listening for connections.
func (s *Server) Start() error {
	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to create IPC socket: %w", err)
	}
	s.listener = listener

	if err := os.Chmod(s.socketPath, 0600); err != nil {
		listener.Close()
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}

	s.logger.Info("IPC server listening", "socket", s.socketPath)

	s.wg.Add(1)
	go s.acceptLoop()
	return nil
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			s.mu.Lock()
			stopping := s.shuttingDown
			s.mu.Unlock()
			if stopping || errors.Is(err, net.ErrClosed) {
				return
			}
			s.logger.Warn("IPC accept error", "error", err)
			continue
		}

		peer := newPeer(conn, s.logger)
		s.mu.Lock()
		s.peers[peer] = struct{}{}
		s.mu.Unlock()

		s.wg.Add(1)
		go s.serve(peer)
	}
}

func (s *Server) serve(p *Peer) {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		delete(s.peers, p)
		s.mu.Unlock()
		p.Close()
		s.logger.Debug("IPC peer disconnected", "role", p.Role())
	}()

	err := p.readLoop(func(env Envelope) {
		if env.Kind == KindHello {
			s.handleHello(p, env)
			return
		}

		s.mu.Lock()
		fn := s.handlers[env.Kind]
		s.mu.Unlock()
		if fn == nil {
			s.logger.Debug("ignoring unknown ipc message", "kind", env.Kind)
			return
		}
		fn(p, env)
	})
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
		s.logger.Debug("IPC read error", "error", err)
	}
}

func (s *Server) handleHello(p *Peer, env Envelope) {
	var hello HelloPayload
	if err := env.Decode(&hello); err != nil {
		s.logger.Debug("ignoring malformed hello", "error", err)
		return
	}
	p.setRole(hello.Role)
	s.logger.Info("IPC peer connected", "role", hello.Role)

	s.mu.Lock()
	hooks := append([]func(*Peer){}, s.onHello...)
	s.mu.Unlock()
	for _, fn := range hooks {
		fn(p)
	}
}

// Broadcast queues env for every connected peer. Delivery failures are
// logged by the peer and not retried.
func (s *Server) Broadcast(env Envelope) {
	for _, p := range s.snapshotPeers() {
		_ = p.SendEnvelope(env)
	}
}

// SendToRole queues env for every peer with role and returns how many
// peers it was queued for.
func (s *Server) SendToRole(role Role, env Envelope) int {
	n := 0
	for _, p := range s.snapshotPeers() {
		if p.Role() != role {
			continue
		}
		if p.SendEnvelope(env) == nil {
			n++
		}
	}
	return n
}

// PeerCount returns the number of connected peers.
func (s *Server) PeerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.peers)
}

func (s *Server) snapshotPeers() []*Peer {
	s.mu.Lock()
	defer s.mu.Unlock()
	peers := make([]*Peer, 0, len(s.peers))
	for p := range s.peers {
		peers = append(peers, p)
	}
	return peers
}

// Stop closes the listener and every peer, then removes the socket.
func (s *Server) Stop() {
	s.mu.Lock()
	s.shuttingDown = true
	s.mu.Unlock()

	if s.listener != nil {
		s.listener.Close()
	}
	for _, p := range s.snapshotPeers() {
		p.Close()
	}
	s.wg.Wait()
	os.Remove(s.socketPath)
}
