package admiral

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync/atomic"
	"time"

	"github.com/danmuck/admiral/internal/arena"
	"github.com/danmuck/admiral/internal/endpoint"
	"github.com/danmuck/admiral/internal/observability"
	"github.com/danmuck/admiral/internal/protocol/frame"
	"github.com/danmuck/admiral/internal/protocol/packet"
	"github.com/rs/zerolog/log"
)

const (
	DefaultListenAddr        = ":5321"
	DefaultNetworkArenaBytes = 8 * arena.KiB
)

var ErrInvalidServerConfig = errors.New("admiral: invalid server config")

// ServerConfig configures the network loop.
type ServerConfig struct {
	ListenAddr  string
	ArenaBytes  int
	Limits      frame.Limits
	ReadTimeout time.Duration
}

func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		ListenAddr: DefaultListenAddr,
		ArenaBytes: DefaultNetworkArenaBytes,
		Limits:     frame.DefaultLimits(),
	}
}

// ServerStats counts network loop outcomes since start.
type ServerStats struct {
	Accepted uint64 `json:"accepted"`
	Admitted uint64 `json:"admitted"`
	Rejected uint64 `json:"rejected"`
	Unknown  uint64 `json:"unknown_peers"`
}

// Server is the network loop. Connections are handled one at a time: each
// carries exactly one packet, and the server closes it after admission.
type Server struct {
	cfg      ServerConfig
	queue    *Queue
	registry *endpoint.Registry
	arena    *arena.Arena

	accepted atomic.Uint64
	admitted atomic.Uint64
	rejected atomic.Uint64
	unknown  atomic.Uint64

	listening atomic.Bool
}

func NewServer(cfg ServerConfig, q *Queue, reg *endpoint.Registry) (*Server, error) {
	if q == nil || reg == nil {
		return nil, fmt.Errorf("%w: queue and registry are required", ErrInvalidServerConfig)
	}
	if cfg.Limits.MaxPacketBytes <= 0 {
		cfg.Limits = frame.DefaultLimits()
	}
	if cfg.ArenaBytes <= 0 {
		cfg.ArenaBytes = DefaultNetworkArenaBytes
	}
	if cfg.ArenaBytes < cfg.Limits.MaxPacketBytes {
		return nil, fmt.Errorf("%w: arena %d smaller than packet limit %d",
			ErrInvalidServerConfig, cfg.ArenaBytes, cfg.Limits.MaxPacketBytes)
	}
	a, err := arena.New(cfg.ArenaBytes)
	if err != nil {
		return nil, err
	}
	return &Server{cfg: cfg, queue: q, registry: reg, arena: a}, nil
}

// ListenAndServe binds cfg.ListenAddr and serves until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("admiral: listen %s: %w", s.cfg.ListenAddr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts on ln until ctx is done or ln is closed. ln is closed on
// return.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	stop := context.AfterFunc(ctx, func() { _ = ln.Close() })
	defer stop()
	defer ln.Close()

	s.listening.Store(true)
	defer s.listening.Store(false)
	log.Info().Str("addr", ln.Addr().String()).Msg("network loop listening")
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				log.Info().Msg("network loop stopped")
				return nil
			}
			log.Warn().Err(err).Msg("accept failed")
			continue
		}
		s.accepted.Add(1)
		_ = s.handleConn(ctx, conn)
	}
}

// handleConn runs one connection to completion. Receive memory comes from
// the server arena and is released when the connection is done. Cancelling
// ctx closes conn so a silent peer cannot hold up shutdown.
func (s *Server) handleConn(ctx context.Context, conn net.Conn) error {
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()
	mark := s.arena.Mark()
	defer s.arena.Pop(mark)

	peerAddr, err := frame.PeerIdentity(conn)
	if err != nil {
		s.unknown.Add(1)
		log.Warn().Err(err).Msg("could not resolve peer address")
		return err
	}
	peer, ok := s.registry.Identify(peerAddr)
	if !ok {
		s.unknown.Add(1)
		log.Warn().Str("peer_addr", peerAddr).Msg("connection from unregistered peer")
		return fmt.Errorf("%w: %s", ErrUnknownPeer, peerAddr)
	}
	log.Debug().Str("endpoint", peer.Name).Str("peer_addr", peerAddr).Msg("accepted connection")

	buf, err := s.arena.Push(s.cfg.Limits.MaxPacketBytes)
	if err != nil {
		log.Error().Err(err).Str("endpoint", peer.Name).Msg("network arena exhausted")
		return err
	}
	if s.cfg.ReadTimeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
	}

	p, err := frame.ReadPacket(conn, buf)
	observability.RecordPacket(packet.Classify(err).String())
	if err != nil {
		s.rejected.Add(1)
		log.Warn().Err(err).Str("endpoint", peer.Name).Msg("bad packet")
		return err
	}

	if _, err := Admit(s.queue, s.registry, p, peer); err != nil {
		s.rejected.Add(1)
		if _, werr := frame.WritePacket(conn, packet.Invalid()); werr != nil {
			log.Warn().Err(werr).Str("endpoint", peer.Name).Msg("could not send invalid response")
		}
		return err
	}
	s.admitted.Add(1)
	return nil
}

func (s *Server) Stats() ServerStats {
	return ServerStats{
		Accepted: s.accepted.Load(),
		Admitted: s.admitted.Load(),
		Rejected: s.rejected.Load(),
		Unknown:  s.unknown.Load(),
	}
}

// Listening reports whether Serve is accepting connections.
func (s *Server) Listening() bool {
	return s.listening.Load()
}
