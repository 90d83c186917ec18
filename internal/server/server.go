// Package server implements the TCP front end of the cache.
// See doc.go for complete package documentation.
package server

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/exp/slices"

	"github.com/dreamware/mnemo/internal/executor"
	"github.com/dreamware/mnemo/internal/protocol"
	"github.com/dreamware/mnemo/internal/storage"
)

// replyBusy is sent when the worker pool rejects a connection.
const replyBusy = "SERVER_ERROR busy\r\n"

// Server serves the memcached text protocol over TCP, backed by a striped
// cache and a bounded worker pool.
//
// Create one with New, bind it with Start, and tear it down with Shutdown.
// All methods are safe for concurrent use.
type Server struct {
	log         *zap.Logger
	store       *storage.StripedLRU
	pool        *executor.Executor
	maxItemSize int

	mu      sync.Mutex
	ln      net.Listener
	conns   map[net.Conn]struct{}
	closing bool

	// done is closed when the accept loop exits.
	done chan struct{}
}

// New creates a server over the given cache and pool. maxItemSize bounds
// accepted payload sizes (non-positive selects the protocol default). A nil
// logger is replaced with a no-op logger.
//
// The server takes ownership of the pool's shutdown: Shutdown stops it.
func New(store *storage.StripedLRU, pool *executor.Executor, maxItemSize int, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		log:         log,
		store:       store,
		pool:        pool,
		maxItemSize: maxItemSize,
		conns:       make(map[net.Conn]struct{}),
		done:        make(chan struct{}),
	}
}

// Start binds addr and begins accepting connections in the background.
// It returns once the listener is bound; use Addr to discover the bound
// address when addr requested an ephemeral port.
func (s *Server) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("server: listen %s: %w", addr, err)
	}

	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		ln.Close()
		return errors.New("server: already shut down")
	}
	s.ln = ln
	s.mu.Unlock()

	s.log.Info("server listening",
		zap.String("addr", ln.Addr().String()),
		zap.Int("shards", s.store.ShardCount()),
	)

	go s.acceptLoop(ln)
	return nil
}

// Addr returns the bound listener address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Shutdown stops accepting, closes every live connection, and stops the
// worker pool, returning after the pool has fully drained. Safe to call
// repeatedly.
func (s *Server) Shutdown() {
	s.mu.Lock()
	already := s.closing
	s.closing = true
	ln := s.ln
	var open []net.Conn
	for c := range s.conns {
		open = append(open, c)
	}
	s.mu.Unlock()

	if already {
		s.pool.Stop(true)
		return
	}

	if ln != nil {
		ln.Close()
		<-s.done
	}
	for _, c := range open {
		c.Close()
	}

	s.pool.Stop(true)
	s.log.Info("server stopped")
}

// acceptLoop hands each accepted connection to the pool as one work unit.
func (s *Server) acceptLoop(ln net.Listener) {
	defer close(s.done)

	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			s.log.Warn("accept failed", zap.Error(err))
			continue
		}

		if !s.track(conn) {
			conn.Close()
			return
		}

		accepted := s.pool.Execute(func() {
			defer s.untrack(conn)
			s.handleConn(conn)
		})
		if !accepted {
			// Bounded-queue backpressure: shed the connection instead of
			// queueing without limit.
			s.log.Warn("connection shed, pool saturated",
				zap.String("remote", conn.RemoteAddr().String()))
			_, _ = conn.Write([]byte(replyBusy))
			s.untrack(conn)
		}
	}
}

// track registers a live connection; false means the server is closing.
func (s *Server) track(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing {
		return false
	}
	s.conns[conn] = struct{}{}
	return true
}

// untrack closes and forgets a connection.
func (s *Server) untrack(conn net.Conn) {
	conn.Close()
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
}

// handleConn runs the per-connection command loop until the client leaves,
// the stream breaks, or shutdown closes the socket underneath it.
func (s *Server) handleConn(conn net.Conn) {
	remote := conn.RemoteAddr().String()
	s.log.Debug("connection open", zap.String("remote", remote))

	parser := protocol.NewParser(conn, s.maxItemSize)
	w := bufio.NewWriter(conn)

	for {
		cmd, err := parser.Next()
		if err != nil {
			var ce *protocol.ClientError
			switch {
			case errors.Is(err, io.EOF):
				s.log.Debug("connection closed by client", zap.String("remote", remote))
				return
			case errors.As(err, &ce):
				_, _ = w.WriteString(ce.Reply())
				_ = w.Flush()
				if ce.Fatal {
					s.log.Debug("connection dropped, stream desynchronized",
						zap.String("remote", remote), zap.Error(ce))
					return
				}
				continue
			default:
				// Transport failure, including our own Shutdown closing
				// the socket mid-read.
				s.log.Debug("connection read failed",
					zap.String("remote", remote), zap.Error(err))
				return
			}
		}

		if cmd.Name == "quit" {
			return
		}

		if _, err := w.Write(protocol.Execute(s.store, cmd)); err != nil {
			return
		}
		if err := w.Flush(); err != nil {
			return
		}
	}
}

// Stats is a point-in-time snapshot of the whole service for monitoring.
type Stats struct {
	// Cache aggregates every shard.
	Cache storage.CacheStats

	// Shards holds one snapshot per shard, in shard order.
	Shards []storage.CacheStats

	// Fullest is the shard snapshot with the most resident bytes, a quick
	// skew indicator.
	Fullest storage.CacheStats

	// Pool is the worker pool snapshot.
	Pool executor.PoolStats

	// ActiveConns is the number of live client connections.
	ActiveConns int
}

// Stats snapshots the cache, its shards, and the pool. Shards are sampled
// one at a time; the figures are for monitoring, not exact accounting.
func (s *Server) Stats() Stats {
	shards := s.store.ShardStats()

	s.mu.Lock()
	conns := len(s.conns)
	s.mu.Unlock()

	return Stats{
		Cache:  s.store.Stats(),
		Shards: shards,
		Fullest: slices.MaxFunc(shards, func(a, b storage.CacheStats) int {
			return a.Bytes - b.Bytes
		}),
		Pool:        s.pool.Stats(),
		ActiveConns: conns,
	}
}
