package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"

	"github.com/gruenet/gruechat/internal/wire"
)

// ConnectionHandler is called for each accepted connection, on its own
// goroutine. The handler runs the connection to completion; the listener
// closes the connection after it returns.
type ConnectionHandler func(lc *LineConn)

// Listener accepts incoming chat connections and enforces the session cap.
type Listener struct {
	addr     string
	maxConns int
	handler  ConnectionHandler
	log      *slog.Logger

	active atomic.Int64

	mu sync.Mutex
	ln net.Listener
}

// NewListener creates a TCP listener. maxConns <= 0 means no cap.
func NewListener(port, maxConns int, log *slog.Logger, handler ConnectionHandler) *Listener {
	return &Listener{
		addr:     fmt.Sprintf(":%d", port),
		maxConns: maxConns,
		handler:  handler,
		log:      log,
	}
}

// ListenAndServe starts accepting connections. Blocks until the listener
// is closed or a fatal error occurs.
func (l *Listener) ListenAndServe() error {
	ln, err := net.Listen("tcp", l.addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", l.addr, err)
	}
	l.mu.Lock()
	l.ln = ln
	l.mu.Unlock()
	defer ln.Close()

	l.log.Info("listening", "addr", l.addr)

	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			l.log.Error("accept failed", "error", err)
			continue
		}

		lc := NewLineConn(conn)
		if l.maxConns > 0 && l.active.Load() >= int64(l.maxConns) {
			l.log.Warn("refusing connection, server full", "remote", lc.RemoteAddr())
			_ = lc.Send(wire.Make("bye", "msg", "the server is full."))
			_ = lc.Close()
			continue
		}

		l.active.Add(1)
		go func() {
			defer l.active.Add(-1)
			defer lc.Close()
			l.handler(lc)
		}()
	}
}

// Close stops accepting connections.
func (l *Listener) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ln == nil {
		return nil
	}
	return l.ln.Close()
}
