// Package session implements the per-connection protocol engine: the
// authentication state machine, the command dispatch table, and the
// command handlers.
package session

import (
	"errors"
	"log/slog"
	"sync"
	"unicode"

	"github.com/google/uuid"

	"github.com/gruenet/gruechat/internal/relay"
	"github.com/gruenet/gruechat/internal/user"
	"github.com/gruenet/gruechat/internal/wire"
)

// Conn is the transport half a session talks to: an ordered sink for
// outbound messages plus a close operation. *server.LineConn satisfies it.
type Conn interface {
	Send(msg wire.Message) error
	Close() error
}

// UserStore is the credential and permission directory a session
// authenticates against. *user.Repo satisfies it.
type UserStore interface {
	Authenticate(username, password string) (*user.User, error)
	GetByUsername(username string) (*user.User, error)
	UpdateModes(username, modes string) error
}

// Config carries the collaborators for one session.
type Config struct {
	Conn      Conn
	Users     UserStore
	Directory *relay.Directory
	EasterKey string
	Logger    *slog.Logger
}

// Session is the server side of one client connection. A session starts
// unauthenticated; the only way out of that state is a successful auth
// command, and the only way out of the authenticated state is disconnect.
type Session struct {
	id    uuid.UUID
	log   *slog.Logger
	conn  Conn
	users UserStore
	dir   *relay.Directory
	key   string

	mu     sync.Mutex
	closed bool

	authed   bool
	username string
}

// New creates a session for a fresh connection and sends the auth prompt.
func New(cfg Config) *Session {
	id := uuid.New()
	s := &Session{
		id:    id,
		log:   cfg.Logger.With(slog.String("session", id.String())),
		conn:  cfg.Conn,
		users: cfg.Users,
		dir:   cfg.Directory,
		key:   cfg.EasterKey,
	}
	// Authentication first.
	_ = s.Send(wire.Make("auth"))
	return s
}

// Username returns the authenticated username, or "" before auth.
func (s *Session) Username() string {
	return s.username
}

// Send delivers one outbound message on the connection. It is safe to
// call from any goroutine; nothing is sent after the bye message.
func (s *Session) Send(msg wire.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	return s.conn.Send(msg)
}

// HandleLine processes one inbound line. Fatal protocol violations
// disconnect the session; recoverable ones reply and keep it open.
func (s *Session) HandleLine(line []byte) {
	if s.isClosed() {
		return
	}
	s.log.Debug("line received", "line", string(line))

	cmd, fields, err := wire.Decode(line)
	switch {
	case errors.Is(err, wire.ErrMalformed):
		s.disconnect("a malformed line was received.")
		return
	case errors.Is(err, wire.ErrNoCommand):
		s.disconnect("client must send a command.")
		return
	}

	if !s.authed {
		if cmd != "auth" {
			s.disconnect("the client must authenticate before using service.")
			return
		}
		if !authCommand.accepts(fields) {
			s.wrongArguments(cmd)
			return
		}
		s.doAuth(fields)
		return
	}

	h, ok := commands[cmd]
	if !ok {
		s.info("This server does not support the " + cmd + " command.")
		return
	}
	if !h.accepts(fields) {
		s.wrongArguments(cmd)
		return
	}
	h.fn(s, fields)
}

// ConnectionLost cleans up after the transport goes away, however that
// happened. Releasing an already-absent directory entry is a no-op.
func (s *Session) ConnectionLost() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	if s.authed {
		s.dir.Release(s.username, s)
	}
	s.log.Debug("connection lost", "user", s.username)
}

// doAuth runs the auth validation chain. Every failure disconnects with
// its own reason and leaves no trace in the directory.
func (s *Session) doAuth(fields wire.Fields) {
	if !fields.IsString("user") || !fields.IsString("pswd") {
		s.disconnect("passwords and usernames must be strings.")
		return
	}

	username := fields.Str("user")
	password := fields.Str("pswd")
	if !isAlnum(username) || !isAlnum(password) {
		s.disconnect("passwords and usernames must be alphanumeric and non-empty.")
		return
	}

	if s.dir.Has(username) {
		s.disconnect("the desired username is already in use.")
		return
	}

	if _, err := s.users.Authenticate(username, password); err != nil {
		if !errors.Is(err, user.ErrBadCredentials) {
			s.log.Error("user store failure during auth", "user", username, "error", err)
		}
		s.disconnect("authentication failed.")
		return
	}

	// The claim is the authoritative uniqueness check: the lookup above
	// exists only to fail before touching credentials.
	if !s.dir.Claim(username, s) {
		s.disconnect("the desired username is already in use.")
		return
	}

	s.authed = true
	s.username = username
	s.info("Authentication is complete!")
	s.log.Info("authenticated", "user", username)
}

// disconnect sends a best-effort bye (with a reason when one is given)
// and closes the transport. The session sends nothing afterward.
func (s *Session) disconnect(reason string) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	msg := wire.Make("bye")
	if reason != "" {
		msg["msg"] = reason
	}
	_ = s.conn.Send(msg)
	_ = s.conn.Close()
	s.mu.Unlock()

	if s.authed {
		s.dir.Release(s.username, s)
	}
	s.log.Info("disconnected", "user", s.username, "reason", reason)
}

func (s *Session) info(msg string) {
	_ = s.Send(wire.Make("info", "msg", msg))
}

func (s *Session) wrongArguments(cmd string) {
	s.info(`The "` + cmd + `" command was called with the wrong arguments.`)
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// isAlnum reports whether the string is non-empty and consists only of
// letters and digits.
func isAlnum(str string) bool {
	if str == "" {
		return false
	}
	for _, r := range str {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
