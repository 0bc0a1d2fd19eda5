// Package relay tracks the currently authenticated users and fans
// outbound messages out to them.
package relay

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/gruenet/gruechat/internal/wire"
)

// Sink receives outbound messages for one live user. Sessions implement
// it over their connection.
type Sink interface {
	Send(msg wire.Message) error
}

// Directory maps each live username to its session sink. It is the only
// state shared between sessions: claims, releases, and fanout snapshots
// all serialize on the mutex.
type Directory struct {
	mu   sync.RWMutex
	log  *slog.Logger
	live map[string]Sink
}

// NewDirectory creates an empty directory.
func NewDirectory(log *slog.Logger) *Directory {
	return &Directory{
		log:  log,
		live: make(map[string]Sink),
	}
}

// Claim registers username for the given sink. It returns false if the
// username is already held by a live session; the check and the insert
// happen under one lock so two sessions can never both claim a name.
func (d *Directory) Claim(username string, s Sink) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, taken := d.live[username]; taken {
		return false
	}
	d.live[username] = s
	return true
}

// Release removes the username's entry if it is still bound to the given
// sink. Releasing an absent or rebound name is a no-op: the connection
// may have dropped before authentication completed.
func (d *Directory) Release(username string, s Sink) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if cur, ok := d.live[username]; ok && cur == s {
		delete(d.live, username)
	}
}

// Has reports whether the username is currently live.
func (d *Directory) Has(username string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.live[username]
	return ok
}

// Online returns the live usernames, sorted.
func (d *Directory) Online() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	names := make([]string, 0, len(d.live))
	for name := range d.live {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SendToAll delivers the message to every live user.
func (d *Directory) SendToAll(msg wire.Message) {
	d.mu.RLock()
	sinks := make([]Sink, 0, len(d.live))
	for _, s := range d.live {
		sinks = append(sinks, s)
	}
	d.mu.RUnlock()

	for _, s := range sinks {
		if err := s.Send(msg); err != nil {
			d.log.Debug("broadcast send failed", "error", err)
		}
	}
}

// SendToUsers delivers the message to the named users only. Names that
// are not live are skipped silently.
func (d *Directory) SendToUsers(msg wire.Message, usernames []string) {
	d.mu.RLock()
	sinks := make([]Sink, 0, len(usernames))
	for _, name := range usernames {
		if s, ok := d.live[name]; ok {
			sinks = append(sinks, s)
		}
	}
	d.mu.RUnlock()

	for _, s := range sinks {
		if err := s.Send(msg); err != nil {
			d.log.Debug("targeted send failed", "error", err)
		}
	}
}
