package session

import (
	"fmt"
	"strings"

	"github.com/gruenet/gruechat/internal/wire"
)

// command describes one dispatchable command: the fields it requires,
// the fields it tolerates, and the handler to invoke. The table below is
// the whole routing surface; there is no reflection.
type command struct {
	required   []string
	optional   []string
	allowExtra bool
	fn         func(s *Session, f wire.Fields)
}

// accepts reports whether the field set satisfies the command's
// parameter contract. A mismatch is recoverable: the router replies and
// keeps the connection open.
func (c command) accepts(f wire.Fields) bool {
	for _, name := range c.required {
		if !f.Has(name) {
			return false
		}
	}
	if c.allowExtra {
		return true
	}
	for name := range f {
		if !contains(c.required, name) && !contains(c.optional, name) {
			return false
		}
	}
	return true
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

// authCommand is routed explicitly by the state machine, never through
// the table: once authenticated, auth is just an unsupported command.
var authCommand = command{
	required:   []string{"user", "pswd"},
	allowExtra: true,
}

var commands = map[string]command{
	"msg": {
		required: []string{"what"},
		optional: []string{"to"},
		fn:       cmdMsg,
	},
	"describe": {
		required: []string{"what"},
		fn:       cmdDescribe,
	},
	"easter": {
		required:   []string{"key", "ustring"},
		allowExtra: true,
		fn:         cmdEaster,
	},
	"who": {
		fn: cmdWho,
	},
	"mode": {
		required: []string{"user", "modes"},
		fn:       cmdMode,
	},
}

// cmdMsg relays speech. Without a target it goes to everyone; with one
// it goes to the target and the sender only, tagged with "to" so each
// client can render its own side of the aside. Asides to oneself are
// dropped without comment.
func cmdMsg(s *Session, f wire.Fields) {
	what := f.Str("what")
	to := f.Str("to")

	if to == "" {
		s.dir.SendToAll(wire.Make("msg", "user", s.username, "what", what))
		return
	}
	if to == s.username {
		return
	}
	s.dir.SendToUsers(
		wire.Make("msg", "user", s.username, "what", what, "to", to),
		[]string{to, s.username},
	)
}

// cmdDescribe relays an action line to everyone, tagged with the actor.
func cmdDescribe(s *Session, f wire.Fields) {
	s.dir.SendToAll(wire.Make("describe", "user", s.username, "what", f.Str("what")))
}

// cmdEaster is the privileged broadcast. Anything off about the request
// (wrong key, stray fields) silently shrinks the target set to the
// caller; there is no error path. With the right key the targets are the
// live users named in ustring, and each one is told only about itself.
func cmdEaster(s *Session, f wire.Fields) {
	valid := s.key != "" && f.Str("key") == s.key
	for name := range f {
		if name != "key" && name != "ustring" {
			valid = false
		}
	}

	targets := []string{s.username}
	if valid {
		targets = targets[:0]
		for _, name := range strings.Split(f.Str("ustring"), " ") {
			if s.dir.Has(name) {
				targets = append(targets, name)
			}
		}
	}

	for _, name := range targets {
		s.dir.SendToUsers(
			wire.Make("info", "msg", fmt.Sprintf("%s has been eaten by a grue!", name)),
			[]string{name},
		)
	}
}

// cmdWho tells the caller who is connected right now.
func cmdWho(s *Session, _ wire.Fields) {
	s.info("Online users: " + strings.Join(s.dir.Online(), " "))
}

// cmdMode changes another user's modes. The request string is parsed and
// filtered against the caller's grantable set, then applied to the
// target's granted set and persisted. Callers without applicable
// privileges get an info reply, never an error.
func cmdMode(s *Session, f wire.Fields) {
	caller, err := s.users.GetByUsername(s.username)
	if err != nil {
		s.log.Error("mode: caller lookup failed", "user", s.username, "error", err)
		s.info("Your modes could not be checked.")
		return
	}

	changes := caller.Perms.ReadModes(f.Str("modes"))
	if len(changes) == 0 {
		s.info("None of those modes can be set with your privileges.")
		return
	}

	targetName := f.Str("user")
	target, err := s.users.GetByUsername(targetName)
	if err != nil {
		s.info(fmt.Sprintf("There is no user named %s.", targetName))
		return
	}

	target.Perms.Apply(changes)
	if err := s.users.UpdateModes(target.Username, target.Perms.String()); err != nil {
		s.log.Error("mode: persist failed", "user", target.Username, "error", err)
		s.info(fmt.Sprintf("The modes for %s could not be saved.", target.Username))
		return
	}

	modes := target.Perms.String()
	s.info(fmt.Sprintf("Modes for %s are now %q.", target.Username, modes))
	if target.Username != s.username && s.dir.Has(target.Username) {
		s.dir.SendToUsers(
			wire.Make("info", "msg", fmt.Sprintf("Your modes are now %q.", modes)),
			[]string{target.Username},
		)
	}
}
