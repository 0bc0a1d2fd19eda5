// Package perm implements the per-user capability set and the mode-string
// grammar used to grant and revoke capabilities.
package perm

import "strings"

// Alphabet lists every recognized mode letter, in canonical order.
// o = owner, a = admin, m = moderator; t, q, s, b are application modes
// with no special grant privileges of their own.
const Alphabet = "oamtqsb"

// cascade maps a mode letter to the letters a holder of that mode may
// grant or revoke. Letters absent from the table unlock nothing.
var cascade = map[byte]string{
	'o': "amtqsb",
	'a': "mtqsb",
	'm': "tqm",
}

// Change is a single signed mode token produced by ReadModes.
type Change struct {
	Grant bool
	Mode  byte
}

// Set holds the modes granted to one user plus the derived set of modes
// the user may grant to others. The grantable set is never stored on its
// own; it is recomputed from the granted set after every mutation.
type Set struct {
	granted   map[byte]bool
	grantable map[byte]bool
}

// NewSet returns an empty permission set.
func NewSet() *Set {
	s := &Set{
		granted:   make(map[byte]bool, len(Alphabet)),
		grantable: make(map[byte]bool, len(Alphabet)),
	}
	for i := 0; i < len(Alphabet); i++ {
		s.granted[Alphabet[i]] = false
	}
	return s
}

// FromString builds a set from a string of granted mode letters, as stored
// in the user table. Unrecognized characters are ignored.
func FromString(modes string) *Set {
	s := NewSet()
	for i := 0; i < len(modes); i++ {
		if isMode(modes[i]) {
			s.granted[modes[i]] = true
		}
	}
	s.refresh()
	return s
}

// Has reports whether the given mode letter is granted.
func (s *Set) Has(mode byte) bool {
	return s.granted[mode]
}

// CanGrant reports whether the set authorizes granting or revoking the
// given mode letter on another set.
func (s *Set) CanGrant(mode byte) bool {
	return s.grantable[mode]
}

// String returns the granted mode letters in canonical order, suitable
// for persisting back to the user table.
func (s *Set) String() string {
	var b strings.Builder
	for i := 0; i < len(Alphabet); i++ {
		if s.granted[Alphabet[i]] {
			b.WriteByte(Alphabet[i])
		}
	}
	return b.String()
}

// Grantable returns the currently grantable letters in canonical order.
func (s *Set) Grantable() string {
	var b strings.Builder
	for i := 0; i < len(Alphabet); i++ {
		if s.grantable[Alphabet[i]] {
			b.WriteByte(Alphabet[i])
		}
	}
	return b.String()
}

// refresh recomputes the grantable set as the union of the cascade
// entries for every granted mode.
func (s *Set) refresh() {
	for k := range s.grantable {
		delete(s.grantable, k)
	}
	for mode, on := range s.granted {
		if !on {
			continue
		}
		allowed := cascade[mode]
		for i := 0; i < len(allowed); i++ {
			s.grantable[allowed[i]] = true
		}
	}
}

// ParseModes turns a free-form mode-change request into signed tokens,
// in request order, with no permission filtering.
//
// The scan keeps only mode letters and the sign characters '+' and '-',
// then walks left to right with a pending sign: a sign character replaces
// any pending sign, a letter emits a token under the pending sign
// (defaulting to '+') and resets it. Junk characters are stripped before
// the scan so they cannot desynchronize sign and letter.
func ParseModes(modestring string) []Change {
	var changes []Change
	grant := true
	for i := 0; i < len(modestring); i++ {
		c := modestring[i]
		switch {
		case c == '+':
			grant = true
		case c == '-':
			grant = false
		case isMode(c):
			changes = append(changes, Change{Grant: grant, Mode: c})
			grant = true
		}
	}
	return changes
}

// ReadModes parses a mode-change request against this set's grant
// privileges and returns only the changes the set is allowed to apply.
// The permission filter runs after parsing, over well-formed tokens only.
func (s *Set) ReadModes(modestring string) []Change {
	if len(s.grantable) == 0 {
		return nil
	}

	var changes []Change
	for _, ch := range ParseModes(modestring) {
		if s.grantable[ch.Mode] {
			changes = append(changes, ch)
		}
	}
	return changes
}

// Apply sets or clears each change in order and recomputes the grantable
// set. Changes for unrecognized letters are ignored.
func (s *Set) Apply(changes []Change) {
	for _, ch := range changes {
		if !isMode(ch.Mode) {
			continue
		}
		s.granted[ch.Mode] = ch.Grant
	}
	s.refresh()
}

func isMode(c byte) bool {
	return strings.IndexByte(Alphabet, c) >= 0
}
