// Package wire implements the newline-delimited JSON message format spoken
// between clients and the relay server.
package wire

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// Decode errors. Both are fatal to the connection; see the session package.
var (
	ErrMalformed = errors.New("malformed line")
	ErrNoCommand = errors.New("missing command field")
)

// Fields holds the non-command fields of an inbound message, keyed by
// field name. Values keep their JSON type so handlers can distinguish
// strings from other scalars.
type Fields map[string]gjson.Result

// Has reports whether the field is present.
func (f Fields) Has(name string) bool {
	_, ok := f[name]
	return ok
}

// Str returns the field coerced to a string ("" when absent).
func (f Fields) Str(name string) string {
	return f[name].String()
}

// IsString reports whether the field is present and is a JSON string.
func (f Fields) IsString(name string) bool {
	return f[name].Type == gjson.String
}

// Decode parses one inbound line. It returns the lower-cased command name
// and the remaining fields. A line that is not a JSON object yields
// ErrMalformed; an object without a "cmd" field yields ErrNoCommand.
func Decode(line []byte) (string, Fields, error) {
	if !gjson.ValidBytes(line) {
		return "", nil, ErrMalformed
	}
	parsed := gjson.ParseBytes(line)
	if !parsed.IsObject() {
		return "", nil, ErrMalformed
	}

	cmd := ""
	cmdSeen := false
	fields := make(Fields)
	parsed.ForEach(func(key, value gjson.Result) bool {
		if key.String() == "cmd" {
			if value.Type != gjson.Null {
				cmd = value.String()
				cmdSeen = true
			}
			return true
		}
		fields[key.String()] = value
		return true
	})

	if !cmdSeen {
		return "", nil, ErrNoCommand
	}
	return strings.ToLower(cmd), fields, nil
}

// Message is one outbound record. The free-form shape matches the
// protocol: a command name plus whatever fields the command carries.
type Message map[string]any

// Make builds an outbound message from a command name and key/value
// pairs. It panics on an odd number of pairs, which is a programming
// error, not a runtime condition.
func Make(cmd string, pairs ...any) Message {
	if len(pairs)%2 != 0 {
		panic("wire: Make called with odd key/value list")
	}
	m := Message{"cmd": cmd}
	for i := 0; i < len(pairs); i += 2 {
		m[pairs[i].(string)] = pairs[i+1]
	}
	return m
}

// Encode marshals the message, stamping the "time" field with the current
// time (float seconds since epoch) unless the sender already set one.
func (m Message) Encode() ([]byte, error) {
	if _, ok := m["time"]; !ok {
		m["time"] = float64(time.Now().UnixNano()) / float64(time.Second)
	}
	data, err := json.Marshal(map[string]any(m))
	if err != nil {
		return nil, err
	}
	return data, nil
}
