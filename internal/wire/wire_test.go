package wire

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestDecodeCommand(t *testing.T) {
	cmd, fields, err := Decode([]byte(`{"cmd":"MSG","what":"hi","to":"bob"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cmd != "msg" {
		t.Fatalf("expected lower-cased command %q, got %q", "msg", cmd)
	}
	if fields.Str("what") != "hi" || fields.Str("to") != "bob" {
		t.Fatalf("unexpected fields: %v", fields)
	}
	if fields.Has("cmd") {
		t.Fatal("cmd leaked into the field map")
	}
}

func TestDecodeMalformed(t *testing.T) {
	for _, line := range []string{"not json", `"just a string"`, `[1,2,3]`, `{"cmd":`} {
		if _, _, err := Decode([]byte(line)); !errors.Is(err, ErrMalformed) {
			t.Errorf("line %q: expected ErrMalformed, got %v", line, err)
		}
	}
}

func TestDecodeMissingCommand(t *testing.T) {
	for _, line := range []string{`{}`, `{"what":"hi"}`, `{"cmd":null}`} {
		if _, _, err := Decode([]byte(line)); !errors.Is(err, ErrNoCommand) {
			t.Errorf("line %q: expected ErrNoCommand, got %v", line, err)
		}
	}
}

func TestFieldTypes(t *testing.T) {
	_, fields, err := Decode([]byte(`{"cmd":"auth","user":"alice","pswd":42}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !fields.IsString("user") {
		t.Error("user should be a string field")
	}
	if fields.IsString("pswd") {
		t.Error("pswd is a number, not a string")
	}
	if fields.IsString("missing") {
		t.Error("absent fields are not strings")
	}
}

func TestEncodeStampsTime(t *testing.T) {
	before := float64(time.Now().UnixNano()) / float64(time.Second)
	data, err := Make("info", "msg", "hello").Encode()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("encode produced invalid JSON: %v", err)
	}
	if decoded["cmd"] != "info" || decoded["msg"] != "hello" {
		t.Fatalf("unexpected payload: %v", decoded)
	}
	ts, ok := decoded["time"].(float64)
	if !ok || ts < before {
		t.Fatalf("expected a send-time stamp, got %v", decoded["time"])
	}
}

func TestEncodeKeepsExplicitTime(t *testing.T) {
	m := Make("info", "msg", "hello", "time", 12.5)
	data, err := m.Encode()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("encode produced invalid JSON: %v", err)
	}
	if decoded["time"] != 12.5 {
		t.Fatalf("explicit time overwritten: got %v", decoded["time"])
	}
}
