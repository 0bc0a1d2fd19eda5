package server

import (
	"bufio"
	"encoding/json"
	"io"
	"net"
	"testing"

	"github.com/gruenet/gruechat/internal/wire"
)

func TestLineConnSend(t *testing.T) {
	client, srv := net.Pipe()
	defer client.Close()

	lc := NewLineConn(srv)
	defer lc.Close()

	go func() {
		_ = lc.Send(wire.Make("info", "msg", "hello"))
	}()

	line, err := bufio.NewReader(client).ReadString('\n')
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal([]byte(line), &decoded); err != nil {
		t.Fatalf("sent line is not JSON: %v", err)
	}
	if decoded["cmd"] != "info" || decoded["msg"] != "hello" {
		t.Fatalf("unexpected payload: %v", decoded)
	}
	if _, ok := decoded["time"].(float64); !ok {
		t.Fatalf("outbound message missing time stamp: %v", decoded)
	}
}

func TestLineConnReadLine(t *testing.T) {
	client, srv := net.Pipe()

	lc := NewLineConn(srv)
	defer lc.Close()

	go func() {
		client.Write([]byte("{\"cmd\":\"msg\"}\n{\"cmd\":\"who\"}\n"))
		client.Close()
	}()

	line, err := lc.ReadLine()
	if err != nil {
		t.Fatalf("first read: %v", err)
	}
	if string(line) != `{"cmd":"msg"}` {
		t.Fatalf("unexpected first line %q", line)
	}

	line, err = lc.ReadLine()
	if err != nil {
		t.Fatalf("second read: %v", err)
	}
	if string(line) != `{"cmd":"who"}` {
		t.Fatalf("unexpected second line %q", line)
	}

	if _, err := lc.ReadLine(); err != io.EOF {
		t.Fatalf("expected EOF after peer close, got %v", err)
	}
}
