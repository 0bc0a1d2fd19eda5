package server

import (
	"bufio"
	"io"
	"net"
	"sync"

	"github.com/gruenet/gruechat/internal/wire"
)

// Maximum accepted line length. Anything longer is a broken or hostile
// client and surfaces as a read error.
const maxLineLen = 64 * 1024

// LineConn wraps a raw TCP connection as a newline-delimited message
// transport. Reads deliver one complete line at a time; writes append
// the line terminator and are serialized by a mutex, since broadcasts
// arrive from other sessions' goroutines.
type LineConn struct {
	conn    net.Conn
	scanner *bufio.Scanner
	mu      sync.Mutex
}

// NewLineConn wraps a raw TCP connection.
func NewLineConn(conn net.Conn) *LineConn {
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 4096), maxLineLen)
	return &LineConn{
		conn:    conn,
		scanner: scanner,
	}
}

// Send encodes the message (stamping its send time) and writes it as one
// line. Safe for concurrent use.
func (c *LineConn) Send(msg wire.Message) error {
	data, err := msg.Encode()
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := c.conn.Write(append(data, '\n')); err != nil {
		return err
	}
	return nil
}

// ReadLine blocks until a complete line arrives and returns it without
// the terminator. On connection loss it returns io.EOF or the transport
// error.
func (c *LineConn) ReadLine() ([]byte, error) {
	if !c.scanner.Scan() {
		if err := c.scanner.Err(); err != nil {
			return nil, err
		}
		return nil, io.EOF
	}
	line := make([]byte, len(c.scanner.Bytes()))
	copy(line, c.scanner.Bytes())
	return line, nil
}

// Close closes the underlying connection.
func (c *LineConn) Close() error {
	return c.conn.Close()
}

// RemoteAddr returns the remote address of the connection.
func (c *LineConn) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}
