// Package transport provides the TCP listener and per-connection
// line-oriented I/O for the chat server. Framing interpretation and
// formatting live in the proto package; this package only moves bytes.
package transport

import (
	"bufio"
	"bytes"
	"net"
	"sync"
	"time"

	"github.com/cory-johannsen/chatserver/internal/proto"
)

// Conn wraps a TCP connection with line-based reading and
// deadline-guarded, mutex-serialized writes. One reader goroutine and
// any number of writer goroutines may use it concurrently.
type Conn struct {
	raw     net.Conn
	reader  *bufio.Reader
	mu      sync.Mutex
	maxLine int

	readTimeout  time.Duration
	writeTimeout time.Duration
}

// NewConn wraps a raw TCP connection.
//
// Precondition: raw must be a valid, open network connection; limits
// must be validated.
// Postcondition: Returns a Conn ready for reading and writing, with
// lines capped at limits.WireLineMax()-1 bytes.
func NewConn(raw net.Conn, limits proto.Limits, readTimeout, writeTimeout time.Duration) *Conn {
	return &Conn{
		raw:          raw,
		reader:       bufio.NewReaderSize(raw, limits.BufSize),
		maxLine:      limits.WireLineMax() - 1,
		readTimeout:  readTimeout,
		writeTimeout: writeTimeout,
	}
}

// ReadLine reads a single line of input. Lines terminated by "\n" or
// "\r\n" are accepted; the terminator is not included in the result.
// Control bytes other than tab are dropped. Input beyond the wire-line
// cap is discarded until the terminator, so one hostile client cannot
// grow server-side buffers.
//
// Postcondition: Returns the next line of text, or an error (including
// io.EOF). On error the bytes read so far are returned alongside it.
func (c *Conn) ReadLine() (string, error) {
	if c.readTimeout > 0 {
		_ = c.raw.SetReadDeadline(time.Now().Add(c.readTimeout))
	}

	var line bytes.Buffer
	for {
		b, err := c.reader.ReadByte()
		if err != nil {
			return line.String(), err
		}

		if b == '\n' {
			break
		}
		if b == '\r' {
			// CR terminates only as part of CRLF; a bare CR is
			// dropped like any other control byte.
			next, err := c.reader.Peek(1)
			if err == nil && len(next) > 0 && next[0] == '\n' {
				_, _ = c.reader.ReadByte()
				break
			}
			continue
		}

		if b < 32 && b != '\t' {
			continue
		}
		if line.Len() >= c.maxLine {
			continue
		}
		line.WriteByte(b)
	}

	return line.String(), nil
}

// Write sends raw bytes to the client. Formatted protocol lines carry
// their own terminator, so nothing is appended.
//
// Postcondition: The data is written to the connection.
func (c *Conn) Write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.writeTimeout > 0 {
		_ = c.raw.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	}
	_, err := c.raw.Write(data)
	return err
}

// WriteString sends a string to the client without appending a
// terminator. Used for prompts and pre-terminated notices.
func (c *Conn) WriteString(s string) error {
	return c.Write([]byte(s))
}

// Close closes the underlying TCP connection.
//
// Postcondition: The connection is closed and no longer usable.
func (c *Conn) Close() error {
	return c.raw.Close()
}

// RemoteAddr returns the remote network address of the client.
func (c *Conn) RemoteAddr() net.Addr {
	return c.raw.RemoteAddr()
}
