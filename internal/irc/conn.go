// internal/irc/conn.go
// The chat server connection and its reader and writer pumps.
package irc

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/erilali/circd/internal/config"
	"github.com/erilali/circd/internal/ircmsg"
	"github.com/erilali/circd/internal/logger"
)

const sendQueueSize = 256

// Conn is one connection to a chat server. ReadPump and WritePump each run
// in their own goroutine; both end when the connection fails or closes.
type Conn struct {
	conn   net.Conn
	send   chan string
	closed chan struct{}
	once   sync.Once
	up     atomic.Bool

	flush     chan struct{}
	flushOnce sync.Once

	// WriteTimeout bounds each write. Zero means writes may block forever.
	WriteTimeout time.Duration
	Logger       *logger.Logger
}

// Dial connects to the server described by cfg.
func Dial(ctx context.Context, cfg config.ConnectionConfig, logger *logger.Logger) (*Conn, error) {
	var d net.Dialer
	nc, err := d.DialContext(ctx, "tcp", cfg.HostPort())
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", cfg.HostPort(), err)
	}
	logger.Infof("Connected to %s", cfg.HostPort())
	return NewConn(nc, logger), nil
}

// NewConn wraps an established connection.
func NewConn(nc net.Conn, logger *logger.Logger) *Conn {
	c := &Conn{
		conn:   nc,
		send:   make(chan string, sendQueueSize),
		closed: make(chan struct{}),
		flush:  make(chan struct{}),
		Logger: logger,
	}
	c.up.Store(true)
	return c
}

// Register queues the NICK and USER lines that open a session.
func (c *Conn) Register(cfg config.ConnectionConfig) {
	c.Enqueue(ircmsg.Nick(cfg.Nickname))
	c.Enqueue(ircmsg.User(cfg.Realname))
}

// Enqueue queues a complete protocol line for the writer. It returns false
// once the connection is closed.
func (c *Conn) Enqueue(line string) bool {
	select {
	case <-c.closed:
		return false
	default:
	}
	select {
	case c.send <- line:
		return true
	case <-c.closed:
		return false
	}
}

// Connected reports whether both pumps may still be running.
func (c *Conn) Connected() bool {
	return c.up.Load()
}

// Closed is closed once the connection has been shut down.
func (c *Conn) Closed() <-chan struct{} {
	return c.closed
}

// Close shuts the connection down. It is safe to call more than once.
func (c *Conn) Close() error {
	var err error
	c.once.Do(func() {
		c.up.Store(false)
		close(c.closed)
		err = c.conn.Close()
	})
	return err
}

// Shutdown lets the writer send whatever is already queued, such as a final
// QUIT, then closes the connection. It waits at most timeout.
func (c *Conn) Shutdown(timeout time.Duration) {
	c.flushOnce.Do(func() { close(c.flush) })
	select {
	case <-c.closed:
	case <-time.After(timeout):
		c.Logger.Warn("Writer did not flush in time")
	}
	c.Close()
}

// ReadPump reads lines from the server and delivers them to events until the
// connection ends. Bad lines are logged and skipped. Once done is closed the
// reader keeps draining the socket but delivers nothing; the connection is
// left for Shutdown to close after the writer has flushed.
func (c *Conn) ReadPump(events chan<- ircmsg.Message, done <-chan struct{}) {
	defer c.Close()

	reader := bufio.NewReader(c.conn)
	delivering := true
	for {
		raw, err := reader.ReadString('\n')
		if err != nil {
			switch {
			case errors.Is(err, io.EOF):
				c.Logger.Warn("Server closed the connection")
			case errors.Is(err, net.ErrClosed):
				c.Logger.Info("Connection closed")
			default:
				c.Logger.Errorf("Read error: %v", err)
			}
			return
		}
		if !delivering {
			continue
		}
		received := time.Now()

		msg, err := decodeLine(raw)
		if err != nil {
			c.Logger.LogEvent("warn", "line_skipped", "", fmt.Sprintf("%v: %q", err, raw))
			continue
		}
		msg.Time = received

		select {
		case events <- msg:
		case <-done:
			c.Logger.Info("Dispatcher stopped, reader no longer delivering")
			delivering = false
		}
	}
}

// decodeLine turns one raw line, terminator included, into a Message.
func decodeLine(raw string) (ircmsg.Message, error) {
	line, err := ircmsg.StripTerminator(raw)
	if err != nil {
		return ircmsg.Message{}, err
	}
	if !utf8.ValidString(line) {
		return ircmsg.Message{}, fmt.Errorf("%w: invalid utf-8", ircmsg.ErrMalformedLine)
	}
	return ircmsg.Parse(line)
}

// WritePump writes queued lines in order until a write fails, the
// connection is closed, or Shutdown asks it to flush.
func (c *Conn) WritePump() {
	defer c.Close()

	for {
		select {
		case line := <-c.send:
			if err := c.write(line); err != nil {
				return
			}

		case <-c.flush:
			for {
				select {
				case line := <-c.send:
					if err := c.write(line); err != nil {
						return
					}
				default:
					c.Logger.Debug("Send queue flushed")
					return
				}
			}

		case <-c.closed:
			return
		}
	}
}

func (c *Conn) write(line string) error {
	if c.WriteTimeout > 0 {
		_ = c.conn.SetWriteDeadline(time.Now().Add(c.WriteTimeout))
	}
	if _, err := io.WriteString(c.conn, line); err != nil {
		c.Logger.Errorf("Write error: %v", err)
		return err
	}
	c.Logger.Debugf("Sent %q", line)
	return nil
}
