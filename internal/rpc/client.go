// internal/rpc/client.go
// Client side of the socket protocol: one connection per request.
package rpc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"
)

var (
	// ErrDaemonNotRunning is returned when the socket file does not exist.
	ErrDaemonNotRunning = errors.New("circd is not running")

	// ErrUnexpectedResponse is returned when the daemon answers with a
	// kind that does not match the request.
	ErrUnexpectedResponse = errors.New("unexpected response")
)

// RemoteError is an Error response returned by the daemon.
type RemoteError struct {
	Text string
}

func (e *RemoteError) Error() string { return e.Text }

// Client sends requests to circd over its Unix socket.
type Client struct {
	SocketPath string
	// Timeout bounds a whole round trip. Zero means no limit.
	Timeout time.Duration
}

// NewClient returns a client for the socket at path.
func NewClient(path string) *Client {
	return &Client{SocketPath: path}
}

// Do sends req and, when the request kind expects one, waits for the
// response. Fire-and-forget requests return a nil Response.
func (c *Client) Do(ctx context.Context, req Request) (Response, error) {
	if _, err := os.Stat(c.SocketPath); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: no socket at %s", ErrDaemonNotRunning, c.SocketPath)
		}
		return nil, fmt.Errorf("stat socket: %w", err)
	}

	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", c.SocketPath)
	if err != nil {
		return nil, fmt.Errorf("dial uds: %w", err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	if err := WriteRequest(conn, req); err != nil {
		return nil, err
	}
	if !ExpectsResponse(req) {
		return nil, nil
	}

	resp, err := ReadResponse(conn)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// Check validates that resp is the success kind for req. An Error response
// becomes a *RemoteError.
func Check(req Request, resp Response) error {
	if e, ok := resp.(ErrorResponse); ok {
		return &RemoteError{Text: e.Text}
	}
	want := ExpectedKind(req)
	if want == "" {
		if resp != nil {
			return fmt.Errorf("%w: %s for %s", ErrUnexpectedResponse, resp.Kind(), req.Kind())
		}
		return nil
	}
	if resp == nil || resp.Kind() != want {
		got := Kind("none")
		if resp != nil {
			got = resp.Kind()
		}
		return fmt.Errorf("%w: %s for %s", ErrUnexpectedResponse, got, req.Kind())
	}
	return nil
}
