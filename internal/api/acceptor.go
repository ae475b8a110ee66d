// internal/api/acceptor.go
// The Unix socket acceptor: one request, and at most one response, per
// connection.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/erilali/circd/internal/hub"
	"github.com/erilali/circd/internal/logger"
	"github.com/erilali/circd/internal/rpc"
)

// BindError reports that the socket could not be created. It is fatal.
type BindError struct {
	Path string
	Err  error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("bind %s: %v", e.Path, e.Err)
}

func (e *BindError) Unwrap() error { return e.Err }

// Dispatcher is the part of the hub the acceptor talks to.
type Dispatcher interface {
	Call(ctx context.Context, req rpc.Request) (rpc.Response, error)
	Post(ctx context.Context, req rpc.Request) error
}

// Acceptor serves client requests on a Unix socket.
type Acceptor struct {
	path       string
	dispatcher Dispatcher
	listener   net.Listener
	timeout    time.Duration
	wg         sync.WaitGroup
	stopOnce   sync.Once

	// waiting holds connections that have not sent their request yet.
	mu       sync.Mutex
	waiting  map[net.Conn]struct{}
	stopping bool

	Logger *logger.Logger
}

// NewAcceptor creates an acceptor for the socket at path.
func NewAcceptor(path string, d Dispatcher, logger *logger.Logger) *Acceptor {
	return &Acceptor{
		path:       path,
		dispatcher: d,
		waiting:    make(map[net.Conn]struct{}),
		Logger:     logger,
	}
}

// SetTimeout bounds each connection's round trip. Zero, the default, means
// a silent client can hold its connection open forever.
func (a *Acceptor) SetTimeout(d time.Duration) {
	a.timeout = d
}

// Path returns the socket path.
func (a *Acceptor) Path() string {
	return a.path
}

// Listen removes any stale socket file and binds a fresh one.
func (a *Acceptor) Listen() error {
	if err := os.MkdirAll(filepath.Dir(a.path), 0o700); err != nil {
		return &BindError{Path: a.path, Err: err}
	}
	if err := os.Remove(a.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return &BindError{Path: a.path, Err: fmt.Errorf("remove stale socket: %w", err)}
	}
	ln, err := net.Listen("unix", a.path)
	if err != nil {
		return &BindError{Path: a.path, Err: err}
	}
	a.listener = ln
	a.Logger.Infof("Listening on %s", a.path)
	return nil
}

// Serve accepts connections until a Quit request arrives, ctx is cancelled,
// or Close is called. Each connection is handled in its own goroutine.
func (a *Acceptor) Serve(ctx context.Context) error {
	if a.listener == nil {
		return errors.New("serve: Listen has not been called")
	}

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			a.stopAccepting()
		case <-stop:
		}
	}()

	for {
		conn, err := a.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				break
			}
			a.Logger.Errorf("Accept failed: %v", err)
			continue
		}
		a.wg.Add(1)
		go a.handleConn(conn)
	}

	a.wg.Wait()
	a.Logger.Info("Acceptor stopped")
	return nil
}

// Close stops accepting and removes the socket file.
func (a *Acceptor) Close() error {
	a.stopAccepting()
	if err := os.Remove(a.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// stopAccepting closes the listener and unblocks connections still waiting
// for their request, so Serve can return.
func (a *Acceptor) stopAccepting() {
	a.stopOnce.Do(func() {
		if a.listener != nil {
			_ = a.listener.Close()
		}
		a.mu.Lock()
		defer a.mu.Unlock()
		a.stopping = true
		for conn := range a.waiting {
			_ = conn.SetReadDeadline(time.Now())
		}
	})
}

// await marks conn as waiting for a request. A connection accepted after
// shutdown began gets an expired deadline straight away.
func (a *Acceptor) await(conn net.Conn) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.stopping {
		_ = conn.SetReadDeadline(time.Now())
		return
	}
	a.waiting[conn] = struct{}{}
}

func (a *Acceptor) received(conn net.Conn) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.waiting, conn)
}

func (a *Acceptor) handleConn(conn net.Conn) {
	defer a.wg.Done()
	defer conn.Close()

	log := a.Logger.WithField("conn", uuid.NewString())

	ctx := context.Background()
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
		_ = conn.SetDeadline(time.Now().Add(a.timeout))
	}

	a.await(conn)
	req, err := rpc.ReadRequest(conn)
	a.received(conn)
	if err != nil {
		log.Warnf("Dropping connection: %v", err)
		return
	}
	log = log.WithField("kind", string(req.Kind()))
	log.Debug("Request received")

	if _, ok := req.(rpc.Quit); ok {
		if err := a.dispatcher.Post(ctx, req); err != nil {
			log.Warnf("Quit not delivered: %v", err)
		}
		log.Info("Quit received, no longer accepting connections")
		a.stopAccepting()
		return
	}

	if !rpc.ExpectsResponse(req) {
		if err := a.dispatcher.Post(ctx, req); err != nil {
			log.Warnf("Request not delivered: %v", err)
		}
		return
	}

	resp, err := a.dispatcher.Call(ctx, req)
	if err != nil {
		log.Warnf("Request failed: %v", err)
		if !errors.Is(err, hub.ErrStopped) {
			return
		}
		resp = rpc.ErrorResponse{Text: "circd is shutting down"}
	}
	if err := rpc.WriteResponse(conn, resp); err != nil {
		log.Warnf("Writing response failed: %v", err)
	}
}
