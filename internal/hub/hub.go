// internal/hub/hub.go
// The Hub is the dispatcher: the only goroutine that touches channel state.
// It multiplexes protocol events from the reader and calls from the socket
// acceptor, and queues outgoing protocol lines for the writer.
package hub

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/erilali/circd/internal/channel"
	"github.com/erilali/circd/internal/ircmsg"
	"github.com/erilali/circd/internal/logger"
	"github.com/erilali/circd/internal/rpc"
)

const eventQueueSize = 256

// ErrStopped is returned by Call and Post once the hub has processed Quit.
var ErrStopped = errors.New("hub stopped")

// State is the run state of the hub.
type State int32

const (
	Active State = iota
	Stopped
)

func (s State) String() string {
	if s == Stopped {
		return "stopped"
	}
	return "active"
}

// Outbox accepts outgoing protocol lines in order. Enqueue reports false when
// the line could not be queued because the writer is gone.
type Outbox interface {
	Enqueue(line string) bool
}

// Archiver receives every message appended to a channel backlog. Archive
// runs on the hub goroutine and must not block.
type Archiver interface {
	Archive(channel string, msg ircmsg.Message)
}

// Feed receives every protocol line the hub handles. Publish must not block.
type Feed interface {
	Publish(msg ircmsg.Message)
}

type call struct {
	req   rpc.Request
	reply chan rpc.Response
}

// Hub owns the channel store. All of its state is confined to the Run
// goroutine.
type Hub struct {
	events chan ircmsg.Message
	calls  chan call
	done   chan struct{}
	state  atomic.Int32

	outbox   Outbox
	channels *channel.Store
	archiver Archiver
	feed     Feed
	Logger   *logger.Logger
}

// NewHub creates a hub that writes protocol lines to outbox.
func NewHub(outbox Outbox, logger *logger.Logger) *Hub {
	return &Hub{
		events:   make(chan ircmsg.Message, eventQueueSize),
		calls:    make(chan call), // unbuffered: a sent call is a received call
		done:     make(chan struct{}),
		outbox:   outbox,
		channels: channel.NewStore(),
		Logger:   logger,
	}
}

// SetArchiver installs an archiver. Must be called before Run.
func (h *Hub) SetArchiver(a Archiver) {
	h.archiver = a
}

// SetFeed installs a feed. Must be called before Run.
func (h *Hub) SetFeed(f Feed) {
	h.feed = f
}

// Events is the inbound protocol queue fed by the reader. Each message
// carries its receipt time.
func (h *Hub) Events() chan<- ircmsg.Message {
	return h.events
}

// Done is closed when the hub stops.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

// State reports whether the hub is still running.
func (h *Hub) State() State {
	return State(h.state.Load())
}

// Run processes events and calls until Quit is handled or ctx is cancelled.
// select picks uniformly among ready cases, so a steady stream on one queue
// cannot starve the other.
func (h *Hub) Run(ctx context.Context) error {
	defer h.stop()

	for {
		select {
		case msg := <-h.events:
			h.handleEvent(msg)

		case c := <-h.calls:
			if quit := h.handleCall(c); quit {
				h.Logger.Info("Quit processed, dispatcher stopping")
				return nil
			}

		case <-ctx.Done():
			h.Logger.Warnf("Dispatcher cancelled: %v", ctx.Err())
			return ctx.Err()
		}
	}
}

func (h *Hub) stop() {
	h.state.Store(int32(Stopped))
	close(h.done)
}

// Call sends a response-expecting request and waits for the answer.
func (h *Hub) Call(ctx context.Context, req rpc.Request) (rpc.Response, error) {
	if !rpc.ExpectsResponse(req) {
		return nil, fmt.Errorf("call: %s does not expect a response", req.Kind())
	}
	c := call{req: req, reply: make(chan rpc.Response, 1)}
	if err := h.submit(ctx, c); err != nil {
		return nil, err
	}
	// A received call is always answered before the hub looks at anything
	// else, so only the caller's context can interrupt this wait.
	select {
	case resp := <-c.reply:
		return resp, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Post sends a fire-and-forget request (Join, Part, SendMessage or Quit).
func (h *Hub) Post(ctx context.Context, req rpc.Request) error {
	if rpc.ExpectsResponse(req) {
		return fmt.Errorf("post: %s expects a response", req.Kind())
	}
	return h.submit(ctx, call{req: req})
}

func (h *Hub) submit(ctx context.Context, c call) error {
	select {
	case <-h.done:
		return ErrStopped
	default:
	}
	select {
	case h.calls <- c:
		return nil
	case <-h.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Hub) enqueue(line string) {
	if !h.outbox.Enqueue(line) {
		h.Logger.Warnf("Writer is gone, dropped %q", line)
	}
}
