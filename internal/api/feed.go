// internal/api/feed.go
// Feed fans protocol events out to websocket watchers of the monitor.
package api

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"

	"github.com/erilali/circd/internal/ircmsg"
	"github.com/erilali/circd/internal/logger"
)

const feedQueueSize = 256

// FeedEvent is the JSON form of one protocol event on the feed.
type FeedEvent struct {
	Time     time.Time `json:"time"`
	Prefix   string    `json:"prefix,omitempty"`
	Command  string    `json:"command"`
	Params   []string  `json:"params,omitempty"`
	Trailing *string   `json:"trailing,omitempty"`
}

type watcher struct {
	conn *websocket.Conn
	send chan []byte
}

// Feed manages websocket watchers. Its Run loop owns the watcher set.
type Feed struct {
	watchers   map[*watcher]bool
	register   chan *watcher
	unregister chan *watcher
	broadcast  chan []byte
	done       chan struct{}
	Logger     *logger.Logger
}

// NewFeed creates an idle feed; call Run to start it.
func NewFeed(logger *logger.Logger) *Feed {
	return &Feed{
		watchers:   make(map[*watcher]bool),
		register:   make(chan *watcher),
		unregister: make(chan *watcher),
		broadcast:  make(chan []byte, feedQueueSize),
		done:       make(chan struct{}),
		Logger:     logger,
	}
}

// Run distributes broadcasts until ctx is cancelled.
func (f *Feed) Run(ctx context.Context) {
	defer close(f.done)
	for {
		select {
		case w := <-f.register:
			f.watchers[w] = true
			f.Logger.Infof("Watcher connected (%d total)", len(f.watchers))

		case w := <-f.unregister:
			if _, ok := f.watchers[w]; ok {
				delete(f.watchers, w)
				close(w.send)
				f.Logger.Infof("Watcher disconnected (%d left)", len(f.watchers))
			}

		case message := <-f.broadcast:
			for w := range f.watchers {
				select {
				case w.send <- message:
				default:
					// Slow watcher; drop it rather than stall the feed.
					delete(f.watchers, w)
					close(w.send)
				}
			}

		case <-ctx.Done():
			for w := range f.watchers {
				delete(f.watchers, w)
				close(w.send)
			}
			return
		}
	}
}

// Publish queues msg for every watcher. It never blocks; events are dropped
// when the feed is backed up.
func (f *Feed) Publish(msg ircmsg.Message) {
	fe := FeedEvent{
		Time:    msg.Time,
		Prefix:  msg.Prefix,
		Command: msg.Command,
		Params:  msg.Params,
	}
	if msg.HasTrailing {
		trailing := msg.Trailing
		fe.Trailing = &trailing
	}
	data, err := json.Marshal(fe)
	if err != nil {
		f.Logger.Errorf("Failed to marshal feed event: %v", err)
		return
	}
	select {
	case f.broadcast <- data:
	default:
		f.Logger.Debug("Feed backed up, event dropped")
	}
}
