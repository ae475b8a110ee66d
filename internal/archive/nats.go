// internal/archive/nats.go
// Optional JetStream archive of every message buffered for a channel.
package archive

import (
	"encoding/json"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/erilali/circd/internal/ircmsg"
	"github.com/erilali/circd/internal/logger"
)

const (
	StreamName    = "CIRCD_MESSAGES"
	subjectPrefix = "circd.messages."
	retention     = 7 * 24 * time.Hour
	maxPending    = 256
	queueSize     = 1024
	dropLogEvery  = 100
	closeWait     = 2 * time.Second
)

// Record is the JSON payload published for one channel message.
type Record struct {
	Channel  string    `json:"channel"`
	Time     time.Time `json:"time"`
	Prefix   string    `json:"prefix,omitempty"`
	Command  string    `json:"command"`
	Trailing string    `json:"text,omitempty"`
}

type publisher interface {
	PublishAsync(subj string, data []byte, opts ...nats.PubOpt) (nats.PubAckFuture, error)
}

type outgoing struct {
	subject string
	data    []byte
}

// Archive publishes channel messages to JetStream from its own goroutine.
// A nil *Archive is valid and archives nothing.
type Archive struct {
	nc  *nats.Conn
	js  nats.JetStreamContext
	pub publisher

	queue    chan outgoing
	stop     chan struct{}
	finished chan struct{}
	stopOnce sync.Once
	dropped  atomic.Int64

	Logger *logger.Logger
}

// Connect dials url and makes sure the stream exists. On error the daemon
// runs without an archive.
func Connect(url string, logger *logger.Logger) (*Archive, error) {
	if url == "" {
		url = nats.DefaultURL
	}
	logger.Infof("Connecting to NATS at %s", url)
	nc, err := nats.Connect(url, nats.Name("circd"))
	if err != nil {
		return nil, err
	}
	js, err := nc.JetStream(nats.PublishAsyncMaxPending(maxPending))
	if err != nil {
		nc.Close()
		return nil, err
	}
	if err := ensureStream(js, logger); err != nil {
		nc.Close()
		return nil, err
	}
	logger.Info("Successfully connected to JetStream")

	a := newArchive(js, logger)
	a.nc = nc
	a.js = js
	return a, nil
}

func newArchive(pub publisher, logger *logger.Logger) *Archive {
	a := &Archive{
		pub:      pub,
		queue:    make(chan outgoing, queueSize),
		stop:     make(chan struct{}),
		finished: make(chan struct{}),
		Logger:   logger,
	}
	go a.run()
	return a
}

func ensureStream(js nats.JetStreamContext, logger *logger.Logger) error {
	cfg := &nats.StreamConfig{
		Name:     StreamName,
		Subjects: []string{subjectPrefix + "*"},
		Storage:  nats.FileStorage,
		MaxAge:   retention,
	}
	if _, err := js.StreamInfo(cfg.Name); err != nil {
		if _, err := js.AddStream(cfg); err != nil {
			return err
		}
		logger.Infof("Created stream: %s", cfg.Name)
		return nil
	}
	if _, err := js.UpdateStream(cfg); err != nil {
		return err
	}
	logger.Infof("Updated stream: %s", cfg.Name)
	return nil
}

// Archive queues msg for publishing. It never blocks: when the queue is
// full, because NATS is slow or unreachable, the message is dropped.
func (a *Archive) Archive(name string, msg ircmsg.Message) {
	if a == nil || a.queue == nil {
		return
	}
	data, err := json.Marshal(NewRecord(name, msg))
	if err != nil {
		a.Logger.Errorf("Failed to marshal archive record: %v", err)
		return
	}
	select {
	case a.queue <- outgoing{subject: Subject(name), data: data}:
	default:
		if n := a.dropped.Add(1); n == 1 || n%dropLogEvery == 0 {
			a.Logger.Warnf("Archive queue full, %d messages dropped so far", n)
		}
	}
}

// Dropped reports how many messages were discarded because the queue was full.
func (a *Archive) Dropped() int64 {
	if a == nil {
		return 0
	}
	return a.dropped.Load()
}

func (a *Archive) run() {
	defer close(a.finished)
	for {
		select {
		case out := <-a.queue:
			a.publish(out)
		case <-a.stop:
			for {
				select {
				case out := <-a.queue:
					a.publish(out)
				default:
					return
				}
			}
		}
	}
}

func (a *Archive) publish(out outgoing) {
	if _, err := a.pub.PublishAsync(out.subject, out.data); err != nil {
		a.Logger.Errorf("Error publishing message to JetStream: %v", err)
	}
}

// Status is "connected" or "disconnected".
func (a *Archive) Status() string {
	if a != nil && a.nc != nil && a.nc.Status() == nats.CONNECTED {
		return "connected"
	}
	return "disconnected"
}

// Close publishes what is still queued, waits briefly for acks and closes
// the connection. Archive must not be called concurrently with Close.
func (a *Archive) Close() {
	if a == nil || a.queue == nil {
		return
	}
	a.stopOnce.Do(func() { close(a.stop) })
	select {
	case <-a.finished:
	case <-time.After(closeWait):
		a.Logger.Warn("Archive queue not drained before close")
	}
	if a.js != nil {
		select {
		case <-a.js.PublishAsyncComplete():
		case <-time.After(closeWait):
			a.Logger.Warn("Archive closed with unacknowledged publishes")
		}
	}
	if a.nc != nil {
		a.nc.Close()
	}
}

// NewRecord builds the payload for msg.
func NewRecord(name string, msg ircmsg.Message) Record {
	return Record{
		Channel:  name,
		Time:     msg.Time,
		Prefix:   msg.Prefix,
		Command:  msg.Command,
		Trailing: msg.Trailing,
	}
}

// Subject maps a channel name to a single NATS subject token.
func Subject(name string) string {
	return subjectPrefix + strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t', '\r', '\n':
			return '_'
		}
		return r
	}, name)
}
