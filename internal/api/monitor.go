// internal/api/monitor.go
// Optional HTTP monitor: a health report and the websocket feed.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/erilali/circd/internal/hub"
	"github.com/erilali/circd/internal/logger"
	"github.com/erilali/circd/internal/rpc"
)

const (
	version             = "1.0.0"
	healthCallTimeout   = 1 * time.Second
	monitorShutdownWait = 5 * time.Second
)

// StatefulDispatcher is a Dispatcher that can report its run state.
type StatefulDispatcher interface {
	Dispatcher
	State() hub.State
}

// Connection reports whether the chat server link is up.
type Connection interface {
	Connected() bool
}

// StatusReporter describes an optional subsystem such as the archive.
type StatusReporter interface {
	Status() string
}

type Monitor struct {
	dispatcher StatefulDispatcher
	conn       Connection
	archive    StatusReporter
	feed       *Feed
	startTime  time.Time
	Logger     *logger.Logger
}

// NewMonitor creates a monitor. feed may be nil to disable /ws.
func NewMonitor(d StatefulDispatcher, conn Connection, feed *Feed, logger *logger.Logger) *Monitor {
	return &Monitor{
		dispatcher: d,
		conn:       conn,
		feed:       feed,
		startTime:  time.Now(),
		Logger:     logger,
	}
}

// SetArchive adds the archive's status to the health report.
func (m *Monitor) SetArchive(a StatusReporter) {
	m.archive = a
}

// Handler returns the monitor's routes.
func (m *Monitor) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", m.serveHealth)
	if m.feed != nil {
		mux.HandleFunc("/ws", m.feed.ServeWs)
	}
	return mux
}

// ListenAndServe serves the monitor on addr until ctx is cancelled.
func (m *Monitor) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: m.Handler(), ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), monitorShutdownWait)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	m.Logger.Infof("Monitor started at %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (m *Monitor) serveHealth(w http.ResponseWriter, r *http.Request) {
	ircStatus := "disconnected"
	if m.conn != nil && m.conn.Connected() {
		ircStatus = "connected"
	}
	state := m.dispatcher.State()
	health := map[string]interface{}{
		"status":     "ok",
		"irc":        ircStatus,
		"dispatcher": state.String(),
		"uptime":     time.Since(m.startTime).Round(time.Second).String(),
		"version":    version,
	}
	if m.archive != nil {
		health["nats"] = m.archive.Status()
	}

	if state == hub.Active {
		ctx, cancel := context.WithTimeout(r.Context(), healthCallTimeout)
		defer cancel()
		resp, err := m.dispatcher.Call(ctx, rpc.GetStatus{})
		if err != nil {
			m.Logger.Warnf("Health status call failed: %v", err)
		} else if st, ok := resp.(rpc.Status); ok {
			unread := 0
			for _, c := range st.Channels {
				unread += c.Count
			}
			health["channels"] = len(st.Channels)
			health["unread"] = unread
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(health); err != nil {
		m.Logger.Errorf("Failed to write health response: %v", err)
	}
}
