// internal/api/websocket.go
// Websocket endpoint for the live protocol feed.
package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	webSocketReadDeadline  = 60 * time.Second
	webSocketWriteDeadline = 10 * time.Second
	webSocketPingPeriod    = (webSocketReadDeadline * 9) / 10 // Must be less than readDeadline
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The monitor binds to a local address chosen by the operator.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWs upgrades the request and streams feed events to it.
func (f *Feed) ServeWs(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		f.Logger.Errorf("WebSocket upgrade error: %v", err)
		return
	}

	wt := &watcher{conn: conn, send: make(chan []byte, feedQueueSize)}
	select {
	case f.register <- wt:
	case <-f.done:
		conn.Close()
		return
	}
	go f.writePump(wt)
	go f.readPump(wt)
}

// readPump only services control frames; watchers have nothing to say.
func (f *Feed) readPump(wt *watcher) {
	defer func() {
		select {
		case f.unregister <- wt:
		case <-f.done:
		}
		wt.conn.Close()
	}()

	wt.conn.SetReadLimit(512)
	_ = wt.conn.SetReadDeadline(time.Now().Add(webSocketReadDeadline))
	wt.conn.SetPongHandler(func(string) error {
		return wt.conn.SetReadDeadline(time.Now().Add(webSocketReadDeadline))
	})

	for {
		if _, _, err := wt.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				f.Logger.Warnf("WebSocket error: %v", err)
			}
			return
		}
	}
}

func (f *Feed) writePump(wt *watcher) {
	ticker := time.NewTicker(webSocketPingPeriod)
	defer func() {
		ticker.Stop()
		wt.conn.Close()
	}()

	for {
		select {
		case message, ok := <-wt.send:
			_ = wt.conn.SetWriteDeadline(time.Now().Add(webSocketWriteDeadline))
			if !ok {
				// The feed closed the channel.
				_ = wt.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := wt.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = wt.conn.SetWriteDeadline(time.Now().Add(webSocketWriteDeadline))
			if err := wt.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
