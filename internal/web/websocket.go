package web

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vbonduro/stagecanvas/internal/canvas"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 54 * time.Second
)

// wsMessage is every frame the server sends on a session socket.
type wsMessage struct {
	Type     string           `json:"type"`
	Snapshot *canvas.Snapshot `json:"snapshot,omitempty"`
	Result   *canvas.Result   `json:"result,omitempty"`
	Error    string           `json:"error,omitempty"`
}

// handleSessionSocket upgrades to a websocket that carries input events in
// and snapshots out. A snapshot is sent on connect and after every change.
func (s *Server) handleSessionSocket(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	snaps, cancel, err := s.service.Subscribe(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	defer cancel()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "session_id", id, "error", err)
		return
	}
	defer func() { _ = conn.Close() }()

	replies := make(chan wsMessage, 8)
	done := make(chan struct{})
	go s.writeSocket(conn, id, snaps, replies, done)

	ctx := r.Context()
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	defer close(replies)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Debug("websocket read ended", "session_id", id, "error", err)
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))

		var (
			ev  canvas.Event
			msg wsMessage
		)
		if err := json.Unmarshal(data, &ev); err != nil {
			msg = wsMessage{Type: "error", Error: "invalid event"}
		} else if res, err := s.service.Dispatch(ctx, id, ev); err != nil {
			if errorStatus(err) == http.StatusInternalServerError {
				s.logger.Error("websocket event failed", "session_id", id, "event", ev.Kind, "error", err)
			}
			msg = wsMessage{Type: "error", Error: err.Error()}
		} else {
			msg = wsMessage{Type: "result", Result: &res}
		}

		select {
		case replies <- msg:
		case <-done:
			return
		}
	}
}

// writeSocket is the only goroutine writing to conn. It returns when the
// subscription or the reply channel closes, or a write fails.
func (s *Server) writeSocket(conn *websocket.Conn, id string, snaps <-chan canvas.Snapshot, replies <-chan wsMessage, done chan<- struct{}) {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		close(done)
		_ = conn.Close()
	}()

	write := func(msg wsMessage) bool {
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		if err := conn.WriteJSON(msg); err != nil {
			s.logger.Debug("websocket write failed", "session_id", id, "error", err)
			return false
		}
		return true
	}

	for {
		select {
		case snap, ok := <-snaps:
			if !ok {
				_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session closed"))
				return
			}
			if !write(wsMessage{Type: "snapshot", Snapshot: &snap}) {
				return
			}
		case msg, ok := <-replies:
			if !ok {
				return
			}
			if !write(msg) {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
