package web

import (
	"encoding/json"
	"net/http"

	"github.com/vbonduro/stagecanvas/internal/canvas"
)

type sessionResponse struct {
	ID       string          `json:"id"`
	Snapshot canvas.Snapshot `json:"snapshot"`
}

// eventResponse is returned by every event sink: what the event did and the
// state it left behind.
type eventResponse struct {
	Result   canvas.Result   `json:"result"`
	Snapshot canvas.Snapshot `json:"snapshot"`
}

func (s *Server) handleOpenSession(w http.ResponseWriter, r *http.Request) {
	id, snap, err := s.service.OpenSession(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sessionResponse{ID: id, Snapshot: snap})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	snap, err := s.service.Snapshot(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{ID: id, Snapshot: snap})
}

func (s *Server) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	if err := s.service.CloseSession(r.PathValue("id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type zoomRequest struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Factor float64 `json:"factor"`
	DeltaY float64 `json:"deltaY"`
	// Direction is "in" or "out" for the zoom buttons.
	Direction string `json:"direction"`
}

func (s *Server) handleZoom(w http.ResponseWriter, r *http.Request) {
	var req zoomRequest
	if err := readJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid zoom body"})
		return
	}

	ev := canvas.Event{Kind: canvas.EventZoom, X: req.X, Y: req.Y, Factor: req.Factor}
	switch {
	case req.Direction == "in":
		ev.Factor = canvas.ButtonZoomFactor
	case req.Direction == "out":
		ev.Factor = 1 / canvas.ButtonZoomFactor
	case req.Direction != "":
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "direction must be in or out"})
		return
	case req.DeltaY != 0:
		ev = canvas.Event{Kind: canvas.EventWheel, X: req.X, Y: req.Y, DeltaY: req.DeltaY}
	}
	s.dispatch(w, r, ev)
}

type panRequest struct {
	DX float64 `json:"dx"`
	DY float64 `json:"dy"`
}

func (s *Server) handlePan(w http.ResponseWriter, r *http.Request) {
	var req panRequest
	if err := readJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid pan body"})
		return
	}
	s.dispatch(w, r, canvas.Event{Kind: canvas.EventPan, DX: req.DX, DY: req.DY})
}

func (s *Server) handleResetView(w http.ResponseWriter, r *http.Request) {
	s.dispatch(w, r, canvas.Event{Kind: canvas.EventResetView})
}

type itemRequest struct {
	ItemID   string  `json:"itemId"`
	Additive bool    `json:"additive"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
}

func (s *Server) readItemRequest(w http.ResponseWriter, r *http.Request) (itemRequest, bool) {
	var req itemRequest
	if err := readJSON(w, r, &req); err != nil || req.ItemID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "itemId required"})
		return req, false
	}
	return req, true
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	req, ok := s.readItemRequest(w, r)
	if !ok {
		return
	}
	s.dispatch(w, r, canvas.Event{Kind: canvas.EventSelect, ItemID: req.ItemID, Additive: req.Additive})
}

func (s *Server) handleClearSelection(w http.ResponseWriter, r *http.Request) {
	s.dispatch(w, r, canvas.Event{Kind: canvas.EventBackgroundClick})
}

func (s *Server) handleDragStart(w http.ResponseWriter, r *http.Request) {
	req, ok := s.readItemRequest(w, r)
	if !ok {
		return
	}
	s.dispatch(w, r, canvas.Event{Kind: canvas.EventDragStart, ItemID: req.ItemID})
}

// handleDrop takes a world-space drop point.
func (s *Server) handleDrop(w http.ResponseWriter, r *http.Request) {
	req, ok := s.readItemRequest(w, r)
	if !ok {
		return
	}
	s.dispatch(w, r, canvas.Event{Kind: canvas.EventDrop, ItemID: req.ItemID, X: req.X, Y: req.Y})
}

func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	var ev canvas.Event
	if err := readJSON(w, r, &ev); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid event body"})
		return
	}
	s.dispatch(w, r, ev)
}

func (s *Server) dispatch(w http.ResponseWriter, r *http.Request, ev canvas.Event) {
	id := r.PathValue("id")
	res, err := s.service.Dispatch(r.Context(), id, ev)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	snap, err := s.service.Snapshot(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, eventResponse{Result: res, Snapshot: snap})
}

// handleSessionStream pushes the session's snapshots as server-sent events
// until the client goes away or the session closes.
func (s *Server) handleSessionStream(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	snaps, cancel, err := s.service.Subscribe(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, canFlush := w.(http.Flusher)
	enc := json.NewEncoder(w)
	for {
		select {
		case <-r.Context().Done():
			return
		case snap, ok := <-snaps:
			if !ok {
				if _, err := w.Write([]byte("event: closed\ndata: {}\n\n")); err != nil {
					s.logger.Error("write closed event failed", "session_id", id, "error", err)
				}
				if canFlush {
					flusher.Flush()
				}
				return
			}
			if _, err := w.Write([]byte("data: ")); err != nil {
				return
			}
			if err := enc.Encode(snap); err != nil {
				return
			}
			if _, err := w.Write([]byte("\n")); err != nil {
				return
			}
			if canFlush {
				flusher.Flush()
			}
		}
	}
}
