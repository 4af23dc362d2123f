package web

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/vbonduro/stagecanvas/internal/domain"
	"github.com/vbonduro/stagecanvas/internal/export"
)

const maxAreaNameLen = 200

func (s *Server) handleListAreas(w http.ResponseWriter, r *http.Request) {
	areas, err := s.service.ListAreas(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if areas == nil {
		areas = []*domain.Area{}
	}
	writeJSON(w, http.StatusOK, areas)
}

func (s *Server) handleCreateArea(w http.ResponseWriter, r *http.Request) {
	var area domain.Area
	if err := readJSON(w, r, &area); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid area body"})
		return
	}
	if len(area.Name) > maxAreaNameLen {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "area name too long"})
		return
	}

	created, err := s.service.CreateArea(r.Context(), area)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleGetArea(w http.ResponseWriter, r *http.Request) {
	detail, err := s.service.GetArea(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if detail.Items == nil {
		detail.Items = []*domain.Item{}
	}
	writeJSON(w, http.StatusOK, detail)
}

type renameAreaRequest struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

func (s *Server) handleRenameArea(w http.ResponseWriter, r *http.Request) {
	var req renameAreaRequest
	if err := readJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid area body"})
		return
	}
	if len(req.Name) > maxAreaNameLen {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "area name too long"})
		return
	}

	area, err := s.service.RenameArea(r.Context(), r.PathValue("id"), req.Name, req.Color)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, area)
}

func (s *Server) handleAreaLayout(w http.ResponseWriter, r *http.Request) {
	detail, err := s.service.GetArea(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteLayout(&buf, detail.Area, detail.Items); err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", detail.ID+"-layout.xlsx"))
	if _, err := buf.WriteTo(w); err != nil {
		s.logger.Error("write layout failed", "area_id", detail.ID, "error", err)
	}
}
