package web

import (
	"bytes"
	"errors"
	"net/http"
	"strings"

	"github.com/vbonduro/stagecanvas/internal/domain"
	"github.com/vbonduro/stagecanvas/internal/export"
	"github.com/vbonduro/stagecanvas/internal/service"
)

func (s *Server) handleSearchItems(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	items, err := s.service.SearchItems(r.Context(), domain.ItemFilter{
		Query:    strings.TrimSpace(q.Get("q")),
		Status:   domain.Status(q.Get("status")),
		Category: q.Get("category"),
		AreaID:   q.Get("area"),
		Sort:     q.Get("sort"),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if items == nil {
		items = []*domain.Item{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	var item domain.Item
	if err := readJSON(w, r, &item); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid item body"})
		return
	}

	created, err := s.service.CreateItem(r.Context(), item)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleGetItem(w http.ResponseWriter, r *http.Request) {
	item, err := s.service.GetItem(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	var fields service.ItemFields
	if err := readJSON(w, r, &fields); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid item body"})
		return
	}

	item, err := s.service.UpdateItem(r.Context(), r.PathValue("id"), fields)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteItem(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleItemLabels(w http.ResponseWriter, r *http.Request) {
	items, err := s.service.ListItems(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	areas, err := s.service.ListAreas(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteLabels(&buf, items, areas); err != nil {
		if errors.Is(err, export.ErrNoItems) {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
			return
		}
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="labels.pdf"`)
	if _, err := buf.WriteTo(w); err != nil {
		s.logger.Error("write labels failed", "error", err)
	}
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.service.Categories(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if cats == nil {
		cats = []string{}
	}
	writeJSON(w, http.StatusOK, cats)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	st, err := s.service.Stats(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}
