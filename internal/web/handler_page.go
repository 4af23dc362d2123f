package web

import "net/http"

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	areas, err := s.service.ListAreas(r.Context())
	if err != nil {
		http.Error(w, "failed to list areas", http.StatusInternalServerError)
		s.logger.Error("list areas failed", "error", err)
		return
	}
	stats, err := s.service.Stats(r.Context())
	if err != nil {
		http.Error(w, "failed to load stats", http.StatusInternalServerError)
		s.logger.Error("load stats failed", "error", err)
		return
	}

	if err := s.renderPage(w, map[string]any{"Areas": areas, "Stats": stats}, "index.html"); err != nil {
		s.logger.Error("render page failed", "error", err)
	}
}
