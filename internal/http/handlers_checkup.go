package http

import (
	"net/http"
	"time"
)

func (s *Server) handleCheckup(w http.ResponseWriter, r *http.Request) {
	prompt, err := s.checkup.Prompt(r.Context(), time.Now())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCheckupResponse(prompt))
}
