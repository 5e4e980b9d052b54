package http

import (
	"net/http"
)

type institutionRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleCreateInstitution(w http.ResponseWriter, r *http.Request) {
	var req institutionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	inst, err := s.institutions.Create(r.Context(), req.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toInstitutionResponse(inst))
}

func (s *Server) handleListInstitutions(w http.ResponseWriter, r *http.Request) {
	institutions, err := s.institutions.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]institutionResponse, 0, len(institutions))
	for _, inst := range institutions {
		out = append(out, toInstitutionResponse(inst))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetInstitution(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	inst, err := s.institutions.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toInstitutionResponse(inst))
}

func (s *Server) handleRenameInstitution(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req institutionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	inst, err := s.institutions.Rename(r.Context(), id, req.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toInstitutionResponse(inst))
}

func (s *Server) handleDeactivateInstitution(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	inst, err := s.institutions.Deactivate(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toInstitutionResponse(inst))
}

func (s *Server) handleInstitutionAccounts(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	accounts, err := s.institutions.Accounts(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAccountResponses(accounts))
}
