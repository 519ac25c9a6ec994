package web

import (
	"net/http"

	"github.com/JonMunkholm/ledger/internal/core"
)

// handleRequestRegistration is public: anyone may ask for an account.
func (s *Server) handleRequestRegistration(w http.ResponseWriter, r *http.Request) {
	var in core.RegistrationRequest
	if err := decodeJSON(w, r, &in); err != nil {
		respondError(w, r, err)
		return
	}
	req, err := s.service.RequestRegistration(r.Context(), in)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusCreated,
		"Registration request submitted. An administrator will review it.", req)
}

func (s *Server) handlePendingRegistrations(w http.ResponseWriter, r *http.Request) {
	reqs, err := s.service.PendingRegistrations(r.Context(), principal(r))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reqs)
}

func (s *Server) handleAllRegistrations(w http.ResponseWriter, r *http.Request) {
	reqs, err := s.service.AllRegistrations(r.Context(), principal(r))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reqs)
}

func (s *Server) handleApproveRegistration(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	u, err := s.service.ApproveRegistration(r.Context(), principal(r), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "User approved and created", u)
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

func (s *Server) handleRejectRegistration(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	var in rejectRequest
	if err := decodeJSON(w, r, &in); err != nil {
		respondError(w, r, err)
		return
	}
	req, err := s.service.RejectRegistration(r.Context(), principal(r), id, in.Reason)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Registration request rejected", req)
}

type cleanupResponse struct {
	Status       string `json:"status"`
	Message      string `json:"message"`
	DeletedCount int64  `json:"deletedCount"`
}

func (s *Server) handleCleanupRegistrations(w http.ResponseWriter, r *http.Request) {
	n, err := s.service.CleanupRegistrations(r.Context(), principal(r))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cleanupResponse{
		Status:       "success",
		Message:      "Old processed registration requests removed",
		DeletedCount: n,
	})
}

func (s *Server) handleDeleteRegistration(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if err := s.service.DeleteRegistration(r.Context(), principal(r), id); err != nil {
		respondError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Registration request deleted", nil)
}
