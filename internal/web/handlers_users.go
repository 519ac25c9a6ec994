package web

import (
	"net/http"
	"time"

	"github.com/JonMunkholm/ledger/internal/core"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	UserType string `json:"userType"`
}

// handleRegister points clients at the registration request flow; accounts
// are only created by administrators.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	respondError(w, r, badRequest("USR007"))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	sess, err := s.service.Login(r.Context(), req.Email, req.Password, req.UserType)
	if err != nil {
		respondError(w, r, err)
		return
	}
	s.setSessionCookie(w, sess.Token, sess.ExpiresAt)
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.setSessionCookie(w, "", time.Unix(0, 0))
	writeSuccess(w, http.StatusOK, "Logged out successfully", nil)
}

// setSessionCookie writes the session cookie. An empty token clears it.
func (s *Server) setSessionCookie(w http.ResponseWriter, token string, expires time.Time) {
	c := &http.Cookie{
		Name:     s.cfg.Security.CookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   s.cfg.Security.CookieSecure,
		SameSite: http.SameSiteStrictMode,
	}
	if token == "" {
		c.MaxAge = -1
	}
	http.SetCookie(w, c)
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	u, err := s.service.Profile(r.Context(), principal(r))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var in core.ProfileUpdate
	if err := decodeJSON(w, r, &in); err != nil {
		respondError(w, r, err)
		return
	}
	u, err := s.service.UpdateProfile(r.Context(), principal(r), in)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	if err := s.service.ChangePassword(r.Context(), principal(r), req.CurrentPassword, req.NewPassword); err != nil {
		respondError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Password updated successfully", nil)
}

// Administration.

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.service.ListUsers(r.Context(), principal(r))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var in core.NewUser
	if err := decodeJSON(w, r, &in); err != nil {
		respondError(w, r, err)
		return
	}
	u, err := s.service.CreateUser(r.Context(), principal(r), in)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	var in core.UserUpdate
	if err := decodeJSON(w, r, &in); err != nil {
		respondError(w, r, err)
		return
	}
	u, err := s.service.UpdateUser(r.Context(), principal(r), id, in)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if err := s.service.DeleteUser(r.Context(), principal(r), id); err != nil {
		respondError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "User removed", nil)
}
