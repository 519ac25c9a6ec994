package web

import (
	"errors"
	"net/http"

	"github.com/JonMunkholm/ledger/internal/core"
	"github.com/JonMunkholm/ledger/internal/logging"
	"github.com/JonMunkholm/ledger/internal/web/pages"
	"github.com/a-h/templ"
)

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

// handleForgotPassword answers the same way whether or not the email
// belongs to an account.
func (s *Server) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	if _, err := s.service.ForgotPassword(r.Context(), req.Email); err != nil {
		respondError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK,
		"If an account exists for this email, a password reset link has been sent.", nil)
}

// handleResetPasswordPage renders the form behind an emailed link.
func (s *Server) handleResetPasswordPage(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	target, err := s.service.ValidateResetToken(r.Context(), token)
	if err != nil {
		s.renderResetError(w, r, err)
		return
	}
	s.renderPage(w, r, http.StatusOK, pages.ResetForm(token, target.Name, ""))
}

// handleResetPasswordSubmit takes the posted form. Validation failures
// re-render the form; an unusable link shows the error page.
func (s *Server) handleResetPasswordSubmit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := r.ParseForm(); err != nil {
		s.renderResetError(w, r, badRequest("VAL006"))
		return
	}
	token := r.PostForm.Get("token")

	target, err := s.service.ResetPassword(r.Context(), token,
		r.PostForm.Get("password"), r.PostForm.Get("confirmPassword"))
	if err != nil {
		var ce *core.Error
		if errors.As(err, &ce) && ce.Code != "AUTH006" && token != "" {
			msg := core.MapError(err)
			s.renderPage(w, r, http.StatusBadRequest, pages.ResetForm(token, "", msg.Message))
			return
		}
		s.renderResetError(w, r, err)
		return
	}
	s.renderPage(w, r, http.StatusOK, pages.ResetSuccess(target.Name))
}

func (s *Server) renderResetError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := core.MapError(err)
	logging.FromContext(r.Context()).Warn("reset page error", "status", status, "error", err, "code", msg.Code)
	s.renderPage(w, r, status, pages.ResetError(msg.Message, msg.Action))
}

func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, status int, c templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := c.Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render page", "error", err)
	}
}
