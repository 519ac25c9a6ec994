package core

// service_registration.go handles self-service registration requests. A
// request holds the bcrypt hash of the chosen password; approval copies it
// into a new active account.

import (
	"context"
	"strings"
	"time"

	"github.com/JonMunkholm/ledger/internal/auth"
	db "github.com/JonMunkholm/ledger/internal/database"
	"github.com/JonMunkholm/ledger/internal/logging"
	"github.com/google/uuid"
)

const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"

	defaultRejectionReason = "No reason provided"
)

// RegistrationView is a registration request without its password hash.
type RegistrationView struct {
	ID              uuid.UUID  `json:"id"`
	Name            string     `json:"name"`
	Email           string     `json:"email"`
	Role            auth.Role  `json:"role"`
	Status          string     `json:"status"`
	RequestedAt     time.Time  `json:"requestedAt"`
	ReviewedAt      *time.Time `json:"reviewedAt,omitempty"`
	ReviewedBy      *uuid.UUID `json:"reviewedBy,omitempty"`
	RejectionReason string     `json:"rejectionReason,omitempty"`
}

func registrationView(p db.PendingUser) RegistrationView {
	return RegistrationView{
		ID:              p.ID,
		Name:            p.Name,
		Email:           p.Email,
		Role:            auth.Role(p.Role),
		Status:          p.Status,
		RequestedAt:     p.RequestedAt,
		ReviewedAt:      p.ReviewedAt,
		ReviewedBy:      p.ReviewedBy,
		RejectionReason: p.RejectionReason,
	}
}

func registrationViews(rows []db.PendingUser) []RegistrationView {
	out := make([]RegistrationView, len(rows))
	for i, r := range rows {
		out[i] = registrationView(r)
	}
	return out
}

// RegistrationRequest is what an anonymous visitor submits.
type RegistrationRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// RequestRegistration files a request for an administrator to review. Older
// reviewed requests for the same email are dropped first.
func (s *Service) RequestRegistration(ctx context.Context, in RegistrationRequest) (RegistrationView, error) {
	email := normalizeEmail(in.Email)
	name := strings.TrimSpace(in.Name)
	if name == "" || email == "" || in.Password == "" || in.Role == "" {
		return RegistrationView{}, invalidf("VAL002", "Please provide name, email, password, and role")
	}
	role, ok := auth.ParseRole(in.Role)
	if !ok {
		return RegistrationView{}, invalid("VAL005")
	}
	if len(in.Password) < auth.MinPasswordLength {
		return RegistrationView{}, invalid("VAL003")
	}

	exists, err := s.queries.UserExistsByEmail(ctx, email)
	if err != nil {
		return RegistrationView{}, err
	}
	if exists {
		return RegistrationView{}, invalid("USR002")
	}
	open, err := s.queries.HasOpenPendingUser(ctx, email)
	if err != nil {
		return RegistrationView{}, err
	}
	if open {
		return RegistrationView{}, invalid("USR003")
	}

	if _, err := s.queries.DeleteProcessedPendingUsersByEmail(ctx, email); err != nil {
		return RegistrationView{}, err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return RegistrationView{}, err
	}
	req, err := s.queries.CreatePendingUser(ctx, db.CreatePendingUserParams{
		ID:           uuid.New(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         string(role),
	})
	if err != nil {
		return RegistrationView{}, err
	}

	logging.FromContext(ctx).Info("registration requested", "request_id", req.ID, "role", req.Role)
	return registrationView(req), nil
}

// PendingRegistrations lists requests awaiting review, newest first.
func (s *Service) PendingRegistrations(ctx context.Context, p auth.Principal) ([]RegistrationView, error) {
	if err := requireRole(p, auth.RoleAdmin); err != nil {
		return nil, err
	}
	rows, err := s.queries.ListPendingUsersByStatus(ctx, StatusPending)
	if err != nil {
		return nil, err
	}
	return registrationViews(rows), nil
}

// AllRegistrations lists requests in every status, newest first.
func (s *Service) AllRegistrations(ctx context.Context, p auth.Principal) ([]RegistrationView, error) {
	if err := requireRole(p, auth.RoleAdmin); err != nil {
		return nil, err
	}
	rows, err := s.queries.ListAllPendingUsers(ctx)
	if err != nil {
		return nil, err
	}
	return registrationViews(rows), nil
}

// ApproveRegistration creates the requested account and marks the request
// approved, in one transaction.
func (s *Service) ApproveRegistration(ctx context.Context, p auth.Principal, id uuid.UUID) (UserView, error) {
	if err := requireRole(p, auth.RoleAdmin); err != nil {
		return UserView{}, err
	}

	var created db.User
	err := s.inTx(ctx, func(q db.Querier) error {
		req, err := openRequest(ctx, q, id)
		if err != nil {
			return err
		}

		taken, err := q.UserExistsByEmail(ctx, req.Email)
		if err != nil {
			return err
		}
		if taken {
			return invalid("USR002")
		}

		created, err = q.CreateUser(ctx, db.CreateUserParams{
			ID:           uuid.New(),
			Name:         req.Name,
			Email:        req.Email,
			PasswordHash: req.PasswordHash,
			Role:         req.Role,
			IsActive:     true,
		})
		if err != nil {
			if db.IsUniqueViolation(err) {
				return invalid("USR002")
			}
			return err
		}

		return review(ctx, q, db.ReviewPendingUserParams{
			ID:         id,
			Status:     StatusApproved,
			ReviewedAt: s.now(),
			ReviewedBy: p.ID,
		})
	})
	if err != nil {
		return UserView{}, err
	}

	logging.FromContext(ctx).Info("registration approved", "request_id", id, "user_id", created.ID, "by", p.ID)
	return userView(created), nil
}

// RejectRegistration closes a request without creating an account.
func (s *Service) RejectRegistration(ctx context.Context, p auth.Principal, id uuid.UUID, reason string) (RegistrationView, error) {
	if err := requireRole(p, auth.RoleAdmin); err != nil {
		return RegistrationView{}, err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = defaultRejectionReason
	}

	if _, err := openRequest(ctx, s.queries, id); err != nil {
		return RegistrationView{}, err
	}
	req, err := s.queries.ReviewPendingUser(ctx, db.ReviewPendingUserParams{
		ID:              id,
		Status:          StatusRejected,
		ReviewedAt:      s.now(),
		ReviewedBy:      p.ID,
		RejectionReason: reason,
	})
	if err != nil {
		if db.IsNotFound(err) {
			return RegistrationView{}, invalid("USR004")
		}
		return RegistrationView{}, err
	}
	logging.FromContext(ctx).Info("registration rejected", "request_id", id, "by", p.ID)
	return registrationView(req), nil
}

// CleanupRegistrations deletes reviewed requests older than the retention
// period and returns how many went.
func (s *Service) CleanupRegistrations(ctx context.Context, p auth.Principal) (int64, error) {
	if err := requireRole(p, auth.RoleAdmin); err != nil {
		return 0, err
	}
	return s.purgeRegistrations(ctx)
}

func (s *Service) purgeRegistrations(ctx context.Context) (int64, error) {
	days := s.cfg.Housekeeping.RetentionDays
	if days <= 0 {
		days = 30
	}
	cutoff := s.now().AddDate(0, 0, -days)
	return s.queries.DeleteProcessedPendingUsersBefore(ctx, cutoff)
}

// DeleteRegistration removes one request in any status.
func (s *Service) DeleteRegistration(ctx context.Context, p auth.Principal, id uuid.UUID) error {
	if err := requireRole(p, auth.RoleAdmin); err != nil {
		return err
	}
	n, err := s.queries.DeletePendingUser(ctx, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound("USR006")
	}
	return nil
}

// openRequest loads a request that is still awaiting review.
func openRequest(ctx context.Context, q db.Querier, id uuid.UUID) (db.PendingUser, error) {
	req, err := q.GetPendingUser(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return db.PendingUser{}, notFound("USR006")
		}
		return db.PendingUser{}, err
	}
	if req.Status != StatusPending {
		return db.PendingUser{}, invalid("USR004")
	}
	return req, nil
}

func review(ctx context.Context, q db.Querier, arg db.ReviewPendingUserParams) error {
	if _, err := q.ReviewPendingUser(ctx, arg); err != nil {
		if db.IsNotFound(err) {
			return invalid("USR004")
		}
		return err
	}
	return nil
}
