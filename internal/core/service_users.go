package core

import (
	"context"
	"strings"
	"time"

	"github.com/JonMunkholm/ledger/internal/auth"
	db "github.com/JonMunkholm/ledger/internal/database"
	"github.com/JonMunkholm/ledger/internal/logging"
	"github.com/google/uuid"
)

// UserView is a user without credentials.
type UserView struct {
	ID         uuid.UUID  `json:"id"`
	Name       string     `json:"name"`
	Email      string     `json:"email"`
	Role       auth.Role  `json:"role"`
	Department string     `json:"department"`
	Position   string     `json:"position"`
	IsActive   bool       `json:"isActive"`
	LastLogin  *time.Time `json:"lastLogin"`
	CreatedAt  time.Time  `json:"createdAt"`
}

func userView(u db.User) UserView {
	return UserView{
		ID:         u.ID,
		Name:       u.Name,
		Email:      u.Email,
		Role:       auth.Role(u.Role),
		Department: u.Department,
		Position:   u.Position,
		IsActive:   u.IsActive,
		LastLogin:  u.LastLogin,
		CreatedAt:  u.CreatedAt,
	}
}

func principal(u db.User) auth.Principal {
	return auth.Principal{ID: u.ID, Name: u.Name, Email: u.Email, Role: auth.Role(u.Role)}
}

func requireRole(p auth.Principal, roles ...auth.Role) error {
	if !p.Is(roles...) {
		return forbidden("AUTH005")
	}
	return nil
}

// Session is the result of a successful login.
type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      UserView  `json:"user"`
}

// Login checks credentials and issues a session token. userType must match
// the account's role.
func (s *Service) Login(ctx context.Context, email, password, userType string) (Session, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" || userType == "" {
		return Session{}, invalidf("VAL002", "Please provide email, password, and user type")
	}

	u, err := s.queries.GetUserByEmail(ctx, email)
	if err != nil {
		if db.IsNotFound(err) {
			return Session{}, unauthorized("AUTH001")
		}
		return Session{}, err
	}
	if !u.IsActive {
		return Session{}, unauthorized("AUTH002")
	}
	if !auth.CheckPassword(u.PasswordHash, password) {
		return Session{}, unauthorized("AUTH001")
	}
	if !strings.EqualFold(userType, u.Role) {
		return Session{}, forbidden("AUTH003")
	}

	now := s.now()
	if err := s.queries.TouchUserLastLogin(ctx, u.ID, now); err != nil {
		logging.FromContext(ctx).Warn("update last login", "user_id", u.ID, "error", err)
	} else {
		u.LastLogin = &now
	}

	token, exp, err := s.tokens.Issue(u.ID)
	if err != nil {
		return Session{}, err
	}
	logging.FromContext(ctx).Info("login", "user_id", u.ID, "role", u.Role)
	return Session{Token: token, ExpiresAt: exp, User: userView(u)}, nil
}

// Authenticate resolves a session token to the active user it was issued
// for.
func (s *Service) Authenticate(ctx context.Context, token string) (auth.Principal, error) {
	id, err := s.tokens.Verify(token)
	if err != nil {
		return auth.Principal{}, &Error{Kind: ErrUnauthorized, Code: "AUTH004", Message: err.Error()}
	}
	u, err := s.queries.GetUser(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return auth.Principal{}, unauthorized("AUTH004")
		}
		return auth.Principal{}, err
	}
	if !u.IsActive {
		return auth.Principal{}, unauthorized("AUTH002")
	}
	return principal(u), nil
}

func (s *Service) getUser(ctx context.Context, id uuid.UUID) (db.User, error) {
	u, err := s.queries.GetUser(ctx, id)
	if db.IsNotFound(err) {
		return db.User{}, notFound("USR001")
	}
	return u, err
}

// Profile returns the caller's own account.
func (s *Service) Profile(ctx context.Context, p auth.Principal) (UserView, error) {
	u, err := s.getUser(ctx, p.ID)
	if err != nil {
		return UserView{}, err
	}
	return userView(u), nil
}

// ProfileUpdate holds the fields a user may change on their own account.
// Empty fields are left unchanged.
type ProfileUpdate struct {
	Name       string `json:"name"`
	Department string `json:"department"`
	Position   string `json:"position"`
}

func (s *Service) UpdateProfile(ctx context.Context, p auth.Principal, in ProfileUpdate) (UserView, error) {
	u, err := s.getUser(ctx, p.ID)
	if err != nil {
		return UserView{}, err
	}
	params := db.UpdateUserParams{
		ID:         u.ID,
		Name:       firstNonBlank(in.Name, u.Name),
		Email:      u.Email,
		Role:       u.Role,
		Department: firstNonBlank(in.Department, u.Department),
		Position:   firstNonBlank(in.Position, u.Position),
		IsActive:   u.IsActive,
	}
	updated, err := s.queries.UpdateUser(ctx, params)
	if err != nil {
		return UserView{}, err
	}
	return userView(updated), nil
}

// ChangePassword replaces the caller's password after checking the current
// one.
func (s *Service) ChangePassword(ctx context.Context, p auth.Principal, current, next string) error {
	if current == "" || next == "" {
		return invalidf("VAL002", "Please provide current and new password")
	}
	if len(next) < auth.MinPasswordLength {
		return invalid("VAL003")
	}
	u, err := s.getUser(ctx, p.ID)
	if err != nil {
		return err
	}
	if !auth.CheckPassword(u.PasswordHash, current) {
		return invalid("AUTH008")
	}
	hash, err := auth.HashPassword(next)
	if err != nil {
		return err
	}
	return s.queries.UpdateUserPassword(ctx, u.ID, hash)
}

// PrincipalByEmail looks up an active account for the admin CLI, which acts
// on behalf of the user it names.
func (s *Service) PrincipalByEmail(ctx context.Context, email string) (auth.Principal, error) {
	u, err := s.queries.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if db.IsNotFound(err) {
			return auth.Principal{}, notFound("USR001")
		}
		return auth.Principal{}, err
	}
	if !u.IsActive {
		return auth.Principal{}, unauthorized("AUTH002")
	}
	return principal(u), nil
}

// ListUsers returns every account, newest first. Admin only.
func (s *Service) ListUsers(ctx context.Context, p auth.Principal) ([]UserView, error) {
	if err := requireRole(p, auth.RoleAdmin); err != nil {
		return nil, err
	}
	users, err := s.queries.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]UserView, len(users))
	for i, u := range users {
		out[i] = userView(u)
	}
	return out, nil
}

// NewUser is an account created directly by an administrator or the CLI.
type NewUser struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	Role       string `json:"role"`
	Department string `json:"department"`
	Position   string `json:"position"`
}

// CreateUser adds an active account. Admin only.
func (s *Service) CreateUser(ctx context.Context, p auth.Principal, in NewUser) (UserView, error) {
	if err := requireRole(p, auth.RoleAdmin); err != nil {
		return UserView{}, err
	}
	return s.createUser(ctx, in)
}

// BootstrapUser creates an account without a calling principal. The admin
// CLI uses it to seed the first administrator.
func (s *Service) BootstrapUser(ctx context.Context, in NewUser) (UserView, error) {
	return s.createUser(ctx, in)
}

func (s *Service) createUser(ctx context.Context, in NewUser) (UserView, error) {
	in.Email = normalizeEmail(in.Email)
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" || in.Email == "" || in.Password == "" || in.Role == "" {
		return UserView{}, invalidf("VAL002", "Please provide name, email, password, and role")
	}
	role, ok := auth.ParseRole(in.Role)
	if !ok {
		return UserView{}, invalid("VAL005")
	}
	if len(in.Password) < auth.MinPasswordLength {
		return UserView{}, invalid("VAL003")
	}

	exists, err := s.queries.UserExistsByEmail(ctx, in.Email)
	if err != nil {
		return UserView{}, err
	}
	if exists {
		return UserView{}, invalid("USR002")
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return UserView{}, err
	}
	u, err := s.queries.CreateUser(ctx, db.CreateUserParams{
		ID:           uuid.New(),
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         string(role),
		Department:   strings.TrimSpace(in.Department),
		Position:     strings.TrimSpace(in.Position),
		IsActive:     true,
	})
	if err != nil {
		if db.IsUniqueViolation(err) {
			return UserView{}, invalid("USR002")
		}
		return UserView{}, err
	}
	logging.FromContext(ctx).Info("user created", "user_id", u.ID, "role", u.Role)
	return userView(u), nil
}

// UserUpdate is a partial update; nil fields are left unchanged.
type UserUpdate struct {
	Name       *string `json:"name"`
	Email      *string `json:"email"`
	Role       *string `json:"role"`
	Department *string `json:"department"`
	Position   *string `json:"position"`
	IsActive   *bool   `json:"isActive"`
}

// UpdateUser applies an administrator's edit to any account.
func (s *Service) UpdateUser(ctx context.Context, p auth.Principal, id uuid.UUID, in UserUpdate) (UserView, error) {
	if err := requireRole(p, auth.RoleAdmin); err != nil {
		return UserView{}, err
	}
	u, err := s.getUser(ctx, id)
	if err != nil {
		return UserView{}, err
	}

	params := db.UpdateUserParams{
		ID:         u.ID,
		Name:       u.Name,
		Email:      u.Email,
		Role:       u.Role,
		Department: u.Department,
		Position:   u.Position,
		IsActive:   u.IsActive,
	}
	if in.Name != nil && strings.TrimSpace(*in.Name) != "" {
		params.Name = strings.TrimSpace(*in.Name)
	}
	if in.Email != nil {
		email := normalizeEmail(*in.Email)
		if email != "" && email != u.Email {
			taken, err := s.queries.UserExistsByEmail(ctx, email)
			if err != nil {
				return UserView{}, err
			}
			if taken {
				return UserView{}, invalid("USR002")
			}
			params.Email = email
		}
	}
	if in.Role != nil {
		role, ok := auth.ParseRole(*in.Role)
		if !ok {
			return UserView{}, invalid("VAL005")
		}
		params.Role = string(role)
	}
	if in.Department != nil {
		params.Department = strings.TrimSpace(*in.Department)
	}
	if in.Position != nil {
		params.Position = strings.TrimSpace(*in.Position)
	}
	if in.IsActive != nil {
		params.IsActive = *in.IsActive
	}

	updated, err := s.queries.UpdateUser(ctx, params)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return UserView{}, invalid("USR002")
		}
		return UserView{}, err
	}
	return userView(updated), nil
}

// DeleteUser removes an account and any registration requests filed under
// its email. Administrators cannot delete themselves.
func (s *Service) DeleteUser(ctx context.Context, p auth.Principal, id uuid.UUID) error {
	if err := requireRole(p, auth.RoleAdmin); err != nil {
		return err
	}
	if p.ID == id {
		return invalid("USR005")
	}

	return s.inTx(ctx, func(q db.Querier) error {
		u, err := q.GetUser(ctx, id)
		if err != nil {
			if db.IsNotFound(err) {
				return notFound("USR001")
			}
			return err
		}
		if _, err := q.DeleteUser(ctx, id); err != nil {
			return err
		}
		removed, err := q.DeletePendingUsersByEmail(ctx, u.Email)
		if err != nil {
			return err
		}
		logging.FromContext(ctx).Info("user deleted",
			"user_id", id, "by", p.ID, "registration_requests_removed", removed)
		return nil
	})
}

func firstNonBlank(v, fallback string) string {
	if s := strings.TrimSpace(v); s != "" {
		return s
	}
	return fallback
}
