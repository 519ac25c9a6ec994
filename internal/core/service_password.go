package core

// service_password.go issues and redeems password reset links. Resets are
// limited to administrator accounts; other users ask an administrator.

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/JonMunkholm/ledger/internal/auth"
	db "github.com/JonMunkholm/ledger/internal/database"
	"github.com/JonMunkholm/ledger/internal/logging"
	"github.com/JonMunkholm/ledger/internal/mail"
	"github.com/google/uuid"
)

// resetTokenBytes is the entropy of a reset token before hex encoding.
const resetTokenBytes = 32

// ForgotPassword emails a reset link to email. sent is false, with a nil
// error, when no account uses the address; callers answer both cases with
// the same generic success so the response does not reveal which emails
// exist.
func (s *Service) ForgotPassword(ctx context.Context, email string) (sent bool, err error) {
	email = normalizeEmail(email)
	if email == "" {
		return false, invalidf("VAL002", "Please provide an email address")
	}

	log := logging.FromContext(ctx)
	u, err := s.queries.GetUserByEmail(ctx, email)
	if err != nil {
		if db.IsNotFound(err) {
			log.Info("password reset requested for unknown email")
			return false, nil
		}
		return false, err
	}
	if !u.IsActive {
		return false, invalid("AUTH002")
	}
	if auth.Role(u.Role) != auth.RoleAdmin {
		return false, forbidden("AUTH007")
	}

	if err := s.queries.DeletePasswordResetsForUser(ctx, u.ID); err != nil {
		return false, err
	}
	token, err := auth.RandomToken(resetTokenBytes)
	if err != nil {
		return false, err
	}
	ttl := s.cfg.Security.ResetTokenTTL
	reset, err := s.queries.CreatePasswordReset(ctx, db.CreatePasswordResetParams{
		ID:        uuid.New(),
		UserID:    u.ID,
		Email:     u.Email,
		Token:     token,
		ExpiresAt: s.now().Add(ttl),
	})
	if err != nil {
		return false, err
	}

	msg, err := mail.NewPasswordResetMessage(ctx, mail.PasswordReset{
		Name:      u.Name,
		Email:     u.Email,
		Link:      s.resetLink(token),
		ExpiresIn: ttl,
	})
	if err == nil {
		err = s.mailer.Send(ctx, msg)
	}
	if err != nil {
		if delErr := s.queries.DeletePasswordReset(ctx, reset.ID); delErr != nil {
			log.Error("remove unsent reset token", "error", delErr)
		}
		return false, fmt.Errorf("send reset email: %w", err)
	}

	log.Info("password reset email sent", "user_id", u.ID)
	return true, nil
}

func (s *Service) resetLink(token string) string {
	base := strings.TrimRight(s.cfg.Server.PublicURL, "/")
	return base + "/reset-password?token=" + url.QueryEscape(token)
}

// ResetTarget identifies whose password a reset link changes.
type ResetTarget struct {
	Name  string
	Email string
}

func (s *Service) usableReset(ctx context.Context, q db.Querier, token string) (db.PasswordReset, db.User, error) {
	if token == "" {
		return db.PasswordReset{}, db.User{}, invalid("AUTH006")
	}
	reset, err := q.GetUsablePasswordReset(ctx, token, s.now())
	if err != nil {
		if db.IsNotFound(err) {
			return db.PasswordReset{}, db.User{}, invalid("AUTH006")
		}
		return db.PasswordReset{}, db.User{}, err
	}
	u, err := q.GetUser(ctx, reset.UserID)
	if err != nil {
		if db.IsNotFound(err) {
			return db.PasswordReset{}, db.User{}, invalid("AUTH006")
		}
		return db.PasswordReset{}, db.User{}, err
	}
	return reset, u, nil
}

// ValidateResetToken checks that token is unused and unexpired.
func (s *Service) ValidateResetToken(ctx context.Context, token string) (ResetTarget, error) {
	_, u, err := s.usableReset(ctx, s.queries, token)
	if err != nil {
		return ResetTarget{}, err
	}
	return ResetTarget{Name: u.Name, Email: u.Email}, nil
}

// ResetPassword sets a new password through a reset link and burns the
// link.
func (s *Service) ResetPassword(ctx context.Context, token, password, confirm string) (ResetTarget, error) {
	if token == "" || password == "" || confirm == "" {
		return ResetTarget{}, invalidf("VAL002", "Missing required fields")
	}
	if password != confirm {
		return ResetTarget{}, invalid("VAL004")
	}
	if len(password) < auth.MinPasswordLength {
		return ResetTarget{}, invalid("VAL003")
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return ResetTarget{}, err
	}

	var target ResetTarget
	err = s.inTx(ctx, func(q db.Querier) error {
		reset, u, err := s.usableReset(ctx, q, token)
		if err != nil {
			return err
		}
		marked, err := q.MarkPasswordResetUsed(ctx, reset.ID)
		if err != nil {
			return err
		}
		if !marked {
			return invalid("AUTH006")
		}
		if err := q.UpdateUserPassword(ctx, u.ID, hash); err != nil {
			return err
		}
		target = ResetTarget{Name: u.Name, Email: u.Email}
		return nil
	})
	if err != nil {
		return ResetTarget{}, err
	}
	logging.FromContext(ctx).Info("password reset completed")
	return target, nil
}

func (s *Service) purgeResetTokens(ctx context.Context) (int64, error) {
	return s.queries.DeleteStalePasswordResets(ctx, s.now())
}
