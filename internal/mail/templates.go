package mail

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/a-h/templ"
)

// PasswordReset holds what the reset email needs.
type PasswordReset struct {
	Name      string
	Email     string
	Link      string
	ExpiresIn time.Duration
}

// passwordResetBody renders the HTML body of the reset email.
func passwordResetBody(p PasswordReset) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		minutes := int(p.ExpiresIn.Minutes())
		_, err := io.WriteString(w, `<!DOCTYPE html><html><body style="font-family:Arial,sans-serif;color:#1f2937">`+
			`<h2>Password reset</h2>`+
			`<p>Hello `+templ.EscapeString(p.Name)+`,</p>`+
			`<p>We received a request to reset the password for `+templ.EscapeString(p.Email)+`.</p>`+
			`<p><a href="`+templ.EscapeString(p.Link)+`" style="background:#2563eb;color:#fff;padding:10px 18px;border-radius:4px;text-decoration:none">Reset password</a></p>`+
			`<p>This link expires in `+fmt.Sprint(minutes)+` minutes. If you did not ask for a reset, ignore this email.</p>`+
			`</body></html>`)
		return err
	})
}

// NewPasswordResetMessage renders the reset email for p.
func NewPasswordResetMessage(ctx context.Context, p PasswordReset) (Message, error) {
	var html strings.Builder
	if err := passwordResetBody(p).Render(ctx, &html); err != nil {
		return Message{}, fmt.Errorf("render reset email: %w", err)
	}

	text := fmt.Sprintf("Hello %s,\n\nOpen the link below to reset your password. It expires in %d minutes.\n\n%s\n\nIf you did not ask for a reset, ignore this email.\n",
		p.Name, int(p.ExpiresIn.Minutes()), p.Link)

	return Message{
		To:      p.Email,
		Subject: "Password reset",
		HTML:    html.String(),
		Text:    text,
	}, nil
}
