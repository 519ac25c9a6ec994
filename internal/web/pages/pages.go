// Package pages renders the HTML pages opened from emailed links.
package pages

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

const style = `body{font-family:Arial,sans-serif;background:#f3f4f6;color:#1f2937;margin:0}` +
	`.card{max-width:420px;margin:64px auto;background:#fff;padding:32px;border-radius:8px;box-shadow:0 1px 3px rgba(0,0,0,.1)}` +
	`label{display:block;margin-top:16px;font-size:14px}` +
	`input{width:100%;box-sizing:border-box;padding:8px;margin-top:4px;border:1px solid #d1d5db;border-radius:4px}` +
	`button{margin-top:24px;width:100%;padding:10px;background:#2563eb;color:#fff;border:0;border-radius:4px;font-size:15px}` +
	`.error{background:#fee2e2;color:#991b1b;padding:10px;border-radius:4px;margin-top:16px}` +
	`.ok{background:#dcfce7;color:#166534;padding:10px;border-radius:4px;margin-top:16px}`

// writeAll writes each part in order and stops at the first error.
func writeAll(w io.Writer, parts ...string) error {
	for _, p := range parts {
		if _, err := io.WriteString(w, p); err != nil {
			return err
		}
	}
	return nil
}

func layout(title string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if err := writeAll(w,
			`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`,
			`<meta name="viewport" content="width=device-width, initial-scale=1">`,
			`<title>`, templ.EscapeString(title), `</title><style>`, style, `</style></head>`,
			`<body><div class="card"><h2>`, templ.EscapeString(title), `</h2>`,
		); err != nil {
			return err
		}
		if err := body.Render(ctx, w); err != nil {
			return err
		}
		return writeAll(w, `</div></body></html>`)
	})
}

// ResetForm asks for the new password. errMsg, when set, is shown above the
// form after a failed attempt.
func ResetForm(token, name, errMsg string) templ.Component {
	return layout("Reset password", templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if name != "" {
			if err := writeAll(w, `<p>Hello `, templ.EscapeString(name), `, choose a new password.</p>`); err != nil {
				return err
			}
		}
		if errMsg != "" {
			if err := writeAll(w, `<div class="error">`, templ.EscapeString(errMsg), `</div>`); err != nil {
				return err
			}
		}
		return writeAll(w,
			`<form method="post" action="/reset-password">`,
			`<input type="hidden" name="token" value="`, templ.EscapeString(token), `">`,
			`<label for="password">New password</label>`,
			`<input id="password" type="password" name="password" minlength="6" required>`,
			`<label for="confirmPassword">Confirm password</label>`,
			`<input id="confirmPassword" type="password" name="confirmPassword" minlength="6" required>`,
			`<button type="submit">Reset password</button></form>`,
		)
	}))
}

// ResetSuccess confirms the password change.
func ResetSuccess(name string) templ.Component {
	return layout("Password updated", templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return writeAll(w,
			`<div class="ok">`, templ.EscapeString(name),
			`, your password has been reset. You can now sign in with the new password.</div>`,
		)
	}))
}

// ResetError is shown for a missing, used or expired link.
func ResetError(message, action string) templ.Component {
	return layout("Reset link unavailable", templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return writeAll(w,
			`<div class="error">`, templ.EscapeString(message), `</div>`,
			`<p>`, templ.EscapeString(action), `</p>`,
		)
	}))
}
