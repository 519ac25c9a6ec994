// Package mail sends transactional email.
//
// A Mailer has an explicit lifecycle: Open before the first Send, Close on
// shutdown. The server opens one mailer at startup and shares it; nothing in
// this package keeps global state.
package mail

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"sync"
	"time"
)

// ErrNotOpen is returned by Send on a mailer that was never opened or was
// closed.
var ErrNotOpen = errors.New("mailer is not open")

// Message is one outgoing email.
type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

// Mailer delivers messages.
type Mailer interface {
	Open(ctx context.Context) error
	Send(ctx context.Context, msg Message) error
	Close() error
}

// SMTPConfig configures an SMTPMailer.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Timeout  time.Duration
}

// SMTPMailer keeps one SMTP session and serializes sends over it. A broken
// session is redialed once per Send.
type SMTPMailer struct {
	cfg SMTPConfig

	mu     sync.Mutex
	client *smtp.Client
	opened bool
}

var _ Mailer = (*SMTPMailer)(nil)

// NewSMTPMailer creates a mailer. It does not connect until Open.
func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &SMTPMailer{cfg: cfg}
}

// Open dials the server, upgrades to TLS when offered and authenticates.
// The mailer counts as open even when the dial fails; Send dials again.
func (m *SMTPMailer) Open(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.opened = true
	return m.dial(ctx)
}

func (m *SMTPMailer) dial(ctx context.Context) error {
	addr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))
	d := net.Dialer{Timeout: m.cfg.Timeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial smtp %s: %w", addr, err)
	}

	c, err := smtp.NewClient(conn, m.cfg.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: m.cfg.Host, MinVersion: tls.VersionTLS12}); err != nil {
			c.Close()
			return fmt.Errorf("smtp starttls: %w", err)
		}
	}
	if m.cfg.Username != "" {
		auth := smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
		if err := c.Auth(auth); err != nil {
			c.Close()
			return fmt.Errorf("smtp auth: %w", err)
		}
	}

	m.client = c
	return nil
}

// Send delivers msg. If the session has gone stale it reconnects first.
func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.opened {
		return ErrNotOpen
	}
	if m.client == nil || m.client.Noop() != nil {
		if m.client != nil {
			m.client.Close()
			m.client = nil
		}
		if err := m.dial(ctx); err != nil {
			return err
		}
	}

	if err := m.deliver(msg); err != nil {
		// Leave the session in a known state for the next Send.
		m.client.Reset()
		return err
	}
	return nil
}

func (m *SMTPMailer) deliver(msg Message) error {
	if err := m.client.Mail(m.cfg.From); err != nil {
		return fmt.Errorf("smtp MAIL FROM: %w", err)
	}
	if err := m.client.Rcpt(msg.To); err != nil {
		return fmt.Errorf("smtp RCPT TO: %w", err)
	}
	w, err := m.client.Data()
	if err != nil {
		return fmt.Errorf("smtp DATA: %w", err)
	}
	if _, err := w.Write(compose(m.cfg.From, msg)); err != nil {
		w.Close()
		return fmt.Errorf("write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finish message: %w", err)
	}
	return nil
}

// Close ends the session. Send fails with ErrNotOpen afterwards.
func (m *SMTPMailer) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.opened = false
	if m.client == nil {
		return nil
	}
	err := m.client.Quit()
	m.client = nil
	return err
}

// compose builds a multipart/alternative message with text and HTML parts.
func compose(from string, msg Message) []byte {
	const boundary = "ledger-alt-boundary"
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + msg.To + "\r\n")
	b.WriteString("Subject: " + msg.Subject + "\r\n")
	b.WriteString("Date: " + time.Now().Format(time.RFC1123Z) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: multipart/alternative; boundary=" + boundary + "\r\n\r\n")

	b.WriteString("--" + boundary + "\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
	b.WriteString(msg.Text + "\r\n")

	b.WriteString("--" + boundary + "\r\n")
	b.WriteString("Content-Type: text/html; charset=UTF-8\r\n\r\n")
	b.WriteString(msg.HTML + "\r\n")

	b.WriteString("--" + boundary + "--\r\n")
	return []byte(b.String())
}

// LogMailer writes messages to the log instead of sending them. It is used
// when no SMTP host is configured.
type LogMailer struct {
	Logger *slog.Logger

	mu     sync.Mutex
	opened bool
	sent   []Message
}

var _ Mailer = (*LogMailer)(nil)

func (m *LogMailer) Open(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.opened = true
	return nil
}

func (m *LogMailer) Send(_ context.Context, msg Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.opened {
		return ErrNotOpen
	}
	m.sent = append(m.sent, msg)

	logger := m.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("mail not sent, no SMTP host configured",
		"to", msg.To,
		"subject", msg.Subject,
		"body", msg.Text,
	)
	return nil
}

func (m *LogMailer) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.opened = false
	return nil
}

// Sent returns the messages passed to Send.
func (m *LogMailer) Sent() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Message, len(m.sent))
	copy(out, m.sent)
	return out
}
