package notify

import (
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"
)

// Mailer sends transactional mail over SMTPS. A Mailer with a blank host is
// disabled: sends are logged and dropped, which keeps local development
// working without credentials.
type Mailer struct {
	host   string
	port   string
	sender string
	pass   string
	logger *slog.Logger
}

func NewMailer(host, port, sender, pass string, logger *slog.Logger) *Mailer {
	return &Mailer{host: host, port: port, sender: sender, pass: pass, logger: logger}
}

func (m *Mailer) Enabled() bool {
	return m.host != "" && m.sender != ""
}

func (m *Mailer) Send(to, subject, body string) error {
	if !m.Enabled() {
		m.logger.Info("email channel disabled, skipping", "to", to, "subject", subject)
		return nil
	}

	addr := m.host + ":" + m.port

	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: m.host})
	if err != nil {
		return fmt.Errorf("dial smtp %s: %w", addr, err)
	}

	client, err := smtp.NewClient(conn, m.host)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer func() { _ = client.Close() }()

	auth := smtp.PlainAuth("", m.sender, m.pass, m.host)
	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("smtp auth: %w", err)
	}

	if err := client.Mail(m.sender); err != nil {
		return fmt.Errorf("smtp mail from: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("smtp rcpt to: %w", err)
	}

	wc, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}

	msg := strings.Join([]string{
		"From: " + m.sender,
		"To: " + to,
		"Subject: " + subject,
		"",
		body,
	}, "\r\n")
	if _, err := wc.Write([]byte(msg)); err != nil {
		_ = wc.Close()
		return fmt.Errorf("smtp write: %w", err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("smtp close data: %w", err)
	}

	return client.Quit()
}
