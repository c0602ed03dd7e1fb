package providers

import (
	"fmt"
	"net/smtp"
	"strings"
)

// SMTPSender sends report emails via SMTP.
type SMTPSender struct {
	host     string
	port     int
	username string
	password string
	from     string
}

// NewSMTPSender creates a new SMTP sender.
func NewSMTPSender(host string, port int, username, password, from string) *SMTPSender {
	return &SMTPSender{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
	}
}

const mimeBoundary = "privai-report-boundary"

// Send sends a multipart/alternative email via SMTP.
func (s *SMTPSender) Send(to, subject, htmlBody, plainBody string) error {
	if s.host == "" {
		return fmt.Errorf("smtp host not configured")
	}
	addr := fmt.Sprintf("%s:%d", s.host, s.port)

	var msg strings.Builder
	msg.WriteString(fmt.Sprintf("From: %s\r\n", s.from))
	msg.WriteString(fmt.Sprintf("To: %s\r\n", to))
	msg.WriteString(fmt.Sprintf("Subject: %s\r\n", subject))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString(fmt.Sprintf("Content-Type: multipart/alternative; boundary=%q\r\n", mimeBoundary))
	msg.WriteString("\r\n")

	for _, part := range []struct {
		contentType string
		body        string
	}{
		{"text/plain", plainBody},
		{"text/html", htmlBody},
	} {
		msg.WriteString(fmt.Sprintf("--%s\r\n", mimeBoundary))
		msg.WriteString(fmt.Sprintf("Content-Type: %s; charset=\"utf-8\"\r\n", part.contentType))
		msg.WriteString("\r\n")
		msg.WriteString(part.body)
		msg.WriteString("\r\n")
	}
	msg.WriteString(fmt.Sprintf("--%s--\r\n", mimeBoundary))

	auth := smtp.PlainAuth("", s.username, s.password, s.host)
	if err := smtp.SendMail(addr, auth, s.from, []string{to}, []byte(msg.String())); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}
