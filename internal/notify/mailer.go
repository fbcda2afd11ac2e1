package notify

import (
	"context"
	"errors"
	"fmt"
	"net/smtp"
)

// Mailer delivers email over SMTP with plain auth.
type Mailer struct {
	From     string
	Password string
	Host     string
	Port     string
}

// Send composes and delivers a plain-text message.
func (m *Mailer) Send(ctx context.Context, to, subject, body string) error {
	if m.Host == "" || m.Port == "" || m.From == "" {
		return errors.New("missing smtp configuration")
	}
	msg := []byte(fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=\"utf-8\"\r\n\r\n%s\r\n",
		m.From, to, subject, body,
	))
	auth := smtp.PlainAuth("", m.From, m.Password, m.Host)
	return smtp.SendMail(m.Host+":"+m.Port, auth, m.From, []string{to}, msg)
}
