package transport

import (
	"context"

	"gopkg.in/gomail.v2"
)

// Dialer sends composed messages; *gomail.Dialer implements it.
type Dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPSender sends plain-text email over SMTP.
type SMTPSender struct {
	dialer   Dialer
	from     string
	fromName string
}

// NewSMTPSender dials host:port with the given credentials for every message.
func NewSMTPSender(host string, port int, username, password, from, fromName string) *SMTPSender {
	return NewSMTPSenderWithDialer(gomail.NewDialer(host, port, username, password), from, fromName)
}

func NewSMTPSenderWithDialer(dialer Dialer, from, fromName string) *SMTPSender {
	return &SMTPSender{dialer: dialer, from: from, fromName: fromName}
}

func (s *SMTPSender) SendEmail(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return transportError("smtp", err)
	}

	m := gomail.NewMessage()
	if s.fromName != "" {
		m.SetAddressHeader("From", s.from, s.fromName)
	} else {
		m.SetHeader("From", s.from)
	}
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return transportError("smtp", err)
	}
	return nil
}
