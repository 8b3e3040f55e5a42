package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Arnav10090/Customer-web-portal/internal/config"

	"github.com/wneessen/go-mail"
)

var ErrSMTPNotConfigured = errors.New("smtp not configured")

// GatePassEmail - письмо клиенту с QR-кодом во вложении
type GatePassEmail struct {
	To             string
	Subject        string
	Body           string
	AttachmentPath string
}

type EmailSender interface {
	Send(ctx context.Context, msg GatePassEmail) error
}

// SMTPEmailService отправляет письма через SMTP
type SMTPEmailService struct {
	host     string
	port     int
	username string
	password string
	from     string
	timeout  time.Duration
}

func NewSMTPEmailService(cfg *config.Config) *SMTPEmailService {
	return &SMTPEmailService{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		username: cfg.SMTPUsername,
		password: cfg.SMTPPassword,
		from:     cfg.SMTPFrom,
		timeout:  cfg.NotifyTimeout,
	}
}

func (s *SMTPEmailService) Send(ctx context.Context, email GatePassEmail) error {
	if s.host == "" {
		return ErrSMTPNotConfigured
	}

	m := mail.NewMsg()
	if err := m.From(s.from); err != nil {
		return fmt.Errorf("некорректный адрес отправителя: %w", err)
	}
	if err := m.To(email.To); err != nil {
		return fmt.Errorf("некорректный адрес получателя: %w", err)
	}
	m.Subject(email.Subject)
	m.SetBodyString(mail.TypeTextPlain, email.Body)
	if email.AttachmentPath != "" {
		m.AttachFile(email.AttachmentPath)
	}

	opts := []mail.Option{
		mail.WithPort(s.port),
		mail.WithTimeout(s.timeout),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if s.username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.username),
			mail.WithPassword(s.password),
		)
	}

	client, err := mail.NewClient(s.host, opts...)
	if err != nil {
		return fmt.Errorf("ошибка создания SMTP клиента: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("ошибка отправки письма: %w", err)
	}
	return nil
}
