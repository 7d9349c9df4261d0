package email

import (
	"context"
	"fmt"
	"time"

	"gopkg.in/gomail.v2"
)

// SMTPConfig - настройки SMTP отправителя
type SMTPConfig struct {
	Host      string
	Port      int
	Username  string
	Password  string
	FromEmail string
	FromName  string
	Timeout   time.Duration
}

// Validate проверяет конфигурацию
func (c *SMTPConfig) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("smtp host is required")
	}
	if c.Port == 0 {
		return fmt.Errorf("smtp port is required")
	}
	if c.FromEmail == "" {
		return fmt.Errorf("from email is required")
	}
	return nil
}

// SMTPProvider реализует Provider через gomail
type SMTPProvider struct {
	config SMTPConfig
	dialer *gomail.Dialer
}

// NewSMTPProvider создает новый SMTP отправитель
func NewSMTPProvider(config SMTPConfig) (*SMTPProvider, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid email config: %w", err)
	}
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}

	return &SMTPProvider{
		config: config,
		dialer: gomail.NewDialer(config.Host, config.Port, config.Username, config.Password),
	}, nil
}

// Send отправляет письмо. gomail не умеет context, поэтому отправка
// идет в горутине, а мы ждем либо результат, либо отмену/таймаут.
func (p *SMTPProvider) Send(ctx context.Context, to, subject, body string) error {
	m := gomail.NewMessage()
	m.SetAddressHeader("From", p.config.FromEmail, p.config.FromName)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	ctx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- p.dialer.DialAndSend(m)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("failed to send email to %s: %w", to, err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("email send to %s aborted: %w", to, ctx.Err())
	}
}
