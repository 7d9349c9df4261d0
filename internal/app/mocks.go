package app

import (
	"context"
	"sync"

	"tstore_backend/internal/logger"
)

// MockEmailProvider пишет письма в память вместо SMTP.
// Используется при пустой SMTP-конфигурации и в тестах.
type MockEmailProvider struct {
	mu sync.Mutex

	// FailNext - следующий Send вернет эту ошибку (одноразово)
	FailNext error

	Sent []MockEmail
}

type MockEmail struct {
	To      string
	Subject string
	Body    string
}

func (m *MockEmailProvider) Send(ctx context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailNext != nil {
		err := m.FailNext
		m.FailNext = nil
		return err
	}

	m.Sent = append(m.Sent, MockEmail{To: to, Subject: subject, Body: body})
	logger.Info("[MOCK EMAIL] message captured", "to", to, "subject", subject)
	return nil
}

// LastSent возвращает последнее перехваченное письмо
func (m *MockEmailProvider) LastSent() (MockEmail, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.Sent) == 0 {
		return MockEmail{}, false
	}
	return m.Sent[len(m.Sent)-1], true
}
