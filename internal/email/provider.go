package email

import "context"

// Provider определяет интерфейс для отправки email.
// Отправка - сетевой I/O: реализация обязана уважать ctx и таймаут.
type Provider interface {
	// Send отправляет простое текстовое письмо
	Send(ctx context.Context, to, subject, body string) error
}
