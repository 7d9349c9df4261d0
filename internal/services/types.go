package services

import (
	"io"
	"time"
)

// PhotoUpload - открытый файл из multipart-запроса.
// Хендлер открывает заголовок, сервис только читает поток.
type PhotoUpload struct {
	Filename    string
	ContentType string
	Reader      io.Reader
}

// Session - выпущенный сессионный токен и срок его действия
// (срок нужен хендлеру для expiry куки)
type Session struct {
	Token     string
	ExpiresAt time.Time
}
