package apperrors

import (
	"net/http"
)

/*
Этот файл содержит фабрики и предопределенные переменные
для ошибок бизнес-логики аккаунтов.
*/

// ErrNotFound - фабрика для ошибки "не найдено" (404).
// Используется, когда ошибка репозитория (типа gorm.ErrRecordNotFound)
// должна быть преобразована в AppError.
func ErrNotFound(err error) *AppError {
	return Wrap(err, CodeNotFound, "resource", "Resource not found", http.StatusNotFound)
}

// ErrAlreadyExists - фабрика для ошибки "уже существует" (409)
func ErrAlreadyExists(err error) *AppError {
	return Wrap(err, CodeAlreadyExists, "resource", "Resource already exists", http.StatusConflict)
}

// DeliveryError - уведомление не доставлено (SMTP и т.п.)
func DeliveryError(err error) *AppError {
	return Wrap(err, CodeDeliveryFailed, "notification", "Failed to deliver notification email", http.StatusBadGateway)
}

// CorruptCredential - хеш пароля в хранилище поврежден.
// Нормальная работа до этого не доводит: если видим - это баг.
func CorruptCredential(err error) *AppError {
	return Wrap(err, CodeCorruptCredential, "auth", "Stored credential is corrupt", http.StatusInternalServerError)
}

// PreconditionViolation - нарушение порядка вызовов (например, проверка
// роли без предварительной аутентификации). Ошибка программирования,
// не auth-отказ.
func PreconditionViolation(message string) *AppError {
	return New(CodePreconditionViolation, "system", message, http.StatusInternalServerError)
}

// --- Auth ---

// ErrWeakPassword - пароль короче минимальной длины
var ErrWeakPassword = New(
	CodeValidationFailed,
	"validation",
	"Password is too weak. Minimum 6 characters required.",
	http.StatusBadRequest,
)

// ErrEmailAlreadyExists - email уже используется
var ErrEmailAlreadyExists = New(
	CodeAlreadyExists,
	"auth",
	"Email already in use",
	http.StatusConflict,
)

// ErrInvalidCredentials - неверный email или пароль.
// Одно сообщение для обоих случаев: не раскрываем, что именно не совпало.
var ErrInvalidCredentials = New(
	CodeInvalidCredentials,
	"auth",
	"Invalid email or password",
	http.StatusUnauthorized,
)

// ErrInvalidResetToken - токен сброса пароля неверен или просрочен
var ErrInvalidResetToken = New(
	CodeInvalidToken,
	"auth",
	"Token is invalid or expired",
	http.StatusBadRequest,
)

// ErrPasswordMismatch - password и confirmPassword не совпадают
var ErrPasswordMismatch = New(
	CodePasswordMismatch,
	"auth",
	"Password and confirm password do not match",
	http.StatusBadRequest,
)

// ErrEmailNotRegistered - запрос сброса пароля для незарегистрированного email
var ErrEmailNotRegistered = New(
	CodeNotFound,
	"auth",
	"Email not found as registered",
	http.StatusNotFound,
)

// ErrUserNotFound - пользователь не найден
var ErrUserNotFound = New(
	CodeNotFound,
	"user",
	"No user found",
	http.StatusNotFound,
)
