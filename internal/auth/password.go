package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// ErrCorruptHash - сохраненный хеш не распарсился как bcrypt.
// Это не "пароль не подошел", а поврежденные данные.
var ErrCorruptHash = errors.New("stored password hash is corrupt")

// HashPassword создает bcrypt хеш пароля.
// Cost зашит в сам хеш, так что проверка параметров не требует.
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

// CheckPasswordHash проверяет пароль против хеша.
// Несовпадение - это (false, nil); ошибка возвращается только если
// сам хеш поврежден.
func CheckPasswordHash(password, hash string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	return false, ErrCorruptHash
}

// ValidatePassword проверяет минимальную длину пароля
func ValidatePassword(password string) error {
	if len(password) < 6 {
		return errors.New("password must be at least 6 characters long")
	}
	return nil
}
