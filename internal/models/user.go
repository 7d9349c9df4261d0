package models

import (
	"time"

	"tstore_backend/internal/auth"

	"gorm.io/gorm"
)

// UserRole - закрытый набор ролей, никаких произвольных строк
type UserRole string

const (
	RoleUser    UserRole = "user"
	RoleManager UserRole = "manager"
	RoleAdmin   UserRole = "admin"
)

// Valid проверяет, что роль входит в закрытый набор
func (r UserRole) Valid() bool {
	switch r {
	case RoleUser, RoleManager, RoleAdmin:
		return true
	}
	return false
}

type User struct {
	BaseModel
	Name  string   `gorm:"not null" json:"name"`
	Email string   `gorm:"uniqueIndex;not null" json:"email"`
	Role  UserRole `gorm:"type:varchar(20);not null;default:'user'" json:"role"`

	// Password - транзитное поле: плэйнтекст живет только в памяти
	// до BeforeSave, наружу не сериализуется и в БД не пишется.
	Password     string `gorm:"-" json:"-"`
	PasswordHash string `gorm:"not null" json:"-"`

	// Ссылка на фото во внешнем blob-хранилище
	PhotoID  string `json:"photoId,omitempty"`
	PhotoURL string `json:"photoUrl,omitempty"`

	// Пара "дайджест + срок" токена восстановления.
	// Устанавливаются и очищаются только вместе.
	ForgotPasswordToken  string     `gorm:"index" json:"-"`
	ForgotPasswordExpiry *time.Time `json:"-"`
}

// BeforeSave - хук хеширования пароля перед записью.
// Единственная точка, через которую плэйнтекст превращается в хеш:
// любой путь записи (signup, reset, change, admin) проходит здесь.
func (u *User) BeforeSave(tx *gorm.DB) error {
	if u.Password == "" {
		return nil
	}

	hash, err := auth.HashPassword(u.Password)
	if err != nil {
		return err
	}

	u.PasswordHash = hash
	u.Password = ""
	return nil
}

// CheckPassword сверяет плэйнтекст с сохраненным хешем
func (u *User) CheckPassword(password string) (bool, error) {
	return auth.CheckPasswordHash(password, u.PasswordHash)
}

// HasRecoveryToken сообщает, активна ли пара восстановления на данный момент
func (u *User) HasRecoveryToken(now time.Time) bool {
	return u.ForgotPasswordToken != "" && u.ForgotPasswordExpiry != nil && now.Before(*u.ForgotPasswordExpiry)
}
