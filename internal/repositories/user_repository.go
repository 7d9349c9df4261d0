package repositories

import (
	"errors"
	"time"

	"tstore_backend/internal/models"

	"gorm.io/gorm"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrUserAlreadyExists = errors.New("user already exists")

	// ErrRecoveryTokenConsumed - пара восстановления уже изменена другим
	// запросом: CAS-обновление не нашло строку с прежним дайджестом.
	ErrRecoveryTokenConsumed = errors.New("recovery token already consumed")
)

// UserRepository - операции над пользователями.
// *gorm.DB передается в каждый метод: это либо общий пул,
// либо транзакция запроса из DBMiddleware.
type UserRepository interface {
	Create(db *gorm.DB, user *models.User) error
	FindByID(db *gorm.DB, id string) (*models.User, error)
	FindByEmail(db *gorm.DB, email string) (*models.User, error)
	FindByRecoveryDigest(db *gorm.DB, digest string, now time.Time) (*models.User, error)
	Save(db *gorm.DB, user *models.User) error

	// Пара "дайджест + срок" всегда пишется и чистится вместе
	SetRecoveryToken(db *gorm.DB, userID, digest string, expiry time.Time) error
	ClearRecoveryToken(db *gorm.DB, userID, digest string) error
	ConsumeRecoveryToken(db *gorm.DB, user *models.User, digest, newPassword string) error

	Delete(db *gorm.DB, userID string) error
	FindAll(db *gorm.DB) ([]models.User, error)
	FindByRole(db *gorm.DB, role models.UserRole) ([]models.User, error)
	CountAll(db *gorm.DB) (int64, error)
}

type UserRepositoryImpl struct{}

func NewUserRepository() UserRepository {
	return &UserRepositoryImpl{}
}

func (r *UserRepositoryImpl) Create(db *gorm.DB, user *models.User) error {
	var existing models.User
	if err := db.Where("email = ?", user.Email).First(&existing).Error; err == nil {
		return ErrUserAlreadyExists
	}

	return db.Create(user).Error
}

func (r *UserRepositoryImpl) FindByID(db *gorm.DB, id string) (*models.User, error) {
	var user models.User
	err := db.First(&user, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *UserRepositoryImpl) FindByEmail(db *gorm.DB, email string) (*models.User, error) {
	var user models.User
	err := db.First(&user, "email = ?", email).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// FindByRecoveryDigest ищет пользователя по дайджесту токена восстановления
// с еще не истекшим сроком. Просроченная пара эквивалентна отсутствующей.
func (r *UserRepositoryImpl) FindByRecoveryDigest(db *gorm.DB, digest string, now time.Time) (*models.User, error) {
	var user models.User
	err := db.Where("forgot_password_token = ? AND forgot_password_expiry > ?", digest, now).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// Save пишет запись целиком. Через BeforeSave проходит хеширование пароля,
// если поле Password было установлено.
func (r *UserRepositoryImpl) Save(db *gorm.DB, user *models.User) error {
	return db.Save(user).Error
}

func (r *UserRepositoryImpl) SetRecoveryToken(db *gorm.DB, userID, digest string, expiry time.Time) error {
	result := db.Model(&models.User{}).Where("id = ?", userID).Updates(map[string]interface{}{
		"forgot_password_token":  digest,
		"forgot_password_expiry": expiry,
	})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// ClearRecoveryToken чистит пару восстановления, но только если дайджест
// все еще тот, что мы записали (compare-and-set). Если пара уже изменена
// другим запросом - чистить нечего, это не ошибка.
func (r *UserRepositoryImpl) ClearRecoveryToken(db *gorm.DB, userID, digest string) error {
	return db.Model(&models.User{}).
		Where("id = ? AND forgot_password_token = ?", userID, digest).
		Updates(map[string]interface{}{
			"forgot_password_token":  "",
			"forgot_password_expiry": nil,
		}).Error
}

// ConsumeRecoveryToken - точка ровно-однократного погашения токена:
// условное обновление по дайджесту ставит новый пароль и чистит пару
// атомарно. Повторное погашение не находит строку и возвращает
// ErrRecoveryTokenConsumed.
// Обновление идет через копию: хук BeforeSave хеширует пароль до того,
// как БД проверит условие по дайджесту, и при отказе структура
// вызывающего не должна унести хеш отклоненного пароля.
func (r *UserRepositoryImpl) ConsumeRecoveryToken(db *gorm.DB, user *models.User, digest, newPassword string) error {
	updated := *user
	updated.Password = newPassword
	updated.ForgotPasswordToken = ""
	updated.ForgotPasswordExpiry = nil

	result := db.Model(&updated).
		Where("forgot_password_token = ?", digest).
		Select("password_hash", "forgot_password_token", "forgot_password_expiry").
		Updates(&updated)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrRecoveryTokenConsumed
	}

	*user = updated
	return nil
}

func (r *UserRepositoryImpl) Delete(db *gorm.DB, userID string) error {
	result := db.Where("id = ?", userID).Delete(&models.User{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *UserRepositoryImpl) FindAll(db *gorm.DB) ([]models.User, error) {
	var users []models.User
	err := db.Order("created_at DESC").Find(&users).Error
	return users, err
}

func (r *UserRepositoryImpl) FindByRole(db *gorm.DB, role models.UserRole) ([]models.User, error) {
	var users []models.User
	err := db.Where("role = ?", role).Order("created_at DESC").Find(&users).Error
	return users, err
}

func (r *UserRepositoryImpl) CountAll(db *gorm.DB) (int64, error) {
	var count int64
	err := db.Model(&models.User{}).Count(&count).Error
	return count, err
}
