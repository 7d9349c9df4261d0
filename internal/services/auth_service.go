package services

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"tstore_backend/internal/auth"
	"tstore_backend/internal/email"
	"tstore_backend/internal/logger"
	"tstore_backend/internal/models"
	"tstore_backend/internal/repositories"
	"tstore_backend/internal/services/dto"
	"tstore_backend/internal/storage"
	"tstore_backend/pkg/apperrors"

	"gorm.io/gorm"
)

// photoFolder - каталог blob-хранилища для фотографий пользователей
const photoFolder = "users"

type AuthService interface {
	Signup(ctx context.Context, db *gorm.DB, req *dto.SignupRequest, photo *PhotoUpload) (*models.User, *Session, error)
	Login(db *gorm.DB, req *dto.LoginRequest) (*models.User, *Session, error)
	ForgotPassword(ctx context.Context, db *gorm.DB, userEmail, resetBaseURL string) error
	ResetPassword(db *gorm.DB, token string, req *dto.ResetPasswordRequest) (*models.User, *Session, error)
	ChangePassword(db *gorm.DB, user *models.User, req *dto.ChangePasswordRequest) (*Session, error)
}

type AuthServiceImpl struct {
	userRepo      repositories.UserRepository
	emailProvider email.Provider
	tokens        *auth.TokenManager
	blobs         storage.Storage
	recoveryTTL   time.Duration
}

func NewAuthService(
	userRepo repositories.UserRepository,
	emailProvider email.Provider,
	tokens *auth.TokenManager,
	blobs storage.Storage,
	recoveryTTL time.Duration,
) AuthService {
	return &AuthServiceImpl{
		userRepo:      userRepo,
		emailProvider: emailProvider,
		tokens:        tokens,
		blobs:         blobs,
		recoveryTTL:   recoveryTTL,
	}
}

// Signup - регистрация нового пользователя.
// Фото обязательно: сначала грузим blob, потом создаем запись.
// Регистрация подразумевает логин - сразу выпускаем сессию.
func (s *AuthServiceImpl) Signup(ctx context.Context, db *gorm.DB, req *dto.SignupRequest, photo *PhotoUpload) (*models.User, *Session, error) {
	if photo == nil {
		return nil, nil, apperrors.NewBadRequestError("Photo is required for signup")
	}
	if err := auth.ValidatePassword(req.Password); err != nil {
		return nil, nil, apperrors.ErrWeakPassword
	}

	blob, err := s.blobs.Upload(ctx, photoFolder, photo.Filename, photo.Reader, photo.ContentType)
	if err != nil {
		return nil, nil, apperrors.InternalError(fmt.Errorf("photo upload failed: %w", err))
	}

	user := &models.User{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password, // хешируется в BeforeSave
		Role:     models.RoleUser,
		PhotoID:  blob.ID,
		PhotoURL: blob.URL,
	}

	if err := s.userRepo.Create(db, user); err != nil {
		// Запись не создана - blob осиротел, подчищаем
		if delErr := s.blobs.Delete(ctx, blob.ID); delErr != nil {
			logger.CtxWarn(ctx, "Failed to clean up orphaned photo blob", "blob_id", blob.ID, "error", delErr.Error())
		}
		if apperrors.Is(err, repositories.ErrUserAlreadyExists) {
			return nil, nil, apperrors.ErrEmailAlreadyExists
		}
		return nil, nil, apperrors.InternalError(err)
	}

	session, err := s.issueSession(user.ID)
	if err != nil {
		return nil, nil, err
	}

	return user, session, nil
}

// Login - аутентификация пользователя.
// "Нет такого email" и "пароль не подошел" отвечают одинаково:
// перечисление аккаунтов не даем.
func (s *AuthServiceImpl) Login(db *gorm.DB, req *dto.LoginRequest) (*models.User, *Session, error) {
	user, err := s.userRepo.FindByEmail(db, req.Email)
	if err != nil {
		if apperrors.Is(err, repositories.ErrUserNotFound) {
			return nil, nil, apperrors.ErrInvalidCredentials
		}
		return nil, nil, apperrors.InternalError(err)
	}

	ok, err := user.CheckPassword(req.Password)
	if err != nil {
		return nil, nil, apperrors.CorruptCredential(err)
	}
	if !ok {
		return nil, nil, apperrors.ErrInvalidCredentials
	}

	session, err := s.issueSession(user.ID)
	if err != nil {
		return nil, nil, err
	}

	return user, session, nil
}

// ForgotPassword - запрос сброса пароля.
// Точка фиксации - запись пары "дайджест + срок": все, что до нее,
// можно просто выбросить. Если письмо не ушло, пару откатываем -
// токен, которого пользователь не видел, не должен оставаться рабочим.
func (s *AuthServiceImpl) ForgotPassword(ctx context.Context, db *gorm.DB, userEmail, resetBaseURL string) error {
	user, err := s.userRepo.FindByEmail(db, userEmail)
	if err != nil {
		if apperrors.Is(err, repositories.ErrUserNotFound) {
			return apperrors.ErrEmailNotRegistered
		}
		return apperrors.InternalError(err)
	}

	plaintext, digest, err := auth.MintRecoveryToken()
	if err != nil {
		return apperrors.InternalError(err)
	}

	expiry := time.Now().Add(s.recoveryTTL)
	if err := s.userRepo.SetRecoveryToken(db, user.ID, digest, expiry); err != nil {
		return apperrors.InternalError(err)
	}

	resetURL := fmt.Sprintf("%s/api/v1/password/reset/%s", resetBaseURL, plaintext)

	if err := s.emailProvider.Send(ctx, user.Email, email.PasswordResetSubject, email.PasswordResetBody(resetURL)); err != nil {
		// Компенсация: условная очистка по дайджесту
		if clearErr := s.userRepo.ClearRecoveryToken(db, user.ID, digest); clearErr != nil {
			logger.CtxError(ctx, "Failed to clear recovery token after delivery failure",
				"user_id", user.ID,
				"error", clearErr.Error(),
			)
		}
		return apperrors.DeliveryError(err)
	}

	return nil
}

// ResetPassword - сброс пароля по токену из письма.
// Погашение ровно-однократное: условное обновление по дайджесту.
func (s *AuthServiceImpl) ResetPassword(db *gorm.DB, token string, req *dto.ResetPasswordRequest) (*models.User, *Session, error) {
	digest := auth.RecoveryDigest(token)

	user, err := s.userRepo.FindByRecoveryDigest(db, digest, time.Now())
	if err != nil {
		if apperrors.Is(err, repositories.ErrUserNotFound) {
			return nil, nil, apperrors.ErrInvalidResetToken
		}
		return nil, nil, apperrors.InternalError(err)
	}

	// Несовпадение подтверждения и слабый пароль НЕ гасят токен -
	// пользователь может повторить попытку по той же ссылке
	if req.Password != req.ConfirmPassword {
		return nil, nil, apperrors.ErrPasswordMismatch
	}
	if err := auth.ValidatePassword(req.Password); err != nil {
		return nil, nil, apperrors.ErrWeakPassword
	}

	if err := s.userRepo.ConsumeRecoveryToken(db, user, digest, req.Password); err != nil {
		if apperrors.Is(err, repositories.ErrRecoveryTokenConsumed) {
			return nil, nil, apperrors.ErrInvalidResetToken
		}
		return nil, nil, apperrors.InternalError(err)
	}

	session, err := s.issueSession(user.ID)
	if err != nil {
		return nil, nil, err
	}

	return user, session, nil
}

// ChangePassword - смена пароля, когда пользователь знает текущий.
// Учетные данные изменились - выпускаем свежую сессию.
func (s *AuthServiceImpl) ChangePassword(db *gorm.DB, user *models.User, req *dto.ChangePasswordRequest) (*Session, error) {
	ok, err := user.CheckPassword(req.OldPassword)
	if err != nil {
		return nil, apperrors.CorruptCredential(err)
	}
	if !ok {
		return nil, apperrors.New(apperrors.CodeInvalidCredentials, "auth", "Old password is incorrect", http.StatusBadRequest)
	}
	if err := auth.ValidatePassword(req.Password); err != nil {
		return nil, apperrors.ErrWeakPassword
	}

	user.Password = req.Password
	if err := s.userRepo.Save(db, user); err != nil {
		return nil, apperrors.InternalError(err)
	}

	return s.issueSession(user.ID)
}

func (s *AuthServiceImpl) issueSession(userID string) (*Session, error) {
	token, expiresAt, err := s.tokens.Issue(userID)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	return &Session{Token: token, ExpiresAt: expiresAt}, nil
}
