package services

import (
	"context"
	"fmt"

	"tstore_backend/internal/logger"
	"tstore_backend/internal/models"
	"tstore_backend/internal/repositories"
	"tstore_backend/internal/services/dto"
	"tstore_backend/internal/storage"
	"tstore_backend/pkg/apperrors"

	"gorm.io/gorm"
)

type UserService interface {
	GetByID(db *gorm.DB, id string) (*models.User, error)
	UpdateProfile(ctx context.Context, db *gorm.DB, user *models.User, req *dto.UpdateProfileRequest, photo *PhotoUpload) (*models.User, error)

	AdminListUsers(db *gorm.DB) ([]models.User, error)
	AdminUpdateUser(db *gorm.DB, id string, req *dto.AdminUpdateUserRequest) (*models.User, error)
	AdminDeleteUser(ctx context.Context, db *gorm.DB, id string) error
	ManagerListUsers(db *gorm.DB) ([]models.User, error)
}

type UserServiceImpl struct {
	userRepo repositories.UserRepository
	blobs    storage.Storage
}

func NewUserService(userRepo repositories.UserRepository, blobs storage.Storage) UserService {
	return &UserServiceImpl{
		userRepo: userRepo,
		blobs:    blobs,
	}
}

func (s *UserServiceImpl) GetByID(db *gorm.DB, id string) (*models.User, error) {
	user, err := s.userRepo.FindByID(db, id)
	if err != nil {
		if apperrors.Is(err, repositories.ErrUserNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.InternalError(err)
	}
	return user, nil
}

// UpdateProfile - обновление имени/email и, опционально, фото.
// Порядок при смене фото: удалить старый blob, загрузить новый, сохранить
// ссылку. Частичный провал (старый удален, новый не загрузился) возможен
// и известен - глобальной транзакции через blob-хранилище нет.
func (s *UserServiceImpl) UpdateProfile(ctx context.Context, db *gorm.DB, user *models.User, req *dto.UpdateProfileRequest, photo *PhotoUpload) (*models.User, error) {
	user.Name = req.Name
	user.Email = req.Email

	if photo != nil {
		if user.PhotoID != "" {
			if err := s.blobs.Delete(ctx, user.PhotoID); err != nil {
				return nil, apperrors.InternalError(fmt.Errorf("failed to delete old photo: %w", err))
			}
		}

		blob, err := s.blobs.Upload(ctx, photoFolder, photo.Filename, photo.Reader, photo.ContentType)
		if err != nil {
			return nil, apperrors.InternalError(fmt.Errorf("photo upload failed: %w", err))
		}

		user.PhotoID = blob.ID
		user.PhotoURL = blob.URL
	}

	if err := s.userRepo.Save(db, user); err != nil {
		return nil, apperrors.InternalError(err)
	}

	return user, nil
}

func (s *UserServiceImpl) AdminListUsers(db *gorm.DB) ([]models.User, error) {
	users, err := s.userRepo.FindAll(db)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	return users, nil
}

func (s *UserServiceImpl) AdminUpdateUser(db *gorm.DB, id string, req *dto.AdminUpdateUserRequest) (*models.User, error) {
	user, err := s.GetByID(db, id)
	if err != nil {
		return nil, err
	}

	user.Name = req.Name
	user.Email = req.Email
	if req.Role != "" {
		role := models.UserRole(req.Role)
		if !role.Valid() {
			return nil, apperrors.NewBadRequestError("Invalid role: " + req.Role)
		}
		user.Role = role
	}

	if err := s.userRepo.Save(db, user); err != nil {
		return nil, apperrors.InternalError(err)
	}

	return user, nil
}

// AdminDeleteUser - удаление пользователя.
// Blob удаляется best-effort: провал удаления фото не блокирует
// удаление записи.
func (s *UserServiceImpl) AdminDeleteUser(ctx context.Context, db *gorm.DB, id string) error {
	user, err := s.GetByID(db, id)
	if err != nil {
		return err
	}

	if user.PhotoID != "" {
		if err := s.blobs.Delete(ctx, user.PhotoID); err != nil {
			logger.CtxWarn(ctx, "Failed to delete user photo blob, deleting record anyway",
				"user_id", user.ID,
				"blob_id", user.PhotoID,
				"error", err.Error(),
			)
		}
	}

	if err := s.userRepo.Delete(db, user.ID); err != nil {
		return apperrors.InternalError(err)
	}

	return nil
}

// ManagerListUsers - менеджерам доступен только список обычных пользователей
func (s *UserServiceImpl) ManagerListUsers(db *gorm.DB) ([]models.User, error) {
	users, err := s.userRepo.FindByRole(db, models.RoleUser)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	return users, nil
}
