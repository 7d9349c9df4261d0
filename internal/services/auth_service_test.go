package services_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"tstore_backend/internal/auth"
	"tstore_backend/internal/models"
	"tstore_backend/internal/repositories"
	"tstore_backend/internal/services"
	"tstore_backend/internal/services/dto"
	"tstore_backend/internal/storage"
	"tstore_backend/pkg/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// stubEmail перехватывает письма в память
type stubEmail struct {
	failNext error
	sent     []stubMail
}

type stubMail struct {
	To      string
	Subject string
	Body    string
}

func (s *stubEmail) Send(_ context.Context, to, subject, body string) error {
	if s.failNext != nil {
		err := s.failNext
		s.failNext = nil
		return err
	}
	s.sent = append(s.sent, stubMail{To: to, Subject: subject, Body: body})
	return nil
}

type authEnv struct {
	db      *gorm.DB
	svc     services.AuthService
	repo    repositories.UserRepository
	email   *stubEmail
	tokens  *auth.TokenManager
	blobs   storage.Storage
	blobDir string
}

func newAuthEnv(t *testing.T) *authEnv {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// in-memory sqlite живет в рамках одного соединения
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&models.User{}))

	blobDir := t.TempDir()
	blobs, err := storage.NewStorage(storage.Config{
		Type:     "local",
		BasePath: blobDir,
		BaseURL:  "/api/v1/files",
	})
	require.NoError(t, err)

	tokens, err := auth.NewTokenManager("my_super_secret_key_for_tests_12345", time.Hour)
	require.NoError(t, err)

	mail := &stubEmail{}
	repo := repositories.NewUserRepository()
	svc := services.NewAuthService(repo, mail, tokens, blobs, 20*time.Minute)

	return &authEnv{db: db, svc: svc, repo: repo, email: mail, tokens: tokens, blobs: blobs, blobDir: blobDir}
}

func testPhoto() *services.PhotoUpload {
	return &services.PhotoUpload{
		Filename:    "avatar.png",
		ContentType: "image/png",
		Reader:      bytes.NewReader([]byte("fake-png-bytes")),
	}
}

func signupTestUser(t *testing.T, env *authEnv, email string) *models.User {
	user, session, err := env.svc.Signup(context.Background(), env.db, &dto.SignupRequest{
		Name:     "Test User",
		Email:    email,
		Password: "super_password123",
	}, testPhoto())
	require.NoError(t, err)
	require.NotNil(t, session)
	return user
}

func countBlobs(t *testing.T, dir string) int {
	count := 0
	err := filepath.Walk(dir, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			count++
		}
		return nil
	})
	require.NoError(t, err)
	return count
}

func TestAuthService_Signup(t *testing.T) {
	env := newAuthEnv(t)

	user, session, err := env.svc.Signup(context.Background(), env.db, &dto.SignupRequest{
		Name:     "Test User",
		Email:    "signup@test.com",
		Password: "super_password123",
	}, testPhoto())
	require.NoError(t, err)

	assert.Equal(t, models.RoleUser, user.Role)
	assert.NotEmpty(t, user.PhotoID)
	assert.NotEmpty(t, user.PhotoURL)
	assert.Empty(t, user.Password)
	assert.NotEmpty(t, user.PasswordHash)

	claims, err := env.tokens.Parse(session.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)

	assert.Equal(t, 1, countBlobs(t, env.blobDir))
}

func TestAuthService_Signup_NoPhoto(t *testing.T) {
	env := newAuthEnv(t)

	_, _, err := env.svc.Signup(context.Background(), env.db, &dto.SignupRequest{
		Name:     "Test User",
		Email:    "nophoto@test.com",
		Password: "super_password123",
	}, nil)
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.True(t, apperrors.As(err, &appErr))
	assert.Equal(t, 400, appErr.HTTPCode)
}

func TestAuthService_Signup_WeakPassword(t *testing.T) {
	env := newAuthEnv(t)

	_, _, err := env.svc.Signup(context.Background(), env.db, &dto.SignupRequest{
		Name:     "Test User",
		Email:    "weak@test.com",
		Password: "12345",
	}, testPhoto())
	assert.ErrorIs(t, err, apperrors.ErrWeakPassword)

	// Проверка идет до загрузки фото - осиротевших blob нет
	assert.Equal(t, 0, countBlobs(t, env.blobDir))
}

func TestAuthService_Signup_DuplicateEmail(t *testing.T) {
	env := newAuthEnv(t)
	signupTestUser(t, env, "duplicate@test.com")

	_, _, err := env.svc.Signup(context.Background(), env.db, &dto.SignupRequest{
		Name:     "Second",
		Email:    "duplicate@test.com",
		Password: "another_password",
	}, testPhoto())
	assert.ErrorIs(t, err, apperrors.ErrEmailAlreadyExists)

	// Осиротевший blob второй попытки подчищен
	assert.Equal(t, 1, countBlobs(t, env.blobDir))
}

func TestAuthService_Login(t *testing.T) {
	env := newAuthEnv(t)
	user := signupTestUser(t, env, "login@test.com")

	got, session, err := env.svc.Login(env.db, &dto.LoginRequest{
		Email:    "login@test.com",
		Password: "super_password123",
	})
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	claims, err := env.tokens.Parse(session.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
}

// Неизвестный email и неверный пароль должны быть неразличимы снаружи
func TestAuthService_Login_GenericFailure(t *testing.T) {
	env := newAuthEnv(t)
	signupTestUser(t, env, "exists@test.com")

	_, _, errUnknown := env.svc.Login(env.db, &dto.LoginRequest{
		Email:    "ghost@test.com",
		Password: "whatever",
	})
	_, _, errWrongPass := env.svc.Login(env.db, &dto.LoginRequest{
		Email:    "exists@test.com",
		Password: "WRONG-password",
	})

	assert.ErrorIs(t, errUnknown, apperrors.ErrInvalidCredentials)
	assert.ErrorIs(t, errWrongPass, apperrors.ErrInvalidCredentials)
	assert.Equal(t, errUnknown.Error(), errWrongPass.Error())
}

func TestAuthService_ForgotPassword(t *testing.T) {
	env := newAuthEnv(t)
	user := signupTestUser(t, env, "forgot@test.com")

	require.NoError(t, env.svc.ForgotPassword(context.Background(), env.db, "forgot@test.com", "http://localhost:4000"))

	require.Len(t, env.email.sent, 1)
	mail := env.email.sent[0]
	assert.Equal(t, "forgot@test.com", mail.To)
	assert.Contains(t, mail.Body, "http://localhost:4000/api/v1/password/reset/")

	plaintext := extractResetToken(t, mail.Body)

	stored, err := env.repo.FindByID(env.db, user.ID)
	require.NoError(t, err)
	assert.Equal(t, auth.RecoveryDigest(plaintext), stored.ForgotPasswordToken)
	require.NotNil(t, stored.ForgotPasswordExpiry)
	assert.True(t, stored.ForgotPasswordExpiry.After(time.Now()))
}

func TestAuthService_ForgotPassword_UnknownEmail(t *testing.T) {
	env := newAuthEnv(t)

	err := env.svc.ForgotPassword(context.Background(), env.db, "ghost@test.com", "http://localhost:4000")
	assert.ErrorIs(t, err, apperrors.ErrEmailNotRegistered)
	assert.Empty(t, env.email.sent)
}

// Письмо не ушло - токен не должен остаться рабочим
func TestAuthService_ForgotPassword_DeliveryFailure(t *testing.T) {
	env := newAuthEnv(t)
	user := signupTestUser(t, env, "undeliverable@test.com")
	env.email.failNext = errors.New("smtp connection refused")

	err := env.svc.ForgotPassword(context.Background(), env.db, "undeliverable@test.com", "http://localhost:4000")
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.True(t, apperrors.As(err, &appErr))
	assert.Equal(t, apperrors.CodeDeliveryFailed, appErr.Code)

	stored, findErr := env.repo.FindByID(env.db, user.ID)
	require.NoError(t, findErr)
	assert.Empty(t, stored.ForgotPasswordToken)
	assert.Nil(t, stored.ForgotPasswordExpiry)
}

var resetTokenRe = regexp.MustCompile(`/password/reset/([0-9a-f]+)`)

func extractResetToken(t *testing.T, mailBody string) string {
	m := resetTokenRe.FindStringSubmatch(mailBody)
	require.Len(t, m, 2, "в письме должна быть ссылка сброса")
	return m[1]
}

func requestReset(t *testing.T, env *authEnv, email string) string {
	require.NoError(t, env.svc.ForgotPassword(context.Background(), env.db, email, "http://localhost:4000"))
	require.NotEmpty(t, env.email.sent)
	return extractResetToken(t, env.email.sent[len(env.email.sent)-1].Body)
}

func TestAuthService_ResetPassword(t *testing.T) {
	env := newAuthEnv(t)
	user := signupTestUser(t, env, "reset@test.com")
	token := requestReset(t, env, "reset@test.com")

	got, session, err := env.svc.ResetPassword(env.db, token, &dto.ResetPasswordRequest{
		Password:        "new_password456",
		ConfirmPassword: "new_password456",
	})
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	require.NotNil(t, session)

	// Старый пароль больше не работает, новый работает
	_, _, err = env.svc.Login(env.db, &dto.LoginRequest{Email: "reset@test.com", Password: "super_password123"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)

	_, _, err = env.svc.Login(env.db, &dto.LoginRequest{Email: "reset@test.com", Password: "new_password456"})
	assert.NoError(t, err)
}

func TestAuthService_ResetPassword_Replay(t *testing.T) {
	env := newAuthEnv(t)
	signupTestUser(t, env, "replay@test.com")
	token := requestReset(t, env, "replay@test.com")

	_, _, err := env.svc.ResetPassword(env.db, token, &dto.ResetPasswordRequest{
		Password:        "new_password456",
		ConfirmPassword: "new_password456",
	})
	require.NoError(t, err)

	// Второе погашение той же ссылки
	_, _, err = env.svc.ResetPassword(env.db, token, &dto.ResetPasswordRequest{
		Password:        "attacker_password",
		ConfirmPassword: "attacker_password",
	})
	assert.ErrorIs(t, err, apperrors.ErrInvalidResetToken)

	// Пароль остался от первого сброса
	_, _, err = env.svc.Login(env.db, &dto.LoginRequest{Email: "replay@test.com", Password: "new_password456"})
	assert.NoError(t, err)
}

func TestAuthService_ResetPassword_BadToken(t *testing.T) {
	env := newAuthEnv(t)
	signupTestUser(t, env, "badtoken@test.com")

	_, _, err := env.svc.ResetPassword(env.db, "deadbeefdeadbeefdeadbeefdeadbeefdeadbeef", &dto.ResetPasswordRequest{
		Password:        "new_password456",
		ConfirmPassword: "new_password456",
	})
	assert.ErrorIs(t, err, apperrors.ErrInvalidResetToken)
}

// Несовпадение подтверждения не гасит токен
func TestAuthService_ResetPassword_MismatchKeepsToken(t *testing.T) {
	env := newAuthEnv(t)
	signupTestUser(t, env, "mismatch@test.com")
	token := requestReset(t, env, "mismatch@test.com")

	_, _, err := env.svc.ResetPassword(env.db, token, &dto.ResetPasswordRequest{
		Password:        "new_password456",
		ConfirmPassword: "другой_пароль",
	})
	assert.ErrorIs(t, err, apperrors.ErrPasswordMismatch)

	// Та же ссылка еще действует
	_, _, err = env.svc.ResetPassword(env.db, token, &dto.ResetPasswordRequest{
		Password:        "new_password456",
		ConfirmPassword: "new_password456",
	})
	assert.NoError(t, err)
}

// Слабый пароль не гасит токен - та же ссылка еще действует
func TestAuthService_ResetPassword_WeakPasswordKeepsToken(t *testing.T) {
	env := newAuthEnv(t)
	signupTestUser(t, env, "weakreset@test.com")
	token := requestReset(t, env, "weakreset@test.com")

	_, _, err := env.svc.ResetPassword(env.db, token, &dto.ResetPasswordRequest{
		Password:        "12345",
		ConfirmPassword: "12345",
	})
	assert.ErrorIs(t, err, apperrors.ErrWeakPassword)

	_, _, err = env.svc.ResetPassword(env.db, token, &dto.ResetPasswordRequest{
		Password:        "new_password456",
		ConfirmPassword: "new_password456",
	})
	assert.NoError(t, err)
}

func TestAuthService_ChangePassword(t *testing.T) {
	env := newAuthEnv(t)
	user := signupTestUser(t, env, "change@test.com")

	session, err := env.svc.ChangePassword(env.db, user, &dto.ChangePasswordRequest{
		OldPassword: "super_password123",
		Password:    "brand_new_pass789",
	})
	require.NoError(t, err)
	require.NotNil(t, session)

	_, _, err = env.svc.Login(env.db, &dto.LoginRequest{Email: "change@test.com", Password: "brand_new_pass789"})
	assert.NoError(t, err)

	_, _, err = env.svc.Login(env.db, &dto.LoginRequest{Email: "change@test.com", Password: "super_password123"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
}

func TestAuthService_ChangePassword_WrongOld(t *testing.T) {
	env := newAuthEnv(t)
	user := signupTestUser(t, env, "wrongold@test.com")

	_, err := env.svc.ChangePassword(env.db, user, &dto.ChangePasswordRequest{
		OldPassword: "not-my-password",
		Password:    "brand_new_pass789",
	})
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.True(t, apperrors.As(err, &appErr))
	assert.Equal(t, 400, appErr.HTTPCode)
	assert.Contains(t, appErr.Message, "Old password is incorrect")

	// Пароль не изменился
	_, _, err = env.svc.Login(env.db, &dto.LoginRequest{Email: "wrongold@test.com", Password: "super_password123"})
	assert.NoError(t, err)
}

func TestAuthService_ChangePassword_WeakNew(t *testing.T) {
	env := newAuthEnv(t)
	user := signupTestUser(t, env, "weakchange@test.com")

	_, err := env.svc.ChangePassword(env.db, user, &dto.ChangePasswordRequest{
		OldPassword: "super_password123",
		Password:    "123",
	})
	assert.ErrorIs(t, err, apperrors.ErrWeakPassword)

	_, _, err = env.svc.Login(env.db, &dto.LoginRequest{Email: "weakchange@test.com", Password: "super_password123"})
	assert.NoError(t, err)
}
