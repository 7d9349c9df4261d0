package repositories_test

import (
	"testing"
	"time"

	"tstore_backend/internal/models"
	"tstore_backend/internal/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// in-memory sqlite живет в рамках одного соединения
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&models.User{}))
	return db
}

func createTestUser(t *testing.T, db *gorm.DB, email string, role models.UserRole) *models.User {
	user := &models.User{
		Name:     "Test User",
		Email:    email,
		Role:     role,
		Password: "super_password123",
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func TestUserRepository_Create(t *testing.T) {
	db := newTestDB(t)
	repo := repositories.NewUserRepository()

	user := &models.User{
		Name:     "First",
		Email:    "first@test.com",
		Role:     models.RoleUser,
		Password: "super_password123",
	}
	require.NoError(t, repo.Create(db, user))
	assert.NotEmpty(t, user.ID)

	// Повторная регистрация того же email
	dup := &models.User{
		Name:     "Second",
		Email:    "first@test.com",
		Role:     models.RoleUser,
		Password: "another_password",
	}
	err := repo.Create(db, dup)
	assert.ErrorIs(t, err, repositories.ErrUserAlreadyExists)
}

func TestUserRepository_FindByID(t *testing.T) {
	db := newTestDB(t)
	repo := repositories.NewUserRepository()
	created := createTestUser(t, db, "find@test.com", models.RoleUser)

	found, err := repo.FindByID(db, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Email, found.Email)

	_, err = repo.FindByID(db, "00000000-0000-0000-0000-000000000000")
	assert.ErrorIs(t, err, repositories.ErrUserNotFound)
}

func TestUserRepository_FindByEmail(t *testing.T) {
	db := newTestDB(t)
	repo := repositories.NewUserRepository()
	created := createTestUser(t, db, "mail@test.com", models.RoleUser)

	found, err := repo.FindByEmail(db, "mail@test.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)

	_, err = repo.FindByEmail(db, "missing@test.com")
	assert.ErrorIs(t, err, repositories.ErrUserNotFound)
}

func TestUserRepository_RecoveryTokenRoundTrip(t *testing.T) {
	db := newTestDB(t)
	repo := repositories.NewUserRepository()
	user := createTestUser(t, db, "recovery@test.com", models.RoleUser)

	digest := "digest-abc"
	expiry := time.Now().Add(20 * time.Minute)
	require.NoError(t, repo.SetRecoveryToken(db, user.ID, digest, expiry))

	found, err := repo.FindByRecoveryDigest(db, digest, time.Now())
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)

	// Неизвестный дайджест
	_, err = repo.FindByRecoveryDigest(db, "other-digest", time.Now())
	assert.ErrorIs(t, err, repositories.ErrUserNotFound)

	// Просроченная пара эквивалентна отсутствующей
	_, err = repo.FindByRecoveryDigest(db, digest, expiry.Add(time.Minute))
	assert.ErrorIs(t, err, repositories.ErrUserNotFound)
}

func TestUserRepository_SetRecoveryToken_UnknownUser(t *testing.T) {
	db := newTestDB(t)
	repo := repositories.NewUserRepository()

	err := repo.SetRecoveryToken(db, "missing-id", "digest", time.Now().Add(time.Minute))
	assert.ErrorIs(t, err, repositories.ErrUserNotFound)
}

func TestUserRepository_ClearRecoveryToken(t *testing.T) {
	db := newTestDB(t)
	repo := repositories.NewUserRepository()
	user := createTestUser(t, db, "clear@test.com", models.RoleUser)

	digest := "digest-clear"
	require.NoError(t, repo.SetRecoveryToken(db, user.ID, digest, time.Now().Add(20*time.Minute)))
	require.NoError(t, repo.ClearRecoveryToken(db, user.ID, digest))

	_, err := repo.FindByRecoveryDigest(db, digest, time.Now())
	assert.ErrorIs(t, err, repositories.ErrUserNotFound)

	// Пара уже изменена - чистить нечего, но это не ошибка
	assert.NoError(t, repo.ClearRecoveryToken(db, user.ID, "stale-digest"))
}

func TestUserRepository_ConsumeRecoveryToken(t *testing.T) {
	db := newTestDB(t)
	repo := repositories.NewUserRepository()
	user := createTestUser(t, db, "consume@test.com", models.RoleUser)
	oldHash := user.PasswordHash

	digest := "digest-consume"
	require.NoError(t, repo.SetRecoveryToken(db, user.ID, digest, time.Now().Add(20*time.Minute)))

	target, err := repo.FindByRecoveryDigest(db, digest, time.Now())
	require.NoError(t, err)

	require.NoError(t, repo.ConsumeRecoveryToken(db, target, digest, "new_password456"))

	stored, err := repo.FindByID(db, user.ID)
	require.NoError(t, err)

	// Пароль сменился и захеширован, пара очищена
	assert.NotEqual(t, oldHash, stored.PasswordHash)
	ok, err := stored.CheckPassword("new_password456")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, stored.ForgotPasswordToken)
	assert.Nil(t, stored.ForgotPasswordExpiry)

	// Повторное погашение того же токена
	hashBeforeReplay := stored.PasswordHash
	err = repo.ConsumeRecoveryToken(db, stored, digest, "yet_another_pass")
	assert.ErrorIs(t, err, repositories.ErrRecoveryTokenConsumed)

	// Отказ не трогает ни структуру в памяти, ни строку в БД
	assert.Equal(t, hashBeforeReplay, stored.PasswordHash, "повтор не должен менять хеш в памяти")
	ok, err = stored.CheckPassword("new_password456")
	require.NoError(t, err)
	assert.True(t, ok, "повтор не должен менять пароль")

	inDB, err := repo.FindByID(db, user.ID)
	require.NoError(t, err)
	assert.Equal(t, hashBeforeReplay, inDB.PasswordHash)
}

func TestUserRepository_Delete(t *testing.T) {
	db := newTestDB(t)
	repo := repositories.NewUserRepository()
	user := createTestUser(t, db, "delete@test.com", models.RoleUser)

	require.NoError(t, repo.Delete(db, user.ID))
	_, err := repo.FindByID(db, user.ID)
	assert.ErrorIs(t, err, repositories.ErrUserNotFound)

	assert.ErrorIs(t, repo.Delete(db, user.ID), repositories.ErrUserNotFound)
}

func TestUserRepository_FindByRoleAndCount(t *testing.T) {
	db := newTestDB(t)
	repo := repositories.NewUserRepository()

	createTestUser(t, db, "u1@test.com", models.RoleUser)
	createTestUser(t, db, "u2@test.com", models.RoleUser)
	createTestUser(t, db, "m1@test.com", models.RoleManager)
	createTestUser(t, db, "a1@test.com", models.RoleAdmin)

	users, err := repo.FindByRole(db, models.RoleUser)
	require.NoError(t, err)
	assert.Len(t, users, 2)
	for _, u := range users {
		assert.Equal(t, models.RoleUser, u.Role)
	}

	all, err := repo.FindAll(db)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	count, err := repo.CountAll(db)
	require.NoError(t, err)
	assert.EqualValues(t, 4, count)
}
