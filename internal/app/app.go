package app

import (
	"errors"
	"fmt"
	"time"

	"tstore_backend/internal/auth"
	"tstore_backend/internal/config"
	"tstore_backend/internal/email"
	"tstore_backend/internal/handlers"
	"tstore_backend/internal/logger"
	"tstore_backend/internal/middleware"
	"tstore_backend/internal/models"
	"tstore_backend/internal/repositories"
	"tstore_backend/internal/routes"
	"tstore_backend/internal/services"
	"tstore_backend/internal/storage"
	"tstore_backend/internal/validator"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func Run() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	logger.Init(cfg.Server.Env)
	logger.Info("Logger initialized", "env", cfg.Server.Env)

	logger.Info("Connecting to database...")
	gormDB, err := gorm.Open(postgres.Open(cfg.Database.DSN), &gorm.Config{})
	if err != nil {
		logger.Fatal("Failed to connect to GORM", "error", err)
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		logger.Fatal("Failed to get *sql.DB from GORM", "error", err)
	}
	if err = sqlDB.Ping(); err != nil {
		logger.Fatal("Database unavailable", "error", err)
	}
	logger.Info("Database connected")

	if err := gormDB.AutoMigrate(&models.User{}); err != nil {
		logger.Fatal("Failed to run migrations", "error", err)
	}

	if err := seedFirstAdmin(gormDB, cfg); err != nil {
		logger.Fatal("Failed to seed first admin user", "error", err)
	}

	ginRouter, err := SetupRouter(cfg, gormDB)
	if err != nil {
		logger.Fatal("Failed to set up router", "error", err)
	}

	address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	logger.Info("Server starting", "address", address)
	if err := ginRouter.Run(address); err != nil {
		logger.Fatal("Server startup error", "error", err)
	}
}

// SetupRouter собирает полностью готовый *gin.Engine.
// Вынесен отдельно от Run, чтобы тесты могли поднять приложение
// поверх собственной БД и mock-почты.
func SetupRouter(cfg *config.Config, gormDB *gorm.DB) (*gin.Engine, error) {
	emailProvider, err := buildEmailProvider(cfg)
	if err != nil {
		return nil, fmt.Errorf("email provider: %w", err)
	}
	return SetupRouterWithEmail(cfg, gormDB, emailProvider)
}

func SetupRouterWithEmail(cfg *config.Config, gormDB *gorm.DB, emailProvider email.Provider) (*gin.Engine, error) {
	blobStorage, err := storage.NewStorage(storage.Config{
		Type:      cfg.Storage.Type,
		BasePath:  cfg.Storage.BasePath,
		BaseURL:   cfg.Storage.BaseURL,
		Bucket:    cfg.Storage.Bucket,
		Region:    cfg.Storage.Region,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		Endpoint:  cfg.Storage.Endpoint,
	})
	if err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}
	logger.Info("Storage initialized", "type", cfg.Storage.Type)

	tokens, err := auth.NewTokenManager(cfg.JWT.Secret, time.Duration(cfg.JWT.TTL)*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("token manager: %w", err)
	}

	userRepo := repositories.NewUserRepository()

	authService := services.NewAuthService(
		userRepo,
		emailProvider,
		tokens,
		blobStorage,
		time.Duration(cfg.Recovery.TokenTTL)*time.Minute,
	)
	userService := services.NewUserService(userRepo, blobStorage)

	customValidator := validator.New()
	appHandlers := &handlers.AppHandlers{
		Auth: handlers.NewAuthHandler(authService, customValidator),
		User: handlers.NewUserHandler(userService, customValidator),
	}

	ginRouter := initializeGinRouter(gormDB)

	authMW := middleware.AuthMiddleware(tokens, userRepo)
	routes.SetupRoutes(ginRouter, appHandlers, authMW)

	return ginRouter, nil
}

func buildEmailProvider(cfg *config.Config) (email.Provider, error) {
	if cfg.Email.SMTPHost == "" {
		logger.Warn("SMTP host is not configured. Using mock email provider.")
		return &MockEmailProvider{}, nil
	}
	return email.NewSMTPProvider(email.SMTPConfig{
		Host:      cfg.Email.SMTPHost,
		Port:      cfg.Email.SMTPPort,
		Username:  cfg.Email.SMTPUsername,
		Password:  cfg.Email.SMTPPassword,
		FromEmail: cfg.Email.FromEmail,
		FromName:  cfg.Email.FromName,
		Timeout:   time.Duration(cfg.Email.TimeoutSec) * time.Second,
	})
}

func initializeGinRouter(db *gorm.DB) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggingMiddleware())
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.DBMiddleware(db))
	return router
}

func seedFirstAdmin(db *gorm.DB, cfg *config.Config) error {
	adminEmail := cfg.FirstAdminEmail
	adminPassword := cfg.FirstAdminPassword

	if adminEmail == "" || adminPassword == "" {
		logger.Warn("First admin credentials are not set. Skipping admin seeding.")
		return nil
	}

	var existing models.User
	result := db.Where("email = ?", adminEmail).First(&existing)
	if result.Error == nil {
		logger.Info("Admin user already exists. Skipping creation.", "email", adminEmail)
		return nil
	}
	if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to check for admin user: %w", result.Error)
	}

	logger.Warn("No admin user found. Creating first admin...", "email", adminEmail)

	newAdmin := &models.User{
		Name:     "Administrator",
		Email:    adminEmail,
		Role:     models.RoleAdmin,
		Password: adminPassword, // хешируется в BeforeSave
	}
	if err := db.Create(newAdmin).Error; err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}

	logger.Info("Successfully created first admin user", "email", adminEmail)
	return nil
}
