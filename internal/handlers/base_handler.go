package handlers

import (
	"mime/multipart"
	"net/http"

	"tstore_backend/internal/logger"
	"tstore_backend/internal/middleware"
	"tstore_backend/internal/models"
	"tstore_backend/internal/services"
	"tstore_backend/internal/validator"
	"tstore_backend/pkg/apperrors"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type BaseHandler struct {
	validator *validator.Validator
}

func NewBaseHandler(v *validator.Validator) *BaseHandler {
	return &BaseHandler{
		validator: v,
	}
}

// GetDB извлекает *gorm.DB (пул или транзакцию) из gin.Context
func (h *BaseHandler) GetDB(c *gin.Context) *gorm.DB {
	return middleware.GetDB(c)
}

// BindAndValidate привязывает тело запроса (JSON или form) и валидирует DTO
func (h *BaseHandler) BindAndValidate(c *gin.Context, obj interface{}) bool {
	ctx := c.Request.Context()

	if err := c.ShouldBind(obj); err != nil {
		logger.CtxWithError(ctx, "Failed to bind request body", err, "path", c.Request.URL.Path)
		apperrors.HandleError(c, apperrors.NewBadRequestError("Invalid request body: "+err.Error()))
		return false
	}

	if err := h.validator.Validate(obj); err != nil {
		if vErr, ok := err.(*validator.ValidationError); ok {
			logger.CtxWarn(ctx, "Validation failed", "errors", vErr.Errors, "path", c.Request.URL.Path)
			apperrors.HandleError(c, apperrors.ValidationError(vErr.Errors))
		} else {
			logger.CtxWithError(ctx, "Internal validator error", err, "path", c.Request.URL.Path)
			apperrors.HandleError(c, apperrors.InternalError(err))
		}
		return false
	}
	return true
}

// HandleServiceError - единый путь ошибок сервисного слоя в HTTP-ответ
func (h *BaseHandler) HandleServiceError(c *gin.Context, err error) {
	ctx := c.Request.Context()

	var appErr *apperrors.AppError
	if apperrors.As(err, &appErr) {
		logger.CtxWarn(ctx, "Service error",
			"error", appErr.Message,
			"code", string(appErr.Code),
			"path", c.Request.URL.Path,
		)
		apperrors.HandleError(c, appErr)
	} else {
		logger.CtxWithError(ctx, "Internal server error", err, "path", c.Request.URL.Path)
		apperrors.HandleError(c, apperrors.InternalError(err))
	}
}

// RequireCurrentUser достает пользователя, положенного AuthMiddleware.
// Хендлеры под auth-группой всегда должны его находить.
func (h *BaseHandler) RequireCurrentUser(c *gin.Context) (*models.User, bool) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		apperrors.HandleError(c, apperrors.PreconditionViolation("current user missing in authenticated request"))
		return nil, false
	}
	return user, true
}

// photoFromForm открывает файл photo из multipart-запроса.
// (nil, nil, nil) - файла в запросе нет; закрыть файл обязан вызывающий.
func photoFromForm(c *gin.Context) (*services.PhotoUpload, multipart.File, error) {
	fh, err := c.FormFile("photo")
	if err != nil {
		if err == http.ErrMissingFile {
			return nil, nil, nil
		}
		return nil, nil, err
	}

	file, err := fh.Open()
	if err != nil {
		return nil, nil, err
	}

	return &services.PhotoUpload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Reader:      file,
	}, file, nil
}

// requestBaseURL восстанавливает scheme://host запроса для ссылок в письмах
func requestBaseURL(c *gin.Context) string {
	scheme := "http"
	if c.Request.TLS != nil || c.GetHeader("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return scheme + "://" + c.Request.Host
}
