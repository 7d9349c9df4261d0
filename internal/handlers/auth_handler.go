package handlers

import (
	"net/http"
	"time"

	"tstore_backend/internal/logger"
	"tstore_backend/internal/middleware"
	"tstore_backend/internal/models"
	"tstore_backend/internal/services"
	"tstore_backend/internal/services/dto"
	"tstore_backend/internal/validator"
	"tstore_backend/pkg/apperrors"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	*BaseHandler
	authService services.AuthService
}

func NewAuthHandler(authService services.AuthService, v *validator.Validator) *AuthHandler {
	return &AuthHandler{
		BaseHandler: NewBaseHandler(v),
		authService: authService,
	}
}

func (h *AuthHandler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	rg.POST("/signup", h.Signup)
	rg.POST("/login", h.Login)
	rg.GET("/logout", h.Logout)
	rg.POST("/password/forgot", h.ForgotPassword)
	rg.POST("/password/reset/:token", h.ResetPassword)

	secured := rg.Group("")
	secured.Use(authMW)
	secured.POST("/password/update", h.ChangePassword)
}

// attachSession кладет сессионный токен в HttpOnly-куку;
// срок куки совпадает со сроком самого токена
func attachSession(c *gin.Context, session *services.Session) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    session.Token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
	})
}

// clearSession перезаписывает куку уже истекшей
func clearSession(c *gin.Context) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
	})
}

func sessionResponse(c *gin.Context, status int, user *models.User, session *services.Session) {
	attachSession(c, session)
	c.JSON(status, gin.H{
		"success": true,
		"token":   session.Token,
		"user":    user,
	})
}

// Signup регистрирует пользователя (multipart: поля формы + файл photo)
func (h *AuthHandler) Signup(c *gin.Context) {
	var req dto.SignupRequest
	if !h.BindAndValidate(c, &req) {
		return
	}

	photo, file, err := photoFromForm(c)
	if err != nil {
		apperrors.HandleError(c, apperrors.NewBadRequestError("Invalid photo upload: "+err.Error()))
		return
	}
	if photo == nil {
		apperrors.HandleError(c, apperrors.NewBadRequestError("Photo is required"))
		return
	}
	defer file.Close()

	user, session, err := h.authService.Signup(c.Request.Context(), h.GetDB(c), &req, photo)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	logger.CtxInfo(c.Request.Context(), "User signed up", "user_id", user.ID, "email", user.Email)
	sessionResponse(c, http.StatusCreated, user, session)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if !h.BindAndValidate(c, &req) {
		return
	}

	user, session, err := h.authService.Login(h.GetDB(c), &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	logger.CtxInfo(c.Request.Context(), "User logged in", "user_id", user.ID)
	sessionResponse(c, http.StatusOK, user, session)
}

// Logout стейтлесс: сервер только гасит куку, токен не отзывается
func (h *AuthHandler) Logout(c *gin.Context) {
	clearSession(c)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Logout success",
	})
}

func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req dto.ForgotPasswordRequest
	if !h.BindAndValidate(c, &req) {
		return
	}

	err := h.authService.ForgotPassword(c.Request.Context(), h.GetDB(c), req.Email, requestBaseURL(c))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Email sent successfully",
	})
}

func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req dto.ResetPasswordRequest
	if !h.BindAndValidate(c, &req) {
		return
	}

	user, session, err := h.authService.ResetPassword(h.GetDB(c), c.Param("token"), &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	logger.CtxInfo(c.Request.Context(), "Password reset", "user_id", user.ID)
	sessionResponse(c, http.StatusOK, user, session)
}

func (h *AuthHandler) ChangePassword(c *gin.Context) {
	user, ok := h.RequireCurrentUser(c)
	if !ok {
		return
	}

	var req dto.ChangePasswordRequest
	if !h.BindAndValidate(c, &req) {
		return
	}

	session, err := h.authService.ChangePassword(h.GetDB(c), user, &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	logger.CtxInfo(c.Request.Context(), "Password changed", "user_id", user.ID)
	sessionResponse(c, http.StatusOK, user, session)
}
