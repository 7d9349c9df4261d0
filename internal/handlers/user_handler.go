package handlers

import (
	"net/http"

	"tstore_backend/internal/logger"
	"tstore_backend/internal/middleware"
	"tstore_backend/internal/models"
	"tstore_backend/internal/services"
	"tstore_backend/internal/services/dto"
	"tstore_backend/internal/validator"
	"tstore_backend/pkg/apperrors"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	*BaseHandler
	userService services.UserService
}

func NewUserHandler(userService services.UserService, v *validator.Validator) *UserHandler {
	return &UserHandler{
		BaseHandler: NewBaseHandler(v),
		userService: userService,
	}
}

func (h *UserHandler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	secured := rg.Group("")
	secured.Use(authMW)
	secured.GET("/me", h.GetProfile)
	secured.PUT("/me", h.UpdateProfile)

	admin := rg.Group("/admin")
	admin.Use(authMW, middleware.RequireRoles(models.RoleAdmin))
	admin.GET("/users", h.AdminListUsers)
	admin.GET("/users/:id", h.AdminGetUser)
	admin.PUT("/users/:id", h.AdminUpdateUser)
	admin.DELETE("/users/:id", h.AdminDeleteUser)

	manager := rg.Group("/manager")
	manager.Use(authMW, middleware.RequireRoles(models.RoleManager, models.RoleAdmin))
	manager.GET("/users", h.ManagerListUsers)
}

func (h *UserHandler) GetProfile(c *gin.Context) {
	user, ok := h.RequireCurrentUser(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"user":    user,
	})
}

// UpdateProfile меняет имя/почту и опционально фото (multipart)
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	user, ok := h.RequireCurrentUser(c)
	if !ok {
		return
	}

	var req dto.UpdateProfileRequest
	if !h.BindAndValidate(c, &req) {
		return
	}

	photo, file, err := photoFromForm(c)
	if err != nil {
		apperrors.HandleError(c, apperrors.NewBadRequestError("Invalid photo upload: "+err.Error()))
		return
	}
	if file != nil {
		defer file.Close()
	}

	updated, err := h.userService.UpdateProfile(c.Request.Context(), h.GetDB(c), user, &req, photo)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	logger.CtxInfo(c.Request.Context(), "Profile updated", "user_id", updated.ID)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"user":    updated,
	})
}

func (h *UserHandler) AdminListUsers(c *gin.Context) {
	users, err := h.userService.AdminListUsers(h.GetDB(c))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"users":   users,
	})
}

func (h *UserHandler) AdminGetUser(c *gin.Context) {
	user, err := h.userService.GetByID(h.GetDB(c), c.Param("id"))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"user":    user,
	})
}

func (h *UserHandler) AdminUpdateUser(c *gin.Context) {
	var req dto.AdminUpdateUserRequest
	if !h.BindAndValidate(c, &req) {
		return
	}

	user, err := h.userService.AdminUpdateUser(h.GetDB(c), c.Param("id"), &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	logger.CtxInfo(c.Request.Context(), "User updated by admin", "user_id", user.ID)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"user":    user,
	})
}

func (h *UserHandler) AdminDeleteUser(c *gin.Context) {
	if err := h.userService.AdminDeleteUser(c.Request.Context(), h.GetDB(c), c.Param("id")); err != nil {
		h.HandleServiceError(c, err)
		return
	}

	logger.CtxInfo(c.Request.Context(), "User deleted by admin", "user_id", c.Param("id"))
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "User deleted",
	})
}

func (h *UserHandler) ManagerListUsers(c *gin.Context) {
	users, err := h.userService.ManagerListUsers(h.GetDB(c))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"users":   users,
	})
}
