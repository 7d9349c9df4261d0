package middleware

import (
	"strings"

	"tstore_backend/internal/auth"
	"tstore_backend/internal/logger"
	"tstore_backend/internal/models"
	"tstore_backend/internal/repositories"
	"tstore_backend/pkg/apperrors"
	"tstore_backend/pkg/contextkeys"

	"github.com/gin-gonic/gin"
)

// SessionCookieName - имя сессионной куки
const SessionCookieName = "token"

// extractCredential достает сессионный токен из запроса:
// сначала кука, затем заголовок Authorization с префиксом Bearer
func extractCredential(c *gin.Context) string {
	if cookie, err := c.Cookie(SessionCookieName); err == nil && cookie != "" {
		return cookie
	}

	authHeader := c.GetHeader("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}

	return ""
}

// AuthMiddleware проверяет подпись, срок и существование аккаунта.
// Токен на удаленный аккаунт не принимаем, даже если подпись валидна.
// Разрешенный пользователь кладется в контекст запроса.
func AuthMiddleware(tokens *auth.TokenManager, userRepo repositories.UserRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := extractCredential(c)
		if tokenStr == "" {
			apperrors.HandleError(c, apperrors.NewUnauthorizedError("Login first to access this resource"))
			c.Abort()
			return
		}

		claims, err := tokens.Parse(tokenStr)
		if err != nil {
			apperrors.HandleError(c, apperrors.NewUnauthorizedError("Invalid or expired token"))
			c.Abort()
			return
		}

		db := GetDB(c)
		user, err := userRepo.FindByID(db, claims.UserID)
		if err != nil {
			apperrors.HandleError(c, apperrors.NewUnauthorizedError("Invalid or expired token"))
			c.Abort()
			return
		}

		c.Set("userID", user.ID)
		c.Set("role", user.Role)
		c.Set(contextkeys.CurrentUserKey, user)

		ctx := logger.WithUserID(c.Request.Context(), user.ID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// RequireRoles должен стоять ПОСЛЕ AuthMiddleware:
// отсутствие identity в контексте - ошибка порядка middleware,
// а не обычный auth-отказ.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		roleVal, exists := c.Get("role")
		if !exists {
			logger.CtxError(c.Request.Context(), "RequireRoles called without authenticated identity", "path", c.Request.URL.Path)
			apperrors.HandleError(c, apperrors.PreconditionViolation("RequireRoles invoked before AuthMiddleware"))
			c.Abort()
			return
		}

		role, ok := roleVal.(models.UserRole)
		if !ok {
			apperrors.HandleError(c, apperrors.PreconditionViolation("Role in context has invalid type"))
			c.Abort()
			return
		}

		if !models.RoleAllowed(role, roles...) {
			apperrors.HandleError(c, apperrors.NewForbiddenError("You are not allowed for this resource"))
			c.Abort()
			return
		}

		c.Next()
	}
}

// CurrentUser извлекает разрешенного пользователя из контекста запроса
func CurrentUser(c *gin.Context) (*models.User, bool) {
	val, exists := c.Get(contextkeys.CurrentUserKey)
	if !exists {
		return nil, false
	}

	user, ok := val.(*models.User)
	return user, ok
}
