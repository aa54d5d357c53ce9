package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/training-workflow-service/internal/models"
	"github.com/SAP-F-2025/training-workflow-service/internal/utils"
)

const (
	HeaderUserID    = "X-User-ID"
	HeaderUserRole  = "X-User-Role"
	HeaderUserName  = "X-User-Name"
	HeaderUserEmail = "X-User-Email"
)

// Registrar records identities seen at the edge so they can be assigned later.
type Registrar interface {
	Register(user *models.User)
}

// HeaderAuthMiddleware trusts identity headers set by an authenticating
// gateway. It must only be deployed behind one.
type HeaderAuthMiddleware struct {
	registrar Registrar
	logger    utils.Logger
}

func NewHeaderAuthMiddleware(registrar Registrar, logger utils.Logger) *HeaderAuthMiddleware {
	return &HeaderAuthMiddleware{registrar: registrar, logger: logger}
}

func (ham *HeaderAuthMiddleware) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := strings.TrimSpace(c.GetHeader(HeaderUserID))
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "identity header missing",
			})
			c.Abort()
			return
		}

		role := models.UserRole(strings.ToLower(strings.TrimSpace(c.GetHeader(HeaderUserRole))))
		if !role.IsValid() || role == models.RoleSystem {
			utils.GetLogger(c, ham.logger).Warn("Rejected identity with unusable role", "user_id", userID, "role", role)
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "role header missing or invalid",
			})
			c.Abort()
			return
		}

		user := &models.User{
			ID:       userID,
			FullName: c.GetHeader(HeaderUserName),
			Email:    c.GetHeader(HeaderUserEmail),
			Role:     role,
		}
		if ham.registrar != nil && (role.IsStaff() || role == models.RoleAdmin) {
			ham.registrar.Register(user)
		}

		setUser(c, user)
		c.Next()
	}
}

func (ham *HeaderAuthMiddleware) RequireRoleMiddleware(requiredRoles ...models.UserRole) gin.HandlerFunc {
	return requireRole(requiredRoles...)
}
