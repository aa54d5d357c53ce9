package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"
	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/training-workflow-service/internal/models"
	"github.com/SAP-F-2025/training-workflow-service/internal/repositories"
	"github.com/SAP-F-2025/training-workflow-service/internal/repositories/casdoor"
	"github.com/SAP-F-2025/training-workflow-service/internal/utils"
)

// directoryRefresher is implemented by user directories that cache entries.
type directoryRefresher interface {
	Refresh(ctx context.Context, id string) (*models.User, error)
}

// jwtParser is the part of the Casdoor client that verifies bearer tokens.
type jwtParser interface {
	ParseJwtToken(token string) (*casdoorsdk.Claims, error)
}

// CasdoorAuthMiddleware provides authentication using Casdoor SDK
type CasdoorAuthMiddleware struct {
	parser   jwtParser
	userRepo repositories.UserRepository
	logger   utils.Logger
}

// NewCasdoorAuthMiddleware creates a new Casdoor authentication middleware
func NewCasdoorAuthMiddleware(cfg casdoor.CasdoorConfig, userRepo repositories.UserRepository, logger utils.Logger) *CasdoorAuthMiddleware {
	client := casdoorsdk.NewClient(
		cfg.Endpoint,
		cfg.ClientID,
		cfg.ClientSecret,
		cfg.Certificate,
		cfg.OrganizationName,
		cfg.ApplicationName,
	)

	return newCasdoorAuthMiddleware(client, userRepo, logger)
}

func newCasdoorAuthMiddleware(parser jwtParser, userRepo repositories.UserRepository, logger utils.Logger) *CasdoorAuthMiddleware {
	return &CasdoorAuthMiddleware{
		parser:   parser,
		userRepo: userRepo,
		logger:   logger,
	}
}

// AuthMiddleware returns a Gin middleware function for Casdoor authentication
func (cam *CasdoorAuthMiddleware) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "authorization header missing or malformed",
			})
			c.Abort()
			return
		}

		claims, err := cam.parser.ParseJwtToken(token)
		if err != nil {
			utils.GetLogger(c, cam.logger).Debug("Rejected bearer token", "error", err)
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": fmt.Sprintf("invalid token: %v", err),
			})
			c.Abort()
			return
		}

		user, err := cam.extractUserFromClaims(c.Request.Context(), claims)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": fmt.Sprintf("failed to extract user info: %v", err),
			})
			c.Abort()
			return
		}
		if user.Role == models.RoleSystem || !user.Role.IsValid() {
			c.JSON(http.StatusForbidden, gin.H{
				"error":   "forbidden",
				"message": "account has no workflow role",
			})
			c.Abort()
			return
		}

		setUser(c, user)
		c.Next()
	}
}

// RequireRoleMiddleware checks if user has required role
func (cam *CasdoorAuthMiddleware) RequireRoleMiddleware(requiredRoles ...models.UserRole) gin.HandlerFunc {
	return requireRole(requiredRoles...)
}

// bearerToken also accepts ?access_token= so browsers can open the websocket
// and SSE streams, which cannot carry an Authorization header.
func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		token := c.Query("access_token")
		return token, token != ""
	}

	tokenParts := strings.Split(authHeader, " ")
	if len(tokenParts) != 2 || strings.ToLower(tokenParts[0]) != "bearer" || tokenParts[1] == "" {
		return "", false
	}
	return tokenParts[1], true
}

// extractUserFromClaims prefers the directory entry, which carries the role
// assignment, and falls back to the account embedded in the token.
func (cam *CasdoorAuthMiddleware) extractUserFromClaims(ctx context.Context, claims *casdoorsdk.Claims) (*models.User, error) {
	userID := claims.User.Id
	if userID == "" {
		return nil, fmt.Errorf("invalid user ID in token")
	}

	user, err := cam.userRepo.GetByID(ctx, userID)
	if err == nil {
		return cam.reconcileRole(ctx, user, claims), nil
	}
	cam.logger.Debug("Directory lookup failed, using token claims", "user_id", userID, "error", err)

	user = casdoor.ToUser(&claims.User)
	if user == nil {
		return nil, fmt.Errorf("failed to create user from claims")
	}
	user.ID = userID
	return user, nil
}

// reconcileRole re-reads a cached directory entry when the token asserts a
// different role, e.g. after a role change in Casdoor.
func (cam *CasdoorAuthMiddleware) reconcileRole(ctx context.Context, user *models.User, claims *casdoorsdk.Claims) *models.User {
	if !claims.User.IsAdmin && len(claims.User.Roles) == 0 && claims.User.Type == "" {
		return user
	}
	if casdoor.PrimaryRole(&claims.User) == user.Role {
		return user
	}

	refresher, ok := cam.userRepo.(directoryRefresher)
	if !ok {
		return user
	}

	fresh, err := refresher.Refresh(ctx, user.ID)
	if err != nil {
		cam.logger.Warn("Failed to refresh directory entry", "user_id", user.ID, "error", err)
		return user
	}
	cam.logger.Info("Directory entry refreshed", "user_id", user.ID, "old_role", user.Role, "new_role", fresh.Role)
	return fresh
}
