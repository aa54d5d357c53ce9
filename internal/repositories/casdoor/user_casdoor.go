package casdoor

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"

	"github.com/SAP-F-2025/training-workflow-service/internal/cache"
	"github.com/SAP-F-2025/training-workflow-service/internal/models"
	"github.com/SAP-F-2025/training-workflow-service/internal/repositories"
)

// CasdoorConfig holds the configuration for Casdoor connection
type CasdoorConfig struct {
	Endpoint         string
	ClientID         string
	ClientSecret     string
	Certificate      string
	OrganizationName string
	ApplicationName  string
}

// directoryClient is the slice of the Casdoor SDK the staff directory uses.
type directoryClient interface {
	GetUserByUserId(userId string) (*casdoorsdk.User, error)
	GetPaginationUsers(p int, pageSize int, queryMap map[string]string) ([]*casdoorsdk.User, int, error)
}

type UserCasdoor struct {
	client directoryClient
	cache  *cache.CacheManager
}

func NewUserCasdoor(config CasdoorConfig, cacheManager *cache.CacheManager) repositories.UserRepository {
	client := casdoorsdk.NewClient(
		config.Endpoint,
		config.ClientID,
		config.ClientSecret,
		config.Certificate,
		config.OrganizationName,
		config.ApplicationName,
	)
	return newUserCasdoor(client, cacheManager)
}

func newUserCasdoor(client directoryClient, cacheManager *cache.CacheManager) *UserCasdoor {
	if cacheManager == nil {
		cacheManager = cache.NewCacheManager(nil)
	}
	return &UserCasdoor{client: client, cache: cacheManager}
}

// ===== CONVERSION METHODS =====

// ToUser converts a Casdoor account to the directory model
func ToUser(casdoorUser *casdoorsdk.User) *models.User {
	if casdoorUser == nil {
		return nil
	}

	var createdAt, updatedAt time.Time
	if casdoorUser.CreatedTime != "" {
		createdAt, _ = time.Parse(time.RFC3339, casdoorUser.CreatedTime)
	}
	if casdoorUser.UpdatedTime != "" {
		updatedAt, _ = time.Parse(time.RFC3339, casdoorUser.UpdatedTime)
	}

	var avatar *string
	if casdoorUser.Avatar != "" {
		avatar = &casdoorUser.Avatar
	}

	return &models.User{
		ID:            casdoorUser.Id,
		FullName:      casdoorUser.DisplayName,
		Email:         casdoorUser.Email,
		Role:          PrimaryRole(casdoorUser),
		AvatarURL:     avatar,
		EmailVerified: casdoorUser.EmailVerified,
		CreatedAt:     createdAt,
		UpdatedAt:     updatedAt,
	}
}

// PrimaryRole collapses a Casdoor account's roles to the single workflow role
// it acts under. Admin wins over everything; moderator wins over assessor.
func PrimaryRole(casdoorUser *casdoorsdk.User) models.UserRole {
	if casdoorUser.IsAdmin {
		return models.RoleAdmin
	}

	roles := make([]models.UserRole, 0, len(casdoorUser.Roles)+1)
	for _, r := range casdoorUser.Roles {
		roles = append(roles, MapRole(r.Name))
	}
	if casdoorUser.Type != "" {
		roles = append(roles, MapRole(casdoorUser.Type))
	}

	for _, preferred := range []models.UserRole{models.RoleAdmin, models.RoleModerator, models.RoleAssessor} {
		if slices.Contains(roles, preferred) {
			return preferred
		}
	}
	return models.RoleLearner
}

// MapRole maps a Casdoor role or user type name to a workflow role
func MapRole(name string) models.UserRole {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "admin", "administrator":
		return models.RoleAdmin
	case "moderator", "iqa":
		return models.RoleModerator
	case "assessor", "trainer", "teacher", "instructor":
		return models.RoleAssessor
	default:
		return models.RoleLearner
	}
}

// ===== BASIC READ OPERATIONS =====

// GetByID retrieves a user by ID
func (u *UserCasdoor) GetByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := u.cache.User.CacheOrExecute(ctx, fmt.Sprintf("id:%s", id), &user, cache.UserCacheConfig.TTL, func() (interface{}, error) {
		casdoorUser, err := u.client.GetUserByUserId(id)
		if err != nil {
			return nil, fmt.Errorf("failed to get user from Casdoor: %w", err)
		}
		if casdoorUser == nil {
			return nil, fmt.Errorf("user %s: %w", id, repositories.ErrNotFound)
		}
		return ToUser(casdoorUser), nil
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByIDs retrieves multiple users by their IDs; unknown IDs are skipped
func (u *UserCasdoor) GetByIDs(ctx context.Context, ids []string) ([]*models.User, error) {
	users := make([]*models.User, 0, len(ids))
	for _, id := range ids {
		user, err := u.GetByID(ctx, id)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				continue
			}
			return nil, err
		}
		users = append(users, user)
	}
	return users, nil
}

// ===== VALIDATION AND CHECKS =====

// ExistsByID checks if a user exists by ID
func (u *UserCasdoor) ExistsByID(ctx context.Context, id string) (bool, error) {
	cacheKey := fmt.Sprintf("id:%s", id)
	if cached, err := u.cache.Exists.GetString(ctx, cacheKey); err == nil {
		return cached == "true", nil
	}

	_, err := u.GetByID(ctx, id)
	if err != nil && !repositories.IsNotFoundError(err) {
		return false, fmt.Errorf("failed to check user existence: %w", err)
	}
	exists := err == nil

	_ = u.cache.Exists.SetString(ctx, cacheKey, fmt.Sprintf("%t", exists), cache.ExistsCacheConfig.TTL)
	return exists, nil
}

// HasRole checks if a user acts under a specific role
func (u *UserCasdoor) HasRole(ctx context.Context, id string, role models.UserRole) (bool, error) {
	user, err := u.GetByID(ctx, id)
	if err != nil {
		return false, err
	}
	return role == user.Role, nil
}

// ===== LIST AND SEARCH OPERATIONS =====

// List retrieves a paginated list of users with optional filters
func (u *UserCasdoor) List(ctx context.Context, filters repositories.UserFilters) ([]*models.User, int64, error) {
	if filters.Limit <= 0 {
		filters.Limit = 10
	}
	if filters.Limit > 100 {
		filters.Limit = 100
	}

	// Casdoor pages are 1-indexed
	page := (filters.Offset / filters.Limit) + 1

	queryMap := make(map[string]string)
	if filters.Query != "" {
		queryMap["field"] = "email"
		queryMap["value"] = filters.Query
	}

	casdoorUsers, count, err := u.client.GetPaginationUsers(page, filters.Limit, queryMap)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get users from Casdoor: %w", err)
	}

	users := make([]*models.User, 0, len(casdoorUsers))
	for _, casdoorUser := range casdoorUsers {
		user := ToUser(casdoorUser)
		if user == nil {
			continue
		}
		// Role is derived locally, so the page filter happens here
		if filters.Role != nil && user.Role != *filters.Role {
			continue
		}
		users = append(users, user)
		_ = u.cache.User.Set(ctx, fmt.Sprintf("id:%s", user.ID), user, cache.UserCacheConfig.TTL)
	}

	total := int64(count)
	if filters.Role != nil {
		total = int64(len(users))
	}
	return users, total, nil
}

// Search searches for users by query string
func (u *UserCasdoor) Search(ctx context.Context, query string, filters repositories.UserFilters) ([]*models.User, int64, error) {
	filters.Query = query
	return u.List(ctx, filters)
}

// Refresh drops the cached entry for id and reads it from Casdoor again.
func (u *UserCasdoor) Refresh(ctx context.Context, id string) (*models.User, error) {
	cache.InvalidateUserCache(ctx, u.cache, id)
	return u.GetByID(ctx, id)
}
