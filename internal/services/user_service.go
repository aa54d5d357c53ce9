package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/SAP-F-2025/training-workflow-service/internal/repositories"
)

const (
	defaultUserPageSize = 50
	maxUserPageSize     = 200
)

type userService struct {
	repo   repositories.Repository
	logger *slog.Logger
}

func NewUserService(repo repositories.Repository, logger *slog.Logger) UserService {
	return &userService{repo: repo, logger: logger}
}

// List reads the identity directory, used by admins to pick assessors and
// moderators for a binding.
func (s *userService) List(ctx context.Context, filters repositories.UserFilters) (*UserListResponse, error) {
	if filters.Limit <= 0 {
		filters.Limit = defaultUserPageSize
	}
	if filters.Limit > maxUserPageSize {
		filters.Limit = maxUserPageSize
	}
	if filters.Offset < 0 {
		filters.Offset = 0
	}

	var err error
	resp := &UserListResponse{}
	if filters.Query != "" {
		resp.Users, resp.Total, err = s.repo.User().Search(ctx, filters.Query, filters)
	} else {
		resp.Users, resp.Total, err = s.repo.User().List(ctx, filters)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return resp, nil
}
