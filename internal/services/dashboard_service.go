package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/SAP-F-2025/training-workflow-service/internal/models"
	"github.com/SAP-F-2025/training-workflow-service/internal/repositories"
	"github.com/SAP-F-2025/training-workflow-service/internal/workflow"
)

// ===== SERVICE IMPLEMENTATION =====

type dashboardService struct {
	repo   repositories.Repository
	engine *engine
	logger *slog.Logger
}

func NewDashboardService(repo repositories.Repository, eng *engine, logger *slog.Logger) DashboardService {
	return &dashboardService{
		repo:   repo,
		engine: eng,
		logger: logger,
	}
}

// GetStats counts what actor can see. Nothing is cached: two viewers with
// different bindings get different snapshots of the same store.
func (s *dashboardService) GetStats(ctx context.Context, actor models.Actor) (*models.StatsSnapshot, error) {
	s.logger.Debug("Getting dashboard stats", "actor_id", actor.ID, "role", actor.Role)

	uids, err := s.engine.visibleUids(ctx, actor, repositories.UidFilters{})
	if err != nil {
		return nil, err
	}

	filters := repositories.StudentFilters{}
	if actor.Role != models.RoleAdmin && actor.Role != models.RoleSystem {
		filters.UIDs = uidKeys(uids)
	}
	students, err := s.repo.Student().List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list students: %w", err)
	}

	stats := workflow.BuildStats(uids, students)
	return &stats, nil
}
