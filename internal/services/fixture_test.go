package services

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/SAP-F-2025/training-workflow-service/internal/events"
	"github.com/SAP-F-2025/training-workflow-service/internal/models"
	"github.com/SAP-F-2025/training-workflow-service/internal/repositories/memory"
	"github.com/SAP-F-2025/training-workflow-service/internal/validator"
)

var (
	admin      = models.Actor{ID: "admin-1", Role: models.RoleAdmin}
	assessor1  = models.Actor{ID: "assessor-1", Role: models.RoleAssessor}
	assessor2  = models.Actor{ID: "assessor-2", Role: models.RoleAssessor}
	moderator1 = models.Actor{ID: "moderator-1", Role: models.RoleModerator}
	moderator2 = models.Actor{ID: "moderator-2", Role: models.RoleModerator}
	learner    = models.Actor{ID: "learner-1", Role: models.RoleLearner}
)

type fixture struct {
	repo      *memory.Repository
	publisher *events.MockEventPublisher
	sm        ServiceManager
}

func newFixture(t *testing.T, legacyOpen bool) *fixture {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	users := memory.NewUserDirectory(
		&models.User{ID: admin.ID, FullName: "Admin", Role: models.RoleAdmin},
		&models.User{ID: assessor1.ID, FullName: "Alice Assessor", Role: models.RoleAssessor},
		&models.User{ID: assessor2.ID, FullName: "Bob Assessor", Role: models.RoleAssessor},
		&models.User{ID: moderator1.ID, FullName: "Mia Moderator", Role: models.RoleModerator},
		&models.User{ID: moderator2.ID, FullName: "Max Moderator", Role: models.RoleModerator},
	)
	repo := memory.NewRepository(users)
	publisher := events.NewMockEventPublisher(logger)

	sm := NewServiceManager(repo, publisher, logger, validator.New(), ServiceManagerConfig{
		MaxRetries:           3,
		LegacyOpenVisibility: legacyOpen,
	})
	require.NoError(t, sm.Initialize(context.Background()))

	return &fixture{repo: repo, publisher: publisher, sm: sm}
}

// createAssigned creates a UID bound to assessor-1 and moderator-1.
func (f *fixture) createAssigned(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	rec, err := f.sm.Uid().Create(ctx, admin, &models.CreateUidRequest{})
	require.NoError(t, err)

	_, err = f.sm.Uid().SetAssignment(ctx, admin, rec.UID, &models.SetAssignmentRequest{
		AssessorID:  strPtr(assessor1.ID),
		ModeratorID: strPtr(moderator1.ID),
	})
	require.NoError(t, err)
	return rec.UID
}

func (f *fixture) submit(t *testing.T, uid, name string) *models.Student {
	t.Helper()
	st, err := f.sm.Student().Submit(context.Background(), uid, form(name))
	require.NoError(t, err)
	return st
}

func (f *fixture) status(t *testing.T, uid string) models.UidStatus {
	t.Helper()
	rec, err := f.sm.Uid().Get(context.Background(), admin, uid)
	require.NoError(t, err)
	return rec.Status
}

func form(name string) *models.CreateStudentRequest {
	return &models.CreateStudentRequest{
		LearnerName: name,
		CompanyName: "Acme Ltd",
		FormData:    json.RawMessage(`{"q1":"yes","q2":"no"}`),
	}
}

func doc() *models.DocumentRequest {
	return &models.DocumentRequest{Data: json.RawMessage(`{"present":["Ada"]}`)}
}

func strPtr(s string) *string { return &s }
