package services

import (
	"context"
	"io"

	"github.com/SAP-F-2025/training-workflow-service/internal/models"
	"github.com/SAP-F-2025/training-workflow-service/internal/repositories"
	"github.com/SAP-F-2025/training-workflow-service/internal/workflow"
)

// ===== REQUEST/RESPONSE DTOs =====

type ListUidsRequest struct {
	Status *models.UidStatus
	Limit  int
	Offset int
}

type ListStudentsRequest struct {
	Status *models.StudentStatus
	UID    *string
}

type UserListResponse struct {
	Users []*models.User `json:"users"`
	Total int64          `json:"total"`
}

// ===== SERVICE INTERFACES =====

// UidService owns the UID lifecycle. Every status change goes through the
// transition engine; successful mutations publish exactly one event after commit.
type UidService interface {
	Create(ctx context.Context, actor models.Actor, req *models.CreateUidRequest) (*models.UidRecord, error)
	Get(ctx context.Context, actor models.Actor, uid string) (*models.UidRecord, error)
	List(ctx context.Context, actor models.Actor, req ListUidsRequest) (*models.UidListResponse, error)
	UpdateStatus(ctx context.Context, actor models.Actor, uid string, status models.UidStatus) (*models.UidRecord, error)
	Delete(ctx context.Context, actor models.Actor, uid string) error
	SetAssignment(ctx context.Context, actor models.Actor, uid string, req *models.SetAssignmentRequest) (*models.UidRecord, error)
	History(ctx context.Context, actor models.Actor, uid string) ([]*models.StatusHistory, error)

	// Named workflow actions
	SaveAttendance(ctx context.Context, actor models.Actor, uid string, req *models.DocumentRequest) (*models.UidRecord, error)
	MarkReviewComplete(ctx context.Context, actor models.Actor, uid string) (*models.UidRecord, error)
	SendToModerator(ctx context.Context, actor models.Actor, uid string) (*models.UidRecord, error)
	SaveModeration(ctx context.Context, actor models.Actor, uid string, req *models.DocumentRequest) (*models.UidRecord, error)
	SendToAdmin(ctx context.Context, actor models.Actor, uid string) (*models.UidRecord, error)
	Approve(ctx context.Context, actor models.Actor, uid string) (*models.UidRecord, error)
	GetDocument(ctx context.Context, actor models.Actor, uid string, kind models.DocumentKind) (*models.Document, error)
}

type StudentService interface {
	// Submit is the public learner form submission; it needs no actor.
	Submit(ctx context.Context, uid string, req *models.CreateStudentRequest) (*models.Student, error)
	UpdateStatus(ctx context.Context, actor models.Actor, uid, studentID string, status models.StudentStatus) (*models.Student, error)
	List(ctx context.Context, actor models.Actor, req ListStudentsRequest) (*models.StudentListResponse, error)
}

type DashboardService interface {
	// GetStats recomputes the snapshot over the UIDs visible to actor.
	GetStats(ctx context.Context, actor models.Actor) (*models.StatsSnapshot, error)
}

type UserService interface {
	List(ctx context.Context, filters repositories.UserFilters) (*UserListResponse, error)
}

type ExportService interface {
	// ExportUids writes an XLSX workbook with a UIDs sheet and a Students sheet.
	ExportUids(ctx context.Context, actor models.Actor, w io.Writer) error
}

// ===== SERVICE MANAGER =====

type ServiceManager interface {
	Uid() UidService
	Student() StudentService
	Dashboard() DashboardService
	User() UserService
	Export() ExportService

	// Visibility is the assignment filter the services apply.
	Visibility() workflow.Visibility

	// Health and lifecycle
	Initialize(ctx context.Context) error
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
