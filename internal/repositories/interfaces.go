package repositories

import (
	"context"

	"github.com/SAP-F-2025/training-workflow-service/internal/models"
)

// ===== SHARED FILTER STRUCTS =====

// UidFilters narrows a UID listing. AssessorID and ModeratorID match the
// assignment bindings; IncludeUnassigned widens them to UIDs with no binding.
type UidFilters struct {
	Status            *models.UidStatus
	AssessorID        *string
	ModeratorID       *string
	IncludeUnassigned bool
	Limit             int
	Offset            int
}

type StudentFilters struct {
	Status *models.StudentStatus
	// UIDs restricts the result to these owners. A non-nil empty slice matches nothing.
	UIDs []string
}

// ===== ENTITY REPOSITORIES =====

type UidRepository interface {
	// NextSeq returns the sequence number the next UID should take.
	NextSeq(ctx context.Context) (int64, error)
	// Create inserts a new record. A taken UID or sequence returns ErrDuplicateKey.
	Create(ctx context.Context, uid *models.UidRecord) error
	GetByUID(ctx context.Context, uid string) (*models.UidRecord, error)
	List(ctx context.Context, filters UidFilters) ([]*models.UidRecord, error)
	Count(ctx context.Context) (int64, error)
	// Update writes the record if its Version still matches the stored one,
	// then bumps Version. A stale Version returns ErrVersionConflict.
	Update(ctx context.Context, uid *models.UidRecord) error
	Delete(ctx context.Context, uid string) error
}

type StudentRepository interface {
	Create(ctx context.Context, student *models.Student) error
	GetByID(ctx context.Context, uid, studentID string) (*models.Student, error)
	ListByUID(ctx context.Context, uid string) ([]*models.Student, error)
	List(ctx context.Context, filters StudentFilters) ([]*models.Student, error)
	// Update follows the same version rule as UidRepository.Update.
	Update(ctx context.Context, student *models.Student) error
	DeleteByUID(ctx context.Context, uid string) (int64, error)
	CountByUID(ctx context.Context, uid string) (int64, error)
}

type DocumentRepository interface {
	Upsert(ctx context.Context, doc *models.Document) error
	Get(ctx context.Context, uid string, kind models.DocumentKind) (*models.Document, error)
	DeleteByUID(ctx context.Context, uid string) (int64, error)
	CountByUID(ctx context.Context, uid string) (int64, error)
}

type StatusHistoryRepository interface {
	Create(ctx context.Context, entry *models.StatusHistory) error
	ListByUID(ctx context.Context, uid string) ([]*models.StatusHistory, error)
	DeleteByUID(ctx context.Context, uid string) (int64, error)
}
