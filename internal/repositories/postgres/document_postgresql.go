package postgres

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/SAP-F-2025/training-workflow-service/internal/models"
	"github.com/SAP-F-2025/training-workflow-service/internal/repositories"
)

type documentPostgreSQL struct {
	db *gorm.DB
}

func NewDocumentPostgreSQL(db *gorm.DB) repositories.DocumentRepository {
	return &documentPostgreSQL{db: db}
}

// Upsert replaces the stored document of the same kind; re-saving a form
// overwrites rather than accumulating revisions.
func (r *documentPostgreSQL) Upsert(ctx context.Context, doc *models.Document) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "uid"}, {Name: "kind"}},
			DoUpdates: clause.AssignmentColumns([]string{"data", "schema_version", "saved_by", "updated_at"}),
		}).
		Create(doc).Error
	return handleDBError(err, "upsert document")
}

func (r *documentPostgreSQL) Get(ctx context.Context, uid string, kind models.DocumentKind) (*models.Document, error) {
	var doc models.Document
	if err := r.db.WithContext(ctx).
		Where("uid = ? AND kind = ?", uid, kind).
		First(&doc).Error; err != nil {
		return nil, handleDBError(err, "get document")
	}
	return &doc, nil
}

func (r *documentPostgreSQL) DeleteByUID(ctx context.Context, uid string) (int64, error) {
	result := r.db.WithContext(ctx).Where("uid = ?", uid).Delete(&models.Document{})
	if result.Error != nil {
		return 0, handleDBError(result.Error, "delete documents")
	}
	return result.RowsAffected, nil
}

func (r *documentPostgreSQL) CountByUID(ctx context.Context, uid string) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.Document{}).Where("uid = ?", uid).Count(&n).Error; err != nil {
		return 0, handleDBError(err, "count documents")
	}
	return n, nil
}

type statusHistoryPostgreSQL struct {
	db *gorm.DB
}

func NewStatusHistoryPostgreSQL(db *gorm.DB) repositories.StatusHistoryRepository {
	return &statusHistoryPostgreSQL{db: db}
}

func (r *statusHistoryPostgreSQL) Create(ctx context.Context, entry *models.StatusHistory) error {
	return handleDBError(r.db.WithContext(ctx).Create(entry).Error, "create status history")
}

func (r *statusHistoryPostgreSQL) ListByUID(ctx context.Context, uid string) ([]*models.StatusHistory, error) {
	entries := []*models.StatusHistory{}
	if err := r.db.WithContext(ctx).
		Where("uid = ?", uid).
		Order("id ASC").
		Find(&entries).Error; err != nil {
		return nil, handleDBError(err, "list status history")
	}
	return entries, nil
}

func (r *statusHistoryPostgreSQL) DeleteByUID(ctx context.Context, uid string) (int64, error) {
	result := r.db.WithContext(ctx).Where("uid = ?", uid).Delete(&models.StatusHistory{})
	if result.Error != nil {
		return 0, handleDBError(result.Error, "delete status history")
	}
	return result.RowsAffected, nil
}
