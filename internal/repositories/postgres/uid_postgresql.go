package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/training-workflow-service/internal/cache"
	"github.com/SAP-F-2025/training-workflow-service/internal/models"
	"github.com/SAP-F-2025/training-workflow-service/internal/repositories"
)

type uidPostgreSQL struct {
	db  *gorm.DB
	seq *cache.Sequence
}

// NewUidPostgreSQL builds the UID repository. seq may be nil, in which case
// allocation falls back to MAX(seq)+1 and relies on the unique index.
func NewUidPostgreSQL(db *gorm.DB, seq *cache.Sequence) repositories.UidRepository {
	return &uidPostgreSQL{db: db, seq: seq}
}

func (r *uidPostgreSQL) NextSeq(ctx context.Context) (int64, error) {
	var maxSeq *int64
	if err := r.db.WithContext(ctx).
		Model(&models.UidRecord{}).
		Select("MAX(seq)").
		Scan(&maxSeq).Error; err != nil {
		return 0, handleDBError(err, "read max uid sequence")
	}

	floor := models.FirstUidSeq
	if maxSeq != nil && *maxSeq >= floor {
		floor = *maxSeq + 1
	}

	if !r.seq.Available() {
		return floor, nil
	}

	next, err := r.seq.Next(ctx, floor)
	if err != nil {
		slog.WarnContext(ctx, "UID sequence unavailable, using table maximum", "error", err)
		return floor, nil
	}
	return next, nil
}

func (r *uidPostgreSQL) Create(ctx context.Context, uid *models.UidRecord) error {
	if uid.Version == 0 {
		uid.Version = 1
	}
	if err := r.db.WithContext(ctx).Create(uid).Error; err != nil {
		return handleDBError(err, "create uid")
	}
	return nil
}

func (r *uidPostgreSQL) GetByUID(ctx context.Context, uid string) (*models.UidRecord, error) {
	var rec models.UidRecord
	if err := r.db.WithContext(ctx).Where("uid = ?", uid).First(&rec).Error; err != nil {
		return nil, handleDBError(err, "get uid")
	}
	return &rec, nil
}

func (r *uidPostgreSQL) List(ctx context.Context, filters repositories.UidFilters) ([]*models.UidRecord, error) {
	var recs []*models.UidRecord

	query := r.applyUidFilters(r.db.WithContext(ctx).Model(&models.UidRecord{}), filters).
		Order("seq ASC")
	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	}
	if filters.Offset > 0 {
		query = query.Offset(filters.Offset)
	}

	if err := query.Find(&recs).Error; err != nil {
		return nil, handleDBError(err, "list uids")
	}
	if recs == nil {
		recs = []*models.UidRecord{}
	}
	return recs, nil
}

func (r *uidPostgreSQL) applyUidFilters(query *gorm.DB, filters repositories.UidFilters) *gorm.DB {
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.AssessorID != nil {
		if filters.IncludeUnassigned {
			query = query.Where("(assigned_assessor_id = ? OR assigned_assessor_id IS NULL)", *filters.AssessorID)
		} else {
			query = query.Where("assigned_assessor_id = ?", *filters.AssessorID)
		}
	}
	if filters.ModeratorID != nil {
		if filters.IncludeUnassigned {
			query = query.Where("(assigned_moderator_id = ? OR assigned_moderator_id IS NULL)", *filters.ModeratorID)
		} else {
			query = query.Where("assigned_moderator_id = ?", *filters.ModeratorID)
		}
	}
	return query
}

func (r *uidPostgreSQL) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.UidRecord{}).Count(&n).Error; err != nil {
		return 0, handleDBError(err, "count uids")
	}
	return n, nil
}

func (r *uidPostgreSQL) Update(ctx context.Context, uid *models.UidRecord) error {
	now := time.Now().UTC()
	result := r.db.WithContext(ctx).
		Model(&models.UidRecord{}).
		Where("uid = ? AND version = ?", uid.UID, uid.Version).
		Updates(map[string]interface{}{
			"status":                uid.Status,
			"assessor_name":         uid.Assessor.Name,
			"assessor_contact":      uid.Assessor.Contact,
			"assigned_assessor_id":  uid.AssignedAssessorID,
			"assigned_moderator_id": uid.AssignedModeratorID,
			"student_count":         uid.StudentCount,
			"version":               gorm.Expr("version + 1"),
			"updated_at":            now,
		})
	if result.Error != nil {
		return handleDBError(result.Error, "update uid")
	}
	if result.RowsAffected == 0 {
		return r.staleOrMissing(ctx, uid.UID, uid.Version)
	}

	uid.Version++
	uid.UpdatedAt = now
	return nil
}

func (r *uidPostgreSQL) staleOrMissing(ctx context.Context, uid string, version int64) error {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.UidRecord{}).Where("uid = ?", uid).Count(&n).Error; err != nil {
		return handleDBError(err, "check uid")
	}
	if n == 0 {
		return repositories.ErrNotFound
	}
	return fmt.Errorf("uid %s at version %d: %w", uid, version, repositories.ErrVersionConflict)
}

func (r *uidPostgreSQL) Delete(ctx context.Context, uid string) error {
	result := r.db.WithContext(ctx).Where("uid = ?", uid).Delete(&models.UidRecord{})
	if result.Error != nil {
		return handleDBError(result.Error, "delete uid")
	}
	if result.RowsAffected == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

// handleDBError wraps a driver error with the operation name and maps the
// cases callers branch on to repository sentinels.
func handleDBError(err error, operation string) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s: %w", operation, repositories.ErrNotFound)
	case isUniqueViolation(err):
		return fmt.Errorf("%s: %w", operation, repositories.ErrDuplicateKey)
	}
	return fmt.Errorf("%s failed: %w", operation, err)
}
