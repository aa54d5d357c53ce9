package postgres

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/training-workflow-service/internal/models"
	"github.com/SAP-F-2025/training-workflow-service/internal/repositories"
)

type studentPostgreSQL struct {
	db *gorm.DB
}

func NewStudentPostgreSQL(db *gorm.DB) repositories.StudentRepository {
	return &studentPostgreSQL{db: db}
}

func (r *studentPostgreSQL) Create(ctx context.Context, student *models.Student) error {
	if student.Version == 0 {
		student.Version = 1
	}
	if err := r.db.WithContext(ctx).Create(student).Error; err != nil {
		return handleDBError(err, "create student")
	}
	return nil
}

func (r *studentPostgreSQL) GetByID(ctx context.Context, uid, studentID string) (*models.Student, error) {
	var student models.Student
	if err := r.db.WithContext(ctx).
		Where("uid = ? AND id = ?", uid, studentID).
		First(&student).Error; err != nil {
		return nil, handleDBError(err, "get student")
	}
	return &student, nil
}

func (r *studentPostgreSQL) ListByUID(ctx context.Context, uid string) ([]*models.Student, error) {
	return r.List(ctx, repositories.StudentFilters{UIDs: []string{uid}})
}

func (r *studentPostgreSQL) List(ctx context.Context, filters repositories.StudentFilters) ([]*models.Student, error) {
	students := []*models.Student{}
	if filters.UIDs != nil && len(filters.UIDs) == 0 {
		return students, nil
	}

	query := r.db.WithContext(ctx).Model(&models.Student{})
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.UIDs != nil {
		query = query.Where("uid IN ?", filters.UIDs)
	}

	if err := query.Order("created_at ASC, id ASC").Find(&students).Error; err != nil {
		return nil, handleDBError(err, "list students")
	}
	return students, nil
}

func (r *studentPostgreSQL) Update(ctx context.Context, student *models.Student) error {
	now := time.Now().UTC()
	result := r.db.WithContext(ctx).
		Model(&models.Student{}).
		Where("uid = ? AND id = ? AND version = ?", student.UID, student.ID, student.Version).
		Updates(map[string]interface{}{
			"learner_name": student.LearnerName,
			"company_name": student.CompanyName,
			"status":       student.Status,
			"form_data":    student.FormData,
			"form_version": student.FormVersion,
			"reviewed_at":  student.ReviewedAt,
			"version":      gorm.Expr("version + 1"),
			"updated_at":   now,
		})
	if result.Error != nil {
		return handleDBError(result.Error, "update student")
	}
	if result.RowsAffected == 0 {
		var n int64
		if err := r.db.WithContext(ctx).Model(&models.Student{}).
			Where("uid = ? AND id = ?", student.UID, student.ID).
			Count(&n).Error; err != nil {
			return handleDBError(err, "check student")
		}
		if n == 0 {
			return repositories.ErrNotFound
		}
		return fmt.Errorf("student %s at version %d: %w", student.ID, student.Version, repositories.ErrVersionConflict)
	}

	student.Version++
	student.UpdatedAt = now
	return nil
}

func (r *studentPostgreSQL) DeleteByUID(ctx context.Context, uid string) (int64, error) {
	result := r.db.WithContext(ctx).Where("uid = ?", uid).Delete(&models.Student{})
	if result.Error != nil {
		return 0, handleDBError(result.Error, "delete students")
	}
	return result.RowsAffected, nil
}

func (r *studentPostgreSQL) CountByUID(ctx context.Context, uid string) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.Student{}).Where("uid = ?", uid).Count(&n).Error; err != nil {
		return 0, handleDBError(err, "count students")
	}
	return n, nil
}
