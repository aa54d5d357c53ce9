package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"time"

	"github.com/SAP-F-2025/training-workflow-service/internal/models"
	"github.com/SAP-F-2025/training-workflow-service/internal/repositories"
)

type studentRepository struct {
	r *Repository
}

func (s *studentRepository) Create(ctx context.Context, student *models.Student) error {
	return s.r.write("student.create", func(st *state) error {
		if _, ok := st.uids[student.UID]; !ok {
			return fmt.Errorf("uid %s: %w", student.UID, repositories.ErrNotFound)
		}
		byID := st.students[student.UID]
		if byID == nil {
			byID = make(map[string]*models.Student)
			st.students[student.UID] = byID
		}
		if _, exists := byID[student.ID]; exists {
			return fmt.Errorf("student %s: %w", student.ID, repositories.ErrDuplicateKey)
		}
		now := time.Now().UTC()
		if student.CreatedAt.IsZero() {
			student.CreatedAt = now
		}
		student.UpdatedAt = now
		if student.Version == 0 {
			student.Version = 1
		}
		byID[student.ID] = student.Clone()
		return nil
	})
}

func (s *studentRepository) GetByID(ctx context.Context, uid, studentID string) (*models.Student, error) {
	var out *models.Student
	err := s.r.read(func(st *state) error {
		rec, ok := st.students[uid][studentID]
		if !ok {
			return repositories.ErrNotFound
		}
		out = rec.Clone()
		return nil
	})
	return out, err
}

func (s *studentRepository) ListByUID(ctx context.Context, uid string) ([]*models.Student, error) {
	return s.List(ctx, repositories.StudentFilters{UIDs: []string{uid}})
}

func (s *studentRepository) List(ctx context.Context, filters repositories.StudentFilters) ([]*models.Student, error) {
	out := []*models.Student{}
	if filters.UIDs != nil && len(filters.UIDs) == 0 {
		return out, nil
	}
	err := s.r.read(func(st *state) error {
		for uid, byID := range st.students {
			if filters.UIDs != nil && !slices.Contains(filters.UIDs, uid) {
				continue
			}
			for _, rec := range byID {
				if filters.Status != nil && rec.Status != *filters.Status {
					continue
				}
				out = append(out, rec.Clone())
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *studentRepository) Update(ctx context.Context, student *models.Student) error {
	return s.r.write("student.update", func(st *state) error {
		current, ok := st.students[student.UID][student.ID]
		if !ok {
			return repositories.ErrNotFound
		}
		if current.Version != student.Version {
			return fmt.Errorf("student %s at version %d, have %d: %w",
				student.ID, current.Version, student.Version, repositories.ErrVersionConflict)
		}
		student.Version++
		student.UpdatedAt = time.Now().UTC()
		student.CreatedAt = current.CreatedAt
		st.students[student.UID][student.ID] = student.Clone()
		return nil
	})
}

func (s *studentRepository) DeleteByUID(ctx context.Context, uid string) (int64, error) {
	var n int64
	err := s.r.write("student.delete_by_uid", func(st *state) error {
		n = int64(len(st.students[uid]))
		delete(st.students, uid)
		return nil
	})
	return n, err
}

func (s *studentRepository) CountByUID(ctx context.Context, uid string) (int64, error) {
	var n int64
	err := s.r.read(func(st *state) error {
		n = int64(len(st.students[uid]))
		return nil
	})
	return n, err
}
