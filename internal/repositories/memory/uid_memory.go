package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/SAP-F-2025/training-workflow-service/internal/models"
	"github.com/SAP-F-2025/training-workflow-service/internal/repositories"
)

type uidRepository struct {
	r *Repository
}

func (u *uidRepository) NextSeq(ctx context.Context) (int64, error) {
	next := models.FirstUidSeq
	err := u.r.read(func(st *state) error {
		for _, rec := range st.uids {
			if rec.Seq >= next {
				next = rec.Seq + 1
			}
		}
		return nil
	})
	return next, err
}

func (u *uidRepository) Create(ctx context.Context, uid *models.UidRecord) error {
	return u.r.write("uid.create", func(st *state) error {
		if _, exists := st.uids[uid.UID]; exists {
			return fmt.Errorf("uid %s: %w", uid.UID, repositories.ErrDuplicateKey)
		}
		for _, rec := range st.uids {
			if rec.Seq == uid.Seq {
				return fmt.Errorf("uid sequence %d: %w", uid.Seq, repositories.ErrDuplicateKey)
			}
		}
		now := time.Now().UTC()
		if uid.CreatedAt.IsZero() {
			uid.CreatedAt = now
		}
		uid.UpdatedAt = now
		if uid.Version == 0 {
			uid.Version = 1
		}
		st.uids[uid.UID] = uid.Clone()
		return nil
	})
}

func (u *uidRepository) GetByUID(ctx context.Context, uid string) (*models.UidRecord, error) {
	var out *models.UidRecord
	err := u.r.read(func(st *state) error {
		rec, ok := st.uids[uid]
		if !ok {
			return repositories.ErrNotFound
		}
		out = rec.Clone()
		return nil
	})
	return out, err
}

func (u *uidRepository) List(ctx context.Context, filters repositories.UidFilters) ([]*models.UidRecord, error) {
	var out []*models.UidRecord
	err := u.r.read(func(st *state) error {
		for _, rec := range st.uids {
			if matchesUidFilters(rec, filters) {
				out = append(out, rec.Clone())
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })

	if filters.Offset > 0 {
		if filters.Offset >= len(out) {
			return []*models.UidRecord{}, nil
		}
		out = out[filters.Offset:]
	}
	if filters.Limit > 0 && len(out) > filters.Limit {
		out = out[:filters.Limit]
	}
	if out == nil {
		out = []*models.UidRecord{}
	}
	return out, nil
}

func matchesUidFilters(rec *models.UidRecord, f repositories.UidFilters) bool {
	if f.Status != nil && rec.Status != *f.Status {
		return false
	}
	if f.AssessorID != nil {
		assigned := rec.AssignedAssessorID != nil && *rec.AssignedAssessorID == *f.AssessorID
		if !assigned && !(f.IncludeUnassigned && rec.AssignedAssessorID == nil) {
			return false
		}
	}
	if f.ModeratorID != nil {
		assigned := rec.AssignedModeratorID != nil && *rec.AssignedModeratorID == *f.ModeratorID
		if !assigned && !(f.IncludeUnassigned && rec.AssignedModeratorID == nil) {
			return false
		}
	}
	return true
}

func (u *uidRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := u.r.read(func(st *state) error {
		n = int64(len(st.uids))
		return nil
	})
	return n, err
}

func (u *uidRepository) Update(ctx context.Context, uid *models.UidRecord) error {
	return u.r.write("uid.update", func(st *state) error {
		current, ok := st.uids[uid.UID]
		if !ok {
			return repositories.ErrNotFound
		}
		if current.Version != uid.Version {
			return fmt.Errorf("uid %s at version %d, have %d: %w",
				uid.UID, current.Version, uid.Version, repositories.ErrVersionConflict)
		}
		uid.Version++
		uid.UpdatedAt = time.Now().UTC()
		// identity fields are immutable
		uid.Seq = current.Seq
		uid.CreatedAt = current.CreatedAt
		st.uids[uid.UID] = uid.Clone()
		return nil
	})
}

func (u *uidRepository) Delete(ctx context.Context, uid string) error {
	return u.r.write("uid.delete", func(st *state) error {
		if _, ok := st.uids[uid]; !ok {
			return repositories.ErrNotFound
		}
		delete(st.uids, uid)
		return nil
	})
}
