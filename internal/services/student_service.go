package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/SAP-F-2025/training-workflow-service/internal/models"
	"github.com/SAP-F-2025/training-workflow-service/internal/repositories"
	"github.com/SAP-F-2025/training-workflow-service/internal/validator"
	"github.com/SAP-F-2025/training-workflow-service/internal/workflow"
)

type studentService struct {
	repo      repositories.Repository
	engine    *engine
	validator *validator.Validator
	logger    *slog.Logger
}

func NewStudentService(repo repositories.Repository, eng *engine, validator *validator.Validator, logger *slog.Logger) StudentService {
	return &studentService{
		repo:      repo,
		engine:    eng,
		validator: validator,
		logger:    logger,
	}
}

// Submit records a learner form. The first submission moves the UID to
// user_submitted as a derived, system-driven transition.
func (s *studentService) Submit(ctx context.Context, uid string, req *models.CreateStudentRequest) (*models.Student, error) {
	if req == nil {
		return nil, validationError(ValidationErrors{{Field: "body", Message: "request body is required", Rule: "required"}})
	}
	if errs := s.validator.GetBusinessValidator().ValidateStudentCreate(req); len(errs) > 0 {
		return nil, validationError(errs)
	}

	actor := models.SystemActor
	var student *models.Student

	rec, _, err := s.engine.mutateUid(ctx, actor, uid, func(ctx context.Context, tx repositories.Repository, rec *models.UidRecord) (models.EventName, error) {
		if !workflow.AcceptsSubmissions(rec.Status) {
			return "", invalidf("uid %s no longer accepts submissions (status %s)", rec.UID, rec.Status)
		}

		formVersion := req.FormVersion
		if formVersion < 1 {
			formVersion = 1
		}
		student = &models.Student{
			ID:          uuid.NewString(),
			UID:         rec.UID,
			LearnerName: strings.TrimSpace(req.LearnerName),
			CompanyName: strings.TrimSpace(req.CompanyName),
			Status:      models.StudentPendingReview,
			FormData:    datatypes.JSON(req.FormData),
			FormVersion: formVersion,
		}
		if err := tx.Student().Create(ctx, student); err != nil {
			return "", fmt.Errorf("failed to create student: %w", err)
		}
		if err := s.engine.recordStudent(ctx, tx, student, "", actor); err != nil {
			return "", err
		}

		if _, err := s.derive(ctx, tx, rec); err != nil {
			return "", err
		}
		return models.EventUserFormSaved, nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "Learner form submitted", "uid", rec.UID, "student_id", student.ID, "uid_status", rec.Status)
	payload := uidPayload(rec)
	payload.StudentID = student.ID
	payload.StudentStatus = student.Status
	s.engine.publish(ctx, models.EventUserFormSaved, payload)
	return student, nil
}

func (s *studentService) UpdateStatus(ctx context.Context, actor models.Actor, uid, studentID string, status models.StudentStatus) (*models.Student, error) {
	unlock := s.engine.locks.Lock(uid)
	defer unlock()

	var (
		student *models.Student
		payload models.EventPayload
	)
	err := s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		rec, err := s.engine.loadVisibleUid(ctx, tx, actor, uid)
		if err != nil {
			return err
		}
		st, err := tx.Student().GetByID(ctx, uid, studentID)
		if err != nil {
			return storeError(err, ErrStudentNotFound)
		}

		if _, err := workflow.CheckStudentTransition(st.Status, status, actor.Role, rec.Status); err != nil {
			return err
		}

		from := st.Status
		st.Status = status
		if status == models.StudentPendingModeration {
			now := time.Now().UTC()
			st.ReviewedAt = &now
		}
		if err := tx.Student().Update(ctx, st); err != nil {
			return storeError(err, ErrStudentNotFound)
		}
		if err := s.engine.recordStudent(ctx, tx, st, string(from), actor); err != nil {
			return err
		}

		changed, err := s.derive(ctx, tx, rec)
		if err != nil {
			return err
		}
		if changed {
			if err := tx.Uid().Update(ctx, rec); err != nil {
				return storeError(err, ErrUidNotFound)
			}
		}
		payload = uidPayload(rec)
		student = st
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "Student status changed", "uid", uid, "student_id", studentID, "status", status)
	payload.StudentID = student.ID
	payload.StudentStatus = student.Status
	s.engine.publish(ctx, models.EventStudentStatusUpdated, payload)
	return student, nil
}

// derive applies the UID state implied by its students to rec after a
// student mutation. The caller persists rec when it reports a change.
func (s *studentService) derive(ctx context.Context, tx repositories.Repository, rec *models.UidRecord) (bool, error) {
	students, err := tx.Student().ListByUID(ctx, rec.UID)
	if err != nil {
		return false, err
	}
	derived := workflow.DeriveUid(rec, students)
	if !derived.Changed {
		return false, nil
	}
	if derived.Status != rec.Status {
		if _, err := s.engine.advanceUid(ctx, tx, rec, derived.Status, models.SystemActor); err != nil {
			return false, err
		}
	}
	if derived.StudentCount != rec.StudentCount {
		s.logger.InfoContext(ctx, "UID student count reconciled", "uid", rec.UID,
			"stored", rec.StudentCount, "actual", derived.StudentCount)
	}
	rec.StudentCount = derived.StudentCount
	return true, nil
}

func (s *studentService) List(ctx context.Context, actor models.Actor, req ListStudentsRequest) (*models.StudentListResponse, error) {
	filters := repositories.StudentFilters{Status: req.Status}

	switch {
	case req.UID != nil:
		if _, err := s.engine.loadVisibleUid(ctx, s.repo, actor, *req.UID); err != nil {
			return nil, err
		}
		filters.UIDs = []string{*req.UID}
	case actor.Role != models.RoleAdmin && actor.Role != models.RoleSystem:
		uids, err := s.engine.visibleUids(ctx, actor, repositories.UidFilters{})
		if err != nil {
			return nil, err
		}
		filters.UIDs = uidKeys(uids)
	}

	students, err := s.repo.Student().List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list students: %w", err)
	}
	return &models.StudentListResponse{Students: students, Total: len(students)}, nil
}

// uidKeys never returns nil so an empty result still filters everything out.
func uidKeys(uids []*models.UidRecord) []string {
	keys := make([]string, 0, len(uids))
	for _, u := range uids {
		keys = append(keys, u.UID)
	}
	return keys
}
