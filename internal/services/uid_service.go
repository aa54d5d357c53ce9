package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"gorm.io/datatypes"

	"github.com/SAP-F-2025/training-workflow-service/internal/models"
	"github.com/SAP-F-2025/training-workflow-service/internal/repositories"
	"github.com/SAP-F-2025/training-workflow-service/internal/validator"
	"github.com/SAP-F-2025/training-workflow-service/internal/workflow"
)

type uidService struct {
	repo       repositories.Repository
	engine     *engine
	validator  *validator.Validator
	maxRetries int
	logger     *slog.Logger
}

func NewUidService(repo repositories.Repository, eng *engine, validator *validator.Validator, maxRetries int, logger *slog.Logger) UidService {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &uidService{
		repo:       repo,
		engine:     eng,
		validator:  validator,
		maxRetries: maxRetries,
		logger:     logger,
	}
}

// ===== LIFECYCLE =====

func (s *uidService) Create(ctx context.Context, actor models.Actor, req *models.CreateUidRequest) (*models.UidRecord, error) {
	if actor.Role != models.RoleAdmin {
		return nil, forbiddenf("only admins create UIDs")
	}

	var profile models.AssessorProfile
	if req != nil && req.Assessor != nil {
		profile = models.AssessorProfile{
			Name:    strings.TrimSpace(req.Assessor.Name),
			Contact: strings.TrimSpace(req.Assessor.Contact),
		}
	}

	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		rec, err := s.allocate(ctx, actor, profile)
		if err == nil {
			s.logger.InfoContext(ctx, "UID created", "uid", rec.UID, "actor_id", actor.ID)
			s.engine.publish(ctx, models.EventUidCreated, uidPayload(rec))
			return rec, nil
		}
		if !repositories.IsDuplicateKey(err) {
			return nil, fmt.Errorf("failed to create uid: %w", err)
		}
		s.logger.WarnContext(ctx, "UID allocation collided, retrying", "attempt", attempt, "error", err)
	}

	return nil, fmt.Errorf("%w after %d attempts", ErrAllocationConflict, s.maxRetries)
}

func (s *uidService) allocate(ctx context.Context, actor models.Actor, profile models.AssessorProfile) (*models.UidRecord, error) {
	var rec *models.UidRecord
	err := s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		seq, err := tx.Uid().NextSeq(ctx)
		if err != nil {
			return err
		}

		rec = &models.UidRecord{
			UID:      models.FormatUID(seq),
			Seq:      seq,
			Status:   models.UidPending,
			Assessor: profile,
		}
		if err := tx.Uid().Create(ctx, rec); err != nil {
			return err
		}
		return s.engine.recordUid(ctx, tx, rec.UID, "", string(models.UidPending), actor)
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *uidService) Get(ctx context.Context, actor models.Actor, uid string) (*models.UidRecord, error) {
	return s.engine.loadVisibleUid(ctx, s.repo, actor, uid)
}

func (s *uidService) List(ctx context.Context, actor models.Actor, req ListUidsRequest) (*models.UidListResponse, error) {
	filters := repositories.UidFilters{
		Status: req.Status,
		Limit:  req.Limit,
		Offset: req.Offset,
	}
	uids, err := s.engine.visibleUids(ctx, actor, filters)
	if err != nil {
		return nil, err
	}
	return &models.UidListResponse{Uids: uids, Total: len(uids)}, nil
}

func (s *uidService) UpdateStatus(ctx context.Context, actor models.Actor, uid string, status models.UidStatus) (*models.UidRecord, error) {
	return s.transition(ctx, actor, uid, status)
}

func (s *uidService) transition(ctx context.Context, actor models.Actor, uid string, to models.UidStatus) (*models.UidRecord, error) {
	rec, event, err := s.engine.mutateUid(ctx, actor, uid, func(ctx context.Context, tx repositories.Repository, rec *models.UidRecord) (models.EventName, error) {
		return s.engine.advanceUid(ctx, tx, rec, to, actor)
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "UID status changed", "uid", uid, "status", rec.Status, "actor_role", actor.Role)
	s.engine.publish(ctx, event, uidPayload(rec))
	return rec, nil
}

// Delete removes the UID with its students, documents and history in one
// transaction. Any failure rolls the whole cascade back.
func (s *uidService) Delete(ctx context.Context, actor models.Actor, uid string) error {
	if actor.Role != models.RoleAdmin {
		return forbiddenf("only admins delete UIDs")
	}

	unlock := s.engine.locks.Lock(uid)
	defer unlock()

	var deleted *models.UidRecord
	err := s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		rec, err := tx.Uid().GetByUID(ctx, uid)
		if err != nil {
			return storeError(err, ErrUidNotFound)
		}
		deleted = rec

		students, err := tx.Student().DeleteByUID(ctx, uid)
		if err != nil {
			return cascadeError(uid, "students", err)
		}
		docs, err := tx.Document().DeleteByUID(ctx, uid)
		if err != nil {
			return cascadeError(uid, "documents", err)
		}
		if _, err := tx.History().DeleteByUID(ctx, uid); err != nil {
			return cascadeError(uid, "history", err)
		}
		if err := tx.Uid().Delete(ctx, uid); err != nil {
			return cascadeError(uid, "record", err)
		}
		if err := verifyCascade(ctx, tx, uid); err != nil {
			return err
		}

		s.logger.InfoContext(ctx, "UID deleted", "uid", uid, "students", students, "documents", docs)
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrCascadeFailure) {
			s.logger.ErrorContext(ctx, "UID cascade delete rolled back", "uid", uid, "error", err)
		}
		return err
	}

	s.engine.publish(ctx, models.EventUidDeleted, uidPayload(deleted))
	return nil
}

// verifyCascade fails the delete if any student or document of uid survived.
func verifyCascade(ctx context.Context, tx repositories.Repository, uid string) error {
	students, err := tx.Student().CountByUID(ctx, uid)
	if err != nil {
		return cascadeError(uid, "student count", err)
	}
	docs, err := tx.Document().CountByUID(ctx, uid)
	if err != nil {
		return cascadeError(uid, "document count", err)
	}
	if students > 0 || docs > 0 {
		return cascadeError(uid, "verification", fmt.Errorf("%d students and %d documents remain", students, docs))
	}
	return nil
}

func cascadeError(uid, what string, err error) error {
	return fmt.Errorf("%w: %s of uid %s: %w", ErrCascadeFailure, what, uid, err)
}

// ===== ASSIGNMENT =====

func (s *uidService) SetAssignment(ctx context.Context, actor models.Actor, uid string, req *models.SetAssignmentRequest) (*models.UidRecord, error) {
	if actor.Role != models.RoleAdmin {
		return nil, forbiddenf("only admins assign staff")
	}
	if errs := s.validator.GetBusinessValidator().ValidateAssignment(req); len(errs) > 0 {
		return nil, validationError(errs)
	}

	var errs ValidationErrors
	for _, binding := range []struct {
		id    *string
		role  models.UserRole
		field string
	}{
		{req.AssessorID, models.RoleAssessor, "assessor_id"},
		{req.ModeratorID, models.RoleModerator, "moderator_id"},
	} {
		fieldErr, err := s.checkStaff(ctx, binding.id, binding.role, binding.field)
		if err != nil {
			return nil, err
		}
		if fieldErr != nil {
			errs = append(errs, *fieldErr)
		}
	}
	if len(errs) > 0 {
		return nil, validationError(errs)
	}

	rec, event, err := s.engine.mutateUid(ctx, actor, uid, func(ctx context.Context, tx repositories.Repository, rec *models.UidRecord) (models.EventName, error) {
		rec.AssignedAssessorID = applyBinding(rec.AssignedAssessorID, req.AssessorID)
		rec.AssignedModeratorID = applyBinding(rec.AssignedModeratorID, req.ModeratorID)
		return models.EventUidAssigned, nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "UID assignment updated", "uid", uid,
		"assessor_id", rec.AssignedAssessorID, "moderator_id", rec.AssignedModeratorID)
	s.engine.publish(ctx, event, uidPayload(rec))
	return rec, nil
}

// checkStaff verifies a binding target holds the role. Directory failures
// are returned as errors; unknown users or wrong roles as field errors.
func (s *uidService) checkStaff(ctx context.Context, id *string, role models.UserRole, field string) (*ValidationError, error) {
	if id == nil || *id == "" {
		return nil, nil
	}
	ok, err := s.repo.User().HasRole(ctx, *id, role)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return &validator.ValidationError{Field: field, Message: "unknown user", Value: *id, Rule: "directory"}, nil
		}
		return nil, fmt.Errorf("failed to look up %s: %w", field, err)
	}
	if !ok {
		return &validator.ValidationError{Field: field, Message: fmt.Sprintf("user is not a %s", role), Value: *id, Rule: "directory"}, nil
	}
	return nil, nil
}

// applyBinding: nil keeps the current binding, "" clears it.
func applyBinding(current, requested *string) *string {
	if requested == nil {
		return current
	}
	if *requested == "" {
		return nil
	}
	v := *requested
	return &v
}

func (s *uidService) History(ctx context.Context, actor models.Actor, uid string) ([]*models.StatusHistory, error) {
	if _, err := s.engine.loadVisibleUid(ctx, s.repo, actor, uid); err != nil {
		return nil, err
	}
	return s.repo.History().ListByUID(ctx, uid)
}

// ===== WORKFLOW ACTIONS =====

// SaveAttendance stores the attendance sheet. The first save moves a pending
// UID to assessor_started; later saves are allowed until moderation begins.
func (s *uidService) SaveAttendance(ctx context.Context, actor models.Actor, uid string, req *models.DocumentRequest) (*models.UidRecord, error) {
	return s.saveDocument(ctx, actor, uid, req, documentStep{
		kind:   models.DocumentAttendance,
		role:   models.RoleAssessor,
		from:   models.UidPending,
		to:     models.UidAssessorStarted,
		event:  models.EventAttendanceSaved,
		resave: workflow.AcceptsAttendance,
	})
}

// SaveModeration stores the moderation record and completes moderation.
// A second save is a self loop on moderation_complete and is rejected.
func (s *uidService) SaveModeration(ctx context.Context, actor models.Actor, uid string, req *models.DocumentRequest) (*models.UidRecord, error) {
	return s.saveDocument(ctx, actor, uid, req, documentStep{
		kind:   models.DocumentModeration,
		role:   models.RoleModerator,
		from:   models.UidReadyForModeration,
		to:     models.UidModerationComplete,
		event:  models.EventModerationSaved,
		resave: func(models.UidStatus) bool { return false },
	})
}

type documentStep struct {
	kind   models.DocumentKind
	role   models.UserRole
	from   models.UidStatus
	to     models.UidStatus
	event  models.EventName
	resave func(models.UidStatus) bool
}

func (s *uidService) saveDocument(ctx context.Context, actor models.Actor, uid string, req *models.DocumentRequest, step documentStep) (*models.UidRecord, error) {
	if errs := s.validator.GetBusinessValidator().ValidateDocument(req); len(errs) > 0 {
		return nil, validationError(errs)
	}

	rec, event, err := s.engine.mutateUid(ctx, actor, uid, func(ctx context.Context, tx repositories.Repository, rec *models.UidRecord) (models.EventName, error) {
		advance := false
		switch {
		case rec.Status == step.from:
			advance = true
		case step.resave(rec.Status):
			if actor.Role != step.role {
				return "", forbiddenf("only a %s may save the %s document", step.role, step.kind)
			}
		default:
			return "", invalidf("%s document cannot be saved while uid %s is %s", step.kind, rec.UID, rec.Status)
		}

		schema := req.SchemaVersion
		if schema < 1 {
			schema = 1
		}
		doc := &models.Document{
			UID:           rec.UID,
			Kind:          step.kind,
			Data:          datatypes.JSON(req.Data),
			SchemaVersion: schema,
			SavedBy:       actor.ID,
		}
		if err := tx.Document().Upsert(ctx, doc); err != nil {
			return "", fmt.Errorf("failed to save %s document: %w", step.kind, err)
		}

		// Written before the edge, which requires it. A rejected edge rolls it back.
		if advance {
			return s.engine.advanceUid(ctx, tx, rec, step.to, actor)
		}
		return step.event, nil
	})
	if err != nil {
		return nil, err
	}

	s.engine.publish(ctx, event, uidPayload(rec))
	return rec, nil
}

func (s *uidService) GetDocument(ctx context.Context, actor models.Actor, uid string, kind models.DocumentKind) (*models.Document, error) {
	if _, err := s.engine.loadVisibleUid(ctx, s.repo, actor, uid); err != nil {
		return nil, err
	}
	doc, err := s.repo.Document().Get(ctx, uid, kind)
	if err != nil {
		return nil, storeError(err, fmt.Errorf("%s document %w", kind, ErrNotFound))
	}
	return doc, nil
}

func (s *uidService) MarkReviewComplete(ctx context.Context, actor models.Actor, uid string) (*models.UidRecord, error) {
	return s.transition(ctx, actor, uid, models.UidAssessorReviewed)
}

func (s *uidService) SendToModerator(ctx context.Context, actor models.Actor, uid string) (*models.UidRecord, error) {
	return s.transition(ctx, actor, uid, models.UidReadyForModeration)
}

// SendToAdmin covers both the moderated path and the attendance-only path;
// the graph decides which edge applies from the current status.
func (s *uidService) SendToAdmin(ctx context.Context, actor models.Actor, uid string) (*models.UidRecord, error) {
	return s.transition(ctx, actor, uid, models.UidSentToAdmin)
}

func (s *uidService) Approve(ctx context.Context, actor models.Actor, uid string) (*models.UidRecord, error) {
	return s.transition(ctx, actor, uid, models.UidApproved)
}
