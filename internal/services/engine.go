package services

import (
	"context"
	"log/slog"

	"github.com/SAP-F-2025/training-workflow-service/internal/events"
	"github.com/SAP-F-2025/training-workflow-service/internal/models"
	"github.com/SAP-F-2025/training-workflow-service/internal/repositories"
	"github.com/SAP-F-2025/training-workflow-service/internal/workflow"
)

// engine is the only code path that writes status fields. It serialises
// mutations per UID, runs each one in a store transaction and publishes the
// resulting event once the transaction has committed.
type engine struct {
	repo       repositories.Repository
	publisher  events.Publisher
	visibility workflow.Visibility
	locks      *keyedMutex
	logger     *slog.Logger
}

func newEngine(repo repositories.Repository, publisher events.Publisher, visibility workflow.Visibility, logger *slog.Logger) *engine {
	return &engine{
		repo:       repo,
		publisher:  publisher,
		visibility: visibility,
		locks:      newKeyedMutex(),
		logger:     logger,
	}
}

// uidMutation changes rec inside tx and names the event to emit. An empty
// event name means nothing is published.
type uidMutation func(ctx context.Context, tx repositories.Repository, rec *models.UidRecord) (models.EventName, error)

// mutateUid loads uid, checks that actor may act on it, applies fn and
// persists rec with a version check.
func (e *engine) mutateUid(ctx context.Context, actor models.Actor, uid string, fn uidMutation) (*models.UidRecord, models.EventName, error) {
	unlock := e.locks.Lock(uid)
	defer unlock()

	var (
		out   *models.UidRecord
		event models.EventName
	)
	err := e.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		rec, err := e.loadVisibleUid(ctx, tx, actor, uid)
		if err != nil {
			return err
		}

		event, err = fn(ctx, tx, rec)
		if err != nil {
			return err
		}

		if err := tx.Uid().Update(ctx, rec); err != nil {
			return storeError(err, ErrUidNotFound)
		}
		out = rec
		return nil
	})
	if err != nil {
		return nil, "", err
	}
	return out, event, nil
}

func (e *engine) loadVisibleUid(ctx context.Context, repo repositories.Repository, actor models.Actor, uid string) (*models.UidRecord, error) {
	rec, err := repo.Uid().GetByUID(ctx, uid)
	if err != nil {
		return nil, storeError(err, ErrUidNotFound)
	}
	if !e.visibility.CanView(rec, actor) {
		return nil, forbiddenf("uid %s is not assigned to %s %s", uid, actor.Role, actor.ID)
	}
	return rec, nil
}

// visibleUids lists the UIDs actor may see. Staff listings are narrowed in
// the store by binding and then filtered again in memory.
func (e *engine) visibleUids(ctx context.Context, actor models.Actor, filters repositories.UidFilters) ([]*models.UidRecord, error) {
	switch actor.Role {
	case models.RoleAdmin, models.RoleSystem:
		return e.repo.Uid().List(ctx, filters)
	case models.RoleAssessor:
		id := actor.ID
		filters.AssessorID = &id
	case models.RoleModerator:
		id := actor.ID
		filters.ModeratorID = &id
	default:
		return nil, forbiddenf("role %q cannot list UIDs", actor.Role)
	}
	filters.IncludeUnassigned = e.visibility.LegacyOpen

	uids, err := e.repo.Uid().List(ctx, filters)
	if err != nil {
		return nil, err
	}
	return e.visibility.Filter(uids, actor), nil
}

// advanceUid applies one edge of the UID graph to rec: edge, role, then guard.
func (e *engine) advanceUid(ctx context.Context, tx repositories.Repository, rec *models.UidRecord, to models.UidStatus, actor models.Actor) (models.EventName, error) {
	edge, err := workflow.CheckUidTransition(rec.Status, to, actor.Role)
	if err != nil {
		return "", err
	}

	if edge.Guard != workflow.GuardNone {
		students, err := tx.Student().ListByUID(ctx, rec.UID)
		if err != nil {
			return "", err
		}
		if err := workflow.CheckUidGuard(edge, students); err != nil {
			return "", err
		}
	}

	if edge.Document != "" {
		_, err := tx.Document().Get(ctx, rec.UID, edge.Document)
		if err != nil && !repositories.IsNotFoundError(err) {
			return "", err
		}
		if err := workflow.CheckUidDocument(edge, err == nil); err != nil {
			return "", err
		}
	}

	from := rec.Status
	rec.Status = to
	if err := e.recordUid(ctx, tx, rec.UID, string(from), string(to), actor); err != nil {
		return "", err
	}
	return edge.Event, nil
}

func (e *engine) recordUid(ctx context.Context, tx repositories.Repository, uid, from, to string, actor models.Actor) error {
	return tx.History().Create(ctx, &models.StatusHistory{
		EntityType: models.EntityUid,
		UID:        uid,
		FromStatus: from,
		ToStatus:   to,
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
	})
}

func (e *engine) recordStudent(ctx context.Context, tx repositories.Repository, s *models.Student, from string, actor models.Actor) error {
	id := s.ID
	return tx.History().Create(ctx, &models.StatusHistory{
		EntityType: models.EntityStudent,
		UID:        s.UID,
		StudentID:  &id,
		FromStatus: from,
		ToStatus:   string(s.Status),
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
	})
}

// publish is fire-and-forget: a broadcast failure is logged and never
// reaches the caller, whose mutation has already committed.
func (e *engine) publish(ctx context.Context, name models.EventName, payload models.EventPayload) {
	if name == "" || e.publisher == nil {
		return
	}
	if err := e.publisher.Publish(ctx, events.NewEvent(name, payload)); err != nil {
		e.logger.WarnContext(ctx, "Event publish failed",
			"event", name, "uid", payload.UID, "error", err)
	}
}

// uidPayload carries the bindings so streams can drop events a viewer may
// not see.
func uidPayload(rec *models.UidRecord) models.EventPayload {
	return models.EventPayload{
		UID:         rec.UID,
		Status:      rec.Status,
		AssessorID:  rec.AssignedAssessorID,
		ModeratorID: rec.AssignedModeratorID,
	}
}
