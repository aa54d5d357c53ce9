package workflow

import "github.com/SAP-F-2025/training-workflow-service/internal/models"

// Visibility decides which UIDs an actor may see and act on.
type Visibility struct {
	// LegacyOpen also exposes UIDs with no binding for the actor's role.
	LegacyOpen bool
}

// CanView applies the assignment filter. Admins and the system see every
// UID; assessors and moderators only see UIDs bound to them.
func (v Visibility) CanView(uid *models.UidRecord, actor models.Actor) bool {
	switch actor.Role {
	case models.RoleAdmin, models.RoleSystem:
		return true
	case models.RoleAssessor, models.RoleModerator:
		if uid.IsAssignedTo(actor.ID, actor.Role) {
			return true
		}
		return v.LegacyOpen && uid.IsUnassignedFor(actor.Role)
	default:
		return false
	}
}

// Filter returns the subset of uids visible to actor, preserving order.
func (v Visibility) Filter(uids []*models.UidRecord, actor models.Actor) []*models.UidRecord {
	out := make([]*models.UidRecord, 0, len(uids))
	for _, u := range uids {
		if v.CanView(u, actor) {
			out = append(out, u)
		}
	}
	return out
}

// CanViewEvent applies CanView to the bindings an event payload carries.
func (v Visibility) CanViewEvent(p models.EventPayload, actor models.Actor) bool {
	return v.CanView(&models.UidRecord{
		UID:                 p.UID,
		AssignedAssessorID:  p.AssessorID,
		AssignedModeratorID: p.ModeratorID,
	}, actor)
}
