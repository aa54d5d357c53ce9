package dashboard

import (
	"github.com/SAP-F-2025/training-workflow-service/internal/events"
	"github.com/SAP-F-2025/training-workflow-service/internal/models"
	"github.com/SAP-F-2025/training-workflow-service/internal/workflow"
)

// assignedView judges bindings only. Under legacy open visibility the
// service may still expose an unassigned UID; the re-fetch settles that.
var assignedView = workflow.Visibility{}

// Apply folds event into a copy of v and returns it. Events carry only keys
// and statuses: known records are patched, anything the view cannot fill in
// is marked stale for re-fetch.
func Apply(v *View, event events.Event) *View {
	next := v.Clone()
	p := event.Payload
	if p.UID == "" {
		return next
	}

	switch event.Type {
	case models.EventUidDeleted:
		next.drop(p.UID)
		return next
	case models.EventUidAssigned:
		next.applyAssignment(p)
		return next
	}

	rec, known := next.Uids[p.UID]
	if !known {
		next.Stale[p.UID] = struct{}{}
		return next
	}
	if p.Status != "" {
		rec.Status = p.Status
	}

	if p.StudentID != "" {
		if st, ok := next.Students[p.StudentID]; ok {
			if p.StudentStatus != "" {
				st.Status = p.StudentStatus
			}
		} else {
			next.Students[p.StudentID] = &models.Student{ID: p.StudentID, UID: p.UID, Status: p.StudentStatus}
			next.Stale[p.UID] = struct{}{}
		}
	}
	return next
}

func (v *View) applyAssignment(p models.EventPayload) {
	rec, known := v.Uids[p.UID]
	if !known {
		if assignedView.CanViewEvent(p, v.Viewer) {
			v.Stale[p.UID] = struct{}{}
		}
		return
	}

	rec.AssignedAssessorID = clonePtr(p.AssessorID)
	rec.AssignedModeratorID = clonePtr(p.ModeratorID)
	if !assignedView.CanView(rec, v.Viewer) {
		v.drop(p.UID)
	}
}

// Merge replaces the local copy of one UID and its students with fetched
// records and clears its stale mark.
func Merge(v *View, rec *models.UidRecord, students []*models.Student) *View {
	next := v.Clone()
	next.drop(rec.UID)

	cp := *rec
	next.Uids[rec.UID] = &cp
	for _, s := range students {
		if s.UID != rec.UID {
			continue
		}
		scp := *s
		next.Students[s.ID] = &scp
	}
	return next
}

// Drop removes a UID the viewer can no longer fetch.
func Drop(v *View, uid string) *View {
	next := v.Clone()
	next.drop(uid)
	return next
}

func (v *View) drop(uid string) {
	delete(v.Uids, uid)
	delete(v.Stale, uid)
	for id, s := range v.Students {
		if s.UID == uid {
			delete(v.Students, id)
		}
	}
}

func clonePtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
