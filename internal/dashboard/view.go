// Package dashboard keeps a dashboard's local copy of the workflow in sync
// with the service. All changes to a View go through Apply or Merge, which
// overwrite by key and never accumulate, so replaying an event is harmless.
package dashboard

import (
	"sort"

	"github.com/SAP-F-2025/training-workflow-service/internal/models"
	"github.com/SAP-F-2025/training-workflow-service/internal/workflow"
)

// View is the set of UIDs and students one viewer can see.
type View struct {
	Viewer   models.Actor
	Uids     map[string]*models.UidRecord
	Students map[string]*models.Student

	// Stale lists UIDs an event touched that the view cannot complete from
	// the event alone. The owner re-fetches them and calls Merge or Drop.
	Stale map[string]struct{}
}

func NewView(viewer models.Actor, uids []*models.UidRecord, students []*models.Student) *View {
	v := &View{
		Viewer:   viewer,
		Uids:     make(map[string]*models.UidRecord, len(uids)),
		Students: make(map[string]*models.Student, len(students)),
		Stale:    make(map[string]struct{}),
	}
	for _, u := range uids {
		cp := *u
		v.Uids[u.UID] = &cp
	}
	for _, s := range students {
		cp := *s
		v.Students[s.ID] = &cp
	}
	return v
}

// Clone deep-copies the maps and records.
func (v *View) Clone() *View {
	c := &View{
		Viewer:   v.Viewer,
		Uids:     make(map[string]*models.UidRecord, len(v.Uids)),
		Students: make(map[string]*models.Student, len(v.Students)),
		Stale:    make(map[string]struct{}, len(v.Stale)),
	}
	for k, u := range v.Uids {
		cp := *u
		c.Uids[k] = &cp
	}
	for k, s := range v.Students {
		cp := *s
		c.Students[k] = &cp
	}
	for k := range v.Stale {
		c.Stale[k] = struct{}{}
	}
	return c
}

// Stats recomputes the snapshot from the local records.
func (v *View) Stats() models.StatsSnapshot {
	uids := make([]*models.UidRecord, 0, len(v.Uids))
	for _, u := range v.Uids {
		uids = append(uids, u)
	}
	students := make([]*models.Student, 0, len(v.Students))
	for _, s := range v.Students {
		students = append(students, s)
	}
	return workflow.BuildStats(uids, students)
}

// StudentsOf returns the students of uid ordered by id.
func (v *View) StudentsOf(uid string) []*models.Student {
	var out []*models.Student
	for _, s := range v.Students {
		if s.UID == uid {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// StaleUids returns the pending re-fetches in a stable order.
func (v *View) StaleUids() []string {
	out := make([]string, 0, len(v.Stale))
	for k := range v.Stale {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
