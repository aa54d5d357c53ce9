package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/SAP-F-2025/training-workflow-service/internal/models"
)

func strPtr(s string) *string { return &s }

func TestVisibility_Filter(t *testing.T) {
	a := &models.UidRecord{UID: "1001", AssignedModeratorID: strPtr("m1"), AssignedAssessorID: strPtr("a1")}
	b := &models.UidRecord{UID: "1002", AssignedModeratorID: strPtr("m2")}
	unassigned := &models.UidRecord{UID: "1003"}
	all := []*models.UidRecord{a, b, unassigned}

	strict := Visibility{}

	tests := []struct {
		name  string
		actor models.Actor
		want  []string
	}{
		{"admin sees all", models.Actor{ID: "root", Role: models.RoleAdmin}, []string{"1001", "1002", "1003"}},
		{"moderator m1", models.Actor{ID: "m1", Role: models.RoleModerator}, []string{"1001"}},
		{"moderator m2", models.Actor{ID: "m2", Role: models.RoleModerator}, []string{"1002"}},
		{"assessor a1", models.Actor{ID: "a1", Role: models.RoleAssessor}, []string{"1001"}},
		{"assessor id used as moderator", models.Actor{ID: "a1", Role: models.RoleModerator}, []string{}},
		{"unknown moderator", models.Actor{ID: "m99", Role: models.RoleModerator}, []string{}},
		{"learner", models.Actor{ID: "l1", Role: models.RoleLearner}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := strict.Filter(all, tt.actor)
			ids := make([]string, 0, len(got))
			for _, u := range got {
				ids = append(ids, u.UID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestVisibility_LegacyOpen(t *testing.T) {
	assignedElsewhere := &models.UidRecord{UID: "1001", AssignedModeratorID: strPtr("m2")}
	unassigned := &models.UidRecord{UID: "1002"}
	legacy := Visibility{LegacyOpen: true}
	m1 := models.Actor{ID: "m1", Role: models.RoleModerator}

	assert.False(t, legacy.CanView(assignedElsewhere, m1))
	assert.True(t, legacy.CanView(unassigned, m1))
	assert.False(t, Visibility{}.CanView(unassigned, m1))
}
