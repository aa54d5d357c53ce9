package dashboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SAP-F-2025/training-workflow-service/internal/events"
	"github.com/SAP-F-2025/training-workflow-service/internal/models"
)

var (
	admin     = models.Actor{ID: "admin-1", Role: models.RoleAdmin}
	assessor1 = models.Actor{ID: "assessor-1", Role: models.RoleAssessor}
)

func strPtr(s string) *string { return &s }

func seeded(viewer models.Actor) *View {
	return NewView(viewer,
		[]*models.UidRecord{
			{UID: "1001", Status: models.UidUserSubmitted, AssignedAssessorID: strPtr(assessor1.ID)},
			{UID: "1002", Status: models.UidReadyForModeration, AssignedAssessorID: strPtr(assessor1.ID)},
		},
		[]*models.Student{
			{ID: "s-1", UID: "1001", LearnerName: "Ada", Status: models.StudentPendingReview},
			{ID: "s-2", UID: "1001", LearnerName: "Grace", Status: models.StudentPendingReview},
			{ID: "s-3", UID: "1002", LearnerName: "Alan", Status: models.StudentPendingModeration},
		},
	)
}

func TestApply_StudentStatusUpdatedIsIdempotent(t *testing.T) {
	v := seeded(assessor1)
	event := events.NewEvent(models.EventStudentStatusUpdated, models.EventPayload{
		UID:           "1001",
		Status:        models.UidUserSubmitted,
		StudentID:     "s-1",
		StudentStatus: models.StudentPendingModeration,
	})

	once := Apply(v, event)
	twice := Apply(once, event)

	assert.Equal(t, once, twice)
	assert.Equal(t, models.StudentPendingModeration, once.Students["s-1"].Status)
	assert.Equal(t, "Ada", once.Students["s-1"].LearnerName)
	assert.Empty(t, once.Stale)

	stats := twice.Stats()
	assert.Equal(t, 3, stats.TotalStudents)
	assert.Equal(t, 2, stats.StudentsByStatus[models.StudentPendingModeration])
	assert.Equal(t, 1, stats.StudentsByStatus[models.StudentPendingReview])

	// the input view is untouched
	assert.Equal(t, models.StudentPendingReview, v.Students["s-1"].Status)
}

func TestApply_UidStatusOverwrites(t *testing.T) {
	v := seeded(assessor1)

	next := Apply(v, events.NewEvent(models.EventSendToModerator, models.EventPayload{UID: "1001", Status: models.UidReadyForModeration}))
	next = Apply(next, events.NewEvent(models.EventSendToModerator, models.EventPayload{UID: "1001", Status: models.UidReadyForModeration}))

	stats := next.Stats()
	assert.Equal(t, 2, stats.WithModeratorCount)
	assert.Zero(t, stats.WithAssessorCount)
}

func TestApply_NewStudentMarksUidStale(t *testing.T) {
	v := seeded(assessor1)

	next := Apply(v, events.NewEvent(models.EventUserFormSaved, models.EventPayload{
		UID:           "1001",
		Status:        models.UidUserSubmitted,
		StudentID:     "s-9",
		StudentStatus: models.StudentPendingReview,
	}))

	require.Contains(t, next.Students, "s-9")
	assert.Equal(t, []string{"1001"}, next.StaleUids())

	merged := Merge(next, &models.UidRecord{UID: "1001", Status: models.UidUserSubmitted, AssignedAssessorID: strPtr(assessor1.ID)},
		[]*models.Student{
			{ID: "s-1", UID: "1001", LearnerName: "Ada", Status: models.StudentPendingReview},
			{ID: "s-9", UID: "1001", LearnerName: "Linus", Status: models.StudentPendingReview},
		})
	assert.Empty(t, merged.Stale)
	assert.Equal(t, "Linus", merged.Students["s-9"].LearnerName)
	// s-2 was deleted server side and disappears with the merge
	assert.NotContains(t, merged.Students, "s-2")
	assert.Len(t, merged.StudentsOf("1002"), 1)
}

func TestApply_UnknownUid(t *testing.T) {
	v := seeded(admin)

	next := Apply(v, events.NewEvent(models.EventUidCreated, models.EventPayload{UID: "1003", Status: models.UidPending}))
	assert.NotContains(t, next.Uids, "1003")
	assert.Equal(t, []string{"1003"}, next.StaleUids())

	dropped := Drop(next, "1003")
	assert.Empty(t, dropped.Stale)
}

func TestApply_Deleted(t *testing.T) {
	v := seeded(admin)
	event := events.NewEvent(models.EventUidDeleted, models.EventPayload{UID: "1001"})

	next := Apply(Apply(v, event), event)
	assert.NotContains(t, next.Uids, "1001")
	assert.Len(t, next.Students, 1)
	assert.Equal(t, 1, next.Stats().TotalUids)
}

func TestApply_Assignment(t *testing.T) {
	t.Run("reassigned away from the viewer", func(t *testing.T) {
		v := seeded(assessor1)
		next := Apply(v, events.NewEvent(models.EventUidAssigned, models.EventPayload{
			UID:        "1002",
			AssessorID: strPtr("assessor-2"),
		}))
		assert.NotContains(t, next.Uids, "1002")
		assert.NotContains(t, next.Students, "s-3")
	})

	t.Run("newly bound to the viewer", func(t *testing.T) {
		v := seeded(assessor1)
		next := Apply(v, events.NewEvent(models.EventUidAssigned, models.EventPayload{
			UID:        "1005",
			AssessorID: strPtr(assessor1.ID),
		}))
		assert.Equal(t, []string{"1005"}, next.StaleUids())
	})

	t.Run("bound to someone else", func(t *testing.T) {
		v := seeded(assessor1)
		next := Apply(v, events.NewEvent(models.EventUidAssigned, models.EventPayload{
			UID:        "1006",
			AssessorID: strPtr("assessor-2"),
		}))
		assert.Empty(t, next.Stale)
	})

	t.Run("admin keeps everything", func(t *testing.T) {
		v := seeded(admin)
		next := Apply(v, events.NewEvent(models.EventUidAssigned, models.EventPayload{
			UID:         "1002",
			ModeratorID: strPtr("moderator-1"),
		}))
		require.Contains(t, next.Uids, "1002")
		assert.Nil(t, next.Uids["1002"].AssignedAssessorID)
		assert.Equal(t, "moderator-1", *next.Uids["1002"].AssignedModeratorID)
	})
}
