package workflow

import "github.com/SAP-F-2025/training-workflow-service/internal/models"

// WithAssessorStatuses are the stages where the assessor holds the UID.
var WithAssessorStatuses = []models.UidStatus{
	models.UidAssessorStarted,
	models.UidUserSubmitted,
	models.UidAssessorReviewed,
}

// WithModeratorStatuses are the stages where the moderator holds the UID.
// Adding a status to the pipeline means revisiting both lists.
var WithModeratorStatuses = []models.UidStatus{
	models.UidReadyForModeration,
	models.UidModerationComplete,
}

// BuildStats tallies a snapshot. Every known status gets a key, even at zero.
func BuildStats(uids []*models.UidRecord, students []*models.Student) models.StatsSnapshot {
	snap := models.StatsSnapshot{
		TotalUids:        len(uids),
		UidsByStatus:     make(map[models.UidStatus]int, len(models.UidPipeline)),
		TotalStudents:    len(students),
		StudentsByStatus: make(map[models.StudentStatus]int, len(models.StudentStatuses)),
	}
	for _, st := range models.UidPipeline {
		snap.UidsByStatus[st] = 0
	}
	for _, st := range models.StudentStatuses {
		snap.StudentsByStatus[st] = 0
	}

	for _, u := range uids {
		snap.UidsByStatus[u.Status]++
	}
	for _, s := range students {
		snap.StudentsByStatus[s.Status]++
	}

	for _, st := range WithAssessorStatuses {
		snap.WithAssessorCount += snap.UidsByStatus[st]
	}
	for _, st := range WithModeratorStatuses {
		snap.WithModeratorCount += snap.UidsByStatus[st]
	}

	return snap
}
