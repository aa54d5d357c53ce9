package models

// EventName identifies a dashboard notification.
type EventName string

const (
	EventUidCreated             EventName = "uid_created"
	EventAttendanceSaved        EventName = "attendance_saved"
	EventUserFormSaved          EventName = "user_form_saved"
	EventSendToModerator        EventName = "send_to_moderator"
	EventModerationSaved        EventName = "moderation_saved"
	EventSentToAdmin            EventName = "sent_to_admin"
	EventUidApproved            EventName = "uid_approved"
	EventStudentStatusUpdated   EventName = "student_status_updated"
	EventUidDeleted             EventName = "uid_deleted"
	EventAssessorReviewComplete EventName = "assessor_review_complete"
	EventUidAssigned            EventName = "uid_assigned"
)

// EventNames is the full set a dashboard may subscribe to.
var EventNames = []EventName{
	EventUidCreated,
	EventAttendanceSaved,
	EventUserFormSaved,
	EventSendToModerator,
	EventModerationSaved,
	EventSentToAdmin,
	EventUidApproved,
	EventStudentStatusUpdated,
	EventUidDeleted,
	EventAssessorReviewComplete,
	EventUidAssigned,
}

// EventPayload is the minimal body of a dashboard notification. Receivers
// re-fetch or patch their local copy; full records are never sent.
type EventPayload struct {
	UID           string        `json:"uid"`
	Status        UidStatus     `json:"status,omitempty"`
	StudentID     string        `json:"student_id,omitempty"`
	StudentStatus StudentStatus `json:"student_status,omitempty"`
	AssessorID    *string       `json:"assessor_id,omitempty"`
	ModeratorID   *string       `json:"moderator_id,omitempty"`
}
