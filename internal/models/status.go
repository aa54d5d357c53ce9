package models

// UidStatus is the lifecycle stage of a training engagement.
type UidStatus string

const (
	UidPending            UidStatus = "pending"
	UidAssessorStarted    UidStatus = "assessor_started"
	UidUserSubmitted      UidStatus = "user_submitted"
	UidAssessorReviewed   UidStatus = "assessor_reviewed"
	UidReadyForModeration UidStatus = "ready_for_moderation"
	UidModerationComplete UidStatus = "moderation_complete"
	UidSentToAdmin        UidStatus = "sent_to_admin"
	UidApproved           UidStatus = "approved"
)

// UidPipeline lists UID statuses in pipeline order.
var UidPipeline = []UidStatus{
	UidPending,
	UidAssessorStarted,
	UidUserSubmitted,
	UidAssessorReviewed,
	UidReadyForModeration,
	UidModerationComplete,
	UidSentToAdmin,
	UidApproved,
}

// Rank returns the position of s in UidPipeline, or -1 for unknown values.
func (s UidStatus) Rank() int {
	for i, st := range UidPipeline {
		if st == s {
			return i
		}
	}
	return -1
}

func (s UidStatus) IsValid() bool { return s.Rank() >= 0 }

func (s UidStatus) IsTerminal() bool { return s == UidApproved }

// AtLeast reports whether s is at or past other in the pipeline.
func (s UidStatus) AtLeast(other UidStatus) bool {
	return s.IsValid() && s.Rank() >= other.Rank()
}

// StudentStatus is the review stage of one learner submission.
type StudentStatus string

const (
	StudentPendingReview     StudentStatus = "pending_review"
	StudentPendingModeration StudentStatus = "pending_moderation"
	StudentModerated         StudentStatus = "moderated"
	StudentSentToAdmin       StudentStatus = "sent_to_admin"
	StudentApproved          StudentStatus = "approved"
	StudentRejected          StudentStatus = "rejected"
)

// StudentStatuses lists student statuses in pipeline order. The two terminal
// branches share the last rank.
var StudentStatuses = []StudentStatus{
	StudentPendingReview,
	StudentPendingModeration,
	StudentModerated,
	StudentSentToAdmin,
	StudentApproved,
	StudentRejected,
}

func (s StudentStatus) Rank() int {
	switch s {
	case StudentPendingReview:
		return 0
	case StudentPendingModeration:
		return 1
	case StudentModerated:
		return 2
	case StudentSentToAdmin:
		return 3
	case StudentApproved, StudentRejected:
		return 4
	default:
		return -1
	}
}

func (s StudentStatus) IsValid() bool { return s.Rank() >= 0 }

func (s StudentStatus) IsTerminal() bool {
	return s == StudentApproved || s == StudentRejected
}

// Reviewed reports whether the assessor has finished with the submission.
func (s StudentStatus) Reviewed() bool { return s.Rank() >= StudentPendingModeration.Rank() }
