// Package workflow holds the UID and student state machines. Everything here
// is pure: callers load records, ask the package what is allowed, and persist.
package workflow

import (
	"errors"
	"fmt"
	"slices"

	"github.com/SAP-F-2025/training-workflow-service/internal/models"
)

var (
	ErrInvalidTransition = errors.New("invalid transition")
	ErrForbidden         = errors.New("forbidden")
)

// TransitionError describes a rejected status change.
type TransitionError struct {
	Entity models.EntityType
	From   string
	To     string
	Role   models.UserRole
	Reason string
	err    error
}

func (e *TransitionError) Error() string {
	msg := fmt.Sprintf("%s: cannot transition %s from %s to %s", e.err, e.Entity, e.From, e.To)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *TransitionError) Unwrap() error { return e.err }

func invalid(entity models.EntityType, from, to, reason string) error {
	return &TransitionError{Entity: entity, From: from, To: to, Reason: reason, err: ErrInvalidTransition}
}

func forbidden(entity models.EntityType, from, to string, role models.UserRole) error {
	return &TransitionError{
		Entity: entity, From: from, To: to, Role: role,
		Reason: fmt.Sprintf("role %q may not perform this transition", role),
		err:    ErrForbidden,
	}
}

type Guard int

const (
	GuardNone Guard = iota
	// GuardAllStudentsReviewed requires at least one student and every
	// student past pending_review.
	GuardAllStudentsReviewed
	// GuardNoStudents allows the attendance-only shortcut to admin.
	GuardNoStudents
)

// UidEdge is one permitted UID status change.
type UidEdge struct {
	From  models.UidStatus
	To    models.UidStatus
	Roles []models.UserRole
	Event models.EventName
	Guard Guard
	// Document must be saved for the UID before the edge is taken.
	Document models.DocumentKind
}

var uidEdges = []UidEdge{
	{From: models.UidPending, To: models.UidAssessorStarted, Roles: roles(models.RoleAssessor), Event: models.EventAttendanceSaved, Document: models.DocumentAttendance},
	{From: models.UidPending, To: models.UidUserSubmitted, Roles: roles(models.RoleSystem), Event: models.EventUserFormSaved},
	{From: models.UidAssessorStarted, To: models.UidUserSubmitted, Roles: roles(models.RoleSystem), Event: models.EventUserFormSaved},
	{From: models.UidAssessorStarted, To: models.UidSentToAdmin, Roles: roles(models.RoleAssessor), Event: models.EventSentToAdmin, Guard: GuardNoStudents},
	{From: models.UidUserSubmitted, To: models.UidAssessorReviewed, Roles: roles(models.RoleAssessor), Event: models.EventAssessorReviewComplete, Guard: GuardAllStudentsReviewed},
	{From: models.UidAssessorReviewed, To: models.UidReadyForModeration, Roles: roles(models.RoleAssessor, models.RoleSystem), Event: models.EventSendToModerator},
	{From: models.UidReadyForModeration, To: models.UidModerationComplete, Roles: roles(models.RoleModerator), Event: models.EventModerationSaved, Document: models.DocumentModeration},
	{From: models.UidModerationComplete, To: models.UidSentToAdmin, Roles: roles(models.RoleModerator), Event: models.EventSentToAdmin},
	{From: models.UidSentToAdmin, To: models.UidApproved, Roles: roles(models.RoleAdmin), Event: models.EventUidApproved},
}

// StudentEdge is one permitted student status change.
type StudentEdge struct {
	From  models.StudentStatus
	To    models.StudentStatus
	Roles []models.UserRole
}

var studentEdges = []StudentEdge{
	{From: models.StudentPendingReview, To: models.StudentPendingModeration, Roles: roles(models.RoleAssessor)},
	{From: models.StudentPendingModeration, To: models.StudentModerated, Roles: roles(models.RoleModerator)},
	{From: models.StudentModerated, To: models.StudentSentToAdmin, Roles: roles(models.RoleModerator)},
	{From: models.StudentSentToAdmin, To: models.StudentApproved, Roles: roles(models.RoleAdmin)},
	{From: models.StudentSentToAdmin, To: models.StudentRejected, Roles: roles(models.RoleAdmin)},
}

func roles(r ...models.UserRole) []models.UserRole { return r }

// UidEdges returns a copy of the UID transition graph.
func UidEdges() []UidEdge { return slices.Clone(uidEdges) }

// StudentEdges returns a copy of the student transition graph.
func StudentEdges() []StudentEdge { return slices.Clone(studentEdges) }

func findUidEdge(from, to models.UidStatus) (UidEdge, bool) {
	for _, e := range uidEdges {
		if e.From == from && e.To == to {
			return e, true
		}
	}
	return UidEdge{}, false
}

func findStudentEdge(from, to models.StudentStatus) (StudentEdge, bool) {
	for _, e := range studentEdges {
		if e.From == from && e.To == to {
			return e, true
		}
	}
	return StudentEdge{}, false
}

// CheckUidTransition validates the edge and the role, in that order.
func CheckUidTransition(from, to models.UidStatus, role models.UserRole) (UidEdge, error) {
	if !to.IsValid() {
		return UidEdge{}, invalid(models.EntityUid, string(from), string(to), "unknown status")
	}
	edge, ok := findUidEdge(from, to)
	if !ok {
		return UidEdge{}, invalid(models.EntityUid, string(from), string(to), "edge not in graph")
	}
	if !slices.Contains(edge.Roles, role) {
		return UidEdge{}, forbidden(models.EntityUid, string(from), string(to), role)
	}
	return edge, nil
}

// CheckUidGuard evaluates the edge guard against the UID's students.
func CheckUidGuard(edge UidEdge, students []*models.Student) error {
	switch edge.Guard {
	case GuardAllStudentsReviewed:
		if len(students) == 0 {
			return invalid(models.EntityUid, string(edge.From), string(edge.To), "no student submissions to review")
		}
		for _, s := range students {
			if !s.Status.Reviewed() {
				return invalid(models.EntityUid, string(edge.From), string(edge.To),
					fmt.Sprintf("student %s is still %s", s.ID, s.Status))
			}
		}
	case GuardNoStudents:
		if len(students) > 0 {
			return invalid(models.EntityUid, string(edge.From), string(edge.To), "attendance-only shortcut requires no student submissions")
		}
	}
	return nil
}

// CheckUidDocument rejects an edge whose document has not been saved.
func CheckUidDocument(edge UidEdge, saved bool) error {
	if edge.Document == "" || saved {
		return nil
	}
	return invalid(models.EntityUid, string(edge.From), string(edge.To),
		fmt.Sprintf("%s document has not been saved", edge.Document))
}

// CheckStudentTransition validates the edge, the role, and that the owning
// UID has reached the stage the target student status requires.
func CheckStudentTransition(from, to models.StudentStatus, role models.UserRole, uidStatus models.UidStatus) (StudentEdge, error) {
	if !to.IsValid() {
		return StudentEdge{}, invalid(models.EntityStudent, string(from), string(to), "unknown status")
	}
	edge, ok := findStudentEdge(from, to)
	if !ok {
		return StudentEdge{}, invalid(models.EntityStudent, string(from), string(to), "edge not in graph")
	}
	if !slices.Contains(edge.Roles, role) {
		return StudentEdge{}, forbidden(models.EntityStudent, string(from), string(to), role)
	}
	if err := CheckStudentConsistency(uidStatus, to); err != nil {
		return StudentEdge{}, err
	}
	return edge, nil
}

// MinUidStatus is the earliest UID status a student in status st may belong to.
func MinUidStatus(st models.StudentStatus) models.UidStatus {
	switch st {
	case models.StudentPendingModeration:
		return models.UidUserSubmitted
	case models.StudentModerated:
		return models.UidReadyForModeration
	case models.StudentSentToAdmin:
		return models.UidModerationComplete
	case models.StudentApproved, models.StudentRejected:
		return models.UidSentToAdmin
	default:
		return models.UidPending
	}
}

// CheckStudentConsistency rejects a student status the UID has not reached yet.
func CheckStudentConsistency(uidStatus models.UidStatus, st models.StudentStatus) error {
	floor := MinUidStatus(st)
	if !uidStatus.AtLeast(floor) {
		return invalid(models.EntityStudent, "", string(st),
			fmt.Sprintf("uid is %s, needs to be at least %s", uidStatus, floor))
	}
	return nil
}

// AcceptsSubmissions reports whether learners may still submit forms.
func AcceptsSubmissions(uidStatus models.UidStatus) bool {
	switch uidStatus {
	case models.UidPending, models.UidAssessorStarted, models.UidUserSubmitted:
		return true
	}
	return false
}

// AcceptsAttendance reports whether the attendance sheet may still be edited.
func AcceptsAttendance(uidStatus models.UidStatus) bool {
	return uidStatus.IsValid() && !uidStatus.AtLeast(models.UidReadyForModeration)
}

// Derivation is the UID state implied by its students.
type Derivation struct {
	Status       models.UidStatus
	StudentCount int
	Changed      bool
}

// DeriveUid recomputes the student-driven parts of a UID after a student
// mutation. The only status it ever moves is the step to user_submitted once
// the first submission exists.
func DeriveUid(uid *models.UidRecord, students []*models.Student) Derivation {
	d := Derivation{Status: uid.Status, StudentCount: len(students)}
	if len(students) > 0 {
		if _, ok := findUidEdge(uid.Status, models.UidUserSubmitted); ok {
			d.Status = models.UidUserSubmitted
		}
	}
	d.Changed = d.Status != uid.Status || d.StudentCount != uid.StudentCount
	return d
}
