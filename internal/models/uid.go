package models

import (
	"strconv"
	"time"
)

// FirstUidSeq is the identifier handed out to the first engagement.
const FirstUidSeq int64 = 1001

type AssessorProfile struct {
	Name    string `json:"name" gorm:"size:200"`
	Contact string `json:"contact" gorm:"size:200"`
}

// UidRecord is one training engagement. UID is the decimal form of Seq.
type UidRecord struct {
	UID    string    `json:"uid" gorm:"primaryKey;size:20"`
	Seq    int64     `json:"-" gorm:"uniqueIndex;not null"`
	Status UidStatus `json:"status" gorm:"type:varchar(32);not null;default:pending;index"`

	Assessor AssessorProfile `json:"assessor" gorm:"embedded;embeddedPrefix:assessor_"`

	AssignedAssessorID  *string `json:"assigned_assessor_id" gorm:"size:255;index"`
	AssignedModeratorID *string `json:"assigned_moderator_id" gorm:"size:255;index"`

	StudentCount int `json:"student_count" gorm:"not null;default:0"`

	// Version is bumped on every write and guards against lost updates.
	Version int64 `json:"version" gorm:"not null;default:1"`

	CreatedAt time.Time `json:"created_at" gorm:"not null"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (UidRecord) TableName() string {
	return "uids"
}

// FormatUID renders a sequence number as a UID.
func FormatUID(seq int64) string {
	return strconv.FormatInt(seq, 10)
}

// IsAssignedTo reports whether userID holds the binding for role on this UID.
func (u *UidRecord) IsAssignedTo(userID string, role UserRole) bool {
	switch role {
	case RoleAssessor:
		return u.AssignedAssessorID != nil && *u.AssignedAssessorID == userID
	case RoleModerator:
		return u.AssignedModeratorID != nil && *u.AssignedModeratorID == userID
	default:
		return false
	}
}

// IsUnassignedFor reports whether no user holds the binding for role.
func (u *UidRecord) IsUnassignedFor(role UserRole) bool {
	switch role {
	case RoleAssessor:
		return u.AssignedAssessorID == nil
	case RoleModerator:
		return u.AssignedModeratorID == nil
	default:
		return false
	}
}

// Clone returns a deep copy so callers can mutate without aliasing.
func (u *UidRecord) Clone() *UidRecord {
	if u == nil {
		return nil
	}
	c := *u
	if u.AssignedAssessorID != nil {
		v := *u.AssignedAssessorID
		c.AssignedAssessorID = &v
	}
	if u.AssignedModeratorID != nil {
		v := *u.AssignedModeratorID
		c.AssignedModeratorID = &v
	}
	return &c
}
