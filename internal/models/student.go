package models

import (
	"time"

	"gorm.io/datatypes"
)

// Student is a learner submission within a UID. FormData is passed through
// untouched; FormVersion names the schema the client used to produce it.
type Student struct {
	ID          string        `json:"student_id" gorm:"primaryKey;size:36"`
	UID         string        `json:"uid" gorm:"size:20;not null;index:idx_students_uid_status,priority:1"`
	LearnerName string        `json:"learner_name" gorm:"size:200;not null"`
	CompanyName string        `json:"company_name" gorm:"size:200"`
	Status      StudentStatus `json:"status" gorm:"type:varchar(32);not null;default:pending_review;index:idx_students_uid_status,priority:2"`

	FormData    datatypes.JSON `json:"form_data" gorm:"type:jsonb"`
	FormVersion int            `json:"form_version" gorm:"not null;default:1"`

	Version int64 `json:"version" gorm:"not null;default:1"`

	CreatedAt  time.Time  `json:"created_at" gorm:"not null"`
	UpdatedAt  time.Time  `json:"updated_at"`
	ReviewedAt *time.Time `json:"reviewed_at"`
}

func (Student) TableName() string {
	return "students"
}

func (s *Student) Clone() *Student {
	if s == nil {
		return nil
	}
	c := *s
	if s.FormData != nil {
		c.FormData = append(datatypes.JSON(nil), s.FormData...)
	}
	if s.ReviewedAt != nil {
		t := *s.ReviewedAt
		c.ReviewedAt = &t
	}
	return &c
}
