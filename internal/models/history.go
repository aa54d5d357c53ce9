package models

import "time"

type EntityType string

const (
	EntityUid     EntityType = "uid"
	EntityStudent EntityType = "student"
)

// StatusHistory records one committed status change.
type StatusHistory struct {
	ID         uint       `json:"id" gorm:"primaryKey;autoIncrement"`
	EntityType EntityType `json:"entity_type" gorm:"type:varchar(16);not null"`
	UID        string     `json:"uid" gorm:"size:20;not null;index"`
	StudentID  *string    `json:"student_id,omitempty" gorm:"size:36"`
	FromStatus string     `json:"from_status" gorm:"size:32"`
	ToStatus   string     `json:"to_status" gorm:"size:32;not null"`
	ActorID    string     `json:"actor_id" gorm:"size:255"`
	ActorRole  UserRole   `json:"actor_role" gorm:"type:varchar(16)"`
	CreatedAt  time.Time  `json:"created_at" gorm:"not null"`
}

func (StatusHistory) TableName() string {
	return "status_history"
}
