package models

import (
	"time"

	"gorm.io/datatypes"
)

type DocumentKind string

const (
	DocumentAttendance DocumentKind = "attendance"
	DocumentModeration DocumentKind = "moderation"
)

// Document is the attendance sheet or moderation record attached to a UID.
// There is at most one of each kind per UID; saving again replaces the data.
type Document struct {
	UID           string         `json:"uid" gorm:"primaryKey;size:20"`
	Kind          DocumentKind   `json:"kind" gorm:"primaryKey;type:varchar(20)"`
	Data          datatypes.JSON `json:"data" gorm:"type:jsonb;not null"`
	SchemaVersion int            `json:"schema_version" gorm:"not null;default:1"`
	SavedBy       string         `json:"saved_by" gorm:"size:255"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

func (Document) TableName() string {
	return "uid_documents"
}

func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	c := *d
	c.Data = append(datatypes.JSON(nil), d.Data...)
	return &c
}
