package models

import (
	"time"
)

type UserRole string
type Role = UserRole

const (
	RoleAdmin     UserRole = "admin"
	RoleAssessor  UserRole = "assessor"
	RoleModerator UserRole = "moderator"
	RoleLearner   UserRole = "learner"

	// RoleSystem is used for transitions the service performs on its own,
	// such as the learner submission moving a UID to user_submitted.
	RoleSystem UserRole = "system"
)

func (r UserRole) IsStaff() bool {
	return r == RoleAssessor || r == RoleModerator
}

func (r UserRole) IsValid() bool {
	switch r {
	case RoleAdmin, RoleAssessor, RoleModerator, RoleLearner, RoleSystem:
		return true
	}
	return false
}

// User is a directory entry; identities are owned by the identity provider.
type User struct {
	ID       string   `json:"id"`
	FullName string   `json:"full_name"`
	Email    string   `json:"email"`
	Role     UserRole `json:"role"`

	AvatarURL     *string `json:"avatar_url"`
	EmailVerified bool    `json:"email_verified"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Actor is the authenticated caller of a workflow operation.
type Actor struct {
	ID   string
	Role UserRole
}

// SystemActor performs derived transitions.
var SystemActor = Actor{ID: "system", Role: RoleSystem}
