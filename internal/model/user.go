package model

import "time"

// Role values stored on a user profile.
const (
	RoleAdmin   = "admin"
	RoleStudent = "student"
)

// User is the profile kept for an identity-provider user id.
type User struct {
	ID         string    `json:"id"`
	Email      string    `json:"email"`
	Name       string    `json:"name,omitempty"`
	Role       string    `json:"role"`
	Year       int       `json:"year,omitempty"`
	Department string    `json:"department,omitempty"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// IsAdmin reports whether the profile holds admin privilege.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// HasAcademicProfile reports whether year and department are set.
func (u *User) HasAcademicProfile() bool {
	return u != nil && u.Year > 0 && u.Department != ""
}

// UpdateProfileRequest is the payload a student uses to set their own profile.
type UpdateProfileRequest struct {
	Name       string      `json:"name" binding:"omitempty,max=100"`
	Year       FlexibleInt `json:"year" binding:"required,min=1,max=10"`
	Department string      `json:"department" binding:"required,min=1,max=64,label"`
}

// MeResponse describes the caller.
type MeResponse struct {
	UID     string `json:"uid"`
	Email   string `json:"email"`
	Role    string `json:"role"`
	Profile *User  `json:"profile,omitempty"`
}
