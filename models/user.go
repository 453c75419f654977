package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// User represents a community member. Passwords are stored as bcrypt hashes only.
type User struct {
	ID                uint         `gorm:"primaryKey" json:"id"`
	Name              string       `gorm:"size:50;not null" json:"name"`
	Email             string       `gorm:"size:255;not null;uniqueIndex" json:"email"`
	PasswordHash      string       `gorm:"size:255;not null" json:"-"`
	Avatar            string       `gorm:"size:512" json:"avatar,omitempty"`
	Role              Role         `gorm:"size:16;not null;index" json:"type"`
	TeacherLevel      TeacherLevel `gorm:"size:16" json:"teacherType,omitempty"`
	YearsOfExperience *int         `json:"yearsOfExperience,omitempty"`
	Bio               string       `gorm:"size:500" json:"bio"`
	Provider          string       `gorm:"size:32;default:'local'" json:"provider"`
	IsVerified        bool         `gorm:"default:false" json:"isVerified"`
	RefreshToken      string       `gorm:"type:text" json:"-"`
	CreatedAt         time.Time    `json:"createdAt"`
	UpdatedAt         time.Time    `json:"updatedAt"`
}

// BeforeSave normalizes the email so lookups are case-insensitive.
func (u *User) BeforeSave(tx *gorm.DB) error {
	u.Email = NormalizeEmail(u.Email)
	return nil
}

// ProviderLocal marks accounts created with email and password.
const ProviderLocal = "local"

// IsSocialPlaceholder reports whether u was created by a social login and has
// not yet completed its profile.
func (u *User) IsSocialPlaceholder() bool {
	return !u.IsVerified && u.Provider != "" && u.Provider != ProviderLocal
}

// NormalizeEmail lowercases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// UserSummary is the public author view attached to posts, comments and messages.
type UserSummary struct {
	ID           uint         `json:"id"`
	Name         string       `json:"name"`
	Avatar       string       `json:"avatar,omitempty"`
	Role         Role         `json:"type"`
	TeacherLevel TeacherLevel `json:"teacherType,omitempty"`
	IsVerified   bool         `json:"isVerified"`
}

// Summary returns the public view of u.
func (u *User) Summary() *UserSummary {
	if u == nil {
		return nil
	}
	return &UserSummary{
		ID:           u.ID,
		Name:         u.Name,
		Avatar:       u.Avatar,
		Role:         u.Role,
		TeacherLevel: u.TeacherLevel,
		IsVerified:   u.IsVerified,
	}
}
