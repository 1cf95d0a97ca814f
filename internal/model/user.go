package model

import "time"

// Role is the closed set of user roles. Every query scope and mutation guard
// switches exhaustively over these values; an unknown role never widens access.
type Role string

const (
	RolePolicyMaker Role = "POLICY_MAKER"
	RoleLabManager  Role = "LAB_MANAGER"
	RoleTrainer     Role = "TRAINER"
)

// User is a platform account. Institute/Department are set for lab managers,
// LabID for trainers; policy makers carry neither (global scope).
type User struct {
	ID           string `gorm:"primaryKey;size:36"`
	Email        string `gorm:"uniqueIndex;size:256;not null"`
	PasswordHash string `gorm:"size:128;not null" json:"-"`
	FirstName    string `gorm:"size:128"`
	LastName     string `gorm:"size:128"`
	Role         Role   `gorm:"size:32;not null;index"`
	Institute    string `gorm:"size:128;index"`
	Department   string `gorm:"size:64"`
	LabID        string `gorm:"size:36;index"`
	IsActive     bool   `gorm:"not null;default:true"`
	CreatedAt    time.Time
	UpdatedAt    time.Time

	// Associations
	Notifications []Notification `gorm:"foreignKey:UserID"`
}
