package model

import "time"

// Lab is a training lab inside an institute. Code is the public identifier
// used by clients (e.g. "ITI_PUSA_FITTER_01"); ID is the internal key.
type Lab struct {
	ID         string `gorm:"primaryKey;size:36"`
	Code       string `gorm:"uniqueIndex;size:64;not null"`
	Name       string `gorm:"size:256;not null"`
	Institute  string `gorm:"size:128;not null;index"`
	Department string `gorm:"size:64;not null;index"`
	CreatedAt  time.Time
	UpdatedAt  time.Time

	// Associations
	Equipment []Equipment `gorm:"foreignKey:LabID"`
}
