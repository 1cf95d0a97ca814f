package model

import "time"

// PushSubscription holds a browser push subscription for one user. A user may
// hold several (one per browser/device).
type PushSubscription struct {
	Endpoint  string `gorm:"primaryKey"`
	UserID    string `gorm:"size:36;not null;index"`
	P256DH    string `gorm:"column:p256dh;not null"`
	Auth      string `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
}
