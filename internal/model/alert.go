package model

import "time"

// AlertType classifies what a threshold breach was about.
type AlertType string

const (
	AlertHighTemperature       AlertType = "HIGH_TEMPERATURE"
	AlertAbnormalVibration     AlertType = "ABNORMAL_VIBRATION"
	AlertHighEnergyConsumption AlertType = "HIGH_ENERGY_CONSUMPTION"
)

// Severity is ordered: LOW < MEDIUM < HIGH < CRITICAL.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// Rank returns the position of the severity in the LOW..CRITICAL order.
// Unknown values rank below LOW.
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	}
	return 0
}

// Alert is created when a sensor reading breaches a threshold rule.
// EquipmentCode and EquipmentName are denormalized so dashboards can render
// an alert without a join. Resolution is one-way: IsResolved never flips back.
type Alert struct {
	ID            string    `gorm:"primaryKey;size:36"`
	EquipmentID   string    `gorm:"size:36;not null;index"`
	EquipmentCode string    `gorm:"size:64;not null"`
	EquipmentName string    `gorm:"size:256;not null"`
	Type          AlertType `gorm:"size:48;not null"`
	Severity      Severity  `gorm:"size:16;not null"`
	Title         string    `gorm:"size:256;not null"`
	Message       string    `gorm:"size:1024;not null"`
	IsResolved    bool      `gorm:"not null;default:false;index"`
	ResolvedAt    *time.Time
	ResolvedBy    string    `gorm:"size:36"`
	CreatedAt     time.Time `gorm:"not null;index"`

	// Associations
	Notifications []Notification `gorm:"foreignKey:AlertID"`
}

// NotificationType classifies a per-user delivery record.
type NotificationType string

const (
	NotificationAlert  NotificationType = "ALERT"
	NotificationSystem NotificationType = "SYSTEM"
)

// Notification is the per-recipient delivery record of an alert. Read state is
// tracked per user, independent of the parent alert's resolution state.
type Notification struct {
	ID        string           `gorm:"primaryKey;size:36"`
	AlertID   string           `gorm:"size:36;not null;index"`
	UserID    string           `gorm:"size:36;not null;index"`
	Type      NotificationType `gorm:"size:32;not null"`
	Title     string           `gorm:"size:256;not null"`
	Message   string           `gorm:"size:1024;not null"`
	IsRead    bool             `gorm:"not null;default:false"`
	ReadAt    *time.Time
	CreatedAt time.Time `gorm:"not null;index"`
}
