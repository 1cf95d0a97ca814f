package model

import "time"

// OperationalStatus is the latest-known state of a piece of equipment.
type OperationalStatus string

const (
	StatusOperational OperationalStatus = "OPERATIONAL"
	StatusInUse       OperationalStatus = "IN_USE"
	StatusInClass     OperationalStatus = "IN_CLASS"
	StatusIdle        OperationalStatus = "IDLE"
	StatusMaintenance OperationalStatus = "MAINTENANCE"
	StatusFaulty      OperationalStatus = "FAULTY"
	StatusOffline     OperationalStatus = "OFFLINE"
	StatusWarning     OperationalStatus = "WARNING"
)

// Equipment belongs to exactly one lab. Rows are never physically deleted;
// IsActive=false is terminal and excludes the row from all default listings.
type Equipment struct {
	ID           string `gorm:"primaryKey;size:36"`
	Code         string `gorm:"uniqueIndex;size:64;not null"`
	Name         string `gorm:"size:256;not null"`
	Department   string `gorm:"size:64;not null;index"`
	Manufacturer string `gorm:"size:128"`
	Model        string `gorm:"size:128"`
	SerialNumber string `gorm:"size:128"`
	LabID        string `gorm:"size:36;not null;index"`
	IsActive     bool   `gorm:"not null;default:true;index"`
	PurchaseDate *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time

	// Associations
	Lab    Lab              `gorm:"constraint:OnDelete:RESTRICT"`
	Status *EquipmentStatus `gorm:"foreignKey:EquipmentID"`
	Alerts []Alert          `gorm:"foreignKey:EquipmentID"`
}

// EquipmentStatus is the 1:1 latest-known state snapshot (hot row). Sensor
// fields are pointers: an absent field means the device did not report it.
type EquipmentStatus struct {
	EquipmentID       string            `gorm:"primaryKey;size:36"`
	Status            OperationalStatus `gorm:"size:32;not null"`
	HealthScore       float64           `gorm:"not null;default:100"`
	RunningHours      float64           `gorm:"not null;default:0"`
	Temperature       *float64
	Vibration         *float64
	EnergyConsumption *float64
	Pressure          *float64
	Humidity          *float64
	RPM               *float64 `gorm:"column:rpm"`
	Voltage           *float64
	Current           *float64
	ObservedAt        time.Time `gorm:"not null"`
	UpdatedAt         time.Time
}

// SensorReading is an immutable, append-only history row (cold table). Writes
// are best-effort: the status snapshot is authoritative for current state.
type SensorReading struct {
	ID                int64  `gorm:"primaryKey;autoIncrement"`
	EquipmentID       string `gorm:"size:36;not null;index:idx_sensor_readings_equipment_created"`
	Temperature       *float64
	Vibration         *float64
	EnergyConsumption *float64
	Pressure          *float64
	Humidity          *float64
	RPM               *float64  `gorm:"column:rpm"`
	Voltage           *float64
	Current           *float64
	CreatedAt         time.Time `gorm:"not null;index:idx_sensor_readings_equipment_created"`
}
