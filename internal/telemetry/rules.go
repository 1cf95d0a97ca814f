package telemetry

import (
	"fmt"
	"time"

	"equipment-monitor-backend/internal/model"
)

// Reading is one inbound sensor report for a piece of equipment. All sensor
// fields are optional; a nil field was not reported and is skipped by the
// threshold rules (never treated as zero).
type Reading struct {
	Status            *model.OperationalStatus `json:"status"`
	HealthScore       *float64                 `json:"healthScore"`
	RunningHours      *float64                 `json:"runningHours"`
	Temperature       *float64                 `json:"temperature"`
	Vibration         *float64                 `json:"vibration"`
	EnergyConsumption *float64                 `json:"energyConsumption"`
	Pressure          *float64                 `json:"pressure"`
	Humidity          *float64                 `json:"humidity"`
	RPM               *float64                 `json:"rpm"`
	Voltage           *float64                 `json:"voltage"`
	Current           *float64                 `json:"current"`
	ObservedAt        time.Time                `json:"-"`
}

// Candidate is the outcome of one threshold rule: at most one per rule per
// reading, even when several sub-conditions of the rule fire.
type Candidate struct {
	Type     model.AlertType
	Severity model.Severity
	Title    string
	Message  string
}

// Threshold policy. The exact values are policy and must stay reproducible.
const (
	tempHigh     = 80
	tempCritical = 100
	vibHigh      = 10
	vibCritical  = 15
	energyMedium = 50
)

// Evaluate runs the independent threshold rules over a reading. Pure function;
// the common all-quiet case returns nil without any allocation.
func Evaluate(equipmentName string, r Reading) []Candidate {
	var candidates []Candidate

	if r.Temperature != nil && *r.Temperature > tempHigh {
		severity := model.SeverityHigh
		if *r.Temperature > tempCritical {
			severity = model.SeverityCritical
		}
		candidates = append(candidates, Candidate{
			Type:     model.AlertHighTemperature,
			Severity: severity,
			Title:    fmt.Sprintf("High Temperature: %s", equipmentName),
			Message:  fmt.Sprintf("Temperature reached %.1f°C.", *r.Temperature),
		})
	}

	if r.Vibration != nil && *r.Vibration > vibHigh {
		severity := model.SeverityHigh
		if *r.Vibration > vibCritical {
			severity = model.SeverityCritical
		}
		candidates = append(candidates, Candidate{
			Type:     model.AlertAbnormalVibration,
			Severity: severity,
			Title:    fmt.Sprintf("Abnormal Vibration: %s", equipmentName),
			Message:  fmt.Sprintf("Vibration detected at %.1f mm/s.", *r.Vibration),
		})
	}

	if r.EnergyConsumption != nil && *r.EnergyConsumption > energyMedium {
		candidates = append(candidates, Candidate{
			Type:     model.AlertHighEnergyConsumption,
			Severity: model.SeverityMedium,
			Title:    fmt.Sprintf("High Energy Use: %s", equipmentName),
			Message:  fmt.Sprintf("Energy consumption spiked to %.1f kWh.", *r.EnergyConsumption),
		})
	}

	return candidates
}
