package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"equipment-monitor-backend/internal/model"
	"equipment-monitor-backend/internal/scope"
)

// EquipmentPerformanceReport handles GET /api/reports/equipment-performance
// over a date range: sensor averages, alert counts by severity, and a status
// breakdown, all restricted to the caller's scope. An optional equipmentId
// narrows the report to one machine (still scope-checked).
func (h *Handler) EquipmentPerformanceReport(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	pred := scope.For(id)
	db := h.store.DB()

	from, to, err := reportRange(c.Query("from"), c.Query("to"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// The in-scope active equipment id set anchors every aggregate below;
	// soft-deleted equipment never contributes to a report.
	scoped := pred.Equipment(db.Model(&model.Equipment{})).
		Select("equipment.id").
		Where("equipment.is_active = ?", true)
	if equipmentID := c.Query("equipmentId"); equipmentID != "" {
		scoped = scoped.Where("equipment.id = ?", equipmentID)
	}

	type sensorAvgRow struct {
		Readings       int64
		AvgTemperature *float64
		AvgVibration   *float64
		AvgEnergy      *float64
		AvgHumidity    *float64
		AvgPressure    *float64
	}
	var sensors sensorAvgRow
	if err := db.Model(&model.SensorReading{}).
		Where("equipment_id IN (?)", scoped).
		Where("created_at >= ? AND created_at < ?", from, to).
		Select("COUNT(*) as readings, " +
			"AVG(temperature) as avg_temperature, " +
			"AVG(vibration) as avg_vibration, " +
			"AVG(energy_consumption) as avg_energy, " +
			"AVG(humidity) as avg_humidity, " +
			"AVG(pressure) as avg_pressure").
		Scan(&sensors).Error; err != nil {
		h.writeError(c, err)
		return
	}

	type severityRow struct {
		Severity model.Severity
		Count    int64
	}
	var severityRows []severityRow
	if err := db.Model(&model.Alert{}).
		Where("equipment_id IN (?)", scoped).
		Where("created_at >= ? AND created_at < ?", from, to).
		Select("severity, COUNT(*) as count").
		Group("severity").
		Scan(&severityRows).Error; err != nil {
		h.writeError(c, err)
		return
	}
	alertsBySeverity := make(map[model.Severity]int64, len(severityRows))
	var totalAlerts int64
	var highestSeverity model.Severity
	for _, row := range severityRows {
		alertsBySeverity[row.Severity] = row.Count
		totalAlerts += row.Count
		if row.Severity.Rank() > highestSeverity.Rank() {
			highestSeverity = row.Severity
		}
	}

	type statusRow struct {
		Status model.OperationalStatus
		Count  int64
	}
	var statusRows []statusRow
	if err := db.Model(&model.EquipmentStatus{}).
		Where("equipment_id IN (?)", scoped).
		Select("status, COUNT(*) as count").
		Group("status").
		Scan(&statusRows).Error; err != nil {
		h.writeError(c, err)
		return
	}
	statusBreakdown := make(map[model.OperationalStatus]int64, len(statusRows))
	var total, available int64
	for _, row := range statusRows {
		statusBreakdown[row.Status] = row.Count
		total += row.Count
		switch row.Status {
		case model.StatusOperational, model.StatusInUse, model.StatusInClass, model.StatusIdle:
			available += row.Count
		}
	}
	availability := 0.0
	if total > 0 {
		availability = float64(available) / float64(total)
	}

	c.JSON(http.StatusOK, gin.H{
		"from": from,
		"to":   to,
		"sensors": gin.H{
			"readings":       sensors.Readings,
			"avgTemperature": sensors.AvgTemperature,
			"avgVibration":   sensors.AvgVibration,
			"avgEnergy":      sensors.AvgEnergy,
			"avgHumidity":    sensors.AvgHumidity,
			"avgPressure":    sensors.AvgPressure,
		},
		"alerts": gin.H{
			"total":           totalAlerts,
			"bySeverity":      alertsBySeverity,
			"highestSeverity": highestSeverity,
		},
		"statusBreakdown": statusBreakdown,
		"availability":    availability,
	})
}

// reportRange parses an optional from/to pair, defaulting to the last 7 days.
// Accepts RFC 3339 timestamps or plain dates.
func reportRange(fromStr, toStr string) (from, to time.Time, err error) {
	to = time.Now().UTC()
	if toStr != "" {
		if to, err = parseReportTime(toStr); err != nil {
			return from, to, err
		}
	}
	from = to.AddDate(0, 0, -7)
	if fromStr != "" {
		if from, err = parseReportTime(fromStr); err != nil {
			return from, to, err
		}
	}
	if !from.Before(to) {
		return from, to, errTimeRange
	}
	return from, to, nil
}

var errTimeRange = errInvalid("from must be before to")

type errInvalid string

func (e errInvalid) Error() string { return string(e) }

func parseReportTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, errInvalid("invalid time, want RFC 3339 or YYYY-MM-DD")
	}
	return t.UTC(), nil
}
