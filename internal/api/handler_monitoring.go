package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"equipment-monitor-backend/internal/model"
	"equipment-monitor-backend/internal/scope"
	"equipment-monitor-backend/internal/telemetry"
)

// realtimeRow joins a status snapshot with the equipment it describes.
type realtimeRow struct {
	EquipmentID   string                  `json:"equipmentId"`
	Code          string                  `json:"code"`
	Name          string                  `json:"name"`
	Department    string                  `json:"department"`
	LabID         string                  `json:"labId"`
	Status        model.OperationalStatus `json:"status"`
	HealthScore   float64                 `json:"healthScore"`
	Temperature   *float64                `json:"temperature"`
	Vibration     *float64                `json:"vibration"`
	EnergyConsump *float64                `json:"energyConsumption" gorm:"column:energy_consumption"`
	ObservedAt    time.Time               `json:"observedAt"`
}

// RealtimeStatus handles GET /api/monitoring/realtime: the latest snapshot of
// every active piece of equipment in scope.
func (h *Handler) RealtimeStatus(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	pred := scope.For(id)

	var rows []realtimeRow
	err := pred.Statuses(h.store.DB().Model(&model.EquipmentStatus{})).
		Joins("JOIN equipment eq ON eq.id = equipment_statuses.equipment_id AND eq.is_active = ?", true).
		Select("eq.id as equipment_id, eq.code, eq.name, eq.department, eq.lab_id, " +
			"equipment_statuses.status, equipment_statuses.health_score, " +
			"equipment_statuses.temperature, equipment_statuses.vibration, " +
			"equipment_statuses.energy_consumption, equipment_statuses.observed_at").
		Order("eq.code").
		Scan(&rows).Error
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

// SensorHistory handles GET /api/monitoring/equipment/:code/history?hours=24.
// Equipment is addressed by its device-facing code, same as ingestion.
func (h *Handler) SensorHistory(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	pred := scope.For(id)

	hours, _ := strconv.Atoi(c.DefaultQuery("hours", "24"))
	if hours < 1 {
		hours = 24
	}
	if hours > 24*30 {
		hours = 24 * 30
	}

	var equipment model.Equipment
	err := pred.Equipment(h.store.DB().Model(&model.Equipment{})).
		Where("equipment.code = ?", c.Param("code")).
		First(&equipment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "equipment not found"})
		return
	}
	if err != nil {
		h.writeError(c, err)
		return
	}

	since := time.Now().UTC().Add(-time.Duration(hours) * time.Hour)
	var readings []model.SensorReading
	if err := h.store.DB().
		Where("equipment_id = ? AND created_at >= ?", equipment.ID, since).
		Order("created_at").
		Find(&readings).Error; err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"equipmentId": equipment.ID,
		"code":        equipment.Code,
		"hours":       hours,
		"readings":    readings,
	})
}

// IngestStatus handles POST /api/monitoring/equipment/:code/status, the
// telemetry ingestion endpoint. The body carries optional sensor fields; the
// pipeline owns snapshot, history, and alert semantics.
func (h *Handler) IngestStatus(c *gin.Context) {
	var reading telemetry.Reading
	if err := c.ShouldBindJSON(&reading); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if reading.Status != nil && !validStatus(*reading.Status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown status value"})
		return
	}

	result, err := h.pipeline.Ingest(c.Request.Context(), c.Param("code"), reading)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":   result.Status,
		"alertIds": result.AlertIDs,
	})
}

func validStatus(s model.OperationalStatus) bool {
	switch s {
	case model.StatusOperational, model.StatusInUse, model.StatusInClass,
		model.StatusIdle, model.StatusMaintenance, model.StatusFaulty,
		model.StatusOffline, model.StatusWarning:
		return true
	}
	return false
}

// Dashboard handles GET /api/monitoring/dashboard. Every number is computed
// under the caller's predicate; a policy maker additionally gets the
// per-institute roll-up.
func (h *Handler) Dashboard(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	pred := scope.For(id)
	db := h.store.DB()

	var totalEquipment int64
	if err := pred.Equipment(db.Model(&model.Equipment{})).
		Where("equipment.is_active = ?", true).
		Count(&totalEquipment).Error; err != nil {
		h.writeError(c, err)
		return
	}

	type avgRow struct {
		Avg *float64
	}
	var health avgRow
	if err := pred.Statuses(db.Model(&model.EquipmentStatus{})).
		Joins("JOIN equipment eq ON eq.id = equipment_statuses.equipment_id AND eq.is_active = ?", true).
		Select("AVG(equipment_statuses.health_score) as avg").
		Scan(&health).Error; err != nil {
		h.writeError(c, err)
		return
	}
	avgHealth := 0.0
	if health.Avg != nil {
		avgHealth = *health.Avg
	}

	type statusRow struct {
		Status model.OperationalStatus
		Count  int64
	}
	var statusRows []statusRow
	if err := pred.Statuses(db.Model(&model.EquipmentStatus{})).
		Joins("JOIN equipment eq ON eq.id = equipment_statuses.equipment_id AND eq.is_active = ?", true).
		Select("equipment_statuses.status, COUNT(*) as count").
		Group("equipment_statuses.status").
		Scan(&statusRows).Error; err != nil {
		h.writeError(c, err)
		return
	}
	statusBreakdown := make(map[model.OperationalStatus]int64, len(statusRows))
	for _, row := range statusRows {
		statusBreakdown[row.Status] = row.Count
	}

	type severityRow struct {
		Severity model.Severity
		Count    int64
	}
	var severityRows []severityRow
	if err := pred.Alerts(db.Model(&model.Alert{})).
		Where("alerts.is_resolved = ?", false).
		Where("alerts.equipment_id IN (?)", activeEquipment(h.store.DB())).
		Select("alerts.severity, COUNT(*) as count").
		Group("alerts.severity").
		Scan(&severityRows).Error; err != nil {
		h.writeError(c, err)
		return
	}
	alertCounts := make(map[model.Severity]int64, len(severityRows))
	var unresolvedAlerts int64
	for _, row := range severityRows {
		alertCounts[row.Severity] = row.Count
		unresolvedAlerts += row.Count
	}

	var recentAlerts []model.Alert
	if err := pred.Alerts(db.Model(&model.Alert{})).
		Where("alerts.is_resolved = ?", false).
		Where("alerts.equipment_id IN (?)", activeEquipment(h.store.DB())).
		Order("alerts.created_at DESC").
		Limit(5).
		Find(&recentAlerts).Error; err != nil {
		h.writeError(c, err)
		return
	}

	resp := gin.H{
		"totalEquipment":   totalEquipment,
		"avgHealthScore":   avgHealth,
		"statusBreakdown":  statusBreakdown,
		"unresolvedAlerts": unresolvedAlerts,
		"alertsBySeverity": alertCounts,
		"recentAlerts":     recentAlerts,
	}

	if pred.MatchesAll() {
		type instRow struct {
			Institute string
			Count     int64
		}
		var instRows []instRow
		if err := db.Model(&model.Equipment{}).
			Joins("JOIN labs ON labs.id = equipment.lab_id").
			Where("equipment.is_active = ?", true).
			Select("labs.institute, COUNT(*) as count").
			Group("labs.institute").
			Scan(&instRows).Error; err != nil {
			h.writeError(c, err)
			return
		}
		byInstitute := make(map[string]int64, len(instRows))
		for _, row := range instRows {
			byInstitute[row.Institute] = row.Count
		}
		resp["equipmentByInstitute"] = byInstitute
	}

	c.JSON(http.StatusOK, resp)
}
