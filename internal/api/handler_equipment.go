package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"equipment-monitor-backend/internal/model"
	"equipment-monitor-backend/internal/scope"
)

// ListEquipment handles GET /api/equipment with pagination and optional
// department/status/search filters, all conjoined with the caller's scope.
func (h *Handler) ListEquipment(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	pred := scope.For(id)
	page := paginationFrom(c)

	q := pred.Equipment(h.store.DB().Model(&model.Equipment{})).
		Where("equipment.is_active = ?", true)

	if dept := c.Query("department"); dept != "" {
		q = q.Where("equipment.department = ?", dept)
	}
	if status := c.Query("status"); status != "" {
		q = q.Joins("JOIN equipment_statuses ON equipment_statuses.equipment_id = equipment.id").
			Where("equipment_statuses.status = ?", status)
	}
	if search := c.Query("search"); search != "" {
		like := "%" + search + "%"
		q = q.Where("equipment.name LIKE ? OR equipment.code LIKE ?", like, like)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		h.writeError(c, err)
		return
	}

	var equipment []model.Equipment
	if err := q.Preload("Lab").Preload("Status").
		Order("equipment.code").
		Limit(page.PageSize).Offset(page.Offset()).
		Find(&equipment).Error; err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"equipment": equipment,
		"total":     total,
		"page":      page.Page,
		"limit":     page.PageSize,
	})
}

// GetEquipment handles GET /api/equipment/:id.
func (h *Handler) GetEquipment(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	pred := scope.For(id)

	var equipment model.Equipment
	err := pred.Equipment(h.store.DB().Model(&model.Equipment{})).
		Preload("Lab").Preload("Status").
		Where("equipment.id = ? AND equipment.is_active = ?", c.Param("id"), true).
		First(&equipment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "equipment not found"})
		return
	}
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, equipment)
}

type createEquipmentRequest struct {
	Code         string     `json:"code" binding:"required"`
	Name         string     `json:"name" binding:"required"`
	LabID        string     `json:"labId" binding:"required"`
	Manufacturer string     `json:"manufacturer"`
	Model        string     `json:"model"`
	SerialNumber string     `json:"serialNumber"`
	PurchaseDate *time.Time `json:"purchaseDate"`
}

// CreateEquipment handles POST /api/equipment. The target lab must exist and
// fall inside the caller's scope; the equipment inherits the lab's department.
func (h *Handler) CreateEquipment(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}

	var req createEquipmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var lab model.Lab
	err := h.store.DB().Where("id = ?", req.LabID).First(&lab).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "lab not found"})
		return
	}
	if err != nil {
		h.writeError(c, err)
		return
	}

	if !scope.For(id).MatchesLab(lab) {
		h.writeError(c, scope.ErrDenied)
		return
	}

	equipment := model.Equipment{
		ID:           uuid.NewString(),
		Code:         req.Code,
		Name:         req.Name,
		Department:   lab.Department,
		Manufacturer: req.Manufacturer,
		Model:        req.Model,
		SerialNumber: req.SerialNumber,
		LabID:        lab.ID,
		IsActive:     true,
		PurchaseDate: req.PurchaseDate,
	}
	if err := h.store.DB().Create(&equipment).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			c.JSON(http.StatusConflict, gin.H{"error": "equipment code already exists"})
			return
		}
		h.writeError(c, err)
		return
	}
	equipment.Lab = lab
	c.JSON(http.StatusCreated, equipment)
}

type updateEquipmentRequest struct {
	Name         *string    `json:"name"`
	Manufacturer *string    `json:"manufacturer"`
	Model        *string    `json:"model"`
	SerialNumber *string    `json:"serialNumber"`
	PurchaseDate *time.Time `json:"purchaseDate"`
	LabID        *string    `json:"labId"`
}

// UpdateEquipment handles PUT /api/equipment/:id. A lab change is a move and
// requires both the current and the destination lab to be inside the caller's
// scope; a denied move leaves the record untouched.
func (h *Handler) UpdateEquipment(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	pred := scope.For(id)

	var req updateEquipmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var equipment model.Equipment
	err := pred.Equipment(h.store.DB().Model(&model.Equipment{})).
		Preload("Lab").
		Where("equipment.id = ? AND equipment.is_active = ?", c.Param("id"), true).
		First(&equipment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "equipment not found"})
		return
	}
	if err != nil {
		h.writeError(c, err)
		return
	}

	updates := map[string]any{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Manufacturer != nil {
		updates["manufacturer"] = *req.Manufacturer
	}
	if req.Model != nil {
		updates["model"] = *req.Model
	}
	if req.SerialNumber != nil {
		updates["serial_number"] = *req.SerialNumber
	}
	if req.PurchaseDate != nil {
		updates["purchase_date"] = *req.PurchaseDate
	}

	if req.LabID != nil && *req.LabID != equipment.LabID {
		var dst model.Lab
		err := h.store.DB().Where("id = ?", *req.LabID).First(&dst).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "destination lab not found"})
			return
		}
		if err != nil {
			h.writeError(c, err)
			return
		}
		if err := scope.AuthorizeMove(id, equipment.Lab, dst); err != nil {
			h.writeError(c, err)
			return
		}
		updates["lab_id"] = dst.ID
		updates["department"] = dst.Department
	}

	if len(updates) > 0 {
		if err := h.store.DB().Model(&model.Equipment{}).
			Where("id = ?", equipment.ID).
			Updates(updates).Error; err != nil {
			h.writeError(c, err)
			return
		}
	}

	if err := h.store.DB().Preload("Lab").Preload("Status").
		First(&equipment, "id = ?", equipment.ID).Error; err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, equipment)
}

// DeleteEquipment handles DELETE /api/equipment/:id. Deactivation is a soft
// delete and terminal: history and alerts stay, the row leaves all default
// listings and stops accepting readings.
func (h *Handler) DeleteEquipment(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	pred := scope.For(id)

	var equipment model.Equipment
	err := pred.Equipment(h.store.DB().Model(&model.Equipment{})).
		Where("equipment.id = ? AND equipment.is_active = ?", c.Param("id"), true).
		First(&equipment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "equipment not found"})
		return
	}
	if err != nil {
		h.writeError(c, err)
		return
	}

	if err := h.store.DB().Model(&model.Equipment{}).
		Where("id = ?", equipment.ID).
		Update("is_active", false).Error; err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// EquipmentStats handles GET /api/equipment/stats: status and department
// breakdowns plus the unresolved critical alert count, under the caller's
// scope so the aggregates never leak out-of-scope rows.
func (h *Handler) EquipmentStats(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	pred := scope.For(id)
	db := h.store.DB()

	var total int64
	if err := pred.Equipment(db.Model(&model.Equipment{})).
		Where("equipment.is_active = ?", true).
		Count(&total).Error; err != nil {
		h.writeError(c, err)
		return
	}

	type countRow struct {
		Key   string
		Count int64
	}

	var byStatus []countRow
	if err := pred.Statuses(db.Model(&model.EquipmentStatus{})).
		Joins("JOIN equipment eq ON eq.id = equipment_statuses.equipment_id AND eq.is_active = ?", true).
		Select("equipment_statuses.status as key, COUNT(*) as count").
		Group("equipment_statuses.status").
		Scan(&byStatus).Error; err != nil {
		h.writeError(c, err)
		return
	}

	var byDepartment []countRow
	if err := pred.Equipment(db.Model(&model.Equipment{})).
		Where("equipment.is_active = ?", true).
		Select("equipment.department as key, COUNT(*) as count").
		Group("equipment.department").
		Scan(&byDepartment).Error; err != nil {
		h.writeError(c, err)
		return
	}

	var criticalAlerts int64
	if err := pred.Alerts(db.Model(&model.Alert{})).
		Where("alerts.is_resolved = ? AND alerts.severity = ?", false, model.SeverityCritical).
		Where("alerts.equipment_id IN (?)", activeEquipment(h.store.DB())).
		Count(&criticalAlerts).Error; err != nil {
		h.writeError(c, err)
		return
	}

	statusCounts := make(map[string]int64, len(byStatus))
	for _, row := range byStatus {
		statusCounts[row.Key] = row.Count
	}
	departmentCounts := make(map[string]int64, len(byDepartment))
	for _, row := range byDepartment {
		departmentCounts[row.Key] = row.Count
	}

	c.JSON(http.StatusOK, gin.H{
		"total":          total,
		"byStatus":       statusCounts,
		"byDepartment":   departmentCounts,
		"criticalAlerts": criticalAlerts,
	})
}
