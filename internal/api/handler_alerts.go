package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"equipment-monitor-backend/internal/model"
	"equipment-monitor-backend/internal/scope"
)

// ListAlerts handles GET /api/alerts: unresolved alerts in scope, newest
// first. ?resolved=true flips to the resolved history instead.
func (h *Handler) ListAlerts(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	pred := scope.For(id)
	page := paginationFrom(c)

	resolved := c.Query("resolved") == "true"
	q := pred.Alerts(h.store.DB().Model(&model.Alert{})).
		Where("alerts.is_resolved = ?", resolved).
		Where("alerts.equipment_id IN (?)", activeEquipment(h.store.DB()))

	if severity := c.Query("severity"); severity != "" {
		q = q.Where("alerts.severity = ?", severity)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		h.writeError(c, err)
		return
	}

	var alerts []model.Alert
	if err := q.Order("alerts.created_at DESC").
		Limit(page.PageSize).Offset(page.Offset()).
		Find(&alerts).Error; err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"alerts": alerts,
		"total":  total,
		"page":   page.Page,
		"limit":  page.PageSize,
	})
}

// ResolveAlert handles PATCH /api/alerts/:id/resolve. Resolution is one-way
// and idempotent: resolving an already-resolved alert succeeds without
// changing who resolved it or when.
func (h *Handler) ResolveAlert(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}

	alert, changed, err := h.store.ResolveAlert(c.Request.Context(), c.Param("id"), scope.For(id), id.UserID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"alert": alert, "changed": changed})
}

// ListNotifications handles GET /api/notifications for the authenticated
// user. ?unread=true restricts to unread ones.
func (h *Handler) ListNotifications(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	page := paginationFrom(c)

	q := h.store.DB().Model(&model.Notification{}).Where("user_id = ?", id.UserID)
	if c.Query("unread") == "true" {
		q = q.Where("is_read = ?", false)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		h.writeError(c, err)
		return
	}

	var notifications []model.Notification
	if err := q.Order("created_at DESC").
		Limit(page.PageSize).Offset(page.Offset()).
		Find(&notifications).Error; err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"notifications": notifications,
		"total":         total,
		"page":          page.Page,
		"limit":         page.PageSize,
	})
}

// MarkNotificationRead handles PATCH /api/notifications/:id/read. Only the
// owning user can mark their notification; marking twice is a no-op.
func (h *Handler) MarkNotificationRead(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}

	var notification model.Notification
	err := h.store.DB().
		Where("id = ? AND user_id = ?", c.Param("id"), id.UserID).
		First(&notification).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "notification not found"})
		return
	}
	if err != nil {
		h.writeError(c, err)
		return
	}

	if !notification.IsRead {
		now := time.Now().UTC()
		if err := h.store.DB().Model(&model.Notification{}).
			Where("id = ?", notification.ID).
			Updates(map[string]any{"is_read": true, "read_at": now}).Error; err != nil {
			h.writeError(c, err)
			return
		}
		notification.IsRead = true
		notification.ReadAt = &now
	}
	c.JSON(http.StatusOK, notification)
}
