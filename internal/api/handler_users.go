package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"equipment-monitor-backend/internal/model"
	"equipment-monitor-backend/internal/scope"
)

// ListUsers handles GET /api/users with optional role/institute filters,
// conjoined with the caller's scope.
func (h *Handler) ListUsers(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	pred := scope.For(id)
	page := paginationFrom(c)

	q := pred.Users(h.store.DB().Model(&model.User{}))
	if role := c.Query("role"); role != "" {
		q = q.Where("users.role = ?", role)
	}
	if institute := c.Query("institute"); institute != "" {
		q = q.Where("users.institute = ?", institute)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		h.writeError(c, err)
		return
	}

	var users []model.User
	if err := q.Order("users.email").
		Limit(page.PageSize).Offset(page.Offset()).
		Find(&users).Error; err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"users": users,
		"total": total,
		"page":  page.Page,
		"limit": page.PageSize,
	})
}

// ListUsersByInstitute handles GET /api/users/institute/:institute.
func (h *Handler) ListUsersByInstitute(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	pred := scope.For(id)

	var users []model.User
	if err := pred.Users(h.store.DB().Model(&model.User{})).
		Where("users.institute = ?", c.Param("institute")).
		Order("users.email").
		Find(&users).Error; err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

// GetUser handles GET /api/users/:id. A user can always read their own
// record; anyone else must fall inside the caller's scope.
func (h *Handler) GetUser(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}

	userID := c.Param("id")
	q := h.store.DB().Model(&model.User{})
	if userID != id.UserID {
		q = scope.For(id).Users(q)
	}

	var user model.User
	err := q.Where("users.id = ?", userID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

type setUserActiveRequest struct {
	IsActive *bool `json:"isActive" binding:"required"`
}

// SetUserActive handles PATCH /api/users/:id/status (policy makers only,
// enforced at the router). Deactivated users keep their rows; they stop
// authenticating and stop receiving new notifications.
func (h *Handler) SetUserActive(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}

	var req setUserActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if c.Param("id") == id.UserID && !*req.IsActive {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot deactivate your own account"})
		return
	}

	var user model.User
	err := h.store.DB().Where("id = ?", c.Param("id")).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}
	if err != nil {
		h.writeError(c, err)
		return
	}

	if user.IsActive != *req.IsActive {
		if err := h.store.DB().Model(&model.User{}).
			Where("id = ?", user.ID).
			Update("is_active", *req.IsActive).Error; err != nil {
			h.writeError(c, err)
			return
		}
		user.IsActive = *req.IsActive
	}
	c.JSON(http.StatusOK, user)
}
