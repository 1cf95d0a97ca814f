package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"equipment-monitor-backend/config"
	"equipment-monitor-backend/internal/model"
	"equipment-monitor-backend/internal/mw"
	"equipment-monitor-backend/internal/scope"
	"equipment-monitor-backend/internal/store"
	"equipment-monitor-backend/internal/telemetry"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store    store.Store
	pipeline *telemetry.Pipeline
	cfg      *config.Config
	logger   *zap.Logger
}

// NewHandler creates a new API handler.
func NewHandler(s store.Store, pipeline *telemetry.Pipeline, cfg *config.Config, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		store:    s,
		pipeline: pipeline,
		cfg:      cfg,
		logger:   logger,
	}
}

// identity returns the authenticated identity or aborts with 401. Handlers on
// protected routes call this first; the middleware guarantees presence, this
// guards against a route wired outside the auth group by mistake.
func identity(c *gin.Context) (scope.Identity, bool) {
	id, ok := mw.IdentityFrom(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
	}
	return id, ok
}

// writeError maps the store/scope error taxonomy onto HTTP statuses.
func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, scope.ErrDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": "access denied"})
	default:
		h.logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// activeEquipment is a subquery of active equipment ids. Deactivation is
// terminal and excludes the row from all default listings and stats, so every
// alert listing or aggregate anchors on this set.
func activeEquipment(db *gorm.DB) *gorm.DB {
	return db.Model(&model.Equipment{}).
		Select("equipment.id").
		Where("equipment.is_active = ?", true)
}

type pagination struct {
	Page     int
	PageSize int
}

func (p pagination) Offset() int { return (p.Page - 1) * p.PageSize }

func paginationFrom(c *gin.Context) pagination {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	size, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if size < 1 {
		size = 20
	}
	if size > 100 {
		size = 100
	}
	return pagination{Page: page, PageSize: size}
}
