package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"equipment-monitor-backend/internal/model"
	"equipment-monitor-backend/internal/scope"
)

// ErrNotFound is returned when a referenced record does not exist or is
// inactive.
var ErrNotFound = errors.New("record not found")

// Store defines the database operations used by the telemetry pipeline and
// the push notification worker. Request handlers query through the shared
// *gorm.DB with scope predicates applied directly.
type Store interface {
	DB() *gorm.DB

	// GetActiveEquipmentByCode resolves a device-facing equipment code to the
	// equipment record with its lab. Inactive equipment is reported as absent.
	GetActiveEquipmentByCode(ctx context.Context, code string) (*model.Equipment, error)

	// SaveStatusSnapshot upserts the 1:1 latest-state row for the equipment.
	SaveStatusSnapshot(ctx context.Context, snap *model.EquipmentStatus) error

	// AppendSensorReading inserts one immutable history row.
	AppendSensorReading(ctx context.Context, reading *model.SensorReading) error

	// ListAlertRecipients returns all active policy makers plus all active
	// users of the given institute.
	ListAlertRecipients(ctx context.Context, institute string) ([]model.User, error)

	// CreateAlertWithNotifications persists one alert and its full
	// notification fan-out in a single transaction: either the alert and all
	// its notifications exist afterwards, or none do.
	CreateAlertWithNotifications(ctx context.Context, alert *model.Alert, notifications []model.Notification) error

	// ResolveAlert marks an alert resolved if the predicate admits it.
	// Resolving an already-resolved alert is a no-op; changed reports whether
	// this call performed the transition.
	ResolveAlert(ctx context.Context, alertID string, pred scope.Predicate, resolvedBy string) (alert *model.Alert, changed bool, err error)

	// ListSubscriptionsForAlert returns the push subscriptions of every user
	// that holds a notification for the alert.
	ListSubscriptionsForAlert(ctx context.Context, alertID string) ([]model.PushSubscription, error)

	// DeleteSubscription removes an expired or revoked push subscription.
	DeleteSubscription(ctx context.Context, endpoint string) error
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) DB() *gorm.DB {
	return s.db
}

func (s *gormStore) GetActiveEquipmentByCode(ctx context.Context, code string) (*model.Equipment, error) {
	var equipment model.Equipment
	err := s.db.WithContext(ctx).
		Preload("Lab").
		Where("code = ? AND is_active = ?", code, true).
		First(&equipment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve equipment %q: %w", code, err)
	}
	return &equipment, nil
}

func (s *gormStore) SaveStatusSnapshot(ctx context.Context, snap *model.EquipmentStatus) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "equipment_id"}},
		UpdateAll: true,
	}).Create(snap).Error
	if err != nil {
		return fmt.Errorf("failed to save status snapshot for equipment %s: %w", snap.EquipmentID, err)
	}
	return nil
}

func (s *gormStore) AppendSensorReading(ctx context.Context, reading *model.SensorReading) error {
	return s.db.WithContext(ctx).Create(reading).Error
}

func (s *gormStore) ListAlertRecipients(ctx context.Context, institute string) ([]model.User, error) {
	var users []model.User
	err := s.db.WithContext(ctx).
		Where("is_active = ?", true).
		Where("role = ? OR institute = ?", model.RolePolicyMaker, institute).
		Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list alert recipients: %w", err)
	}
	return users, nil
}

func (s *gormStore) CreateAlertWithNotifications(ctx context.Context, alert *model.Alert, notifications []model.Notification) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(alert).Error; err != nil {
			return fmt.Errorf("failed to create alert for equipment %s: %w", alert.EquipmentID, err)
		}
		if len(notifications) > 0 {
			if err := tx.Create(&notifications).Error; err != nil {
				return fmt.Errorf("failed to create notifications for alert %s: %w", alert.ID, err)
			}
		}
		return nil
	})
}

func (s *gormStore) ResolveAlert(ctx context.Context, alertID string, pred scope.Predicate, resolvedBy string) (*model.Alert, bool, error) {
	var alert model.Alert
	err := pred.Alerts(s.db.WithContext(ctx).Model(&model.Alert{})).
		Where("alerts.id = ?", alertID).
		First(&alert).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, ErrNotFound
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to load alert %s: %w", alertID, err)
	}

	if alert.IsResolved {
		return &alert, false, nil
	}

	now := nowFunc()
	updates := map[string]any{
		"is_resolved": true,
		"resolved_at": now,
		"resolved_by": resolvedBy,
	}
	if err := s.db.WithContext(ctx).Model(&model.Alert{}).
		Where("id = ?", alert.ID).
		Updates(updates).Error; err != nil {
		return nil, false, fmt.Errorf("failed to resolve alert %s: %w", alertID, err)
	}

	alert.IsResolved = true
	alert.ResolvedAt = &now
	alert.ResolvedBy = resolvedBy
	return &alert, true, nil
}

func (s *gormStore) ListSubscriptionsForAlert(ctx context.Context, alertID string) ([]model.PushSubscription, error) {
	var subscriptions []model.PushSubscription
	err := s.db.WithContext(ctx).
		Joins("JOIN notifications ON notifications.user_id = push_subscriptions.user_id").
		Where("notifications.alert_id = ?", alertID).
		Find(&subscriptions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch subscriptions for alert %s: %w", alertID, err)
	}
	return subscriptions, nil
}

func (s *gormStore) DeleteSubscription(ctx context.Context, endpoint string) error {
	return s.db.WithContext(ctx).Delete(&model.PushSubscription{Endpoint: endpoint}).Error
}
