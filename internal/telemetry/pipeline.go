package telemetry

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"equipment-monitor-backend/internal/model"
	"equipment-monitor-backend/internal/realtime"
	"equipment-monitor-backend/internal/store"
)

// Pipeline turns inbound sensor readings into status snapshots, history rows,
// and threshold alerts with their notification fan-out.
//
// Concurrent ingestion for the same equipment is not serialized against
// itself; near-simultaneous readings for the same underlying fault may each
// produce an alert. There is deliberately no dedup or cooldown window.
type Pipeline struct {
	store  store.Store
	pub    realtime.Publisher
	logger *zap.Logger

	now   func() time.Time
	newID func() string
}

// New creates a pipeline publishing to the given broadcast capability.
func New(s store.Store, pub realtime.Publisher, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		store:  s,
		pub:    pub,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
		newID:  func() string { return uuid.NewString() },
	}
}

// Result reports what one ingestion call produced.
type Result struct {
	Status   *model.EquipmentStatus
	AlertIDs []string
}

// Ingest processes one reading for the equipment identified by its
// device-facing code.
//
// The status snapshot write is authoritative: its failure fails the call. The
// history row is supplementary: its failure is logged and ingestion still
// succeeds. Alert persistence strictly precedes any broadcast, and broadcast
// failure never rolls anything back.
func (p *Pipeline) Ingest(ctx context.Context, equipmentCode string, r Reading) (*Result, error) {
	equipment, err := p.store.GetActiveEquipmentByCode(ctx, equipmentCode)
	if err != nil {
		return nil, err
	}

	observedAt := r.ObservedAt
	if observedAt.IsZero() {
		observedAt = p.now()
	}

	snap := p.buildSnapshot(equipment.ID, r, observedAt)
	if err := p.store.SaveStatusSnapshot(ctx, snap); err != nil {
		return nil, err
	}

	if err := p.store.AppendSensorReading(ctx, &model.SensorReading{
		EquipmentID:       equipment.ID,
		Temperature:       r.Temperature,
		Vibration:         r.Vibration,
		EnergyConsumption: r.EnergyConsumption,
		Pressure:          r.Pressure,
		Humidity:          r.Humidity,
		RPM:               r.RPM,
		Voltage:           r.Voltage,
		Current:           r.Current,
		CreatedAt:         observedAt,
	}); err != nil {
		// History is supplementary; the snapshot above is the authoritative
		// current state.
		p.logger.Warn("sensor history write failed",
			zap.String("equipment", equipmentCode), zap.Error(err))
	}

	if p.pub != nil {
		p.pub.Publish(realtime.TopicEquipmentStatus, realtime.EquipmentStatusUpdated{
			EquipmentCode: equipment.Code,
			Status:        *snap,
		})
	}

	candidates := Evaluate(equipment.Name, r)
	if len(candidates) == 0 {
		return &Result{Status: snap}, nil
	}

	// One recipient resolution per ingestion call, shared by every alert.
	recipients, err := p.store.ListAlertRecipients(ctx, equipment.Lab.Institute)
	if err != nil {
		return nil, err
	}

	result := &Result{Status: snap}
	for _, candidate := range candidates {
		alert, notifications := p.buildAlert(equipment, candidate, recipients)
		if err := p.store.CreateAlertWithNotifications(ctx, alert, notifications); err != nil {
			return nil, fmt.Errorf("alert creation failed for equipment %s: %w", equipmentCode, err)
		}
		result.AlertIDs = append(result.AlertIDs, alert.ID)

		p.broadcast(alert, notifications)

		p.logger.Info("alert created",
			zap.String("alert", alert.ID),
			zap.String("equipment", equipment.Code),
			zap.String("type", string(alert.Type)),
			zap.String("severity", string(alert.Severity)),
			zap.Int("recipients", len(notifications)))
	}

	return result, nil
}

func (p *Pipeline) buildSnapshot(equipmentID string, r Reading, observedAt time.Time) *model.EquipmentStatus {
	snap := &model.EquipmentStatus{
		EquipmentID:       equipmentID,
		Status:            model.StatusOperational,
		HealthScore:       100,
		Temperature:       r.Temperature,
		Vibration:         r.Vibration,
		EnergyConsumption: r.EnergyConsumption,
		Pressure:          r.Pressure,
		Humidity:          r.Humidity,
		RPM:               r.RPM,
		Voltage:           r.Voltage,
		Current:           r.Current,
		ObservedAt:        observedAt,
	}
	if r.Status != nil {
		snap.Status = *r.Status
	}
	if r.HealthScore != nil {
		snap.HealthScore = *r.HealthScore
	}
	if r.RunningHours != nil {
		snap.RunningHours = *r.RunningHours
	}
	return snap
}

// buildAlert materializes one candidate into an alert row and its per-recipient
// notifications. The recipient set is fixed at creation time and is not
// revised if roles change later.
func (p *Pipeline) buildAlert(equipment *model.Equipment, c Candidate, recipients []model.User) (*model.Alert, []model.Notification) {
	now := p.now()
	alert := &model.Alert{
		ID:            p.newID(),
		EquipmentID:   equipment.ID,
		EquipmentCode: equipment.Code,
		EquipmentName: equipment.Name,
		Type:          c.Type,
		Severity:      c.Severity,
		Title:         c.Title,
		Message:       c.Message,
		CreatedAt:     now,
	}

	notifications := make([]model.Notification, 0, len(recipients))
	for _, user := range recipients {
		notifications = append(notifications, model.Notification{
			ID:        p.newID(),
			AlertID:   alert.ID,
			UserID:    user.ID,
			Type:      model.NotificationAlert,
			Title:     c.Title,
			Message:   c.Message,
			CreatedAt: now,
		})
	}
	return alert, notifications
}

func (p *Pipeline) broadcast(alert *model.Alert, notifications []model.Notification) {
	if p.pub == nil {
		return
	}
	p.pub.Publish(realtime.TopicAlerts, realtime.AlertCreated{
		Alert:         *alert,
		EquipmentCode: alert.EquipmentCode,
		EquipmentName: alert.EquipmentName,
	})
	for _, n := range notifications {
		p.pub.Publish(realtime.UserTopic(n.UserID), realtime.NotificationCreated{
			UserID:       n.UserID,
			Notification: n,
		})
	}
}
