package telemetry

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"equipment-monitor-backend/internal/model"
	"equipment-monitor-backend/internal/realtime"
	"equipment-monitor-backend/internal/scope"
	"equipment-monitor-backend/internal/store"
)

// fakeStore records pipeline interactions without a database.
type fakeStore struct {
	equipment map[string]*model.Equipment
	users     []model.User

	snapshots      []*model.EquipmentStatus
	readings       []*model.SensorReading
	alerts         []*model.Alert
	notifications  [][]model.Notification
	recipientCalls int

	readingErr  error
	snapshotErr error
	alertErr    error
}

func (f *fakeStore) DB() *gorm.DB { return nil }

func (f *fakeStore) GetActiveEquipmentByCode(_ context.Context, code string) (*model.Equipment, error) {
	eq, ok := f.equipment[code]
	if !ok {
		return nil, store.ErrNotFound
	}
	return eq, nil
}

func (f *fakeStore) SaveStatusSnapshot(_ context.Context, snap *model.EquipmentStatus) error {
	if f.snapshotErr != nil {
		return f.snapshotErr
	}
	f.snapshots = append(f.snapshots, snap)
	return nil
}

func (f *fakeStore) AppendSensorReading(_ context.Context, r *model.SensorReading) error {
	if f.readingErr != nil {
		return f.readingErr
	}
	f.readings = append(f.readings, r)
	return nil
}

func (f *fakeStore) ListAlertRecipients(_ context.Context, institute string) ([]model.User, error) {
	f.recipientCalls++
	var out []model.User
	for _, u := range f.users {
		if !u.IsActive {
			continue
		}
		if u.Role == model.RolePolicyMaker || u.Institute == institute {
			out = append(out, u)
		}
	}
	return out, nil
}

func (f *fakeStore) CreateAlertWithNotifications(_ context.Context, alert *model.Alert, notifications []model.Notification) error {
	if f.alertErr != nil {
		return f.alertErr
	}
	f.alerts = append(f.alerts, alert)
	f.notifications = append(f.notifications, notifications)
	return nil
}

func (f *fakeStore) ResolveAlert(context.Context, string, scope.Predicate, string) (*model.Alert, bool, error) {
	return nil, false, errors.New("not used")
}

func (f *fakeStore) ListSubscriptionsForAlert(context.Context, string) ([]model.PushSubscription, error) {
	return nil, nil
}

func (f *fakeStore) DeleteSubscription(context.Context, string) error { return nil }

// fakePublisher collects broadcast events.
type fakePublisher struct {
	events []realtime.Event
}

func (p *fakePublisher) Publish(topic string, payload any) {
	p.events = append(p.events, realtime.Event{Topic: topic, Payload: payload})
}

func (p *fakePublisher) topics() []string {
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Topic
	}
	return out
}

func newFixture() (*fakeStore, *fakePublisher, *Pipeline) {
	fs := &fakeStore{
		equipment: map[string]*model.Equipment{
			"ITI_PUSA_FIT_001": {
				ID:   "eq-1",
				Code: "ITI_PUSA_FIT_001",
				Name: "Bench Drilling Machine",
				Lab:  model.Lab{ID: "lab-1", Institute: "ITI Pusa", Department: "FITTER_MANUFACTURING"},
			},
		},
		users: []model.User{
			{ID: "pm-1", Role: model.RolePolicyMaker, IsActive: true},
			{ID: "pm-2", Role: model.RolePolicyMaker, IsActive: false},
			{ID: "mgr-1", Role: model.RoleLabManager, Institute: "ITI Pusa", IsActive: true},
			{ID: "tr-1", Role: model.RoleTrainer, Institute: "ITI Pusa", LabID: "lab-1", IsActive: true},
			{ID: "mgr-2", Role: model.RoleLabManager, Institute: "ATI Mumbai", IsActive: true},
		},
	}
	pub := &fakePublisher{}
	pipeline := New(fs, pub, nil)

	id := 0
	pipeline.newID = func() string { id++; return fmt.Sprintf("id-%d", id) }
	return fs, pub, pipeline
}

func TestIngestUnknownEquipment(t *testing.T) {
	_, _, pipeline := newFixture()

	_, err := pipeline.Ingest(context.Background(), "NO_SUCH_EQUIPMENT", Reading{Temperature: f(90)})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestIngestQuietReading(t *testing.T) {
	fs, pub, pipeline := newFixture()

	result, err := pipeline.Ingest(context.Background(), "ITI_PUSA_FIT_001", Reading{
		Temperature:       f(79),
		Vibration:         f(5),
		EnergyConsumption: f(10),
	})
	require.NoError(t, err)

	assert.Empty(t, result.AlertIDs)
	assert.Len(t, fs.snapshots, 1)
	assert.Len(t, fs.readings, 1)
	assert.Empty(t, fs.alerts)
	// The common case does no recipient resolution work at all.
	assert.Zero(t, fs.recipientCalls)
	assert.Equal(t, []string{realtime.TopicEquipmentStatus}, pub.topics())
}

func TestIngestHighTemperatureCreatesOneAlert(t *testing.T) {
	fs, _, pipeline := newFixture()

	result, err := pipeline.Ingest(context.Background(), "ITI_PUSA_FIT_001", Reading{Temperature: f(81)})
	require.NoError(t, err)

	require.Len(t, result.AlertIDs, 1)
	require.Len(t, fs.alerts, 1)
	assert.Equal(t, model.AlertHighTemperature, fs.alerts[0].Type)
	assert.Equal(t, model.SeverityHigh, fs.alerts[0].Severity)
}

func TestIngestCriticalTemperatureCreatesExactlyOneAlert(t *testing.T) {
	fs, _, pipeline := newFixture()

	result, err := pipeline.Ingest(context.Background(), "ITI_PUSA_FIT_001", Reading{Temperature: f(101)})
	require.NoError(t, err)

	// Crossing both thresholds yields one CRITICAL alert, not two.
	require.Len(t, result.AlertIDs, 1)
	assert.Equal(t, model.SeverityCritical, fs.alerts[0].Severity)
}

func TestIngestFanOut(t *testing.T) {
	fs, pub, pipeline := newFixture()

	_, err := pipeline.Ingest(context.Background(), "ITI_PUSA_FIT_001", Reading{Temperature: f(85)})
	require.NoError(t, err)

	require.Len(t, fs.notifications, 1)
	recipients := map[string]bool{}
	for _, n := range fs.notifications[0] {
		recipients[n.UserID] = true
		assert.Equal(t, fs.alerts[0].ID, n.AlertID)
		assert.Equal(t, model.NotificationAlert, n.Type)
	}

	// Active policy maker plus the breaching institute's active staff.
	assert.True(t, recipients["pm-1"])
	assert.True(t, recipients["mgr-1"])
	assert.True(t, recipients["tr-1"])
	// Inactive policy maker and other-institute manager get nothing.
	assert.False(t, recipients["pm-2"])
	assert.False(t, recipients["mgr-2"])

	// Broadcast order: status update, then the alert, then one personal
	// notification per recipient.
	topics := pub.topics()
	require.Len(t, topics, 2+len(fs.notifications[0]))
	assert.Equal(t, realtime.TopicEquipmentStatus, topics[0])
	assert.Equal(t, realtime.TopicAlerts, topics[1])
	for _, n := range fs.notifications[0] {
		assert.Contains(t, topics, realtime.UserTopic(n.UserID))
	}
}

func TestIngestTwoRulesTwoAlerts(t *testing.T) {
	fs, _, pipeline := newFixture()

	result, err := pipeline.Ingest(context.Background(), "ITI_PUSA_FIT_001", Reading{
		Temperature: f(105),
		Vibration:   f(16),
	})
	require.NoError(t, err)

	require.Len(t, result.AlertIDs, 2)
	require.Len(t, fs.alerts, 2)
	require.Len(t, fs.notifications, 2)
	// Each alert carries its own independent notification set.
	assert.Equal(t, len(fs.notifications[0]), len(fs.notifications[1]))
	assert.NotEqual(t, fs.notifications[0][0].ID, fs.notifications[1][0].ID)
	// Recipient resolution happened once for the whole call.
	assert.Equal(t, 1, fs.recipientCalls)
}

func TestIngestHistoryWriteFailureIsNonFatal(t *testing.T) {
	fs, _, pipeline := newFixture()
	fs.readingErr = errors.New("history table unavailable")

	result, err := pipeline.Ingest(context.Background(), "ITI_PUSA_FIT_001", Reading{Temperature: f(85)})
	require.NoError(t, err)

	// Snapshot still written, alert still created.
	assert.Len(t, fs.snapshots, 1)
	assert.Len(t, result.AlertIDs, 1)
}

func TestIngestSnapshotFailureAbortsCall(t *testing.T) {
	fs, pub, pipeline := newFixture()
	fs.snapshotErr = errors.New("db down")

	_, err := pipeline.Ingest(context.Background(), "ITI_PUSA_FIT_001", Reading{Temperature: f(85)})
	assert.Error(t, err)
	assert.Empty(t, fs.alerts)
	assert.Empty(t, pub.events)
}

func TestIngestAlertTransactionFailureAbortsCall(t *testing.T) {
	fs, pub, pipeline := newFixture()
	fs.alertErr = errors.New("tx failed")

	_, err := pipeline.Ingest(context.Background(), "ITI_PUSA_FIT_001", Reading{Temperature: f(85)})
	assert.Error(t, err)
	// No alert broadcast went out for the failed transaction.
	assert.Equal(t, []string{realtime.TopicEquipmentStatus}, pub.topics())
}
