// Package realtime is the broadcast registry: topics with zero or more
// currently-connected subscribers, best-effort delivery. Publishing never
// blocks the caller and never reports failure upwards; a slow subscriber
// drops events rather than stalling ingestion.
package realtime

import (
	"sync"

	"go.uber.org/zap"

	"equipment-monitor-backend/internal/model"
)

// TopicAlerts carries AlertCreated events for every new alert.
const TopicAlerts = "alerts"

// TopicEquipmentStatus carries EquipmentStatusUpdated events.
const TopicEquipmentStatus = "equipment_status"

// UserTopic is the per-recipient channel for personal notifications.
func UserTopic(userID string) string {
	return "notifications:" + userID
}

// AlertCreated is pushed on TopicAlerts after an alert is durably created.
type AlertCreated struct {
	Alert         model.Alert `json:"alert"`
	EquipmentCode string      `json:"equipmentCode"`
	EquipmentName string      `json:"equipmentName"`
}

// NotificationCreated is pushed on the recipient's user topic.
type NotificationCreated struct {
	UserID       string             `json:"userId"`
	Notification model.Notification `json:"notification"`
}

// EquipmentStatusUpdated is pushed on TopicEquipmentStatus after a snapshot
// write.
type EquipmentStatusUpdated struct {
	EquipmentCode string                `json:"equipmentCode"`
	Status        model.EquipmentStatus `json:"status"`
}

// Event pairs a topic with its payload.
type Event struct {
	Topic   string
	Payload any
}

// Publisher is the capability business logic depends on. The hub satisfies
// it; tests substitute fakes.
type Publisher interface {
	Publish(topic string, payload any)
}

// Subscription is one subscriber's buffered feed for a single topic. Close it
// when the connection goes away.
type Subscription struct {
	topic string
	ch    chan Event
	hub   *Hub
	once  sync.Once
}

// Events returns the subscriber's receive channel. It is closed by Close.
func (s *Subscription) Events() <-chan Event {
	return s.ch
}

// Close deregisters the subscription and closes its channel. Safe to call
// more than once and safe under concurrent Publish.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.remove(s)
	})
}

// Hub is the only cross-request shared mutable structure: subscriber
// connections keyed by topic.
type Hub struct {
	mu     sync.RWMutex
	topics map[string]map[*Subscription]struct{}
	logger *zap.Logger
}

// NewHub creates an empty hub.
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		topics: make(map[string]map[*Subscription]struct{}),
		logger: logger,
	}
}

// Subscribe registers a new subscriber on a topic. buffer bounds how many
// undelivered events the subscriber may lag behind before events are dropped.
func (h *Hub) Subscribe(topic string, buffer int) *Subscription {
	if buffer <= 0 {
		buffer = 16
	}
	sub := &Subscription{
		topic: topic,
		ch:    make(chan Event, buffer),
		hub:   h,
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	subs, ok := h.topics[topic]
	if !ok {
		subs = make(map[*Subscription]struct{})
		h.topics[topic] = subs
	}
	subs[sub] = struct{}{}
	return sub
}

func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if subs, ok := h.topics[sub.topic]; ok {
		if _, present := subs[sub]; present {
			delete(subs, sub)
			close(sub.ch)
			if len(subs) == 0 {
				delete(h.topics, sub.topic)
			}
		}
	}
}

// Publish delivers the payload to every current subscriber of the topic.
// Fire-and-forget: a full subscriber buffer drops the event and logs it.
func (h *Hub) Publish(topic string, payload any) {
	event := Event{Topic: topic, Payload: payload}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.topics[topic] {
		select {
		case sub.ch <- event:
		default:
			h.logger.Warn("dropping event for slow subscriber",
				zap.String("topic", topic))
		}
	}
}

// SubscriberCount reports how many subscribers a topic currently has.
func (h *Hub) SubscriberCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}
