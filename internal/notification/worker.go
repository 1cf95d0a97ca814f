package notification

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"go.uber.org/zap"

	"equipment-monitor-backend/internal/realtime"
	"equipment-monitor-backend/internal/store"
)

// Sender defines the interface for sending a web push notification.
type Sender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is a real implementation of Sender using the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// pushPayload is what the service worker on the browser side receives.
type pushPayload struct {
	Title         string `json:"title"`
	Message       string `json:"message"`
	Severity      string `json:"severity"`
	EquipmentCode string `json:"equipmentCode"`
	AlertID       string `json:"alertId"`
}

// WorkerPool fans freshly created alerts out to browser push subscriptions.
// It feeds off the realtime hub's alerts topic, so delivery shares the
// best-effort semantics of every other broadcast sink.
type WorkerPool struct {
	size    int
	jobs    chan realtime.AlertCreated
	store   store.Store
	webpush *webpush.Options
	sender  Sender
	logger  *zap.Logger
}

// NewWorkerPool creates a new worker pool.
func NewWorkerPool(size int, s store.Store, webpushOptions *webpush.Options, logger *zap.Logger) *WorkerPool {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WorkerPool{
		size:    size,
		jobs:    make(chan realtime.AlertCreated, size),
		store:   s,
		webpush: webpushOptions,
		sender:  &WebPushSender{},
		logger:  logger,
	}
}

// Start launches the worker goroutines and a feeder that subscribes to the
// hub's alerts topic. Workers stop when ctx is cancelled.
func (wp *WorkerPool) Start(ctx context.Context, hub *realtime.Hub) {
	sub := hub.Subscribe(realtime.TopicAlerts, wp.size*4)
	go func() {
		defer sub.Close()
		for {
			select {
			case ev, ok := <-sub.Events():
				if !ok {
					return
				}
				if created, isAlert := ev.Payload.(realtime.AlertCreated); isAlert {
					wp.Dispatch(created)
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

// worker is the actual worker goroutine.
func (wp *WorkerPool) worker(ctx context.Context, id int) {
	wp.logger.Debug("push worker started", zap.Int("worker", id))
	for {
		select {
		case created := <-wp.jobs:
			wp.sendForAlert(ctx, created)
		case <-ctx.Done():
			wp.logger.Debug("push worker shutting down", zap.Int("worker", id))
			return
		}
	}
}

// Dispatch queues one alert for push delivery. Non-blocking: when the queue
// is full the alert is skipped; recipients still see it on their next poll.
func (wp *WorkerPool) Dispatch(created realtime.AlertCreated) {
	select {
	case wp.jobs <- created:
	default:
		wp.logger.Warn("push queue full, skipping alert",
			zap.String("alert", created.Alert.ID))
	}
}

// Jobs returns the jobs channel for testing.
func (wp *WorkerPool) Jobs() chan realtime.AlertCreated {
	return wp.jobs
}

// sendForAlert fetches the push subscriptions of the alert's recipients and
// delivers to each.
func (wp *WorkerPool) sendForAlert(ctx context.Context, created realtime.AlertCreated) {
	subscriptions, err := wp.store.ListSubscriptionsForAlert(ctx, created.Alert.ID)
	if err != nil {
		wp.logger.Warn("failed to fetch push subscriptions",
			zap.String("alert", created.Alert.ID), zap.Error(err))
		return
	}
	if len(subscriptions) == 0 {
		return
	}

	payload, err := json.Marshal(pushPayload{
		Title:         created.Alert.Title,
		Message:       created.Alert.Message,
		Severity:      string(created.Alert.Severity),
		EquipmentCode: created.EquipmentCode,
		AlertID:       created.Alert.ID,
	})
	if err != nil {
		wp.logger.Warn("failed to marshal push payload", zap.Error(err))
		return
	}

	wp.logger.Info("sending push notifications",
		zap.String("alert", created.Alert.ID),
		zap.Int("subscriptions", len(subscriptions)))

	for _, sub := range subscriptions {
		wp.send(ctx, sub.Endpoint, sub.P256DH, sub.Auth, payload)
	}
}

// send delivers a single web push notification.
func (wp *WorkerPool) send(ctx context.Context, endpoint, p256dh, auth string, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: endpoint,
		Keys: webpush.Keys{
			P256dh: p256dh,
			Auth:   auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		wp.logger.Warn("push send failed", zap.String("endpoint", endpoint), zap.Error(err))
		return
	}
	defer resp.Body.Close()

	// Expired subscriptions are pruned on 410 Gone.
	if resp.StatusCode == http.StatusGone {
		wp.logger.Info("push subscription expired, deleting", zap.String("endpoint", endpoint))
		if err := wp.store.DeleteSubscription(ctx, endpoint); err != nil {
			wp.logger.Warn("failed to delete expired subscription",
				zap.String("endpoint", endpoint), zap.Error(err))
		}
	}
}
