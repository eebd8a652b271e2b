package notification

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"meypark-backend/internal/metrics"
	"meypark-backend/internal/model"
)

// AlertKind tells subscribers why a meter needs attention.
type AlertKind string

const (
	AlertError   AlertKind = "error"
	AlertOffline AlertKind = "offline"
)

// Alert is one meter event to push to the meter's subscribers.
type Alert struct {
	MeterID   string    `json:"meterId"`
	MeterName string    `json:"meterName"`
	Kind      AlertKind `json:"kind"`
	Message   string    `json:"message"`
}

// NotificationSender defines the interface for sending a web push notification.
type NotificationSender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender sends through the webpush library.
type WebPushSender struct{}

func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// WorkerPool delivers meter alerts in the background.
type WorkerPool struct {
	size    int
	jobs    chan Alert
	db      *gorm.DB
	webpush *webpush.Options
	sender  NotificationSender
	log     *zap.Logger
	metrics *metrics.Metrics
}

// NewWorkerPool creates a pool of size workers. Alerts queue up to size*16
// before Notify starts dropping them.
func NewWorkerPool(size int, db *gorm.DB, webpushOptions *webpush.Options, log *zap.Logger, m *metrics.Metrics) *WorkerPool {
	if size <= 0 {
		size = 1
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &WorkerPool{
		size:    size,
		jobs:    make(chan Alert, size*16),
		db:      db,
		webpush: webpushOptions,
		sender:  &WebPushSender{},
		log:     log,
		metrics: m,
	}
}

// Start launches the worker goroutines. They stop when ctx is done.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	wp.log.Debug("alert worker started", zap.Int("worker", id))
	for {
		select {
		case alert := <-wp.jobs:
			wp.sendAlert(ctx, alert)
		case <-ctx.Done():
			wp.log.Debug("alert worker shutting down", zap.Int("worker", id))
			return
		}
	}
}

// Notify queues an alert without blocking the caller.
func (wp *WorkerPool) Notify(alert Alert) {
	select {
	case wp.jobs <- alert:
	default:
		wp.metrics.Alert("dropped")
		wp.log.Warn("alert queue full, dropping alert", zap.String("meter_id", alert.MeterID))
	}
}

func (wp *WorkerPool) sendAlert(ctx context.Context, alert Alert) {
	var subscriptions []model.PushSubscription
	err := wp.db.WithContext(ctx).
		Joins("JOIN subscription_meters sm ON sm.endpoint = push_subscriptions.endpoint").
		Where("sm.meter_id = ?", alert.MeterID).
		Find(&subscriptions).Error
	if err != nil {
		wp.log.Error("fetch subscriptions failed", zap.String("meter_id", alert.MeterID), zap.Error(err))
		return
	}
	if len(subscriptions) == 0 {
		return
	}

	payload, err := json.Marshal(alert)
	if err != nil {
		wp.log.Error("encode alert failed", zap.Error(err))
		return
	}
	wp.log.Info("sending meter alert",
		zap.String("meter_id", alert.MeterID),
		zap.String("kind", string(alert.Kind)),
		zap.Int("subscriptions", len(subscriptions)))
	for _, sub := range subscriptions {
		wp.sendNotification(ctx, sub, payload)
	}
}

func (wp *WorkerPool) sendNotification(ctx context.Context, sub model.PushSubscription, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		wp.metrics.Alert(metrics.ResultFailed)
		wp.log.Warn("push send failed", zap.String("endpoint", sub.Endpoint), zap.Error(err))
		return
	}
	defer resp.Body.Close()
	wp.metrics.Alert(metrics.ResultOK)

	if resp.StatusCode == http.StatusGone {
		wp.log.Info("subscription expired, deleting", zap.String("endpoint", sub.Endpoint))
		if err := wp.db.WithContext(ctx).Delete(&sub).Error; err != nil {
			wp.log.Error("delete expired subscription failed", zap.String("endpoint", sub.Endpoint), zap.Error(err))
		}
	}
}
