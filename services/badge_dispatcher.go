package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"communityAPI/internal/badge"
	"communityAPI/internal/metrics"
	"communityAPI/internal/notification"
	"communityAPI/internal/store"
)

type PushNotificationProvider interface {
	SendPush(ctx context.Context, tokens []notification.DeviceToken, n *notification.Notification) error
}

// BadgeDispatcher pushes "badge earned" notifications off the request path.
// Delivery is best effort; a full queue or a failed send is logged and
// counted but never reaches the rating caller.
type BadgeDispatcher struct {
	devices      store.DeviceRegistry
	pushProvider PushNotificationProvider
	logger       *zap.SugaredLogger

	workers     int
	jobQueue    chan *notification.Notification
	stopChan    chan struct{}
	stopOnce    sync.Once
	wg          sync.WaitGroup
	sendTimeout time.Duration
	now         func() time.Time
}

func NewBadgeDispatcher(devices store.DeviceRegistry, provider PushNotificationProvider, logger *zap.SugaredLogger) *BadgeDispatcher {
	d := &BadgeDispatcher{
		devices:      devices,
		pushProvider: provider,
		logger:       logger,
		workers:      5,
		jobQueue:     make(chan *notification.Notification, 100),
		stopChan:     make(chan struct{}),
		sendTimeout:  10 * time.Second,
		now:          func() time.Time { return time.Now().UTC() },
	}

	d.startWorkers()
	return d
}

func (d *BadgeDispatcher) startWorkers() {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
}

func (d *BadgeDispatcher) worker() {
	defer d.wg.Done()
	for {
		select {
		case job := <-d.jobQueue:
			d.processJob(job)
		case <-d.stopChan:
			return
		}
	}
}

// NotifyBadges queues one notification per newly earned badge. It never
// blocks: when the queue is full the notification is dropped and counted.
func (d *BadgeDispatcher) NotifyBadges(userID string, names []badge.Name) {
	for _, name := range names {
		select {
		case <-d.stopChan:
			metrics.PushNotifications.WithLabelValues("dropped").Inc()
			return
		default:
		}

		n := BadgeNotification(userID, name, d.now())
		select {
		case d.jobQueue <- n:
		default:
			metrics.PushNotifications.WithLabelValues("dropped").Inc()
			d.logger.Warnw("Badge notification dropped: queue full", "user_id", userID, "badge", name)
		}
	}
}

func (d *BadgeDispatcher) processJob(n *notification.Notification) {
	ctx, cancel := context.WithTimeout(context.Background(), d.sendTimeout)
	defer cancel()

	tokens, err := d.devices.ListDevices(ctx, n.UserID)
	if err != nil {
		metrics.PushNotifications.WithLabelValues("failed").Inc()
		d.logger.Errorw("Failed to load device tokens", "user_id", n.UserID, "error", err)
		return
	}
	if len(tokens) == 0 || d.pushProvider == nil {
		metrics.PushNotifications.WithLabelValues("skipped").Inc()
		d.logger.Debugw("Skipping push", "user_id", n.UserID, "tokens", len(tokens), "provider_set", d.pushProvider != nil)
		return
	}

	if err := d.pushProvider.SendPush(ctx, tokens, n); err != nil {
		metrics.PushNotifications.WithLabelValues("failed").Inc()
		d.logger.Warnw("Push failed", "user_id", n.UserID, "error", err)
		return
	}
	metrics.PushNotifications.WithLabelValues("sent").Inc()
}

// Stop halts the workers. Notifications still queued are discarded.
func (d *BadgeDispatcher) Stop() {
	d.stopOnce.Do(func() {
		close(d.stopChan)
	})
	d.wg.Wait()
}

func BadgeNotification(userID string, name badge.Name, at time.Time) *notification.Notification {
	title := "New badge earned"
	body := fmt.Sprintf("You earned %s", name)
	if b, ok := badge.Lookup(name); ok {
		title = fmt.Sprintf("%s New badge earned", b.Icon)
		body = fmt.Sprintf("You earned %s: %s", b.Name, b.Description)
	}

	return &notification.Notification{
		UserID: userID,
		Type:   notification.NotificationBadgeEarned,
		Title:  title,
		Body:   body,
		Data: map[string]string{
			"type":  string(notification.NotificationBadgeEarned),
			"badge": string(name),
		},
		CreatedAt: at,
	}
}
