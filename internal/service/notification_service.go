package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/identity-service/internal/config"
	"github.com/spec-kit/identity-service/internal/events"
)

const notificationQueueSize = 256

// ErrNotificationQueueFull is returned by the event handler when the worker
// has fallen behind. Registration logs it and carries on.
var ErrNotificationQueueFull = errors.New("notification queue full")

// NotificationService turns account events into outbound notifications.
// The dispatcher handler only enqueues; Deliver does the sending and is
// driven by worker.StartNotificationWorker.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotificationConfig
	queue      chan events.Event
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
		queue:      make(chan events.Event, notificationQueueSize),
	}
}

// RegisterHandlers subscribes to account events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventAccountRegistered, n.enqueue)
}

// Queue exposes pending notifications to the worker.
func (n *NotificationService) Queue() <-chan events.Event {
	return n.queue
}

func (n *NotificationService) enqueue(_ context.Context, event events.Event) error {
	select {
	case n.queue <- event:
		return nil
	default:
		n.logger.Warn("dropping notification", zap.String("account_id", event.AccountID), zap.String("event_type", string(event.Type)))
		return ErrNotificationQueueFull
	}
}

// Deliver sends every configured notification for one event.
func (n *NotificationService) Deliver(ctx context.Context, event events.Event) {
	switch event.Type {
	case events.EventAccountRegistered:
		n.logger.Info("AccountRegistered", zap.String("account_id", event.AccountID))
		n.sendWelcomeEmailStub(ctx, event)
		n.sendWebhookNotificationStub(ctx, event)
	default:
		n.logger.Debug("no notification for event", zap.String("event_type", string(event.Type)))
	}
}

func (n *NotificationService) sendWelcomeEmailStub(_ context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" {
		return
	}
	payload, ok := event.Payload.(events.AccountRegisteredPayload)
	if !ok {
		return
	}
	n.logger.Debug("sendWelcomeEmailStub",
		zap.String("from", n.cfg.EmailFrom),
		zap.String("account_id", event.AccountID),
		zap.String("username", payload.Username))
}

func (n *NotificationService) sendWebhookNotificationStub(_ context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Debug("sendWebhookNotificationStub",
		zap.String("url", n.cfg.WebhookURL),
		zap.String("account_id", event.AccountID),
		zap.String("event_type", string(event.Type)))
}
