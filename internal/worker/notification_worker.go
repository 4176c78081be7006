package worker

import (
	"context"

	"github.com/spec-kit/identity-service/internal/service"
)

// StartNotificationWorker subscribes the notification handlers and drains
// queued notifications on a background goroutine until ctx is done. The
// returned channel is closed once the goroutine has exited.
func StartNotificationWorker(ctx context.Context, notifications *service.NotificationService) <-chan struct{} {
	done := make(chan struct{})
	if notifications == nil {
		close(done)
		return done
	}
	notifications.RegisterHandlers()

	go func() {
		defer close(done)
		queue := notifications.Queue()
		for {
			select {
			case <-ctx.Done():
				return
			case event := <-queue:
				notifications.Deliver(ctx, event)
			}
		}
	}()
	return done
}
