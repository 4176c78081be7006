package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrMissingEventType is returned when publishing an event without a type.
var ErrMissingEventType = errors.New("event type is required")

// EventHandler handles a published event.
type EventHandler func(context.Context, Event) error

// Dispatcher fans events out to subscribers.
type Dispatcher interface {
	Publish(ctx context.Context, event Event) error
	Subscribe(eventType EventType, handler EventHandler)
}

// HandlerError reports one subscriber failing for one event.
type HandlerError struct {
	EventType EventType
	Handler   int
	Err       error
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("%s handler %d: %v", e.EventType, e.Handler, e.Err)
}

func (e *HandlerError) Unwrap() error { return e.Err }

// SyncDispatcher delivers events on the publisher's goroutine, in
// subscription order. Handlers that need to do slow work should hand the
// event off (see service.NotificationService).
type SyncDispatcher struct {
	mu       sync.RWMutex
	handlers map[EventType][]EventHandler
}

// NewSyncDispatcher creates an empty dispatcher.
func NewSyncDispatcher() *SyncDispatcher {
	return &SyncDispatcher{handlers: make(map[EventType][]EventHandler)}
}

// Publish runs every handler subscribed to event.Type. A failing or
// panicking handler does not stop the rest; failures come back joined as
// *HandlerError values.
func (d *SyncDispatcher) Publish(ctx context.Context, event Event) error {
	if event.Type == "" {
		return ErrMissingEventType
	}

	d.mu.RLock()
	handlers := d.handlers[event.Type]
	d.mu.RUnlock()

	var errs []error
	for i, handler := range handlers {
		if err := invoke(ctx, handler, event); err != nil {
			errs = append(errs, &HandlerError{EventType: event.Type, Handler: i, Err: err})
		}
	}
	return errors.Join(errs...)
}

// Subscribe registers a handler for the given event type.
func (d *SyncDispatcher) Subscribe(eventType EventType, handler EventHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	// Full slice expression so Publish's snapshot never sees a later append.
	list := d.handlers[eventType]
	d.handlers[eventType] = append(list[:len(list):len(list)], handler)
}

func invoke(ctx context.Context, handler EventHandler, event Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return handler(ctx, event)
}
