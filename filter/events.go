package filter

import "context"

// EventStatus is the only event type the filter emits.
const EventStatus = "status"

// Event is one progress notification delivered to the host's observer.
type Event struct {
	Type string    `json:"type"`
	Data EventData `json:"data"`
}

// EventData is the payload of a status event.
type EventData struct {
	Description string `json:"description"`
	Done        bool   `json:"done"`
}

// StatusEvent builds a status event.
func StatusEvent(description string, done bool) Event {
	return Event{Type: EventStatus, Data: EventData{Description: description, Done: done}}
}

// Notifier receives progress events. The filter awaits each delivery before
// proceeding but treats delivery failures as non-fatal: the ordering of
// events is guaranteed, their arrival is not.
type Notifier interface {
	Notify(ctx context.Context, event Event) error
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(ctx context.Context, event Event) error

// Notify implements Notifier.
func (f NotifierFunc) Notify(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// NopNotifier discards all events.
var NopNotifier Notifier = NotifierFunc(func(context.Context, Event) error { return nil })
