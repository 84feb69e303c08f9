package events

import (
	"encoding/json"
	"errors"
	"sync"
	"time"
)

const (
	EventBookingCreated       = "booking_created"
	EventBookingStatusChanged = "booking_status_changed"
	EventBookingReviewed      = "booking_reviewed"
	EventBookingRescheduled   = "booking_rescheduled"
	EventPaymentVerified      = "payment_verified"
	EventPaymentFailed        = "payment_failed"
	EventPaymentRefunded      = "payment_refunded"
)

// All lists every event type the core publishes.
var All = []string{
	EventBookingCreated,
	EventBookingStatusChanged,
	EventBookingReviewed,
	EventBookingRescheduled,
	EventPaymentVerified,
	EventPaymentFailed,
	EventPaymentRefunded,
}

// BookingEventPayload describes the minimal booking snapshot for event consumers.
type BookingEventPayload struct {
	BookingID     string `json:"booking_id"`
	DisplayID     string `json:"display_id,omitempty"`
	SeekerID      string `json:"seeker_id,omitempty"`
	ConsultantID  string `json:"consultant_id,omitempty"`
	Status        string `json:"status"`
	PaymentStatus string `json:"payment_status,omitempty"`
	PrevStatus    string `json:"prev_status,omitempty"`
	SessionDate   string `json:"session_date,omitempty"`
	StartTime     string `json:"start_time,omitempty"`
	Reason        string `json:"reason,omitempty"`
	ChangedBy     string `json:"changed_by,omitempty"`
}

// PaymentEventPayload describes a checkout outcome.
type PaymentEventPayload struct {
	BookingID string `json:"booking_id"`
	OrderID   string `json:"order_id,omitempty"`
	PaymentID string `json:"payment_id,omitempty"`
	Amount    int64  `json:"amount"`
	Reason    string `json:"reason,omitempty"`
}

// Event represents a lightweight domain event.
type Event struct {
	ID        int64
	Type      string
	Payload   []byte
	CreatedAt time.Time
	Processed bool
}

// EventHandler reacts to an event.
type EventHandler func(event *Event) error

// EventBus provides in-process pub/sub for events.
type EventBus struct {
	subscribers map[string][]EventHandler
	mu          sync.RWMutex
}

// NewEventBus constructs an empty bus.
func NewEventBus() *EventBus {
	return &EventBus{subscribers: make(map[string][]EventHandler)}
}

// Subscribe registers a handler for a given event type.
func (b *EventBus) Subscribe(eventType string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// SubscribeAll registers handler for every listed event type.
func (b *EventBus) SubscribeAll(eventTypes []string, handler EventHandler) {
	for _, t := range eventTypes {
		b.Subscribe(t, handler)
	}
}

// Publish notifies subscribers of the event type. Every handler runs; the
// errors of those that failed are returned.
func (b *EventBus) Publish(event *Event) []error {
	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.subscribers[event.Type]...)
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	var errs []error
	for _, handler := range handlers {
		// Handlers run synchronously; caller decides concurrency model.
		if err := handler(event); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// PublishJSON serializes the payload and publishes an event.
func (b *EventBus) PublishJSON(eventType string, payload interface{}) error {
	if b == nil {
		return nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	return errors.Join(b.Publish(&Event{Type: eventType, Payload: raw, CreatedAt: time.Now()})...)
}

// NewJSONEvent builds an Event with JSON payload for manual publishing.
func NewJSONEvent(eventType string, payload interface{}) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}

	return Event{Type: eventType, Payload: raw, CreatedAt: time.Now()}, nil
}
