// Package events defines the topics, CloudEvent types and payloads exchanged
// between the rental service and the rest of the fleet platform.
package events

import "time"

// Topics.
const (
	TopicBookingEvents = "booking.events"
	TopicFleetEvents   = "fleet.events"
)

// Event types.
const (
	BookingCreated   = "booking.created"
	BookingCancelled = "booking.cancelled"

	FleetCarRetired = "fleet.car.retired"
)

// BookingCreatedEvent is published after a booking is stored.
type BookingCreatedEvent struct {
	BookingID     string    `json:"booking_id"`
	BookingNumber string    `json:"booking_number"`
	CarID         string    `json:"car_id"`
	PickupDate    string    `json:"pickup_date"`
	ReturnDate    string    `json:"return_date"`
	CustomerEmail string    `json:"customer_email"`
	TotalCents    int64     `json:"total_cents"`
	Currency      string    `json:"currency"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// BookingCancelledEvent is published after a booking is cancelled.
type BookingCancelledEvent struct {
	BookingID     string    `json:"booking_id"`
	BookingNumber string    `json:"booking_number"`
	CarID         string    `json:"car_id"`
	PickupDate    string    `json:"pickup_date"`
	ReturnDate    string    `json:"return_date"`
	Reason        string    `json:"reason,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// CarRetiredEvent is consumed from the fleet service when a car leaves service.
type CarRetiredEvent struct {
	CarID      string    `json:"car_id"`
	Reason     string    `json:"reason,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
