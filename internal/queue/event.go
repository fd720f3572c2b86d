// Package queue publishes booking domain events to RabbitMQ and consumes
// them into the booking log.
package queue

import "time"

// Event types.
const (
	BookingCreated = "booking.created"
	BookingUpdated = "booking.updated"
	BookingDeleted = "booking.deleted"
	CompanyDeleted = "company.deleted"
)

// QueueName is the durable queue all booking events go to.
const QueueName = "booking.events"

// Event is published after a booking or company change commits. It carries
// enough to log or notify without reading the primary database.
type Event struct {
	Type      string     `json:"type"`
	BookingID uint64     `json:"booking_id,omitempty"`
	UserID    uint64     `json:"user_id,omitempty"`
	CompanyID uint64     `json:"company_id"`
	BookDate  *time.Time `json:"book_date,omitempty"`
	// Removed counts the bookings deleted along with a company.
	Removed    int64     `json:"removed,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
