package model

import "time"

// Booking is a user's appointment at a company.
type Booking struct {
	ID        uint64    `json:"id"`
	UserID    uint64    `json:"user"`
	CompanyID uint64    `json:"company"`
	BookDate  time.Time `json:"bookDate"`
	CreatedAt time.Time `json:"createdAt"`
}

// BookingView is a booking with its company expanded.
type BookingView struct {
	ID        uint64          `json:"id"`
	UserID    uint64          `json:"user"`
	Company   *CompanySummary `json:"company"`
	BookDate  time.Time       `json:"bookDate"`
	CreatedAt time.Time       `json:"createdAt"`
}

// BookingFilter scopes a booking listing. Zero values mean "any".
type BookingFilter struct {
	UserID    uint64
	CompanyID uint64
}

// BookingInput is the client payload for creating or updating a booking.
// The owning user is never read from the payload.
type BookingInput struct {
	BookDate *time.Time `json:"bookDate"`
	// Company may only be changed on update; on create the path decides.
	Company *uint64 `json:"company"`
}
