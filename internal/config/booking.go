package config

import (
	"fmt"
	"os"
	"time"
)

// Default booking rules.
var (
	DefaultWindowStart = time.Date(2022, 5, 10, 0, 0, 0, 0, time.UTC)
	DefaultWindowEnd   = time.Date(2022, 5, 14, 0, 0, 0, 0, time.UTC)
)

const DefaultMaxActivePerUser = 3

// BookingConfig holds the booking window and the per-user quota. A booking
// date d is accepted when WindowStart <= d < WindowEnd. Admins are not
// subject to MaxActivePerUser.
type BookingConfig struct {
	WindowStart      time.Time
	WindowEnd        time.Time
	MaxActivePerUser int
}

// DefaultBookingConfig returns the built-in booking rules.
func DefaultBookingConfig() BookingConfig {
	return BookingConfig{
		WindowStart:      DefaultWindowStart,
		WindowEnd:        DefaultWindowEnd,
		MaxActivePerUser: DefaultMaxActivePerUser,
	}
}

// LoadBookingConfig reads BOOKING_WINDOW_START, BOOKING_WINDOW_END (RFC3339)
// and BOOKING_MAX_PER_USER. Unparseable values fall back to the defaults.
func LoadBookingConfig() BookingConfig {
	cfg := DefaultBookingConfig()
	cfg.WindowStart = envTime("BOOKING_WINDOW_START", cfg.WindowStart)
	cfg.WindowEnd = envTime("BOOKING_WINDOW_END", cfg.WindowEnd)
	if n := envInt("BOOKING_MAX_PER_USER", cfg.MaxActivePerUser); n > 0 {
		cfg.MaxActivePerUser = n
	}
	return cfg
}

// Validate rejects an empty window or a non-positive quota.
func (c BookingConfig) Validate() error {
	if !c.WindowEnd.After(c.WindowStart) {
		return fmt.Errorf("booking window end %s is not after start %s",
			c.WindowEnd.Format(time.RFC3339), c.WindowStart.Format(time.RFC3339))
	}
	if c.MaxActivePerUser < 1 {
		return fmt.Errorf("booking quota must be positive, got %d", c.MaxActivePerUser)
	}
	return nil
}

// InWindow reports whether d falls inside [WindowStart, WindowEnd).
func (c BookingConfig) InWindow(d time.Time) bool {
	return !d.Before(c.WindowStart) && d.Before(c.WindowEnd)
}

func envTime(k string, d time.Time) time.Time {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return d
	}
	return t.UTC()
}
