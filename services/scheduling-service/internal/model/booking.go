package model

import (
	"time"

	"github.com/Andersonbaltazar/Plataforma-reservas-backend/services/scheduling-service/internal/schedule"
)

type BookingStatus string

const (
	StatusPending   BookingStatus = "pending"
	StatusConfirmed BookingStatus = "confirmed"
	StatusRejected  BookingStatus = "rejected"
	StatusCancelled BookingStatus = "cancelled"
	StatusCompleted BookingStatus = "completed"
)

var transitions = map[BookingStatus][]BookingStatus{
	StatusPending:   {StatusConfirmed, StatusRejected, StatusCancelled},
	StatusConfirmed: {StatusCompleted, StatusCancelled},
}

// ParseBookingStatus accepts one of the known status names.
func ParseBookingStatus(s string) (BookingStatus, bool) {
	switch st := BookingStatus(s); st {
	case StatusPending, StatusConfirmed, StatusRejected, StatusCancelled, StatusCompleted:
		return st, true
	}
	return "", false
}

// IsActive reports whether a booking in this status occupies its slot.
func (s BookingStatus) IsActive() bool {
	return s == StatusPending || s == StatusConfirmed
}

func (s BookingStatus) IsTerminal() bool {
	return len(transitions[s]) == 0
}

// CanTransition reports whether from -> to is an allowed status change.
func CanTransition(from, to BookingStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ActiveStatuses lists the statuses that block overlapping bookings.
func ActiveStatuses() []BookingStatus {
	return []BookingStatus{StatusPending, StatusConfirmed}
}

type Booking struct {
	ID         string            `json:"id"`
	ProviderID string            `json:"provider_id"`
	ClientID   string            `json:"client_id"`
	Date       time.Time         `json:"-"`
	Interval   schedule.Interval `json:"interval"`
	Status     BookingStatus     `json:"status"`
	Reason     string            `json:"reason,omitempty"`
	Note       string            `json:"note,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// Occupied returns the intervals of the active bookings among bs.
func Occupied(bs []Booking) []schedule.Interval {
	out := make([]schedule.Interval, 0, len(bs))
	for _, b := range bs {
		if b.Status.IsActive() {
			out = append(out, b.Interval)
		}
	}
	return out
}
