package engine

import (
	"errors"
	"fmt"

	"github.com/Andersonbaltazar/Plataforma-reservas-backend/services/scheduling-service/internal/model"
)

var (
	// ErrNotFound is returned by stores for a missing booking or blackout.
	ErrNotFound = errors.New("not found")
	// ErrOverlap is returned by stores when an insert would violate the
	// no-overlapping-active-bookings constraint.
	ErrOverlap = errors.New("overlapping active booking")
	// ErrForbidden is returned when a client acts on a booking it does not own.
	ErrForbidden = errors.New("booking belongs to another client")

	ErrValidation = errors.New("validation failed")
	ErrConflict   = errors.New("conflict")
	ErrState      = errors.New("invalid state transition")
)

// Reasons carried by ConflictError.
const (
	ReasonSlotBooked      = "slot already booked"
	ReasonProviderBlocked = "provider unavailable on this date"
	ReasonDayHasBookings  = "date has active bookings"
)

type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Msg
	}
	return e.Field + ": " + e.Msg
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Msg: fmt.Sprintf(format, args...)}
}

// ConflictCause tells a blackout apart from an overlapping booking.
type ConflictCause string

const (
	CauseBlackout ConflictCause = "blackout"
	CauseBooking  ConflictCause = "booking"
	// CauseBookings is used when blacking out a date that has active bookings.
	CauseBookings ConflictCause = "bookings"
)

type ConflictError struct {
	Cause  ConflictCause
	Reason string
}

func (e *ConflictError) Error() string { return e.Reason }

func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

type StateError struct {
	From model.BookingStatus
	To   model.BookingStatus
	Msg  string
}

func (e *StateError) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	return fmt.Sprintf("cannot change booking status from %s to %s", e.From, e.To)
}

func (e *StateError) Is(target error) bool { return target == ErrState }

// NotFoundError names the missing entity; it matches ErrNotFound.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string { return e.Entity + " " + e.ID + " not found" }

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// notFound turns a store's ErrNotFound into a NotFoundError, passing other errors through.
func notFound(err error, entity, id string) error {
	if errors.Is(err, ErrNotFound) {
		return &NotFoundError{Entity: entity, ID: id}
	}
	return err
}
