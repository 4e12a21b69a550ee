package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Andersonbaltazar/Plataforma-reservas-backend/services/scheduling-service/internal/model"
	"github.com/Andersonbaltazar/Plataforma-reservas-backend/services/scheduling-service/internal/schedule"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

const (
	maxTextLength    = 500
	maxBlackoutRange = 366
)

// BookingRequest is a client's request for one window on one date.
type BookingRequest struct {
	ProviderID string
	ClientID   string
	Date       time.Time
	Interval   schedule.Interval
	Reason     string
	Note       string
}

func (e *Engine) validateRequest(req BookingRequest) error {
	if err := validateProvider(req.ProviderID); err != nil {
		return err
	}
	if strings.TrimSpace(req.ClientID) == "" {
		return invalid("client_id", "is required")
	}
	if req.Date.IsZero() {
		return invalid("date", "is required")
	}
	if schedule.DateOf(req.Date).Before(e.Today()) {
		return invalid("date", "must not be in the past")
	}
	if err := validateInterval(req.Interval); err != nil {
		return err
	}
	if utf8.RuneCountInString(req.Reason) > maxTextLength {
		return invalid("reason", "must be at most %d characters", maxTextLength)
	}
	if utf8.RuneCountInString(req.Note) > maxTextLength {
		return invalid("note", "must be at most %d characters", maxTextLength)
	}
	return nil
}

// TryCreateBooking creates a pending booking if the window is available.
// The check and the insert run in one unit of work serialized per provider
// and date, so of two overlapping concurrent requests exactly one succeeds.
// The loser gets a *ConflictError.
func (e *Engine) TryCreateBooking(ctx context.Context, req BookingRequest) (booking model.Booking, err error) {
	ctx, span := e.startSpan(ctx, "engine.TryCreateBooking", req.ProviderID, req.Date)
	defer func() { endSpan(span, err) }()

	if err := e.validateRequest(req); err != nil {
		return model.Booking{}, err
	}
	date := schedule.DateOf(req.Date)

	err = e.store.InProviderDays(ctx, req.ProviderID, date, date, func(ctx context.Context, s Stores) error {
		av, err := e.check(ctx, s, req.ProviderID, date, req.Interval)
		if err != nil {
			return err
		}
		if !av.Available {
			return &ConflictError{Cause: av.Cause, Reason: av.Reason}
		}

		now := e.now().UTC()
		created, err := s.Bookings.Insert(ctx, model.Booking{
			ID:         uuid.NewString(),
			ProviderID: req.ProviderID,
			ClientID:   req.ClientID,
			Date:       date,
			Interval:   req.Interval,
			Status:     model.StatusPending,
			Reason:     strings.TrimSpace(req.Reason),
			Note:       strings.TrimSpace(req.Note),
			CreatedAt:  now,
			UpdatedAt:  now,
		})
		if errors.Is(err, ErrOverlap) {
			return &ConflictError{Cause: CauseBooking, Reason: ReasonSlotBooked}
		}
		if err != nil {
			return fmt.Errorf("insert booking: %w", err)
		}
		booking = created
		return emit(ctx, s, bookingEvent(EventBookingCreated, created, "", now))
	})
	if err != nil {
		var conflict *ConflictError
		if errors.As(err, &conflict) {
			e.logger.Info("booking rejected",
				"provider_id", req.ProviderID,
				"date", schedule.FormatDate(date),
				"interval", req.Interval.String(),
				"cause", string(conflict.Cause),
			)
		}
		return model.Booking{}, err
	}

	span.SetAttributes(attribute.String("booking.id", booking.ID))
	e.logger.Info("booking created",
		"booking_id", booking.ID,
		"provider_id", booking.ProviderID,
		"date", schedule.FormatDate(date),
		"interval", booking.Interval.String(),
	)
	return booking, nil
}

// CancelBooking cancels a pending booking on behalf of the client that owns it.
// The record is kept with status cancelled and its window becomes free again.
func (e *Engine) CancelBooking(ctx context.Context, bookingID, clientID string) (model.Booking, error) {
	if strings.TrimSpace(clientID) == "" {
		return model.Booking{}, invalid("client_id", "is required")
	}
	current, err := e.GetBooking(ctx, bookingID)
	if err != nil {
		return model.Booking{}, err
	}
	if current.ClientID != clientID {
		return model.Booking{}, ErrForbidden
	}
	return e.changeStatus(ctx, current, model.StatusCancelled, func(b model.Booking) error {
		if b.Status != model.StatusPending {
			return &StateError{From: b.Status, To: model.StatusCancelled, Msg: "only pending bookings can be cancelled"}
		}
		return nil
	})
}

// TransitionStatus applies a status change decided outside the engine, such
// as a provider confirming or rejecting a booking.
func (e *Engine) TransitionStatus(ctx context.Context, bookingID string, to model.BookingStatus) (model.Booking, error) {
	if _, ok := model.ParseBookingStatus(string(to)); !ok {
		return model.Booking{}, invalid("status", "unknown status %q", to)
	}
	current, err := e.GetBooking(ctx, bookingID)
	if err != nil {
		return model.Booking{}, err
	}
	return e.changeStatus(ctx, current, to, nil)
}

func (e *Engine) changeStatus(ctx context.Context, current model.Booking, to model.BookingStatus, precheck func(model.Booking) error) (updated model.Booking, err error) {
	ctx, span := e.startSpan(ctx, "engine.ChangeStatus", current.ProviderID, current.Date)
	span.SetAttributes(attribute.String("booking.id", current.ID), attribute.String("booking.to", string(to)))
	defer func() { endSpan(span, err) }()

	err = e.store.InProviderDays(ctx, current.ProviderID, current.Date, current.Date, func(ctx context.Context, s Stores) error {
		// re-read under the lock; the status may have moved since the caller looked
		b, err := s.Bookings.Get(ctx, current.ID)
		if err != nil {
			return notFound(err, "booking", current.ID)
		}
		if precheck != nil {
			if err := precheck(b); err != nil {
				return err
			}
		}
		if !model.CanTransition(b.Status, to) {
			return &StateError{From: b.Status, To: to}
		}
		updated, err = s.Bookings.UpdateStatus(ctx, b.ID, b.Status, to)
		if errors.Is(err, ErrNotFound) {
			return &StateError{From: b.Status, To: to, Msg: "booking status changed concurrently"}
		}
		if err != nil {
			return fmt.Errorf("update booking status: %w", err)
		}

		eventType := EventBookingStatusChanged
		if to == model.StatusCancelled {
			eventType = EventBookingCancelled
		}
		return emit(ctx, s, bookingEvent(eventType, updated, b.Status, e.now().UTC()))
	})
	if err != nil {
		return model.Booking{}, err
	}

	e.logger.Info("booking status changed",
		"booking_id", updated.ID,
		"provider_id", updated.ProviderID,
		"status", string(updated.Status),
	)
	return updated, nil
}

// BlackoutDay marks a single date as fully unavailable for the provider.
func (e *Engine) BlackoutDay(ctx context.Context, providerID string, date time.Time, reason string) (model.BlackoutDay, error) {
	days, err := e.BlackoutRange(ctx, providerID, date, date, reason)
	if err != nil {
		return model.BlackoutDay{}, err
	}
	if len(days) != 1 {
		return model.BlackoutDay{}, fmt.Errorf("expected one blackout, store returned %d", len(days))
	}
	return days[0], nil
}

// BlackoutRange marks every date in [from, to] unavailable. Existing markers
// are updated in place. A date that still holds active bookings cannot be
// blacked out; in that case nothing in the range changes.
func (e *Engine) BlackoutRange(ctx context.Context, providerID string, from, to time.Time, reason string) (days []model.BlackoutDay, err error) {
	ctx, span := e.startSpan(ctx, "engine.BlackoutRange", providerID, from)
	defer func() { endSpan(span, err) }()

	from, to, err = validateRange(providerID, from, to)
	if err != nil {
		return nil, err
	}
	reason = strings.TrimSpace(reason)
	if utf8.RuneCountInString(reason) > maxTextLength {
		return nil, invalid("reason", "must be at most %d characters", maxTextLength)
	}

	err = e.store.InProviderDays(ctx, providerID, from, to, func(ctx context.Context, s Stores) error {
		for _, day := range schedule.DaysBetween(from, to) {
			bookings, err := s.Bookings.FindByProviderAndDate(ctx, providerID, day)
			if err != nil {
				return fmt.Errorf("load bookings: %w", err)
			}
			if len(model.Occupied(bookings)) > 0 {
				return &ConflictError{
					Cause:  CauseBookings,
					Reason: fmt.Sprintf("%s: %s", ReasonDayHasBookings, schedule.FormatDate(day)),
				}
			}
		}

		var err error
		days, err = s.Blackouts.UpsertRange(ctx, providerID, from, to, reason)
		if err != nil {
			return fmt.Errorf("upsert blackouts: %w", err)
		}
		return emit(ctx, s, blackoutEvent(EventBlackoutSet, providerID, days, reason, e.now().UTC()))
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("blackout set",
		"provider_id", providerID,
		"from", schedule.FormatDate(from),
		"to", schedule.FormatDate(to),
		"days", len(days),
	)
	return days, nil
}

// RestoreDay deletes one blackout marker, making its date bookable again.
func (e *Engine) RestoreDay(ctx context.Context, blackoutID string) error {
	if strings.TrimSpace(blackoutID) == "" {
		return invalid("blackout_id", "is required")
	}
	b, err := e.store.Blackouts().Get(ctx, blackoutID)
	if err != nil {
		return notFound(err, "blackout", blackoutID)
	}

	err = e.store.InProviderDays(ctx, b.ProviderID, b.Date, b.Date, func(ctx context.Context, s Stores) error {
		if err := s.Blackouts.Delete(ctx, blackoutID); err != nil {
			return notFound(err, "blackout", blackoutID)
		}
		return emit(ctx, s, blackoutEvent(EventBlackoutCleared, b.ProviderID, []model.BlackoutDay{b}, "", e.now().UTC()))
	})
	if err != nil {
		return err
	}
	e.logger.Info("blackout removed", "blackout_id", blackoutID, "provider_id", b.ProviderID, "date", schedule.FormatDate(b.Date))
	return nil
}

// RestoreRange deletes every marker in [from, to] and returns how many were removed.
func (e *Engine) RestoreRange(ctx context.Context, providerID string, from, to time.Time) (int64, error) {
	from, to, err := validateRange(providerID, from, to)
	if err != nil {
		return 0, err
	}

	var removed int64
	err = e.store.InProviderDays(ctx, providerID, from, to, func(ctx context.Context, s Stores) error {
		existing, err := s.Blackouts.FindRange(ctx, providerID, from, to)
		if err != nil {
			return fmt.Errorf("load blackouts: %w", err)
		}
		removed, err = s.Blackouts.DeleteRange(ctx, providerID, from, to)
		if err != nil {
			return fmt.Errorf("delete blackouts: %w", err)
		}
		if removed == 0 {
			return nil
		}
		return emit(ctx, s, blackoutEvent(EventBlackoutCleared, providerID, existing, "", e.now().UTC()))
	})
	if err != nil {
		return 0, err
	}
	e.logger.Info("blackouts removed", "provider_id", providerID, "from", schedule.FormatDate(from), "to", schedule.FormatDate(to), "count", removed)
	return removed, nil
}

func validateRange(providerID string, from, to time.Time) (time.Time, time.Time, error) {
	if err := validateProvider(providerID); err != nil {
		return from, to, err
	}
	if from.IsZero() || to.IsZero() {
		return from, to, invalid("date", "both ends of the range are required")
	}
	from, to = schedule.DateOf(from), schedule.DateOf(to)
	if to.Before(from) {
		return from, to, invalid("date_to", "must not be before date_from")
	}
	if days := int(to.Sub(from).Hours()/24) + 1; days > maxBlackoutRange {
		return from, to, invalid("date_to", "range covers %d days, at most %d allowed", days, maxBlackoutRange)
	}
	return from, to, nil
}
