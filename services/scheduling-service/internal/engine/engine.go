package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Andersonbaltazar/Plataforma-reservas-backend/services/scheduling-service/internal/model"
	"github.com/Andersonbaltazar/Plataforma-reservas-backend/services/scheduling-service/internal/schedule"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// PolicyResolver returns the working hours that apply to a provider.
type PolicyResolver interface {
	PolicyFor(ctx context.Context, providerID string) (schedule.Policy, error)
}

type Options struct {
	// Location decides what "today" is when rejecting past dates. UTC when nil.
	Location *time.Location
	Now      func() time.Time
}

// Engine answers availability questions and guards every write that could
// break the rule that a provider never has two overlapping active bookings.
// It keeps no state between calls.
type Engine struct {
	store    Store
	policies PolicyResolver
	logger   *slog.Logger
	tracer   trace.Tracer
	loc      *time.Location
	now      func() time.Time
}

func New(store Store, policies PolicyResolver, logger *slog.Logger, opts Options) *Engine {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Engine{
		store:    store,
		policies: policies,
		logger:   logger,
		tracer:   otel.Tracer("scheduling-service/engine"),
		loc:      opts.Location,
		now:      opts.Now,
	}
}

// Availability answers whether a window can be booked.
type Availability struct {
	Available bool          `json:"available"`
	Reason    string        `json:"reason,omitempty"`
	Cause     ConflictCause `json:"cause,omitempty"`
}

// DaySlots is the free-slot listing of one provider day.
type DaySlots struct {
	ProviderID string              `json:"provider_id"`
	Date       time.Time           `json:"-"`
	Available  bool                `json:"available"`
	Reason     string              `json:"reason,omitempty"`
	Policy     schedule.Policy     `json:"policy"`
	Slots      []schedule.Interval `json:"slots"`
	Grid       []schedule.DaySlot  `json:"grid,omitempty"`
}

// CheckAvailability reports whether requested can be booked with providerID on date.
// A blackout wins over bookings; otherwise any overlapping active booking makes it unavailable.
func (e *Engine) CheckAvailability(ctx context.Context, providerID string, date time.Time, requested schedule.Interval) (av Availability, err error) {
	ctx, span := e.startSpan(ctx, "engine.CheckAvailability", providerID, date)
	defer func() { endSpan(span, err) }()

	if err := validateProvider(providerID); err != nil {
		return Availability{}, err
	}
	if err := validateInterval(requested); err != nil {
		return Availability{}, err
	}
	return e.check(ctx, Stores{Bookings: e.store.Bookings(), Blackouts: e.store.Blackouts()}, providerID, schedule.DateOf(date), requested)
}

func (e *Engine) check(ctx context.Context, s Stores, providerID string, date time.Time, requested schedule.Interval) (Availability, error) {
	blocked, reason, err := blackedOut(ctx, s.Blackouts, providerID, date)
	if err != nil {
		return Availability{}, err
	}
	if blocked {
		return Availability{Available: false, Reason: reason, Cause: CauseBlackout}, nil
	}

	bookings, err := s.Bookings.FindByProviderAndDate(ctx, providerID, date)
	if err != nil {
		return Availability{}, fmt.Errorf("load bookings: %w", err)
	}
	if schedule.OverlapsAny(requested, model.Occupied(bookings)) {
		return Availability{Available: false, Reason: ReasonSlotBooked, Cause: CauseBooking}, nil
	}
	return Availability{Available: true}, nil
}

func blackedOut(ctx context.Context, blackouts BlackoutStore, providerID string, date time.Time) (bool, string, error) {
	b, err := blackouts.FindByProviderAndDate(ctx, providerID, date)
	if err != nil {
		return false, "", fmt.Errorf("load blackout: %w", err)
	}
	if b == nil || !b.Blocked {
		return false, "", nil
	}
	if strings.TrimSpace(b.Reason) == "" {
		return true, ReasonProviderBlocked, nil
	}
	return true, b.Reason, nil
}

// ListFreeSlots lists the free slots of a day under the provider's policy.
func (e *Engine) ListFreeSlots(ctx context.Context, providerID string, date time.Time) (DaySlots, error) {
	if err := validateProvider(providerID); err != nil {
		return DaySlots{}, err
	}
	pol, err := e.policies.PolicyFor(ctx, providerID)
	if err != nil {
		return DaySlots{}, fmt.Errorf("resolve policy: %w", err)
	}
	return e.ListFreeSlotsWithPolicy(ctx, providerID, date, pol)
}

// ListFreeSlotsWithPolicy is ListFreeSlots with explicit working hours.
func (e *Engine) ListFreeSlotsWithPolicy(ctx context.Context, providerID string, date time.Time, pol schedule.Policy) (out DaySlots, err error) {
	ctx, span := e.startSpan(ctx, "engine.ListFreeSlots", providerID, date)
	defer func() { endSpan(span, err) }()

	if err := validateProvider(providerID); err != nil {
		return DaySlots{}, err
	}
	if err := pol.Validate(); err != nil {
		return DaySlots{}, &ValidationError{Field: "policy", Msg: err.Error()}
	}
	date = schedule.DateOf(date)
	out = DaySlots{ProviderID: providerID, Date: date, Policy: pol, Slots: []schedule.Interval{}}

	blocked, reason, err := blackedOut(ctx, e.store.Blackouts(), providerID, date)
	if err != nil {
		return DaySlots{}, err
	}
	if blocked {
		out.Reason = reason
		return out, nil
	}

	bookings, err := e.store.Bookings().FindByProviderAndDate(ctx, providerID, date)
	if err != nil {
		return DaySlots{}, fmt.Errorf("load bookings: %w", err)
	}
	occupied := model.Occupied(bookings)
	out.Available = true
	out.Grid = pol.Grid(occupied)
	for _, s := range out.Grid {
		if s.Free {
			out.Slots = append(out.Slots, schedule.Interval{Start: s.Start, End: s.End})
		}
	}
	span.SetAttributes(attribute.Int("slots.free", len(out.Slots)))
	return out, nil
}

// ProjectMonth builds the open/blocked calendar of a provider's month.
func (e *Engine) ProjectMonth(ctx context.Context, providerID string, year int, month time.Month) (cal MonthCalendar, err error) {
	ctx, span := e.tracer.Start(ctx, "engine.ProjectMonth", trace.WithAttributes(
		attribute.String("provider.id", providerID),
		attribute.Int("calendar.year", year),
		attribute.Int("calendar.month", int(month)),
	))
	defer func() { endSpan(span, err) }()

	if err := validateProvider(providerID); err != nil {
		return MonthCalendar{}, err
	}
	if err := validateMonth(year, month); err != nil {
		return MonthCalendar{}, err
	}
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)
	blackouts, err := e.store.Blackouts().FindRange(ctx, providerID, first, last)
	if err != nil {
		return MonthCalendar{}, fmt.Errorf("load blackouts: %w", err)
	}
	return ProjectMonth(providerID, year, month, blackouts)
}

func (e *Engine) ListBlackouts(ctx context.Context, providerID string, from, to time.Time) ([]model.BlackoutDay, error) {
	if err := validateProvider(providerID); err != nil {
		return nil, err
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return nil, invalid("date_to", "must not be before date_from")
	}
	if !from.IsZero() {
		from = schedule.DateOf(from)
	}
	if !to.IsZero() {
		to = schedule.DateOf(to)
	}
	return e.store.Blackouts().FindRange(ctx, providerID, from, to)
}

func (e *Engine) GetBooking(ctx context.Context, id string) (model.Booking, error) {
	if strings.TrimSpace(id) == "" {
		return model.Booking{}, invalid("booking_id", "is required")
	}
	b, err := e.store.Bookings().Get(ctx, id)
	if err != nil {
		return model.Booking{}, notFound(err, "booking", id)
	}
	return b, nil
}

func (e *Engine) ListProviderBookings(ctx context.Context, providerID string, limit int) ([]model.Booking, error) {
	if err := validateProvider(providerID); err != nil {
		return nil, err
	}
	return e.store.Bookings().ListByProvider(ctx, providerID, clampLimit(limit))
}

func (e *Engine) ListClientBookings(ctx context.Context, clientID string, limit int) ([]model.Booking, error) {
	if strings.TrimSpace(clientID) == "" {
		return nil, invalid("client_id", "is required")
	}
	return e.store.Bookings().ListByClient(ctx, clientID, clampLimit(limit))
}

// Today is the current calendar date in the engine's location.
func (e *Engine) Today() time.Time {
	return schedule.DateOf(e.now().In(e.loc))
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}

func validateProvider(providerID string) error {
	if strings.TrimSpace(providerID) == "" {
		return invalid("provider_id", "is required")
	}
	return nil
}

func validateInterval(iv schedule.Interval) error {
	if _, err := schedule.NewInterval(iv.Start, iv.End); err != nil {
		return &ValidationError{Field: "interval", Msg: err.Error()}
	}
	return nil
}

func validateMonth(year int, month time.Month) error {
	if month < time.January || month > time.December {
		return invalid("month", "must be between 1 and 12 (got %d)", int(month))
	}
	if year < 1 || year > 9999 {
		return invalid("year", "must be between 1 and 9999 (got %d)", year)
	}
	return nil
}

func (e *Engine) startSpan(ctx context.Context, name, providerID string, date time.Time) (context.Context, trace.Span) {
	return e.tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("provider.id", providerID),
		attribute.String("schedule.date", schedule.FormatDate(date)),
	))
}

// endSpan records infrastructure failures; domain outcomes are not span errors.
func endSpan(span trace.Span, err error) {
	if err != nil && !IsDomainError(err) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// IsDomainError reports whether err is one of the typed scheduling outcomes
// rather than an infrastructure failure.
func IsDomainError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrState) ||
		errors.Is(err, ErrForbidden)
}
