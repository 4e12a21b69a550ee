package engine

import (
	"context"
	"time"

	"github.com/Andersonbaltazar/Plataforma-reservas-backend/services/scheduling-service/internal/model"
	"github.com/Andersonbaltazar/Plataforma-reservas-backend/services/scheduling-service/internal/outbox"
)

// BookingStore persists bookings. Dates are midnight UTC.
type BookingStore interface {
	// FindByProviderAndDate returns every booking of the day, any status, ordered by start.
	FindByProviderAndDate(ctx context.Context, providerID string, date time.Time) ([]model.Booking, error)
	Get(ctx context.Context, id string) (model.Booking, error)
	// Insert stores b and returns ErrOverlap if an active booking already occupies the interval.
	Insert(ctx context.Context, b model.Booking) (model.Booking, error)
	// UpdateStatus moves a booking from `from` to `to`; it returns ErrNotFound
	// when the booking does not exist or is no longer in `from`.
	UpdateStatus(ctx context.Context, id string, from, to model.BookingStatus) (model.Booking, error)
	ListByProvider(ctx context.Context, providerID string, limit int) ([]model.Booking, error)
	ListByClient(ctx context.Context, clientID string, limit int) ([]model.Booking, error)
}

// BlackoutStore persists blackout days, at most one per provider and date.
type BlackoutStore interface {
	// FindByProviderAndDate returns nil, nil when the date has no marker.
	FindByProviderAndDate(ctx context.Context, providerID string, date time.Time) (*model.BlackoutDay, error)
	Get(ctx context.Context, id string) (model.BlackoutDay, error)
	// FindRange returns markers with from <= date <= to ordered by date. Zero bounds are open.
	FindRange(ctx context.Context, providerID string, from, to time.Time) ([]model.BlackoutDay, error)
	Upsert(ctx context.Context, providerID string, date time.Time, reason string) (model.BlackoutDay, error)
	UpsertRange(ctx context.Context, providerID string, from, to time.Time, reason string) ([]model.BlackoutDay, error)
	Delete(ctx context.Context, id string) error
	DeleteRange(ctx context.Context, providerID string, from, to time.Time) (int64, error)
}

// Stores groups the collaborators bound to one unit of work.
type Stores struct {
	Bookings  BookingStore
	Blackouts BlackoutStore
	Outbox    outbox.Writer
}

// Store is what the engine needs from a persistence backend.
type Store interface {
	Bookings() BookingStore
	Blackouts() BlackoutStore
	// InProviderDays runs fn in one transaction that is serialized against
	// every other unit for the same provider and any date in [from, to].
	// Writes made through the given stores are committed only if fn returns nil.
	InProviderDays(ctx context.Context, providerID string, from, to time.Time, fn func(ctx context.Context, s Stores) error) error
}
