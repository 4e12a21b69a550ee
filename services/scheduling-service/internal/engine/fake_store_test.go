package engine

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Andersonbaltazar/Plataforma-reservas-backend/services/scheduling-service/internal/model"
	"github.com/Andersonbaltazar/Plataforma-reservas-backend/services/scheduling-service/internal/outbox"
	"github.com/Andersonbaltazar/Plataforma-reservas-backend/services/scheduling-service/internal/schedule"
	"github.com/google/uuid"
)

type fakeData struct {
	bookings  map[string]model.Booking
	blackouts map[string]model.BlackoutDay
	events    []outbox.Event
}

func (d *fakeData) clone() *fakeData {
	c := &fakeData{
		bookings:  make(map[string]model.Booking, len(d.bookings)),
		blackouts: make(map[string]model.BlackoutDay, len(d.blackouts)),
		events:    append([]outbox.Event(nil), d.events...),
	}
	for k, v := range d.bookings {
		c.bookings[k] = v
	}
	for k, v := range d.blackouts {
		c.blackouts[k] = v
	}
	return c
}

// fakeStore commits a unit of work by swapping in the copy fn worked on,
// so a failed unit leaves nothing behind.
type fakeStore struct {
	unit sync.Mutex
	mu   sync.Mutex
	data *fakeData

	insertErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: &fakeData{
		bookings:  map[string]model.Booking{},
		blackouts: map[string]model.BlackoutDay{},
	}}
}

func (s *fakeStore) Bookings() BookingStore   { return fakeBookings{fakeView{s: s}} }
func (s *fakeStore) Blackouts() BlackoutStore { return fakeBlackouts{fakeView{s: s}} }

func (s *fakeStore) InProviderDays(ctx context.Context, _ string, _, _ time.Time, fn func(context.Context, Stores) error) error {
	s.unit.Lock()
	defer s.unit.Unlock()

	s.mu.Lock()
	work := s.data.clone()
	s.mu.Unlock()

	v := fakeView{s: s, d: work}
	if err := fn(ctx, Stores{Bookings: fakeBookings{v}, Blackouts: fakeBlackouts{v}, Outbox: v}); err != nil {
		return err
	}
	s.mu.Lock()
	s.data = work
	s.mu.Unlock()
	return nil
}

func (s *fakeStore) events() []outbox.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]outbox.Event(nil), s.data.events...)
}

func (s *fakeStore) blackoutCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data.blackouts)
}

// seed stores a booking directly, bypassing the guard.
func (s *fakeStore) seed(b model.Booking) model.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	s.data.bookings[b.ID] = b
	return b
}

func (s *fakeStore) seedBlackout(b model.BlackoutDay) model.BlackoutDay {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	s.data.blackouts[b.ID] = b
	return b
}

type fakeView struct {
	s *fakeStore
	d *fakeData
}

func (v fakeView) with(fn func(d *fakeData)) {
	if v.d != nil {
		fn(v.d)
		return
	}
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	fn(v.s.data)
}

func (v fakeView) Append(_ context.Context, evt outbox.Event) error {
	v.with(func(d *fakeData) { d.events = append(d.events, evt) })
	return nil
}

type fakeBookings struct{ fakeView }

func (v fakeBookings) FindByProviderAndDate(_ context.Context, providerID string, date time.Time) ([]model.Booking, error) {
	var out []model.Booking
	v.with(func(d *fakeData) {
		for _, b := range d.bookings {
			if b.ProviderID == providerID && b.Date.Equal(date) {
				out = append(out, b)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Interval.Start < out[j].Interval.Start })
	return out, nil
}

func (v fakeBookings) Get(_ context.Context, id string) (model.Booking, error) {
	var (
		b  model.Booking
		ok bool
	)
	v.with(func(d *fakeData) { b, ok = d.bookings[id] })
	if !ok {
		return model.Booking{}, ErrNotFound
	}
	return b, nil
}

func (v fakeBookings) Insert(_ context.Context, b model.Booking) (model.Booking, error) {
	if v.s.insertErr != nil {
		return model.Booking{}, v.s.insertErr
	}
	var err error
	v.with(func(d *fakeData) {
		for _, other := range d.bookings {
			if other.ProviderID == b.ProviderID && other.Date.Equal(b.Date) && other.Status.IsActive() &&
				schedule.Overlaps(other.Interval, b.Interval) {
				err = ErrOverlap
				return
			}
		}
		d.bookings[b.ID] = b
	})
	return b, err
}

func (v fakeBookings) UpdateStatus(_ context.Context, id string, from, to model.BookingStatus) (model.Booking, error) {
	var (
		b  model.Booking
		ok bool
	)
	v.with(func(d *fakeData) {
		b, ok = d.bookings[id]
		if !ok || b.Status != from {
			ok = false
			return
		}
		b.Status = to
		d.bookings[id] = b
	})
	if !ok {
		return model.Booking{}, ErrNotFound
	}
	return b, nil
}

func (v fakeBookings) list(match func(model.Booking) bool, limit int) []model.Booking {
	var out []model.Booking
	v.with(func(d *fakeData) {
		for _, b := range d.bookings {
			if match(b) {
				out = append(out, b)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (v fakeBookings) ListByProvider(_ context.Context, providerID string, limit int) ([]model.Booking, error) {
	return v.list(func(b model.Booking) bool { return b.ProviderID == providerID }, limit), nil
}

func (v fakeBookings) ListByClient(_ context.Context, clientID string, limit int) ([]model.Booking, error) {
	return v.list(func(b model.Booking) bool { return b.ClientID == clientID }, limit), nil
}

type fakeBlackouts struct{ fakeView }

func (v fakeBlackouts) FindByProviderAndDate(_ context.Context, providerID string, date time.Time) (*model.BlackoutDay, error) {
	var out *model.BlackoutDay
	v.with(func(d *fakeData) {
		for _, b := range d.blackouts {
			if b.ProviderID == providerID && b.Date.Equal(date) {
				b := b
				out = &b
				return
			}
		}
	})
	return out, nil
}

func (v fakeBlackouts) Get(_ context.Context, id string) (model.BlackoutDay, error) {
	var (
		b  model.BlackoutDay
		ok bool
	)
	v.with(func(d *fakeData) { b, ok = d.blackouts[id] })
	if !ok {
		return model.BlackoutDay{}, ErrNotFound
	}
	return b, nil
}

func inRange(date, from, to time.Time) bool {
	return (from.IsZero() || !date.Before(from)) && (to.IsZero() || !date.After(to))
}

func (v fakeBlackouts) FindRange(_ context.Context, providerID string, from, to time.Time) ([]model.BlackoutDay, error) {
	var out []model.BlackoutDay
	v.with(func(d *fakeData) {
		for _, b := range d.blackouts {
			if b.ProviderID == providerID && inRange(b.Date, from, to) {
				out = append(out, b)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (v fakeBlackouts) Upsert(ctx context.Context, providerID string, date time.Time, reason string) (model.BlackoutDay, error) {
	var out model.BlackoutDay
	v.with(func(d *fakeData) {
		for id, b := range d.blackouts {
			if b.ProviderID == providerID && b.Date.Equal(date) {
				b.Blocked = true
				b.Reason = reason
				d.blackouts[id] = b
				out = b
				return
			}
		}
		out = model.BlackoutDay{ID: uuid.NewString(), ProviderID: providerID, Date: date, Blocked: true, Reason: reason}
		d.blackouts[out.ID] = out
	})
	return out, nil
}

func (v fakeBlackouts) UpsertRange(ctx context.Context, providerID string, from, to time.Time, reason string) ([]model.BlackoutDay, error) {
	var out []model.BlackoutDay
	for _, day := range schedule.DaysBetween(from, to) {
		b, err := v.Upsert(ctx, providerID, day, reason)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

func (v fakeBlackouts) Delete(_ context.Context, id string) error {
	var ok bool
	v.with(func(d *fakeData) {
		_, ok = d.blackouts[id]
		delete(d.blackouts, id)
	})
	if !ok {
		return ErrNotFound
	}
	return nil
}

func (v fakeBlackouts) DeleteRange(_ context.Context, providerID string, from, to time.Time) (int64, error) {
	var n int64
	v.with(func(d *fakeData) {
		for id, b := range d.blackouts {
			if b.ProviderID == providerID && inRange(b.Date, from, to) {
				delete(d.blackouts, id)
				n++
			}
		}
	})
	return n, nil
}
