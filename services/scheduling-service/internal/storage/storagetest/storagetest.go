// Package storagetest holds the behaviour every persistence backend must
// share with the engine's expectations. Backends call Run from their tests.
package storagetest

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/Andersonbaltazar/Plataforma-reservas-backend/services/scheduling-service/internal/engine"
	"github.com/Andersonbaltazar/Plataforma-reservas-backend/services/scheduling-service/internal/model"
	"github.com/Andersonbaltazar/Plataforma-reservas-backend/services/scheduling-service/internal/outbox"
	"github.com/Andersonbaltazar/Plataforma-reservas-backend/services/scheduling-service/internal/policy"
	"github.com/Andersonbaltazar/Plataforma-reservas-backend/services/scheduling-service/internal/schedule"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Backend is a store that also relays its outbox.
type Backend interface {
	engine.Store
	outbox.Source
}

var (
	now = time.Date(2031, 1, 2, 9, 0, 0, 0, time.UTC)
	day = time.Date(2031, 3, 10, 0, 0, 0, 0, time.UTC)
)

// Run executes the contract against backends produced by open. Provider ids
// are unique per subtest so a shared database can be reused across runs.
func Run(t *testing.T, open func(t *testing.T) Backend) {
	t.Run("BookingRoundTrip", func(t *testing.T) { testBookingRoundTrip(t, open(t)) })
	t.Run("OverlapIsRejected", func(t *testing.T) { testOverlap(t, open(t)) })
	t.Run("UpdateStatusComparesCurrent", func(t *testing.T) { testUpdateStatus(t, open(t)) })
	t.Run("ListBookings", func(t *testing.T) { testListBookings(t, open(t)) })
	t.Run("BlackoutUpsert", func(t *testing.T) { testBlackoutUpsert(t, open(t)) })
	t.Run("BlackoutRanges", func(t *testing.T) { testBlackoutRanges(t, open(t)) })
	t.Run("UnitRollsBack", func(t *testing.T) { testUnitRollsBack(t, open(t)) })
	t.Run("OutboxRelay", func(t *testing.T) { testOutboxRelay(t, open(t)) })
	t.Run("ConcurrentBookings", func(t *testing.T) { testConcurrentBookings(t, open(t)) })
}

func providerID() string {
	return "prov-" + uuid.NewString()
}

func window(start, end string) schedule.Interval {
	return schedule.Interval{Start: schedule.MustTimeOfDay(start), End: schedule.MustTimeOfDay(end)}
}

func booking(providerID, clientID string, date time.Time, iv schedule.Interval, status model.BookingStatus) model.Booking {
	return model.Booking{
		ID:         uuid.NewString(),
		ProviderID: providerID,
		ClientID:   clientID,
		Date:       date,
		Interval:   iv,
		Status:     status,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func insert(t *testing.T, s engine.Store, b model.Booking) model.Booking {
	t.Helper()
	var out model.Booking
	err := s.InProviderDays(context.Background(), b.ProviderID, b.Date, b.Date, func(ctx context.Context, st engine.Stores) error {
		var err error
		out, err = st.Bookings.Insert(ctx, b)
		return err
	})
	require.NoError(t, err)
	return out
}

func testBookingRoundTrip(t *testing.T, s Backend) {
	ctx := context.Background()
	pid := providerID()

	late := insert(t, s, booking(pid, "client-1", day, window("11:00", "11:30"), model.StatusPending))
	early := insert(t, s, booking(pid, "client-2", day, window("09:00", "09:30"), model.StatusConfirmed))
	insert(t, s, booking(pid, "client-1", day.AddDate(0, 0, 1), window("09:00", "09:30"), model.StatusPending))

	got, err := s.Bookings().Get(ctx, late.ID)
	require.NoError(t, err)
	assert.Equal(t, pid, got.ProviderID)
	assert.Equal(t, "client-1", got.ClientID)
	assert.True(t, got.Date.Equal(day))
	assert.Equal(t, window("11:00", "11:30"), got.Interval)
	assert.Equal(t, model.StatusPending, got.Status)

	list, err := s.Bookings().FindByProviderAndDate(ctx, pid, day)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, early.ID, list[0].ID)
	assert.Equal(t, late.ID, list[1].ID)

	_, err = s.Bookings().Get(ctx, uuid.NewString())
	assert.ErrorIs(t, err, engine.ErrNotFound)
	_, err = s.Bookings().Get(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, engine.ErrNotFound)
}

func testOverlap(t *testing.T, s Backend) {
	ctx := context.Background()
	pid := providerID()

	insert(t, s, booking(pid, "c", day, window("10:00", "10:30"), model.StatusPending))
	insert(t, s, booking(pid, "c", day, window("10:30", "11:00"), model.StatusPending))
	insert(t, s, booking(pid, "c", day, window("12:00", "13:00"), model.StatusCancelled))
	insert(t, s, booking(pid, "c", day, window("12:00", "13:00"), model.StatusPending))
	insert(t, s, booking(providerID(), "c", day, window("10:00", "10:30"), model.StatusPending))

	err := s.InProviderDays(ctx, pid, day, day, func(ctx context.Context, st engine.Stores) error {
		_, err := st.Bookings.Insert(ctx, booking(pid, "c", day, window("10:15", "10:45"), model.StatusPending))
		return err
	})
	assert.ErrorIs(t, err, engine.ErrOverlap)

	list, err := s.Bookings().FindByProviderAndDate(ctx, pid, day)
	require.NoError(t, err)
	assert.Len(t, list, 4)
}

func testUpdateStatus(t *testing.T, s Backend) {
	ctx := context.Background()
	pid := providerID()
	b := insert(t, s, booking(pid, "c", day, window("10:00", "10:30"), model.StatusPending))

	err := s.InProviderDays(ctx, pid, day, day, func(ctx context.Context, st engine.Stores) error {
		_, err := st.Bookings.UpdateStatus(ctx, b.ID, model.StatusConfirmed, model.StatusCompleted)
		return err
	})
	assert.ErrorIs(t, err, engine.ErrNotFound)

	var updated model.Booking
	err = s.InProviderDays(ctx, pid, day, day, func(ctx context.Context, st engine.Stores) error {
		var err error
		updated, err = st.Bookings.UpdateStatus(ctx, b.ID, model.StatusPending, model.StatusCancelled)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, updated.Status)

	// The freed window can be booked again.
	insert(t, s, booking(pid, "c", day, window("10:00", "10:30"), model.StatusPending))
}

func testListBookings(t *testing.T, s Backend) {
	ctx := context.Background()
	pid := providerID()
	client := "client-" + uuid.NewString()

	for i := 0; i < 3; i++ {
		insert(t, s, booking(pid, client, day.AddDate(0, 0, i), window("09:00", "10:00"), model.StatusPending))
	}
	insert(t, s, booking(pid, "someone-else", day, window("12:00", "13:00"), model.StatusPending))

	byProvider, err := s.Bookings().ListByProvider(ctx, pid, 10)
	require.NoError(t, err)
	assert.Len(t, byProvider, 4)

	byClient, err := s.Bookings().ListByClient(ctx, client, 2)
	require.NoError(t, err)
	require.Len(t, byClient, 2)
	assert.True(t, byClient[0].Date.Equal(day.AddDate(0, 0, 2)))
}

func testBlackoutUpsert(t *testing.T, s Backend) {
	ctx := context.Background()
	pid := providerID()

	none, err := s.Blackouts().FindByProviderAndDate(ctx, pid, day)
	require.NoError(t, err)
	assert.Nil(t, none)

	var first, second model.BlackoutDay
	err = s.InProviderDays(ctx, pid, day, day, func(ctx context.Context, st engine.Stores) error {
		var err error
		first, err = st.Blackouts.Upsert(ctx, pid, day, "holiday")
		if err != nil {
			return err
		}
		second, err = st.Blackouts.Upsert(ctx, pid, day, "training")
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.True(t, second.Blocked)
	assert.Equal(t, "training", second.Reason)
	assert.True(t, second.Date.Equal(day))

	found, err := s.Blackouts().FindByProviderAndDate(ctx, pid, day)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, first.ID, found.ID)

	got, err := s.Blackouts().Get(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "training", got.Reason)

	err = s.InProviderDays(ctx, pid, day, day, func(ctx context.Context, st engine.Stores) error {
		return st.Blackouts.Delete(ctx, first.ID)
	})
	require.NoError(t, err)

	err = s.InProviderDays(ctx, pid, day, day, func(ctx context.Context, st engine.Stores) error {
		return st.Blackouts.Delete(ctx, first.ID)
	})
	assert.ErrorIs(t, err, engine.ErrNotFound)
}

func testBlackoutRanges(t *testing.T, s Backend) {
	ctx := context.Background()
	pid := providerID()
	from, to := day, day.AddDate(0, 0, 4)

	var days []model.BlackoutDay
	err := s.InProviderDays(ctx, pid, from, to, func(ctx context.Context, st engine.Stores) error {
		if _, err := st.Blackouts.Upsert(ctx, pid, day.AddDate(0, 0, 2), "existing"); err != nil {
			return err
		}
		var err error
		days, err = st.Blackouts.UpsertRange(ctx, pid, from, to, "vacation")
		return err
	})
	require.NoError(t, err)
	require.Len(t, days, 5)
	for i, d := range days {
		assert.True(t, d.Date.Equal(day.AddDate(0, 0, i)), "day %d", i)
		assert.Equal(t, "vacation", d.Reason)
	}

	all, err := s.Blackouts().FindRange(ctx, pid, time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Len(t, all, 5)

	middle, err := s.Blackouts().FindRange(ctx, pid, day.AddDate(0, 0, 1), day.AddDate(0, 0, 3))
	require.NoError(t, err)
	assert.Len(t, middle, 3)

	tail, err := s.Blackouts().FindRange(ctx, pid, day.AddDate(0, 0, 3), time.Time{})
	require.NoError(t, err)
	assert.Len(t, tail, 2)

	var removed int64
	err = s.InProviderDays(ctx, pid, from, to, func(ctx context.Context, st engine.Stores) error {
		var err error
		removed, err = st.Blackouts.DeleteRange(ctx, pid, day.AddDate(0, 0, 1), day.AddDate(0, 0, 2))
		return err
	})
	require.NoError(t, err)
	assert.EqualValues(t, 2, removed)

	left, err := s.Blackouts().FindRange(ctx, pid, time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Len(t, left, 3)
}

func testUnitRollsBack(t *testing.T, s Backend) {
	ctx := context.Background()
	pid := providerID()
	boom := errors.New("boom")

	err := s.InProviderDays(ctx, pid, day, day, func(ctx context.Context, st engine.Stores) error {
		if _, err := st.Bookings.Insert(ctx, booking(pid, "c", day, window("10:00", "10:30"), model.StatusPending)); err != nil {
			return err
		}
		if _, err := st.Blackouts.Upsert(ctx, pid, day.AddDate(0, 0, 1), "x"); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	list, err := s.Bookings().FindByProviderAndDate(ctx, pid, day)
	require.NoError(t, err)
	assert.Empty(t, list)

	marker, err := s.Blackouts().FindByProviderAndDate(ctx, pid, day.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Nil(t, marker)
}

func drain(t *testing.T, s Backend) []outbox.Record {
	t.Helper()
	var out []outbox.Record
	for {
		n, err := s.Relay(context.Background(), 100, func(_ context.Context, records []outbox.Record) error {
			out = append(out, records...)
			return nil
		})
		require.NoError(t, err)
		if n == 0 {
			return out
		}
	}
}

func testOutboxRelay(t *testing.T, s Backend) {
	ctx := context.Background()
	pid := providerID()
	drain(t, s)

	err := s.InProviderDays(ctx, pid, day, day, func(ctx context.Context, st engine.Stores) error {
		return st.Outbox.Append(ctx, outbox.Event{
			AggregateType: "booking",
			AggregateID:   "b-1",
			EventType:     "scheduling.booking.created.v1",
			PartitionKey:  pid,
			Payload:       []byte(`{"booking_id":"b-1"}`),
		})
	})
	require.NoError(t, err)

	// A failed publish leaves the record in place.
	_, err = s.Relay(ctx, 10, func(context.Context, []outbox.Record) error { return errors.New("broker down") })
	require.Error(t, err)

	records := drain(t, s)
	require.Len(t, records, 1)
	r := records[0]
	assert.NotEmpty(t, r.EventID)
	assert.Equal(t, "booking", r.AggregateType)
	assert.Equal(t, "b-1", r.AggregateID)
	assert.Equal(t, "scheduling.booking.created.v1", r.EventType)
	assert.Equal(t, pid, r.PartitionKey)
	assert.JSONEq(t, `{"booking_id":"b-1"}`, string(r.Payload))

	assert.Empty(t, drain(t, s))
}

func testConcurrentBookings(t *testing.T, s Backend) {
	policies, err := policy.NewStaticProvider(policy.ProfileStandard)
	require.NoError(t, err)
	e := engine.New(s, policies, slog.New(slog.NewTextHandler(io.Discard, nil)), engine.Options{
		Now: func() time.Time { return now },
	})
	pid := providerID()

	const attempts = 6
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		conflicts int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			iv := window("14:00", "15:00")
			if i%2 == 1 {
				iv = window("14:30", "15:30")
			}
			_, err := e.TryCreateBooking(context.Background(), engine.BookingRequest{
				ProviderID: pid,
				ClientID:   "c",
				Date:       day,
				Interval:   iv,
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, engine.ErrConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, attempts-1, conflicts)

	events := drain(t, s)
	var created int
	for _, r := range events {
		if r.EventType == engine.EventBookingCreated && r.PartitionKey == pid {
			created++
		}
	}
	assert.Equal(t, 1, created)
}
