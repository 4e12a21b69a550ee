package model

import (
	"testing"

	"github.com/Andersonbaltazar/Plataforma-reservas-backend/services/scheduling-service/internal/schedule"
	"github.com/stretchr/testify/assert"
)

func iv(start, end schedule.TimeOfDay) schedule.Interval {
	return schedule.Interval{Start: start, End: end}
}

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to BookingStatus
		want     bool
	}{
		{StatusPending, StatusConfirmed, true},
		{StatusPending, StatusRejected, true},
		{StatusPending, StatusCancelled, true},
		{StatusPending, StatusCompleted, false},
		{StatusConfirmed, StatusCompleted, true},
		{StatusConfirmed, StatusCancelled, true},
		{StatusConfirmed, StatusRejected, false},
		{StatusConfirmed, StatusPending, false},
		{StatusCancelled, StatusPending, false},
		{StatusRejected, StatusConfirmed, false},
		{StatusCompleted, StatusCancelled, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestActiveAndTerminal(t *testing.T) {
	assert.True(t, StatusPending.IsActive())
	assert.True(t, StatusConfirmed.IsActive())
	assert.False(t, StatusCancelled.IsActive())
	assert.False(t, StatusRejected.IsActive())
	assert.False(t, StatusCompleted.IsActive())

	assert.False(t, StatusPending.IsTerminal())
	assert.True(t, StatusCompleted.IsTerminal())
}

func TestParseBookingStatus(t *testing.T) {
	st, ok := ParseBookingStatus("confirmed")
	assert.True(t, ok)
	assert.Equal(t, StatusConfirmed, st)

	_, ok = ParseBookingStatus("Confirmed")
	assert.False(t, ok)
}

func TestOccupiedSkipsInactive(t *testing.T) {
	bs := []Booking{
		{ID: "a", Status: StatusPending, Interval: iv(600, 630)},
		{ID: "b", Status: StatusCancelled, Interval: iv(630, 660)},
		{ID: "c", Status: StatusConfirmed, Interval: iv(700, 760)},
		{ID: "d", Status: StatusRejected, Interval: iv(800, 830)},
	}
	assert.Equal(t, []schedule.Interval{iv(600, 630), iv(700, 760)}, Occupied(bs))
}
