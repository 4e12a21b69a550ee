package engine

import (
	"sort"
	"time"

	"github.com/Andersonbaltazar/Plataforma-reservas-backend/services/scheduling-service/internal/model"
	"github.com/Andersonbaltazar/Plataforma-reservas-backend/services/scheduling-service/internal/schedule"
)

var weekdayLabels = [7]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

type CalendarDay struct {
	Date       string `json:"date"`
	Weekday    string `json:"weekday"`
	Available  bool   `json:"available"`
	BlackoutID string `json:"blackout_id,omitempty"`
}

// MonthCalendar maps each day of the month to its availability.
// AvailableDays + BlockedDays == TotalDays.
type MonthCalendar struct {
	ProviderID    string              `json:"provider_id"`
	Year          int                 `json:"year"`
	Month         int                 `json:"month"`
	TotalDays     int                 `json:"total_days"`
	AvailableDays int                 `json:"available_days"`
	BlockedDays   int                 `json:"blocked_days"`
	Days          map[int]CalendarDay `json:"days"`
}

// Ordered returns the days from the 1st to the last.
func (c MonthCalendar) Ordered() []CalendarDay {
	keys := make([]int, 0, len(c.Days))
	for k := range c.Days {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	out := make([]CalendarDay, 0, len(keys))
	for _, k := range keys {
		out = append(out, c.Days[k])
	}
	return out
}

// DaysIn returns the length of the month, leap years included.
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// ProjectMonth marks every day of the month unavailable when a blocked
// blackout exists for it. Blackouts outside the month are ignored.
func ProjectMonth(providerID string, year int, month time.Month, blackouts []model.BlackoutDay) (MonthCalendar, error) {
	if err := validateMonth(year, month); err != nil {
		return MonthCalendar{}, err
	}

	blocked := make(map[int]string, len(blackouts))
	for _, b := range blackouts {
		y, m, d := b.Date.Date()
		if y != year || m != month || !b.Blocked {
			continue
		}
		blocked[d] = b.ID
	}

	total := DaysIn(year, month)
	cal := MonthCalendar{
		ProviderID: providerID,
		Year:       year,
		Month:      int(month),
		TotalDays:  total,
		Days:       make(map[int]CalendarDay, total),
	}
	for d := 1; d <= total; d++ {
		date := time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
		id, isBlocked := blocked[d]
		cal.Days[d] = CalendarDay{
			Date:       schedule.FormatDate(date),
			Weekday:    weekdayLabels[date.Weekday()],
			Available:  !isBlocked,
			BlackoutID: id,
		}
		if isBlocked {
			cal.BlockedDays++
		} else {
			cal.AvailableDays++
		}
	}
	return cal, nil
}
