package schedule

import "fmt"

// Policy is a provider's working window and slot length.
type Policy struct {
	WorkStart   TimeOfDay `json:"work_start"`
	WorkEnd     TimeOfDay `json:"work_end"`
	StepMinutes int       `json:"step_minutes"`
}

var (
	// StandardPolicy is the default: 30 minute slots from 08:00 to 18:00.
	StandardPolicy = Policy{WorkStart: 8 * 60, WorkEnd: 18 * 60, StepMinutes: 30}
	// HourlyPolicy offers one hour slots from 09:00 to 18:00.
	HourlyPolicy = Policy{WorkStart: 9 * 60, WorkEnd: 18 * 60, StepMinutes: 60}
)

func (p Policy) Validate() error {
	if _, err := NewInterval(p.WorkStart, p.WorkEnd); err != nil {
		return fmt.Errorf("working hours: %w", err)
	}
	if p.StepMinutes <= 0 {
		return fmt.Errorf("step must be positive (got %d)", p.StepMinutes)
	}
	if p.StepMinutes > int(p.WorkEnd-p.WorkStart) {
		return fmt.Errorf("step of %d minutes does not fit in working hours %s-%s", p.StepMinutes, p.WorkStart, p.WorkEnd)
	}
	return nil
}

// DaySlot is one candidate slot of a day together with whether it is free.
type DaySlot struct {
	Start TimeOfDay `json:"start"`
	End   TimeOfDay `json:"end"`
	Free  bool      `json:"free"`
}

// GenerateFreeSlots walks [workStart, workEnd) in step minute increments and
// returns, in order, every candidate [cursor, cursor+step) that does not
// overlap an occupied interval. A trailing partial slot is dropped.
func GenerateFreeSlots(workStart, workEnd TimeOfDay, stepMinutes int, occupied []Interval) []Interval {
	var free []Interval
	for _, s := range Grid(workStart, workEnd, stepMinutes, occupied) {
		if s.Free {
			free = append(free, Interval{Start: s.Start, End: s.End})
		}
	}
	return free
}

// Grid returns every candidate slot of the working window, free or not.
func Grid(workStart, workEnd TimeOfDay, stepMinutes int, occupied []Interval) []DaySlot {
	if stepMinutes <= 0 || workEnd <= workStart {
		return nil
	}

	step := TimeOfDay(stepMinutes)
	slots := make([]DaySlot, 0, int(workEnd-workStart)/stepMinutes)
	for cursor := workStart; cursor+step <= workEnd; cursor += step {
		candidate := Interval{Start: cursor, End: cursor + step}
		slots = append(slots, DaySlot{
			Start: candidate.Start,
			End:   candidate.End,
			Free:  !OverlapsAny(candidate, occupied),
		})
	}
	return slots
}

// FreeSlots applies GenerateFreeSlots with the policy's window.
func (p Policy) FreeSlots(occupied []Interval) []Interval {
	return GenerateFreeSlots(p.WorkStart, p.WorkEnd, p.StepMinutes, occupied)
}

// Grid applies Grid with the policy's window.
func (p Policy) Grid(occupied []Interval) []DaySlot {
	return Grid(p.WorkStart, p.WorkEnd, p.StepMinutes, occupied)
}
