package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Andersonbaltazar/Plataforma-reservas-backend/services/scheduling-service/internal/model"
	"github.com/Andersonbaltazar/Plataforma-reservas-backend/services/scheduling-service/internal/outbox"
	"github.com/Andersonbaltazar/Plataforma-reservas-backend/services/scheduling-service/internal/schedule"
)

const (
	EventBookingCreated       = "scheduling.booking.created.v1"
	EventBookingCancelled     = "scheduling.booking.cancelled.v1"
	EventBookingStatusChanged = "scheduling.booking.status_changed.v1"
	EventBlackoutSet          = "scheduling.blackout.set.v1"
	EventBlackoutCleared      = "scheduling.blackout.cleared.v1"
)

type bookingPayload struct {
	BookingID      string `json:"booking_id"`
	ProviderID     string `json:"provider_id"`
	ClientID       string `json:"client_id"`
	Date           string `json:"date"`
	Start          string `json:"start"`
	End            string `json:"end"`
	Status         string `json:"status"`
	PreviousStatus string `json:"previous_status,omitempty"`
	OccurredAt     string `json:"occurred_at"`
}

type blackoutPayload struct {
	ProviderID  string   `json:"provider_id"`
	Dates       []string `json:"dates"`
	BlackoutIDs []string `json:"blackout_ids"`
	Reason      string   `json:"reason,omitempty"`
	OccurredAt  string   `json:"occurred_at"`
}

type pendingEvent struct {
	evt outbox.Event
	err error
}

func bookingEvent(eventType string, b model.Booking, previous model.BookingStatus, at time.Time) pendingEvent {
	payload, err := json.Marshal(bookingPayload{
		BookingID:      b.ID,
		ProviderID:     b.ProviderID,
		ClientID:       b.ClientID,
		Date:           schedule.FormatDate(b.Date),
		Start:          b.Interval.Start.String(),
		End:            b.Interval.End.String(),
		Status:         string(b.Status),
		PreviousStatus: string(previous),
		OccurredAt:     at.Format(time.RFC3339),
	})
	return pendingEvent{
		evt: outbox.Event{
			AggregateType: "booking",
			AggregateID:   b.ID,
			EventType:     eventType,
			PartitionKey:  b.ProviderID,
			Payload:       payload,
		},
		err: err,
	}
}

func blackoutEvent(eventType, providerID string, days []model.BlackoutDay, reason string, at time.Time) pendingEvent {
	p := blackoutPayload{
		ProviderID:  providerID,
		Dates:       make([]string, 0, len(days)),
		BlackoutIDs: make([]string, 0, len(days)),
		Reason:      reason,
		OccurredAt:  at.Format(time.RFC3339),
	}
	for _, d := range days {
		p.Dates = append(p.Dates, schedule.FormatDate(d.Date))
		p.BlackoutIDs = append(p.BlackoutIDs, d.ID)
	}
	payload, err := json.Marshal(p)
	return pendingEvent{
		evt: outbox.Event{
			AggregateType: "provider",
			AggregateID:   providerID,
			EventType:     eventType,
			Payload:       payload,
		},
		err: err,
	}
}

// emit appends the event to the unit's outbox when the backend provides one.
func emit(ctx context.Context, s Stores, p pendingEvent) error {
	if p.err != nil {
		return fmt.Errorf("encode %s: %w", p.evt.EventType, p.err)
	}
	if s.Outbox == nil {
		return nil
	}
	if err := s.Outbox.Append(ctx, p.evt); err != nil {
		return fmt.Errorf("append %s: %w", p.evt.EventType, err)
	}
	return nil
}
