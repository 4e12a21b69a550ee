package postgres

import (
	"context"
	"time"

	"github.com/Andersonbaltazar/Plataforma-reservas-backend/services/scheduling-service/internal/model"
	"github.com/Andersonbaltazar/Plataforma-reservas-backend/services/scheduling-service/internal/schedule"
	"github.com/jackc/pgx/v5"
)

const bookingColumns = `id::text, provider_id, client_id, day, start_minute, end_minute, status, reason, note, created_at, updated_at`

type BookingRepository struct {
	q querier
}

func scanBooking(row pgx.Row) (model.Booking, error) {
	var (
		b          model.Booking
		start, end int
		status     string
	)
	if err := row.Scan(&b.ID, &b.ProviderID, &b.ClientID, &b.Date, &start, &end, &status, &b.Reason, &b.Note, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return model.Booking{}, err
	}
	b.Interval = schedule.Interval{Start: schedule.TimeOfDay(start), End: schedule.TimeOfDay(end)}
	b.Status = model.BookingStatus(status)
	b.Date = schedule.DateOf(b.Date)
	return b, nil
}

func collectBookings(rows pgx.Rows, err error) ([]model.Booking, error) {
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func (r *BookingRepository) FindByProviderAndDate(ctx context.Context, providerID string, date time.Time) ([]model.Booking, error) {
	return collectBookings(r.q.Query(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE provider_id = $1 AND day = $2
		ORDER BY start_minute ASC, created_at ASC
	`, providerID, schedule.DateOf(date)))
}

func (r *BookingRepository) Get(ctx context.Context, id string) (model.Booking, error) {
	b, err := scanBooking(r.q.QueryRow(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE id = $1
	`, id))
	return b, mapError(err)
}

func (r *BookingRepository) Insert(ctx context.Context, b model.Booking) (model.Booking, error) {
	out, err := scanBooking(r.q.QueryRow(ctx, `
		INSERT INTO bookings
			(id, provider_id, client_id, day, start_minute, end_minute, status, reason, note, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING `+bookingColumns,
		b.ID, b.ProviderID, b.ClientID, schedule.DateOf(b.Date), int(b.Interval.Start), int(b.Interval.End),
		string(b.Status), b.Reason, b.Note, b.CreatedAt, b.UpdatedAt))
	return out, mapError(err)
}

func (r *BookingRepository) UpdateStatus(ctx context.Context, id string, from, to model.BookingStatus) (model.Booking, error) {
	b, err := scanBooking(r.q.QueryRow(ctx, `
		UPDATE bookings
		SET status = $3,
			updated_at = now()
		WHERE id = $1 AND status = $2
		RETURNING `+bookingColumns,
		id, string(from), string(to)))
	return b, mapError(err)
}

func (r *BookingRepository) ListByProvider(ctx context.Context, providerID string, limit int) ([]model.Booking, error) {
	return collectBookings(r.q.Query(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE provider_id = $1
		ORDER BY day DESC, start_minute DESC
		LIMIT $2
	`, providerID, limit))
}

func (r *BookingRepository) ListByClient(ctx context.Context, clientID string, limit int) ([]model.Booking, error) {
	return collectBookings(r.q.Query(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE client_id = $1
		ORDER BY day DESC, start_minute DESC
		LIMIT $2
	`, clientID, limit))
}
