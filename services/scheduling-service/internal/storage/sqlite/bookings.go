package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/Andersonbaltazar/Plataforma-reservas-backend/services/scheduling-service/internal/model"
	"github.com/Andersonbaltazar/Plataforma-reservas-backend/services/scheduling-service/internal/schedule"
)

const bookingColumns = `id, provider_id, client_id, day, start_minute, end_minute, status, reason, note, created_at, updated_at`

type BookingRepository struct {
	q querier
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBooking(row scanner) (model.Booking, error) {
	var (
		b                model.Booking
		day, status      string
		created, updated string
		start, end       int
	)
	if err := row.Scan(&b.ID, &b.ProviderID, &b.ClientID, &day, &start, &end, &status, &b.Reason, &b.Note, &created, &updated); err != nil {
		return model.Booking{}, err
	}
	var err error
	if b.Date, err = parseDay(day); err != nil {
		return model.Booking{}, err
	}
	if b.CreatedAt, err = parseTime(created); err != nil {
		return model.Booking{}, err
	}
	if b.UpdatedAt, err = parseTime(updated); err != nil {
		return model.Booking{}, err
	}
	b.Interval = schedule.Interval{Start: schedule.TimeOfDay(start), End: schedule.TimeOfDay(end)}
	b.Status = model.BookingStatus(status)
	return b, nil
}

func collectBookings(rows *sql.Rows, err error) ([]model.Booking, error) {
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
	return out, rows.Err()
}

func (r *BookingRepository) FindByProviderAndDate(ctx context.Context, providerID string, date time.Time) ([]model.Booking, error) {
	return collectBookings(r.q.QueryContext(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE provider_id = ? AND day = ?
		ORDER BY start_minute ASC, created_at ASC
	`, providerID, formatDay(date)))
}

func (r *BookingRepository) Get(ctx context.Context, id string) (model.Booking, error) {
	b, err := scanBooking(r.q.QueryRowContext(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE id = ?
	`, id))
	return b, mapError(err)
}

func (r *BookingRepository) Insert(ctx context.Context, b model.Booking) (model.Booking, error) {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO bookings
			(id, provider_id, client_id, day, start_minute, end_minute, status, reason, note, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, b.ID, b.ProviderID, b.ClientID, formatDay(b.Date), int(b.Interval.Start), int(b.Interval.End),
		string(b.Status), b.Reason, b.Note, formatTime(b.CreatedAt), formatTime(b.UpdatedAt))
	if err != nil {
		return model.Booking{}, mapError(err)
	}
	return r.Get(ctx, b.ID)
}

func (r *BookingRepository) UpdateStatus(ctx context.Context, id string, from, to model.BookingStatus) (model.Booking, error) {
	res, err := r.q.ExecContext(ctx, `
		UPDATE bookings
		SET status = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`, string(to), formatTime(time.Now()), id, string(from))
	if err != nil {
		return model.Booking{}, mapError(err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return model.Booking{}, err
	} else if n == 0 {
		return model.Booking{}, mapError(sql.ErrNoRows)
	}
	return r.Get(ctx, id)
}

func (r *BookingRepository) ListByProvider(ctx context.Context, providerID string, limit int) ([]model.Booking, error) {
	return collectBookings(r.q.QueryContext(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE provider_id = ?
		ORDER BY day DESC, start_minute DESC
		LIMIT ?
	`, providerID, limit))
}

func (r *BookingRepository) ListByClient(ctx context.Context, clientID string, limit int) ([]model.Booking, error) {
	return collectBookings(r.q.QueryContext(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE client_id = ?
		ORDER BY day DESC, start_minute DESC
		LIMIT ?
	`, clientID, limit))
}
