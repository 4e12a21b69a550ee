package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/Andersonbaltazar/Plataforma-reservas-backend/services/scheduling-service/internal/engine"
	"github.com/Andersonbaltazar/Plataforma-reservas-backend/services/scheduling-service/internal/model"
	"github.com/Andersonbaltazar/Plataforma-reservas-backend/services/scheduling-service/internal/schedule"
	"github.com/google/uuid"
)

const blackoutColumns = `id, provider_id, day, blocked, reason, created_at, updated_at`

type BlackoutRepository struct {
	q querier
}

func scanBlackout(row scanner) (model.BlackoutDay, error) {
	var (
		b                     model.BlackoutDay
		day, created, updated string
	)
	if err := row.Scan(&b.ID, &b.ProviderID, &day, &b.Blocked, &b.Reason, &created, &updated); err != nil {
		return model.BlackoutDay{}, err
	}
	var err error
	if b.Date, err = parseDay(day); err != nil {
		return model.BlackoutDay{}, err
	}
	if b.CreatedAt, err = parseTime(created); err != nil {
		return model.BlackoutDay{}, err
	}
	if b.UpdatedAt, err = parseTime(updated); err != nil {
		return model.BlackoutDay{}, err
	}
	return b, nil
}

func collectBlackouts(rows *sql.Rows, err error) ([]model.BlackoutDay, error) {
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.BlackoutDay
	for rows.Next() {
		b, err := scanBlackout(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *BlackoutRepository) FindByProviderAndDate(ctx context.Context, providerID string, date time.Time) (*model.BlackoutDay, error) {
	b, err := scanBlackout(r.q.QueryRowContext(ctx, `
		SELECT `+blackoutColumns+`
		FROM blackout_days
		WHERE provider_id = ? AND day = ?
	`, providerID, formatDay(date)))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *BlackoutRepository) Get(ctx context.Context, id string) (model.BlackoutDay, error) {
	b, err := scanBlackout(r.q.QueryRowContext(ctx, `
		SELECT `+blackoutColumns+`
		FROM blackout_days
		WHERE id = ?
	`, id))
	return b, mapError(err)
}

func (r *BlackoutRepository) FindRange(ctx context.Context, providerID string, from, to time.Time) ([]model.BlackoutDay, error) {
	query := `SELECT ` + blackoutColumns + ` FROM blackout_days WHERE provider_id = ?`
	args := []any{providerID}
	if !from.IsZero() {
		query += ` AND day >= ?`
		args = append(args, formatDay(from))
	}
	if !to.IsZero() {
		query += ` AND day <= ?`
		args = append(args, formatDay(to))
	}
	query += ` ORDER BY day ASC`
	return collectBlackouts(r.q.QueryContext(ctx, query, args...))
}

func (r *BlackoutRepository) Upsert(ctx context.Context, providerID string, date time.Time, reason string) (model.BlackoutDay, error) {
	now := formatTime(time.Now())
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO blackout_days (id, provider_id, day, blocked, reason, created_at, updated_at)
		VALUES (?, ?, ?, 1, ?, ?, ?)
		ON CONFLICT (provider_id, day)
		DO UPDATE SET blocked = 1,
		              reason = excluded.reason,
		              updated_at = excluded.updated_at
	`, uuid.NewString(), providerID, formatDay(date), reason, now, now)
	if err != nil {
		return model.BlackoutDay{}, err
	}
	b, err := r.FindByProviderAndDate(ctx, providerID, date)
	if err != nil {
		return model.BlackoutDay{}, err
	}
	if b == nil {
		return model.BlackoutDay{}, engine.ErrNotFound
	}
	return *b, nil
}

func (r *BlackoutRepository) UpsertRange(ctx context.Context, providerID string, from, to time.Time, reason string) ([]model.BlackoutDay, error) {
	for _, d := range schedule.DaysBetween(from, to) {
		if _, err := r.Upsert(ctx, providerID, d, reason); err != nil {
			return nil, err
		}
	}
	return r.FindRange(ctx, providerID, schedule.DateOf(from), schedule.DateOf(to))
}

func (r *BlackoutRepository) Delete(ctx context.Context, id string) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM blackout_days WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return engine.ErrNotFound
	}
	return nil
}

func (r *BlackoutRepository) DeleteRange(ctx context.Context, providerID string, from, to time.Time) (int64, error) {
	res, err := r.q.ExecContext(ctx, `
		DELETE FROM blackout_days
		WHERE provider_id = ? AND day BETWEEN ? AND ?
	`, providerID, formatDay(from), formatDay(to))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
