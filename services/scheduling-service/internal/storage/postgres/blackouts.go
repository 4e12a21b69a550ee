package postgres

import (
	"context"
	"sort"
	"time"

	"github.com/Andersonbaltazar/Plataforma-reservas-backend/services/scheduling-service/internal/engine"
	"github.com/Andersonbaltazar/Plataforma-reservas-backend/services/scheduling-service/internal/model"
	"github.com/Andersonbaltazar/Plataforma-reservas-backend/services/scheduling-service/internal/schedule"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const blackoutColumns = `id::text, provider_id, day, blocked, reason, created_at, updated_at`

type BlackoutRepository struct {
	q querier
}

func scanBlackout(row pgx.Row) (model.BlackoutDay, error) {
	var b model.BlackoutDay
	if err := row.Scan(&b.ID, &b.ProviderID, &b.Date, &b.Blocked, &b.Reason, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return model.BlackoutDay{}, err
	}
	b.Date = schedule.DateOf(b.Date)
	return b, nil
}

func collectBlackouts(rows pgx.Rows, err error) ([]model.BlackoutDay, error) {
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
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func (r *BlackoutRepository) FindByProviderAndDate(ctx context.Context, providerID string, date time.Time) (*model.BlackoutDay, error) {
	b, err := scanBlackout(r.q.QueryRow(ctx, `
		SELECT `+blackoutColumns+`
		FROM blackout_days
		WHERE provider_id = $1 AND day = $2
	`, providerID, schedule.DateOf(date)))
	if err != nil {
		if mapError(err) == engine.ErrNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &b, nil
}

func (r *BlackoutRepository) Get(ctx context.Context, id string) (model.BlackoutDay, error) {
	b, err := scanBlackout(r.q.QueryRow(ctx, `
		SELECT `+blackoutColumns+`
		FROM blackout_days
		WHERE id = $1
	`, id))
	return b, mapError(err)
}

func (r *BlackoutRepository) FindRange(ctx context.Context, providerID string, from, to time.Time) ([]model.BlackoutDay, error) {
	return collectBlackouts(r.q.Query(ctx, `
		SELECT `+blackoutColumns+`
		FROM blackout_days
		WHERE provider_id = $1
			AND ($2::date IS NULL OR day >= $2::date)
			AND ($3::date IS NULL OR day <= $3::date)
		ORDER BY day ASC
	`, providerID, nullableDate(from), nullableDate(to)))
}

func (r *BlackoutRepository) Upsert(ctx context.Context, providerID string, date time.Time, reason string) (model.BlackoutDay, error) {
	b, err := scanBlackout(r.q.QueryRow(ctx, `
		INSERT INTO blackout_days (id, provider_id, day, blocked, reason)
		VALUES ($1, $2, $3, true, $4)
		ON CONFLICT (provider_id, day)
		DO UPDATE SET blocked = true,
		              reason = EXCLUDED.reason,
		              updated_at = now()
		RETURNING `+blackoutColumns,
		uuid.NewString(), providerID, schedule.DateOf(date), reason))
	return b, mapError(err)
}

func (r *BlackoutRepository) UpsertRange(ctx context.Context, providerID string, from, to time.Time, reason string) ([]model.BlackoutDay, error) {
	days, err := collectBlackouts(r.q.Query(ctx, `
		INSERT INTO blackout_days (id, provider_id, day, blocked, reason)
		SELECT gen_random_uuid(), $1, d::date, true, $4
		FROM generate_series($2::date, $3::date, interval '1 day') AS d
		ON CONFLICT (provider_id, day)
		DO UPDATE SET blocked = true,
		              reason = EXCLUDED.reason,
		              updated_at = now()
		RETURNING `+blackoutColumns,
		providerID, schedule.DateOf(from), schedule.DateOf(to), reason))
	if err != nil {
		return nil, err
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Date.Before(days[j].Date) })
	return days, nil
}

func (r *BlackoutRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM blackout_days WHERE id = $1`, id)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return engine.ErrNotFound
	}
	return nil
}

func (r *BlackoutRepository) DeleteRange(ctx context.Context, providerID string, from, to time.Time) (int64, error) {
	tag, err := r.q.Exec(ctx, `
		DELETE FROM blackout_days
		WHERE provider_id = $1 AND day BETWEEN $2 AND $3
	`, providerID, schedule.DateOf(from), schedule.DateOf(to))
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
