package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"diet-coach/internal/domain"
)

type ProgressRepository interface {
	// Get devuelve pgx.ErrNoRows si el cliente aún no registró nada ese día.
	Get(ctx context.Context, clientID, date string) (domain.DailyProgress, error)
	Upsert(ctx context.Context, progress domain.DailyProgress) (domain.DailyProgress, error)
}

type PgProgressRepository struct {
	pool *pgxpool.Pool
}

func NewPgProgressRepository(pool *pgxpool.Pool) *PgProgressRepository {
	return &PgProgressRepository{pool: pool}
}

func (r *PgProgressRepository) Get(ctx context.Context, clientID, date string) (domain.DailyProgress, error) {
	const query = `
		SELECT client_id, to_char(day, 'YYYY-MM-DD'), morning_drink, breakfast, lunch, dinner, night_drink, workout, weight, notes, updated_at
		FROM daily_progress
		WHERE client_id = $1 AND day = $2::date
	`
	var p domain.DailyProgress
	err := r.pool.QueryRow(ctx, query, clientID, date).Scan(
		&p.ClientID,
		&p.Date,
		&p.MorningDrink,
		&p.Breakfast,
		&p.Lunch,
		&p.Dinner,
		&p.NightDrink,
		&p.Workout,
		&p.Weight,
		&p.Notes,
		&p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.DailyProgress{}, err
	}
	return p, err
}

func (r *PgProgressRepository) Upsert(ctx context.Context, p domain.DailyProgress) (domain.DailyProgress, error) {
	const query = `
		INSERT INTO daily_progress (client_id, day, morning_drink, breakfast, lunch, dinner, night_drink, workout, weight, notes, updated_at)
		VALUES ($1, $2::date, $3, $4, $5, $6, $7, $8, $9, $10, now())
		ON CONFLICT (client_id, day) DO UPDATE SET
			morning_drink = EXCLUDED.morning_drink,
			breakfast = EXCLUDED.breakfast,
			lunch = EXCLUDED.lunch,
			dinner = EXCLUDED.dinner,
			night_drink = EXCLUDED.night_drink,
			workout = EXCLUDED.workout,
			weight = EXCLUDED.weight,
			notes = EXCLUDED.notes,
			updated_at = now()
		RETURNING updated_at
	`
	err := r.pool.QueryRow(ctx, query,
		p.ClientID,
		p.Date,
		p.MorningDrink,
		p.Breakfast,
		p.Lunch,
		p.Dinner,
		p.NightDrink,
		p.Workout,
		p.Weight,
		p.Notes,
	).Scan(&p.UpdatedAt)
	if err != nil {
		return domain.DailyProgress{}, err
	}
	return p, nil
}
