package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"diet-coach/internal/domain"
)

type MealRepository interface {
	Create(ctx context.Context, meal domain.MealEntry) (domain.MealEntry, error)
	ListByClientAndDate(ctx context.Context, clientID, date string) ([]domain.MealEntry, error)
}

type PgMealRepository struct {
	pool *pgxpool.Pool
}

func NewPgMealRepository(pool *pgxpool.Pool) *PgMealRepository {
	return &PgMealRepository{pool: pool}
}

func (r *PgMealRepository) Create(ctx context.Context, meal domain.MealEntry) (domain.MealEntry, error) {
	const query = `
		INSERT INTO meal_entries (client_id, day, meal_type, description, notes, photo_url)
		VALUES ($1, $2::date, $3, $4, $5, $6)
		RETURNING id, created_at
	`

	var photoURL interface{}
	if meal.PhotoURL != "" {
		photoURL = meal.PhotoURL
	}

	err := r.pool.QueryRow(ctx, query,
		meal.ClientID,
		meal.Date,
		meal.MealType,
		meal.Description,
		meal.Notes,
		photoURL,
	).Scan(&meal.ID, &meal.CreatedAt)
	if err != nil {
		return domain.MealEntry{}, err
	}
	return meal, nil
}

func (r *PgMealRepository) ListByClientAndDate(ctx context.Context, clientID, date string) ([]domain.MealEntry, error) {
	const query = `
		SELECT id, client_id, to_char(day, 'YYYY-MM-DD'), meal_type, description, notes, photo_url, created_at
		FROM meal_entries
		WHERE client_id = $1 AND day = $2::date
		ORDER BY created_at ASC
	`

	rows, err := r.pool.Query(ctx, query, clientID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	meals := []domain.MealEntry{}
	for rows.Next() {
		var m domain.MealEntry
		var photoURL *string
		if err := rows.Scan(&m.ID, &m.ClientID, &m.Date, &m.MealType, &m.Description, &m.Notes, &photoURL, &m.CreatedAt); err != nil {
			return nil, err
		}
		if photoURL != nil {
			m.PhotoURL = *photoURL
		}
		meals = append(meals, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return meals, nil
}
