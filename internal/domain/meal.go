package domain

import "time"

const (
	MealBreakfast = "breakfast"
	MealLunch     = "lunch"
	MealDinner    = "dinner"
	MealSnack     = "snack"
)

func IsValidMealType(t string) bool {
	switch t {
	case MealBreakfast, MealLunch, MealDinner, MealSnack:
		return true
	}
	return false
}

type MealEntry struct {
	ID          string    `json:"id"`
	ClientID    string    `json:"client_id"`
	Date        string    `json:"date"`
	MealType    string    `json:"meal_type"`
	Description string    `json:"description"`
	Notes       string    `json:"notes,omitempty"`
	PhotoURL    string    `json:"photo_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
