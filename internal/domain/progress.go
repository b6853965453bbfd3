package domain

import (
	"math"
	"time"
)

const (
	ProgressMorningDrink = "morningDrink"
	ProgressBreakfast    = "breakfast"
	ProgressLunch        = "lunch"
	ProgressDinner       = "dinner"
	ProgressNightDrink   = "nightDrink"
	ProgressWorkout      = "workout"
)

// ProgressItems es el orden en que el dashboard muestra los hábitos diarios.
var ProgressItems = []string{
	ProgressMorningDrink,
	ProgressBreakfast,
	ProgressLunch,
	ProgressDinner,
	ProgressNightDrink,
	ProgressWorkout,
}

type DailyProgress struct {
	ClientID     string    `json:"client_id"`
	Date         string    `json:"date"`
	MorningDrink bool      `json:"morningDrink"`
	Breakfast    bool      `json:"breakfast"`
	Lunch        bool      `json:"lunch"`
	Dinner       bool      `json:"dinner"`
	NightDrink   bool      `json:"nightDrink"`
	Workout      bool      `json:"workout"`
	Weight       *float64  `json:"weight,omitempty"`
	Notes        string    `json:"notes,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (p *DailyProgress) flag(item string) *bool {
	switch item {
	case ProgressMorningDrink:
		return &p.MorningDrink
	case ProgressBreakfast:
		return &p.Breakfast
	case ProgressLunch:
		return &p.Lunch
	case ProgressDinner:
		return &p.Dinner
	case ProgressNightDrink:
		return &p.NightDrink
	case ProgressWorkout:
		return &p.Workout
	}
	return nil
}

// Toggle invierte un hábito. Devuelve false si el item no existe.
func (p *DailyProgress) Toggle(item string) bool {
	f := p.flag(item)
	if f == nil {
		return false
	}
	*f = !*f
	return true
}

func (p DailyProgress) Completed() int {
	n := 0
	for _, item := range ProgressItems {
		if *p.flag(item) {
			n++
		}
	}
	return n
}

// Percent redondea completados/6 a un entero 0-100.
func (p DailyProgress) Percent() int {
	return int(math.Round(float64(p.Completed()) / float64(len(ProgressItems)) * 100))
}
