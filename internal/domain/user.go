package domain

import "time"

type User struct {
	ID            string     `json:"id"`
	Email         string     `json:"email"`
	DisplayName   string     `json:"display_name,omitempty"`
	Role          string     `json:"role"`
	PasswordHash  string     `json:"-"`
	StartWeight   *float64   `json:"start_weight,omitempty"`
	CurrentWeight *float64   `json:"current_weight,omitempty"`
	TargetWeight  *float64   `json:"target_weight,omitempty"`
	DietEndDate   *time.Time `json:"diet_end_date,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// SenderName devuelve el nombre visible con el fallback por rol.
func (u User) SenderName() string {
	return DisplayNameOrDefault(u.DisplayName, u.Role)
}

func DisplayNameOrDefault(name, role string) string {
	if name != "" {
		return name
	}
	if role == SenderRoleCounselor {
		return "Counselor"
	}
	return "Client"
}
