package domain

import (
	"sync/atomic"
	"time"
)

// Session es la identidad explícita que reciben las operaciones que requieren usuario.
// Se crea en el login y queda invalidada en el logout.
type Session struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name,omitempty"`
	Role        string    `json:"role"`
	ExpiresAt   time.Time `json:"expires_at"`

	invalidated atomic.Bool
}

func NewSession(id string, user User, expiresAt time.Time) *Session {
	return &Session{
		ID:          id,
		UserID:      user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		Role:        user.Role,
		ExpiresAt:   expiresAt,
	}
}

// Valid es false para sesiones nil, invalidadas o vencidas.
func (s *Session) Valid(now time.Time) bool {
	if s == nil || s.UserID == "" || s.invalidated.Load() {
		return false
	}
	return s.ExpiresAt.IsZero() || now.Before(s.ExpiresAt)
}

func (s *Session) Invalidate() {
	if s != nil {
		s.invalidated.Store(true)
	}
}

func (s *Session) SenderName() string {
	return DisplayNameOrDefault(s.DisplayName, s.Role)
}

func (s *Session) IsCounselor() bool {
	return s != nil && s.Role == SenderRoleCounselor
}
