package service

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"diet-coach/internal/domain"
	"diet-coach/internal/repository"
)

var ErrUnknownProgressItem = errors.New("unknown progress item")

// ProgressService lleva los hábitos diarios del cliente y el resumen del dashboard.
// "Hoy" se calcula en la zona horaria que recibe cada operación.
type ProgressService struct {
	logger   *zap.Logger
	progress repository.ProgressRepository
	users    repository.UserRepository
	now      func() time.Time
}

func NewProgressService(logger *zap.Logger, progress repository.ProgressRepository, users repository.UserRepository) *ProgressService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProgressService{
		logger:   logger,
		progress: progress,
		users:    users,
		now:      time.Now,
	}
}

type DashboardSummary struct {
	Progress      domain.DailyProgress `json:"progress"`
	Completed     int                  `json:"completed"`
	Total         int                  `json:"total"`
	Percent       int                  `json:"percent"`
	StartWeight   *float64             `json:"start_weight,omitempty"`
	CurrentWeight *float64             `json:"current_weight,omitempty"`
	TargetWeight  *float64             `json:"target_weight,omitempty"`
	WeightLost    float64              `json:"weight_lost"`
	DaysRemaining *int                 `json:"days_remaining"`
}

func (s *ProgressService) Today(ctx context.Context, session *domain.Session, loc *time.Location) (domain.DailyProgress, error) {
	now := s.now()
	if !session.Valid(now) {
		return domain.DailyProgress{}, ErrAuthRequired
	}
	return s.load(ctx, session.UserID, localDate(now, loc))
}

// Toggle invierte un hábito de hoy y guarda el día completo.
func (s *ProgressService) Toggle(ctx context.Context, session *domain.Session, item string, loc *time.Location) (domain.DailyProgress, error) {
	now := s.now()
	if !session.Valid(now) {
		return domain.DailyProgress{}, ErrAuthRequired
	}
	progress, err := s.load(ctx, session.UserID, localDate(now, loc))
	if err != nil {
		return domain.DailyProgress{}, err
	}
	if !progress.Toggle(item) {
		return domain.DailyProgress{}, ErrUnknownProgressItem
	}
	saved, err := s.progress.Upsert(ctx, progress)
	if err != nil {
		s.logger.Error("save daily progress failed", zap.Error(err), zap.String("client_id", session.UserID))
		return domain.DailyProgress{}, err
	}
	return saved, nil
}

func (s *ProgressService) Summary(ctx context.Context, session *domain.Session, loc *time.Location) (DashboardSummary, error) {
	now := s.now()
	if !session.Valid(now) {
		return DashboardSummary{}, ErrAuthRequired
	}
	progress, err := s.load(ctx, session.UserID, localDate(now, loc))
	if err != nil {
		return DashboardSummary{}, err
	}
	user, err := s.users.GetByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return DashboardSummary{}, ErrUserNotFound
		}
		return DashboardSummary{}, err
	}

	return DashboardSummary{
		Progress:      progress,
		Completed:     progress.Completed(),
		Total:         len(domain.ProgressItems),
		Percent:       progress.Percent(),
		StartWeight:   user.StartWeight,
		CurrentWeight: user.CurrentWeight,
		TargetWeight:  user.TargetWeight,
		WeightLost:    weightLost(user),
		DaysRemaining: daysRemaining(user.DietEndDate, now, loc),
	}, nil
}

func (s *ProgressService) load(ctx context.Context, clientID, date string) (domain.DailyProgress, error) {
	progress, err := s.progress.Get(ctx, clientID, date)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.DailyProgress{ClientID: clientID, Date: date}, nil
	}
	if err != nil {
		return domain.DailyProgress{}, err
	}
	return progress, nil
}

// weightLost es 0 si falta alguno de los dos pesos.
func weightLost(user domain.User) float64 {
	if user.StartWeight == nil || user.CurrentWeight == nil {
		return 0
	}
	return math.Round((*user.StartWeight-*user.CurrentWeight)*10) / 10
}

// daysRemaining redondea hacia arriba los días hasta la medianoche local de la fecha fin.
// Puede ser negativo si la dieta ya terminó.
func daysRemaining(end *time.Time, now time.Time, loc *time.Location) *int {
	if end == nil {
		return nil
	}
	if loc == nil {
		loc = time.Local
	}
	y, m, d := end.Date()
	deadline := time.Date(y, m, d, 0, 0, 0, 0, loc)
	days := int(math.Ceil(deadline.Sub(now).Hours() / 24))
	return &days
}

func localDate(now time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return now.In(loc).Format(time.DateOnly)
}
