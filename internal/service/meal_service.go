package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"diet-coach/internal/domain"
	"diet-coach/internal/repository"
	"diet-coach/internal/storage"
)

var (
	ErrInvalidMeal      = errors.New("invalid meal entry")
	ErrInvalidMealPhoto = errors.New("invalid meal photo")
	ErrMealUploadFailed = errors.New("meal photo upload failed")
	ErrInvalidMealDate  = errors.New("invalid date, expected YYYY-MM-DD")
)

const defaultMaxPhotoBytes = 10 << 20

// MealService registra comidas con foto opcional. La foto se sube antes de
// crear el registro, igual que las imágenes del chat.
type MealService struct {
	logger        *zap.Logger
	meals         repository.MealRepository
	blobs         storage.BlobStore
	maxPhotoBytes int64
	now           func() time.Time
}

func NewMealService(logger *zap.Logger, meals repository.MealRepository, blobs storage.BlobStore, maxPhotoBytes int64) *MealService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxPhotoBytes <= 0 {
		maxPhotoBytes = defaultMaxPhotoBytes
	}
	return &MealService{
		logger:        logger,
		meals:         meals,
		blobs:         blobs,
		maxPhotoBytes: maxPhotoBytes,
		now:           time.Now,
	}
}

type MealInput struct {
	MealType    string
	Description string
	Notes       string
	Photo       []byte
	PhotoName   string
}

func (s *MealService) Log(ctx context.Context, session *domain.Session, input MealInput, loc *time.Location) (domain.MealEntry, error) {
	now := s.now()
	if !session.Valid(now) {
		return domain.MealEntry{}, ErrAuthRequired
	}
	mealType := strings.ToLower(strings.TrimSpace(input.MealType))
	description := strings.TrimSpace(input.Description)
	if description == "" || !domain.IsValidMealType(mealType) {
		return domain.MealEntry{}, ErrInvalidMeal
	}

	entry := domain.MealEntry{
		ClientID:    session.UserID,
		Date:        localDate(now, loc),
		MealType:    mealType,
		Description: description,
		Notes:       strings.TrimSpace(input.Notes),
	}

	if len(input.Photo) > 0 {
		contentType, err := storage.SniffImage(input.Photo, s.maxPhotoBytes)
		if err != nil {
			return domain.MealEntry{}, fmt.Errorf("%w: %w", ErrInvalidMealPhoto, err)
		}
		key := storage.BuildKey("meals", session.UserID, input.PhotoName, now)
		url, err := s.blobs.Put(ctx, key, input.Photo, contentType)
		if err != nil {
			s.logger.Warn("meal photo upload failed", zap.Error(err), zap.String("key", key))
			return domain.MealEntry{}, fmt.Errorf("%w: %w", ErrMealUploadFailed, err)
		}
		entry.PhotoURL = url
	}

	created, err := s.meals.Create(ctx, entry)
	if err != nil {
		if entry.PhotoURL != "" {
			s.logger.Warn("meal photo orphaned", zap.String("url", entry.PhotoURL), zap.String("client_id", session.UserID))
		}
		return domain.MealEntry{}, err
	}
	return created, nil
}

// List devuelve las comidas del día indicado; date vacío significa hoy.
func (s *MealService) List(ctx context.Context, session *domain.Session, date string, loc *time.Location) ([]domain.MealEntry, error) {
	now := s.now()
	if !session.Valid(now) {
		return nil, ErrAuthRequired
	}
	date = strings.TrimSpace(date)
	if date == "" {
		date = localDate(now, loc)
	} else if _, err := time.Parse(time.DateOnly, date); err != nil {
		return nil, ErrInvalidMealDate
	}
	return s.meals.ListByClientAndDate(ctx, session.UserID, date)
}
