package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"diet-coach/internal/domain"
	"diet-coach/internal/repository"
)

// UserService coordina signup, login y perfil. Las sesiones que emite son la
// identidad explícita que reciben el chat, el progreso y las comidas.
type UserService struct {
	logger  *zap.Logger
	users   repository.UserRepository
	tokens  *JWTService
	limiter LoginRateLimiter
}

func NewUserService(logger *zap.Logger, users repository.UserRepository, tokens *JWTService, limiter LoginRateLimiter) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if limiter == nil {
		limiter = NewLoginRateLimiter(time.Minute, 5)
	}
	return &UserService{
		logger:  logger,
		users:   users,
		tokens:  tokens,
		limiter: limiter,
	}
}

type SignupInput struct {
	Email       string
	Password    string
	DisplayName string
	Role        string
}

type ProfileInput struct {
	DisplayName   *string
	StartWeight   *float64
	CurrentWeight *float64
	TargetWeight  *float64
	// DietEndDate en formato YYYY-MM-DD; "" lo borra.
	DietEndDate *string
}

// AuthResult es lo que devuelve un login exitoso.
type AuthResult struct {
	User    domain.User
	Session *domain.Session
	Tokens  TokenPair
}

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrRateLimited        = errors.New("rate limited")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidEmail       = errors.New("invalid email")
	ErrEmailTaken         = errors.New("email already registered")
	ErrWeakPassword       = errors.New("password must have at least 6 characters")
	ErrInvalidRole        = errors.New("invalid role")
	ErrInvalidProfile     = errors.New("invalid profile data")
	ErrAuthRequired       = errors.New("authentication required")
)

const minPasswordLength = 6

func (s *UserService) Signup(ctx context.Context, input SignupInput) (domain.User, error) {
	if s.users == nil {
		return domain.User{}, errors.New("user service not configured")
	}

	email := normalizeEmail(input.Email)
	if !isValidEmail(email) {
		return domain.User{}, ErrInvalidEmail
	}
	password := strings.TrimSpace(input.Password)
	if len(password) < minPasswordLength {
		return domain.User{}, ErrWeakPassword
	}
	role := strings.ToLower(strings.TrimSpace(input.Role))
	if role == "" {
		role = domain.SenderRoleClient
	}
	if role != domain.SenderRoleClient && role != domain.SenderRoleCounselor {
		return domain.User{}, ErrInvalidRole
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return domain.User{}, ErrEmailTaken
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return domain.User{}, err
	}

	user, err := s.users.Create(ctx, domain.User{
		Email:        email,
		DisplayName:  strings.TrimSpace(input.DisplayName),
		Role:         role,
		PasswordHash: string(hash),
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.User{}, ErrEmailTaken
		}
		return domain.User{}, err
	}
	s.logger.Info("user signed up", zap.String("user_id", user.ID), zap.String("role", user.Role))
	return user, nil
}

// Login valida credenciales y abre una sesión nueva.
func (s *UserService) Login(ctx context.Context, emailAddr, password string) (AuthResult, error) {
	if s.users == nil || s.tokens == nil {
		return AuthResult{}, errors.New("user service not configured")
	}

	emailAddr = normalizeEmail(emailAddr)
	password = strings.TrimSpace(password)
	if emailAddr == "" || password == "" {
		return AuthResult{}, ErrInvalidCredentials
	}
	if !s.limiter.Allow(emailAddr) {
		return AuthResult{}, ErrRateLimited
	}

	user, err := s.users.GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return AuthResult{}, ErrInvalidCredentials
		}
		return AuthResult{}, err
	}
	if user.PasswordHash == "" {
		return AuthResult{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return AuthResult{}, ErrInvalidCredentials
	}

	pair, err := s.tokens.GeneratePair(user)
	if err != nil {
		return AuthResult{}, fmt.Errorf("issue tokens: %w", err)
	}
	session := domain.NewSession(pair.SessionID, user, time.Now().UTC().Add(time.Duration(pair.ExpiresIn)*time.Second))
	return AuthResult{User: user, Session: session, Tokens: pair}, nil
}

func (s *UserService) Refresh(_ context.Context, refreshToken string) (TokenPair, error) {
	if s.tokens == nil {
		return TokenPair{}, errors.New("user service not configured")
	}
	return s.tokens.RefreshPair(refreshToken)
}

// Logout revoca la sesión en el store y marca el objeto como inválido.
func (s *UserService) Logout(_ context.Context, session *domain.Session) error {
	if session == nil || session.ID == "" {
		return ErrAuthRequired
	}
	session.Invalidate()
	if s.tokens == nil {
		return nil
	}
	if err := s.tokens.RevokeSession(session.ID); err != nil {
		s.logger.Warn("revoke session failed", zap.Error(err), zap.String("user_id", session.UserID))
		return err
	}
	return nil
}

func (s *UserService) GetByID(ctx context.Context, id string) (domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, ErrUserNotFound
		}
		return domain.User{}, err
	}
	return user, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, session *domain.Session, input ProfileInput) (domain.User, error) {
	if !session.Valid(time.Now()) {
		return domain.User{}, ErrAuthRequired
	}
	user, err := s.GetByID(ctx, session.UserID)
	if err != nil {
		return domain.User{}, err
	}

	if input.DisplayName != nil {
		user.DisplayName = strings.TrimSpace(*input.DisplayName)
	}
	for _, w := range []*float64{input.StartWeight, input.CurrentWeight, input.TargetWeight} {
		if w != nil && *w <= 0 {
			return domain.User{}, ErrInvalidProfile
		}
	}
	if input.StartWeight != nil {
		user.StartWeight = input.StartWeight
	}
	if input.CurrentWeight != nil {
		user.CurrentWeight = input.CurrentWeight
	}
	if input.TargetWeight != nil {
		user.TargetWeight = input.TargetWeight
	}
	if input.DietEndDate != nil {
		raw := strings.TrimSpace(*input.DietEndDate)
		if raw == "" {
			user.DietEndDate = nil
		} else {
			end, err := time.Parse(time.DateOnly, raw)
			if err != nil {
				return domain.User{}, ErrInvalidProfile
			}
			user.DietEndDate = &end
		}
	}

	if err := s.users.UpdateProfile(ctx, user); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, ErrUserNotFound
		}
		return domain.User{}, err
	}
	return user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// validate es el mismo motor que usa gin en los tags binding; acá cubre a los
// callers que no pasan por HTTP.
var validate = validator.New()

func isValidEmail(email string) bool {
	return validate.Var(email, "required,email") == nil
}
