package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"diet-coach/internal/domain"
)

type mockUserRepo struct {
	usersByID    map[string]domain.User
	usersByEmail map[string]string
	updateErr    error
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{
		usersByID:    make(map[string]domain.User),
		usersByEmail: make(map[string]string),
	}
}

func (m *mockUserRepo) Create(_ context.Context, user domain.User) (domain.User, error) {
	user.ID = fmt.Sprintf("u%d", len(m.usersByID)+1)
	user.CreatedAt = time.Now().UTC()
	m.usersByID[user.ID] = user
	if user.Email != "" {
		m.usersByEmail[user.Email] = user.ID
	}
	return user, nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (domain.User, error) {
	user, ok := m.usersByID[id]
	if !ok {
		return domain.User{}, pgx.ErrNoRows
	}
	return user, nil
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (domain.User, error) {
	id, ok := m.usersByEmail[email]
	if !ok {
		return domain.User{}, pgx.ErrNoRows
	}
	return m.GetByID(context.Background(), id)
}

func (m *mockUserRepo) UpdateProfile(_ context.Context, user domain.User) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	if _, ok := m.usersByID[user.ID]; !ok {
		return pgx.ErrNoRows
	}
	m.usersByID[user.ID] = user
	return nil
}

type denyAllLimiter struct{}

func (denyAllLimiter) Allow(string) bool { return false }

func newTestUserService(repo *mockUserRepo) *UserService {
	tokens := NewJWTServiceWithStore("secret", 15*time.Minute, time.Hour, NewMemorySessionStore())
	return NewUserService(zap.NewNop(), repo, tokens, nil)
}

func TestUserServiceSignup(t *testing.T) {
	repo := newMockUserRepo()
	svc := newTestUserService(repo)

	user, err := svc.Signup(context.Background(), SignupInput{
		Email:       " Ana@Example.com ",
		Password:    "secret1",
		DisplayName: " Ana ",
	})
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	if user.Email != "ana@example.com" || user.DisplayName != "Ana" || user.Role != domain.SenderRoleClient {
		t.Fatalf("unexpected user: %+v", user)
	}
	if user.PasswordHash == "" || user.PasswordHash == "secret1" {
		t.Fatalf("expected hashed password")
	}
}

func TestUserServiceSignup_Validation(t *testing.T) {
	repo := newMockUserRepo()
	svc := newTestUserService(repo)
	ctx := context.Background()

	if _, err := svc.Signup(ctx, SignupInput{Email: "not-an-email", Password: "secret1"}); !errors.Is(err, ErrInvalidEmail) {
		t.Fatalf("expected ErrInvalidEmail, got %v", err)
	}
	if _, err := svc.Signup(ctx, SignupInput{Email: "a@example.com", Password: "12345"}); !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("expected ErrWeakPassword, got %v", err)
	}
	if _, err := svc.Signup(ctx, SignupInput{Email: "a@example.com", Password: "secret1", Role: "admin"}); !errors.Is(err, ErrInvalidRole) {
		t.Fatalf("expected ErrInvalidRole, got %v", err)
	}
	if _, err := svc.Signup(ctx, SignupInput{Email: "a@example.com", Password: "secret1"}); err != nil {
		t.Fatalf("signup: %v", err)
	}
	if _, err := svc.Signup(ctx, SignupInput{Email: "A@example.com", Password: "secret1"}); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestUserServiceSignup_RejectsMalformedEmails(t *testing.T) {
	svc := newTestUserService(newMockUserRepo())
	for _, email := range []string{"", "   ", "ana@", "@example.com", "ana example.com", "Ana <ana@example.com>"} {
		if _, err := svc.Signup(context.Background(), SignupInput{Email: email, Password: "secret1"}); !errors.Is(err, ErrInvalidEmail) {
			t.Fatalf("email %q: expected ErrInvalidEmail, got %v", email, err)
		}
	}
	if _, err := svc.Signup(context.Background(), SignupInput{Email: "  Coach@Example.com ", Password: "secret1", Role: "counselor"}); err != nil {
		t.Fatalf("expected trimmed email accepted, got %v", err)
	}
}

func TestUserServiceLoginAndLogout(t *testing.T) {
	repo := newMockUserRepo()
	svc := newTestUserService(repo)
	ctx := context.Background()

	if _, err := svc.Signup(ctx, SignupInput{Email: "coach@example.com", Password: "secret1", Role: domain.SenderRoleCounselor}); err != nil {
		t.Fatalf("signup: %v", err)
	}

	result, err := svc.Login(ctx, "coach@example.com", "secret1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if !result.Session.Valid(time.Now()) || !result.Session.IsCounselor() {
		t.Fatalf("expected valid counselor session, got %+v", result.Session)
	}
	if result.Session.SenderName() != "Counselor" {
		t.Fatalf("expected default counselor name, got %q", result.Session.SenderName())
	}
	if _, err := svc.tokens.SessionFromAccessToken(result.Tokens.AccessToken); err != nil {
		t.Fatalf("expected live session: %v", err)
	}

	if err := svc.Logout(ctx, result.Session); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if result.Session.Valid(time.Now()) {
		t.Fatalf("expected session invalidated")
	}
	if _, err := svc.tokens.SessionFromAccessToken(result.Tokens.AccessToken); !errors.Is(err, ErrSessionRevoked) {
		t.Fatalf("expected ErrSessionRevoked after logout, got %v", err)
	}
}

func TestUserServiceLogin_InvalidCredentials(t *testing.T) {
	repo := newMockUserRepo()
	svc := newTestUserService(repo)
	ctx := context.Background()
	if _, err := svc.Signup(ctx, SignupInput{Email: "a@example.com", Password: "secret1"}); err != nil {
		t.Fatalf("signup: %v", err)
	}

	if _, err := svc.Login(ctx, "a@example.com", "wrong-pass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Login(ctx, "missing@example.com", "secret1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown email, got %v", err)
	}
}

func TestUserServiceLogin_RateLimited(t *testing.T) {
	repo := newMockUserRepo()
	tokens := NewJWTServiceWithStore("secret", time.Minute, time.Hour, NewMemorySessionStore())
	svc := NewUserService(zap.NewNop(), repo, tokens, denyAllLimiter{})

	if _, err := svc.Login(context.Background(), "a@example.com", "secret1"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
}

func TestUserServiceUpdateProfile(t *testing.T) {
	repo := newMockUserRepo()
	svc := newTestUserService(repo)
	ctx := context.Background()
	user, err := svc.Signup(ctx, SignupInput{Email: "a@example.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	session := domain.NewSession("sid", user, time.Time{})

	name := "Ana"
	start, current := 82.5, 79.0
	end := "2024-06-30"
	updated, err := svc.UpdateProfile(ctx, session, ProfileInput{
		DisplayName:   &name,
		StartWeight:   &start,
		CurrentWeight: &current,
		DietEndDate:   &end,
	})
	if err != nil {
		t.Fatalf("update profile: %v", err)
	}
	if updated.DisplayName != "Ana" || *updated.StartWeight != 82.5 || *updated.CurrentWeight != 79.0 {
		t.Fatalf("unexpected profile: %+v", updated)
	}
	if updated.DietEndDate == nil || updated.DietEndDate.Format(time.DateOnly) != "2024-06-30" {
		t.Fatalf("unexpected diet end date: %v", updated.DietEndDate)
	}

	bad := "30/06/2024"
	if _, err := svc.UpdateProfile(ctx, session, ProfileInput{DietEndDate: &bad}); !errors.Is(err, ErrInvalidProfile) {
		t.Fatalf("expected ErrInvalidProfile, got %v", err)
	}
	negative := -1.0
	if _, err := svc.UpdateProfile(ctx, session, ProfileInput{TargetWeight: &negative}); !errors.Is(err, ErrInvalidProfile) {
		t.Fatalf("expected ErrInvalidProfile, got %v", err)
	}

	session.Invalidate()
	if _, err := svc.UpdateProfile(ctx, session, ProfileInput{DisplayName: &name}); !errors.Is(err, ErrAuthRequired) {
		t.Fatalf("expected ErrAuthRequired, got %v", err)
	}
}

func TestUserServiceGetByID_NotFound(t *testing.T) {
	svc := newTestUserService(newMockUserRepo())
	if _, err := svc.GetByID(context.Background(), "missing"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}
