package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"diet-coach/internal/domain"
	"diet-coach/internal/service"
)

type mockUserRepo struct {
	usersByID    map[string]domain.User
	usersByEmail map[string]string
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
	m.usersByEmail[user.Email] = user.ID
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
	if _, ok := m.usersByID[user.ID]; !ok {
		return pgx.ErrNoRows
	}
	m.usersByID[user.ID] = user
	return nil
}

type userTestEnv struct {
	router *gin.Engine
	repo   *mockUserRepo
	jwt    *service.JWTService
}

func setupUserRouter() userTestEnv {
	gin.SetMode(gin.TestMode)
	repo := newMockUserRepo()
	jwtSvc := service.NewJWTServiceWithStore("secret", 15*time.Minute, time.Hour, service.NewMemorySessionStore())
	userSvc := service.NewUserService(zap.NewNop(), repo, jwtSvc, nil)
	h := NewUserHandler(zap.NewNop(), userSvc)

	r := gin.New()
	r.POST("/auth/signup", h.Signup)
	r.POST("/auth/login", h.Login)
	r.POST("/auth/refresh", h.Refresh)
	private := r.Group("/", SessionAuthMiddleware(jwtSvc))
	private.POST("/auth/logout", h.Logout)
	private.GET("/me", h.Me)
	private.PATCH("/me/profile", h.UpdateProfile)
	return userTestEnv{router: r, repo: repo, jwt: jwtSvc}
}

func doJSON(r http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func signupAndLogin(t *testing.T, r http.Handler, email string) authResponse {
	t.Helper()
	rec := doJSON(r, http.MethodPost, "/auth/signup", "", map[string]string{
		"email": email, "password": "secret1", "display_name": "Ana",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("signup: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	rec = doJSON(r, http.MethodPost, "/auth/login", "", map[string]string{"email": email, "password": "secret1"})
	if rec.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp authResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode login: %v", err)
	}
	return resp
}

func TestUserHandler_SignupLoginMeLogout(t *testing.T) {
	env := setupUserRouter()
	auth := signupAndLogin(t, env.router, "ana@example.com")
	if auth.AccessToken == "" || auth.User.Role != domain.SenderRoleClient {
		t.Fatalf("unexpected login response: %+v", auth)
	}

	rec := doJSON(env.router, http.MethodGet, "/me", auth.AccessToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("me: expected 200, got %d", rec.Code)
	}

	rec = doJSON(env.router, http.MethodPost, "/auth/logout", auth.AccessToken, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("logout: expected 204, got %d", rec.Code)
	}

	rec = doJSON(env.router, http.MethodGet, "/me", auth.AccessToken, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("me after logout: expected 401, got %d", rec.Code)
	}
	rec = doJSON(env.router, http.MethodPost, "/auth/refresh", "", map[string]string{"refresh_token": auth.RefreshToken})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("refresh after logout: expected 401, got %d", rec.Code)
	}
}

func TestUserHandler_SignupErrors(t *testing.T) {
	env := setupUserRouter()

	rec := doJSON(env.router, http.MethodPost, "/auth/signup", "", map[string]string{"email": "bad", "password": "secret1"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid email, got %d", rec.Code)
	}
	rec = doJSON(env.router, http.MethodPost, "/auth/signup", "", map[string]string{"email": "a@example.com", "password": "123"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for weak password, got %d", rec.Code)
	}
	signupAndLogin(t, env.router, "a@example.com")
	rec = doJSON(env.router, http.MethodPost, "/auth/signup", "", map[string]string{"email": "a@example.com", "password": "secret1"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate email, got %d", rec.Code)
	}
}

func TestUserHandler_LoginInvalidCredentials(t *testing.T) {
	env := setupUserRouter()
	rec := doJSON(env.router, http.MethodPost, "/auth/login", "", map[string]string{"email": "nobody@example.com", "password": "secret1"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestUserHandler_LoginRejectsMalformedEmail(t *testing.T) {
	env := setupUserRouter()
	rec := doJSON(env.router, http.MethodPost, "/auth/login", "", map[string]string{"email": "not-an-email", "password": "secret1"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed email, got %d", rec.Code)
	}
}

func TestUserHandler_RefreshRotates(t *testing.T) {
	env := setupUserRouter()
	auth := signupAndLogin(t, env.router, "ana@example.com")

	rec := doJSON(env.router, http.MethodPost, "/auth/refresh", "", map[string]string{"refresh_token": auth.RefreshToken})
	if rec.Code != http.StatusOK {
		t.Fatalf("refresh: expected 200, got %d", rec.Code)
	}
	rec = doJSON(env.router, http.MethodPost, "/auth/refresh", "", map[string]string{"refresh_token": auth.RefreshToken})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("reused refresh: expected 401, got %d", rec.Code)
	}
}

func TestUserHandler_UpdateProfile(t *testing.T) {
	env := setupUserRouter()
	auth := signupAndLogin(t, env.router, "ana@example.com")

	rec := doJSON(env.router, http.MethodPatch, "/me/profile", auth.AccessToken, map[string]any{
		"start_weight":   80.0,
		"current_weight": 77.5,
		"diet_end_date":  "2024-12-31",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update profile: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	user := env.repo.usersByID[auth.User.ID]
	if user.CurrentWeight == nil || *user.CurrentWeight != 77.5 || user.DisplayName != "Ana" {
		t.Fatalf("unexpected stored user: %+v", user)
	}

	rec = doJSON(env.router, http.MethodPatch, "/me/profile", auth.AccessToken, map[string]any{"diet_end_date": "soon"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid date, got %d", rec.Code)
	}
}
