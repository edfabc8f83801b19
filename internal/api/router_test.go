package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/mfgops/operations-dashboard/internal/api/handler"
	"github.com/mfgops/operations-dashboard/internal/core/domain"
	"github.com/mfgops/operations-dashboard/internal/core/ports"
	"github.com/mfgops/operations-dashboard/internal/core/service"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type memUserRepo struct {
	mu      sync.Mutex
	byEmail map[string]*domain.User
	seq     int
	failErr error
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{byEmail: make(map[string]*domain.User)}
}

func (r *memUserRepo) Create(_ context.Context, u *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byEmail[u.Email]; ok {
		return nil, domain.ErrUserExists
	}
	r.seq++
	clone := *u
	clone.ID = fmt.Sprintf("u-%d", r.seq)
	r.byEmail[clone.Email] = &clone
	out := clone
	return &out, nil
}

func (r *memUserRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failErr != nil {
		return nil, r.failErr
	}
	u, ok := r.byEmail[email]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	out := *u
	return &out, nil
}

func (r *memUserRepo) FindByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.byEmail {
		if u.ID == id {
			out := *u
			return &out, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *memUserRepo) List(_ context.Context, f ports.ListUsersFilter) ([]*domain.User, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.User
	for _, u := range r.byEmail {
		if f.Role == "" || u.Role == f.Role {
			clone := *u
			out = append(out, &clone)
		}
	}
	return out, int64(len(out)), nil
}

type fastHasher struct{}

func (fastHasher) Hash(_ context.Context, pw string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.MinCost)
	return string(b), err
}

func (fastHasher) Compare(_ context.Context, hash, pw string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	return err == nil, err
}

type testServer struct {
	e    *echo.Echo
	repo *memUserRepo
}

func newTestServer(t *testing.T, secret string, exposeDetails bool) *testServer {
	t.Helper()
	repo := newMemUserRepo()
	tokens := service.NewTokenService(secret, time.Hour, zerolog.Nop())
	auth := service.NewAuthService(service.AuthDeps{
		Users:  repo,
		Hasher: fastHasher{},
		Tokens: tokens,
	}, zerolog.Nop())

	reg := prometheus.NewRegistry()
	e := NewRouter(Deps{
		Auth:               auth,
		Tokens:             tokens,
		Health:             map[string]handler.Pinger{},
		Log:                zerolog.Nop(),
		ExposeErrorDetails: exposeDetails,
		Registerer:         reg,
		Gatherer:           reg,
	})
	return &testServer{e: e, repo: repo}
}

func (s *testServer) do(t *testing.T, method, path, body, token string) (int, map[string]any) {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)

	var out map[string]any
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
			t.Fatalf("invalid json %q: %v", rec.Body.String(), err)
		}
	}
	return rec.Code, out
}

func (s *testServer) signupAndLogin(t *testing.T, email, role string) string {
	t.Helper()
	body := fmt.Sprintf(`{"email":%q,"password":"secret1","firstName":"F","lastName":"L","role":%q}`, email, role)
	if code, resp := s.do(t, http.MethodPost, "/signup", body, ""); code != http.StatusCreated {
		t.Fatalf("signup %s: %d %v", email, code, resp)
	}
	code, resp := s.do(t, http.MethodPost, "/login", fmt.Sprintf(`{"email":%q,"password":"secret1"}`, email), "")
	if code != http.StatusOK {
		t.Fatalf("login %s: %d %v", email, code, resp)
	}
	return resp["token"].(string)
}

func TestRouter_SignupLoginScenario(t *testing.T) {
	s := newTestServer(t, testSecret, true)
	signup := `{"email":"a@b.com","password":"secret1","firstName":"A","lastName":"B"}`

	code, resp := s.do(t, http.MethodPost, "/signup", signup, "")
	if code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %v", code, resp)
	}
	if resp["message"] != "User created successfully" {
		t.Fatalf("unexpected message: %v", resp["message"])
	}
	user := resp["user"].(map[string]any)
	if user["role"] != "Worker" || user["username"] != "a" || user["email"] != "a@b.com" {
		t.Fatalf("unexpected user: %v", user)
	}
	for _, k := range []string{"password", "passwordHash", "PasswordHash"} {
		if _, ok := user[k]; ok {
			t.Fatalf("user projection leaks %s", k)
		}
	}

	code, resp = s.do(t, http.MethodPost, "/signup", signup, "")
	if code != http.StatusBadRequest || resp["error"] != "User with this email already exists" {
		t.Fatalf("expected duplicate rejection, got %d %v", code, resp)
	}

	code, resp = s.do(t, http.MethodPost, "/login", `{"email":"a@b.com","password":"secret1"}`, "")
	if code != http.StatusOK || resp["message"] != "Login successful" {
		t.Fatalf("expected login success, got %d %v", code, resp)
	}
	if tok, _ := resp["token"].(string); tok == "" {
		t.Fatalf("expected token")
	}

	wrongCode, wrongResp := s.do(t, http.MethodPost, "/login", `{"email":"a@b.com","password":"wrong"}`, "")
	unknownCode, unknownResp := s.do(t, http.MethodPost, "/login", `{"email":"nobody@b.com","password":"secret1"}`, "")
	if wrongCode != http.StatusBadRequest || wrongResp["error"] != "Invalid credentials" {
		t.Fatalf("expected invalid credentials, got %d %v", wrongCode, wrongResp)
	}
	if unknownCode != wrongCode || fmt.Sprint(unknownResp) != fmt.Sprint(wrongResp) {
		t.Fatalf("unknown email and wrong password must be indistinguishable: %v vs %v", unknownResp, wrongResp)
	}
}

func TestRouter_SignupValidationMessages(t *testing.T) {
	s := newTestServer(t, testSecret, true)

	cases := []struct {
		body string
		want string
	}{
		{`{"email":"a@b.com","password":"secret1","firstName":"A"}`, "All fields are required"},
		{`{"email":"","password":""}`, "All fields are required"},
		{`{"email":"a@b","password":"secret1","firstName":"A","lastName":"B"}`, "Invalid email format"},
		{`{"email":"a@b.com","password":"12345","firstName":"A","lastName":"B"}`, "Password must be at least 6 characters long"},
		{`{"email":"a@b.com","password":"123456","firstName":"A","lastName":"B","role":"CEO"}`, "Invalid role"},
		{`{"email":"a@b.com","password":"` + strings.Repeat("p", 73) + `","firstName":"A","lastName":"B"}`, "Password must be at most 72 bytes long"},
	}
	for _, tc := range cases {
		code, resp := s.do(t, http.MethodPost, "/signup", tc.body, "")
		if code != http.StatusBadRequest || resp["error"] != tc.want {
			t.Errorf("body %s: expected 400 %q, got %d %v", tc.body, tc.want, code, resp)
		}
	}

	code, resp := s.do(t, http.MethodPost, "/login", `{"email":"a@b.com"}`, "")
	if code != http.StatusBadRequest || resp["error"] != "Email and password are required" {
		t.Fatalf("expected login validation error, got %d %v", code, resp)
	}

	code, _ = s.do(t, http.MethodPost, "/signup", `{"email":`, "")
	if code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed JSON, got %d", code)
	}
}

func TestRouter_RequireAuth(t *testing.T) {
	s := newTestServer(t, testSecret, true)
	token := s.signupAndLogin(t, "w@plant.io", "Worker")

	code, resp := s.do(t, http.MethodGet, "/me", "", "")
	if code != http.StatusUnauthorized || resp["error"] != "Access token required" {
		t.Fatalf("expected 401, got %d %v", code, resp)
	}

	code, resp = s.do(t, http.MethodGet, "/me", "", "garbage")
	if code != http.StatusForbidden || resp["error"] != "Invalid or expired token" {
		t.Fatalf("expected 403, got %d %v", code, resp)
	}

	code, resp = s.do(t, http.MethodGet, "/me", "", token)
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d %v", code, resp)
	}
	if resp["user"].(map[string]any)["email"] != "w@plant.io" {
		t.Fatalf("unexpected /me payload: %v", resp)
	}
}

func TestRouter_ExpiredTokenIsForbidden(t *testing.T) {
	s := newTestServer(t, testSecret, true)
	past := time.Now().Add(-2 * time.Hour)
	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"userId": "u-1", "email": "w@plant.io", "role": "Admin",
		"iss": service.TokenIssuer,
		"iat": past.Unix(), "exp": past.Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	code, resp := s.do(t, http.MethodGet, "/me", "", expired)
	if code != http.StatusForbidden || resp["error"] != "Invalid or expired token" {
		t.Fatalf("expected 403, got %d %v", code, resp)
	}
}

func TestRouter_EmptySecretIsInternal(t *testing.T) {
	s := newTestServer(t, "", true)

	code, resp := s.do(t, http.MethodGet, "/me", "", "a.b.c")
	if code != http.StatusInternalServerError || resp["error"] != "Failed to authenticate token" {
		t.Fatalf("expected 500, got %d %v", code, resp)
	}
}

func TestRouter_RoleGuards(t *testing.T) {
	s := newTestServer(t, testSecret, true)
	admin := s.signupAndLogin(t, "admin@plant.io", "Admin")
	supervisor := s.signupAndLogin(t, "sup@plant.io", "Supervisor")
	worker := s.signupAndLogin(t, "w@plant.io", "Worker")
	sales := s.signupAndLogin(t, "sales@plant.io", "Sales")

	workerID := s.repo.byEmail["w@plant.io"].ID

	cases := []struct {
		path    string
		token   string
		code    int
		message string
	}{
		{"/users", admin, http.StatusOK, ""},
		{"/users", supervisor, http.StatusForbidden, "Access denied. Required roles: Admin"},
		{"/users", "", http.StatusUnauthorized, "Access token required"},
		{"/users/" + workerID, supervisor, http.StatusOK, ""},
		{"/users/" + workerID, worker, http.StatusForbidden, "Access denied. Required roles: Admin, Supervisor"},
		{"/users/missing", admin, http.StatusNotFound, "User not found"},
		{"/roles", worker, http.StatusOK, ""},
		{"/roles", sales, http.StatusForbidden, "Access denied. Required roles: Admin, Supervisor, Worker"},
	}
	for _, tc := range cases {
		code, resp := s.do(t, http.MethodGet, tc.path, "", tc.token)
		if code != tc.code {
			t.Errorf("%s: expected %d, got %d %v", tc.path, tc.code, code, resp)
			continue
		}
		if tc.message != "" && resp["error"] != tc.message {
			t.Errorf("%s: expected %q, got %v", tc.path, tc.message, resp["error"])
		}
	}

	code, resp := s.do(t, http.MethodGet, "/users?role=Worker&limit=500", "", admin)
	if code != http.StatusOK || resp["limit"] != float64(100) || resp["total"] != float64(1) {
		t.Fatalf("unexpected list response: %d %v", code, resp)
	}

	code, _ = s.do(t, http.MethodGet, "/users?page=abc", "", admin)
	if code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad page, got %d", code)
	}
}

func TestRouter_OptionalSession(t *testing.T) {
	s := newTestServer(t, testSecret, true)
	token := s.signupAndLogin(t, "w@plant.io", "Worker")

	for _, tok := range []string{"", "garbage"} {
		code, resp := s.do(t, http.MethodGet, "/session", "", tok)
		if code != http.StatusOK || resp["authenticated"] != false {
			t.Fatalf("token %q: expected anonymous session, got %d %v", tok, code, resp)
		}
	}

	code, resp := s.do(t, http.MethodGet, "/session", "", token)
	if code != http.StatusOK || resp["authenticated"] != true {
		t.Fatalf("expected authenticated session, got %d %v", code, resp)
	}
	if resp["session"].(map[string]any)["role"] != "Worker" {
		t.Fatalf("unexpected session: %v", resp)
	}
}

func TestRouter_InternalErrorDetails(t *testing.T) {
	signup := `{"email":"a@b.com","password":"secret1","firstName":"A","lastName":"B"}`

	s := newTestServer(t, testSecret, true)
	s.repo.failErr = errors.New("store offline")
	code, resp := s.do(t, http.MethodPost, "/signup", signup, "")
	if code != http.StatusInternalServerError || resp["error"] != "Internal server error" {
		t.Fatalf("expected 500, got %d %v", code, resp)
	}
	if details, _ := resp["details"].(string); !strings.Contains(details, "store offline") {
		t.Fatalf("expected details, got %v", resp)
	}

	s = newTestServer(t, testSecret, false)
	s.repo.failErr = errors.New("store offline")
	_, resp = s.do(t, http.MethodPost, "/signup", signup, "")
	if _, ok := resp["details"]; ok {
		t.Fatalf("details must be hidden, got %v", resp)
	}
}

func TestRouter_Health(t *testing.T) {
	s := newTestServer(t, testSecret, true)

	code, resp := s.do(t, http.MethodGet, "/health", "", "")
	if code != http.StatusOK || resp["status"] != "ok" {
		t.Fatalf("unexpected liveness: %d %v", code, resp)
	}

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected metrics endpoint, got %d", rec.Code)
	}
}
