package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/mfgops/operations-dashboard/internal/core/domain"
	"github.com/mfgops/operations-dashboard/internal/core/ports"
)

type stubAuthService struct {
	signupFn    func(ctx context.Context, in ports.SignupInput) (*domain.User, error)
	loginFn     func(ctx context.Context, in ports.LoginInput) (*ports.LoginResult, error)
	getUserFn   func(ctx context.Context, id string) (*domain.User, error)
	listUsersFn func(ctx context.Context, f ports.ListUsersFilter) (*ports.UserPage, error)
}

func (s *stubAuthService) Signup(ctx context.Context, in ports.SignupInput) (*domain.User, error) {
	return s.signupFn(ctx, in)
}

func (s *stubAuthService) Login(ctx context.Context, in ports.LoginInput) (*ports.LoginResult, error) {
	return s.loginFn(ctx, in)
}

func (s *stubAuthService) GetUser(ctx context.Context, id string) (*domain.User, error) {
	return s.getUserFn(ctx, id)
}

func (s *stubAuthService) ListUsers(ctx context.Context, f ports.ListUsersFilter) (*ports.UserPage, error) {
	return s.listUsersFn(ctx, f)
}

func postJSON(path, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set(echo.HeaderXRealIP, "10.1.2.3")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Response().Header().Set(echo.HeaderXRequestID, "req-42")
	return c, rec
}

func TestAuthHandler_Signup_Success(t *testing.T) {
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	stub := &stubAuthService{
		signupFn: func(ctx context.Context, in ports.SignupInput) (*domain.User, error) {
			if in.Email != "a@b.com" || in.FirstName != "Ann" || in.Role != "Dispatch" {
				t.Fatalf("unexpected input: %+v", in)
			}
			if in.Meta.RemoteIP != "10.1.2.3" || in.Meta.RequestID != "req-42" {
				t.Fatalf("unexpected request meta: %+v", in.Meta)
			}
			return &domain.User{
				ID: "u-1", Email: in.Email, Username: "a", FirstName: in.FirstName,
				LastName: in.LastName, Role: domain.RoleDispatch, CreatedAt: created,
				PasswordHash: "must-not-leak",
			}, nil
		},
	}
	handler := NewAuthHandler(stub)

	c, rec := postJSON("/signup", `{"email":"a@b.com","password":"secret1","firstName":"Ann","lastName":"Bell","role":"Dispatch"}`)
	if err := handler.Signup(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "must-not-leak") {
		t.Fatalf("response leaks password hash: %s", rec.Body.String())
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp["message"] != "User created successfully" {
		t.Fatalf("unexpected message: %v", resp["message"])
	}
	user, ok := resp["user"].(map[string]any)
	if !ok {
		t.Fatalf("expected user in response")
	}
	if user["id"] != "u-1" || user["firstName"] != "Ann" || user["role"] != "Dispatch" || user["createdAt"] != "2026-01-02T03:04:05Z" {
		t.Fatalf("unexpected user payload: %+v", user)
	}
}

func TestAuthHandler_Signup_ReturnsServiceError(t *testing.T) {
	stub := &stubAuthService{
		signupFn: func(context.Context, ports.SignupInput) (*domain.User, error) {
			return nil, domain.ErrUserExists
		},
	}
	handler := NewAuthHandler(stub)

	c, _ := postJSON("/signup", `{"email":"a@b.com"}`)
	if err := handler.Signup(c); err != domain.ErrUserExists {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
}

func TestAuthHandler_Signup_MalformedBody(t *testing.T) {
	handler := NewAuthHandler(&stubAuthService{})

	c, _ := postJSON("/signup", `{"email":`)
	err := handler.Signup(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 HTTPError, got %v", err)
	}
}

func TestAuthHandler_Login_Success(t *testing.T) {
	stub := &stubAuthService{
		loginFn: func(ctx context.Context, in ports.LoginInput) (*ports.LoginResult, error) {
			if in.Email != "a@b.com" || in.Password != "secret1" {
				t.Fatalf("unexpected input: %+v", in)
			}
			return &ports.LoginResult{
				Token: "tok",
				User:  &domain.User{ID: "u-1", Email: in.Email, Role: domain.RoleWorker},
			}, nil
		},
	}
	handler := NewAuthHandler(stub)

	c, rec := postJSON("/login", `{"email":"a@b.com","password":"secret1"}`)
	if err := handler.Login(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp["message"] != "Login successful" || resp["token"] != "tok" {
		t.Fatalf("unexpected payload: %v", resp)
	}
}

func TestAuthHandler_Login_InvalidCredentials(t *testing.T) {
	stub := &stubAuthService{
		loginFn: func(context.Context, ports.LoginInput) (*ports.LoginResult, error) {
			return nil, domain.ErrInvalidCredentials
		},
	}
	handler := NewAuthHandler(stub)

	c, rec := postJSON("/login", `{"email":"a@b.com","password":"bad"}`)
	if err := handler.Login(c); err != domain.ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if rec.Body.Len() != 0 {
		t.Fatalf("handler must leave rendering to the error handler")
	}
}
