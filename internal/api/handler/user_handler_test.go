package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/mfgops/operations-dashboard/internal/core/domain"
	"github.com/mfgops/operations-dashboard/internal/core/ports"
)

func getWithIdentity(target string, id *domain.Identity) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if id != nil {
		req = req.WithContext(domain.ContextWithIdentity(req.Context(), id))
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	return out
}

func TestUserHandler_Me(t *testing.T) {
	stub := &stubAuthService{
		getUserFn: func(_ context.Context, id string) (*domain.User, error) {
			if id != "u-7" {
				t.Fatalf("unexpected id %q", id)
			}
			return &domain.User{ID: "u-7", Email: "s@plant.io", Role: domain.RoleSupervisor}, nil
		},
	}
	h := NewUserHandler(stub)

	c, rec := getWithIdentity("/me", &domain.Identity{UserID: "u-7", Email: "s@plant.io", Role: domain.RoleSupervisor, TokenID: "jti-1"})
	if err := h.Me(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	resp := decode(t, rec)
	if resp["user"].(map[string]any)["email"] != "s@plant.io" {
		t.Fatalf("unexpected user: %v", resp)
	}
	if resp["session"].(map[string]any)["tokenId"] != "jti-1" {
		t.Fatalf("unexpected session: %v", resp)
	}
}

func TestUserHandler_Me_WithoutIdentity(t *testing.T) {
	h := NewUserHandler(&stubAuthService{})

	c, _ := getWithIdentity("/me", nil)
	if err := h.Me(c); err != domain.ErrAuthenticationRequired {
		t.Fatalf("expected ErrAuthenticationRequired, got %v", err)
	}
}

func TestUserHandler_Session(t *testing.T) {
	h := NewUserHandler(&stubAuthService{})

	c, rec := getWithIdentity("/session", nil)
	if err := h.Session(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if resp := decode(t, rec); resp["authenticated"] != false {
		t.Fatalf("expected anonymous session, got %v", resp)
	}

	c, rec = getWithIdentity("/session", &domain.Identity{UserID: "u-1", Role: domain.RoleSales})
	if err := h.Session(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	resp := decode(t, rec)
	if resp["authenticated"] != true || resp["session"].(map[string]any)["role"] != "Sales" {
		t.Fatalf("unexpected session: %v", resp)
	}
}

func TestUserHandler_List_PassesFilter(t *testing.T) {
	stub := &stubAuthService{
		listUsersFn: func(_ context.Context, f ports.ListUsersFilter) (*ports.UserPage, error) {
			if f.Role != domain.RoleWorker || f.Search != "ann" || f.Page != 2 || f.Limit != 5 {
				t.Fatalf("unexpected filter: %+v", f)
			}
			return &ports.UserPage{
				Users: []*domain.User{{ID: "u-1", Role: domain.RoleWorker}},
				Total: 6, Page: 2, Limit: 5,
			}, nil
		},
	}
	h := NewUserHandler(stub)

	c, rec := getWithIdentity("/users?role=Worker&search=ann&page=2&limit=5", &domain.Identity{Role: domain.RoleAdmin})
	if err := h.List(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	resp := decode(t, rec)
	if resp["total"] != float64(6) || len(resp["users"].([]any)) != 1 {
		t.Fatalf("unexpected list: %v", resp)
	}
}

func TestUserHandler_List_BadQuery(t *testing.T) {
	h := NewUserHandler(&stubAuthService{})

	c, _ := getWithIdentity("/users?limit=many", &domain.Identity{Role: domain.RoleAdmin})
	var he *echo.HTTPError
	if err := h.List(c); !errors.As(err, &he) || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}

func TestUserHandler_Get_NotFound(t *testing.T) {
	stub := &stubAuthService{
		getUserFn: func(context.Context, string) (*domain.User, error) {
			return nil, domain.ErrUserNotFound
		},
	}
	h := NewUserHandler(stub)

	c, _ := getWithIdentity("/users/x", &domain.Identity{Role: domain.RoleAdmin})
	c.SetParamNames("id")
	c.SetParamValues("x")
	if err := h.Get(c); err != domain.ErrUserNotFound {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestUserHandler_Roles(t *testing.T) {
	h := NewUserHandler(&stubAuthService{})

	c, rec := getWithIdentity("/roles", &domain.Identity{Role: domain.RoleWorker})
	if err := h.Roles(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	resp := decode(t, rec)
	if len(resp["roles"].([]any)) != 5 {
		t.Fatalf("expected five roles, got %v", resp["roles"])
	}
	guards := resp["guards"].(map[string]any)
	if len(guards["StaffOnly"].([]any)) != 3 {
		t.Fatalf("unexpected guards: %v", guards)
	}
}
