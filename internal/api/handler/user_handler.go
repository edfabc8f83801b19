package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mfgops/operations-dashboard/internal/core/domain"
	"github.com/mfgops/operations-dashboard/internal/core/ports"
)

// UserHandler serves the read-only user directory and session views.
type UserHandler struct {
	authService ports.AuthService
}

func NewUserHandler(authService ports.AuthService) *UserHandler {
	return &UserHandler{authService: authService}
}

// Me returns the caller's session and a fresh copy of their user record.
//
// @Summary   Current user
// @Tags      users
// @Produce   json
// @Security  BearerAuth
// @Success   200  {object}  meResponse
// @Failure   401  {object}  map[string]string
// @Failure   403  {object}  map[string]string
// @Failure   404  {object}  map[string]string
// @Router    /me [get]
func (h *UserHandler) Me(c echo.Context) error {
	id, err := ctxIdentity(c)
	if err != nil {
		return err
	}

	user, err := h.authService.GetUser(c.Request().Context(), id.UserID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, meResponse{User: toUserResponse(user), Session: toSessionInfo(id)})
}

// Session reports whether the request carries a valid session.
//
// @Summary  Session status
// @Tags     users
// @Produce  json
// @Success  200  {object}  sessionResponse
// @Router   /session [get]
func (h *UserHandler) Session(c echo.Context) error {
	id, ok := domain.IdentityFromContext(c.Request().Context())
	if !ok {
		return c.JSON(http.StatusOK, sessionResponse{Authenticated: false})
	}
	info := toSessionInfo(id)
	return c.JSON(http.StatusOK, sessionResponse{Authenticated: true, Session: &info})
}

// List returns a page of users.
//
// @Summary   List users
// @Tags      users
// @Produce   json
// @Security  BearerAuth
// @Param     role    query     string  false  "Filter by role"
// @Param     search  query     string  false  "Substring of email, username or name"
// @Param     page    query     int     false  "Page number (default 1)"
// @Param     limit   query     int     false  "Page size (default 20, max 100)"
// @Success   200     {object}  listUsersResponse
// @Failure   400     {object}  map[string]string
// @Failure   401     {object}  map[string]string
// @Failure   403     {object}  map[string]string
// @Router    /users [get]
func (h *UserHandler) List(c echo.Context) error {
	var filter ports.ListUsersFilter
	var role string
	err := echo.QueryParamsBinder(c).
		String("role", &role).
		String("search", &filter.Search).
		Int("page", &filter.Page).
		Int("limit", &filter.Limit).
		BindError()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid query parameters")
	}
	filter.Role = domain.Role(role)

	page, err := h.authService.ListUsers(c.Request().Context(), filter)
	if err != nil {
		return err
	}

	users := make([]userResponse, len(page.Users))
	for i, u := range page.Users {
		users[i] = toUserResponse(u)
	}
	return c.JSON(http.StatusOK, listUsersResponse{
		Users: users,
		Total: page.Total,
		Page:  page.Page,
		Limit: page.Limit,
	})
}

// Get returns a single user.
//
// @Summary   Get user
// @Tags      users
// @Produce   json
// @Security  BearerAuth
// @Param     id   path      string  true  "User ID"
// @Success   200  {object}  userResponse
// @Failure   401  {object}  map[string]string
// @Failure   403  {object}  map[string]string
// @Failure   404  {object}  map[string]string
// @Router    /users/{id} [get]
func (h *UserHandler) Get(c echo.Context) error {
	user, err := h.authService.GetUser(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toUserResponse(user))
}

// Roles returns the role catalog and the canonical guard table.
//
// @Summary   Role catalog
// @Tags      users
// @Produce   json
// @Security  BearerAuth
// @Success   200  {object}  rolesResponse
// @Failure   401  {object}  map[string]string
// @Failure   403  {object}  map[string]string
// @Router    /roles [get]
func (h *UserHandler) Roles(c echo.Context) error {
	return c.JSON(http.StatusOK, rolesResponse{
		Roles: roleNames(domain.Roles),
		Guards: map[string][]string{
			"AdminOnly":         roleNames(domain.AdminOnlyRoles),
			"AdminOrSupervisor": roleNames(domain.AdminOrSupervisorRoles),
			"StaffOnly":         roleNames(domain.StaffRoles),
		},
	})
}
