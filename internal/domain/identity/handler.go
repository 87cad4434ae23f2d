package identity

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/nidipo/portal/internal/platform/auth"
	"github.com/nidipo/portal/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	// Public auth endpoints; the JWT middleware skips them by path.
	api.POST("/auth/bootstrap", h.Bootstrap)
	api.GET("/auth/registered", h.Registered)
	api.POST("/auth/login", h.Login)
	api.POST("/auth/signup", h.Signup)
	api.POST("/auth/reset-request", h.RequestReset)
	api.POST("/auth/reset", h.ResetPassword)
	api.GET("/invitations/:token", h.GetInvitation)

	api.GET("/auth/session", h.Session)
	api.POST("/auth/logout", h.Logout)

	adminGroup := api.Group("", auth.RequireAdmin())
	adminGroup.GET("/profiles", h.ListProfiles)
	adminGroup.PUT("/profiles/:id", h.UpdateProfile)
	adminGroup.DELETE("/profiles/:id", h.DeleteUser)
	adminGroup.POST("/invitations", h.Invite)
	adminGroup.GET("/invitations", h.ListInvitations)
	adminGroup.DELETE("/invitations/:id", h.DeleteInvitation)
}

type credentialsRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Token   string   `json:"token"`
	Profile *Profile `json:"profile"`
}

// -- Auth --

func (h *Handler) Bootstrap(c echo.Context) error {
	var req credentialsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p, token, err := h.svc.Bootstrap(c.Request().Context(), req.Name, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrAdminTaken) {
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, sessionResponse{Token: token, Profile: p})
}

func (h *Handler) Registered(c echo.Context) error {
	registered, err := h.svc.AdminRegistered(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]bool{"registered": registered})
}

func (h *Handler) Login(c echo.Context) error {
	var req credentialsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p, token, err := h.svc.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrBadLogin) {
			return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
		}
		return err
	}
	return c.JSON(http.StatusOK, sessionResponse{Token: token, Profile: p})
}

// Session returns the caller's own profile, freshly loaded. A 404 here means
// the account was deleted out from under a still-valid token.
func (h *Handler) Session(c echo.Context) error {
	p, err := h.svc.GetProfile(c.Request().Context(), auth.UserID(c))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "profile not found")
		}
		return err
	}
	return c.JSON(http.StatusOK, p)
}

// Logout exists so clients have a definite end-of-session call. Tokens are
// stateless, so there is nothing to revoke server-side; clients drop the token.
func (h *Handler) Logout(c echo.Context) error {
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) RequestReset(c echo.Context) error {
	var req credentialsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.RequestReset(c.Request().Context(), req.Email); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{
		"message": "if the account exists, a reset link has been issued",
	})
}

func (h *Handler) ResetPassword(c echo.Context) error {
	var req struct {
		Token    string `json:"token"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	token, err := uuid.Parse(req.Token)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid token")
	}
	if err := h.svc.ResetPassword(c.Request().Context(), token, req.Password); err != nil {
		if errors.Is(err, ErrBadToken) {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid or expired token")
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

// -- Invitations --

func (h *Handler) Invite(c echo.Context) error {
	var req struct {
		Email    string `json:"email"`
		Role     string `json:"role"`
		CenterID *int64 `json:"center_id"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	inv, link, err := h.svc.Invite(c.Request().Context(), req.Email, req.Role, req.CenterID)
	if err != nil {
		if errors.Is(err, ErrDuplicate) {
			return echo.NewHTTPError(http.StatusConflict, "an account or invitation with this email already exists")
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{
		"invitation": inv,
		"link":       link,
	})
}

func (h *Handler) GetInvitation(c echo.Context) error {
	token, err := uuid.Parse(c.Param("token"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid token")
	}
	inv, err := h.svc.GetInvitation(c.Request().Context(), token)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "invitation not found")
		}
		return err
	}
	return c.JSON(http.StatusOK, inv)
}

func (h *Handler) ListInvitations(c echo.Context) error {
	invs, err := h.svc.ListInvitations(c.Request().Context())
	if err != nil {
		return err
	}
	if invs == nil {
		invs = []*Invitation{}
	}
	return c.JSON(http.StatusOK, invs)
}

func (h *Handler) DeleteInvitation(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid invitation id")
	}
	if err := h.svc.DeleteInvitation(c.Request().Context(), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "invitation not found")
		}
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) Signup(c echo.Context) error {
	var req struct {
		Token    string `json:"token"`
		Name     string `json:"name"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	token, err := uuid.Parse(req.Token)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid token")
	}
	p, sessionToken, err := h.svc.Signup(c.Request().Context(), token, req.Name, req.Password)
	if err != nil {
		if errors.Is(err, ErrBadToken) {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid or expired invitation")
		}
		if errors.Is(err, ErrDuplicate) {
			return echo.NewHTTPError(http.StatusConflict, "an account with this email already exists")
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, sessionResponse{Token: sessionToken, Profile: p})
}

// -- User administration --

func (h *Handler) ListProfiles(c echo.Context) error {
	params := pagination.FromContext(c)
	profiles, total, err := h.svc.ListProfiles(c.Request().Context(), params.Limit, params.Offset)
	if err != nil {
		return err
	}
	if profiles == nil {
		profiles = []*Profile{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(profiles, total, params.Limit, params.Offset))
}

func (h *Handler) UpdateProfile(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid profile id")
	}
	var req struct {
		Name     string `json:"name"`
		Role     string `json:"role"`
		CenterID *int64 `json:"center_id"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p := &Profile{ID: id, Name: req.Name, Role: req.Role, CenterID: req.CenterID}
	if err := h.svc.UpdateProfile(c.Request().Context(), p); err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "profile not found")
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) DeleteUser(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid profile id")
	}
	if err := h.svc.DeleteUser(c.Request().Context(), auth.UserID(c), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "profile not found")
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}
