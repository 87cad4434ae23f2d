package center

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/nidipo/portal/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	// Every signed-in user needs the center list to render names; mutation
	// is admin-only.
	api.GET("/centers", h.List)
	api.GET("/centers/:id", h.Get)

	adminGroup := api.Group("", auth.RequireAdmin())
	adminGroup.POST("/centers", h.Create)
	adminGroup.PUT("/centers/:id", h.Update)
	adminGroup.DELETE("/centers/:id", h.Delete)
}

func (h *Handler) Create(c echo.Context) error {
	var ctr Center
	if err := c.Bind(&ctr); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.Create(c.Request().Context(), &ctr); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, ctr)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid center id")
	}
	ctr, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "center not found")
		}
		return err
	}
	return c.JSON(http.StatusOK, ctr)
}

func (h *Handler) Update(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid center id")
	}
	var ctr Center
	if err := c.Bind(&ctr); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ctr.ID = id
	if err := h.svc.Update(c.Request().Context(), &ctr); err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "center not found")
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, ctr)
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid center id")
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "center not found")
		}
		return echo.NewHTTPError(http.StatusConflict, "center is still referenced")
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) List(c echo.Context) error {
	centers, err := h.svc.List(c.Request().Context())
	if err != nil {
		return err
	}
	if centers == nil {
		centers = []*Center{}
	}
	return c.JSON(http.StatusOK, centers)
}
