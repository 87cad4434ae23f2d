package patient

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/nidipo/portal/internal/export"
	"github.com/nidipo/portal/internal/intake"
	"github.com/nidipo/portal/internal/platform/auth"
	"github.com/nidipo/portal/pkg/pagination"
)

type Handler struct {
	svc          *Service
	exportPrefix string
}

func NewHandler(svc *Service, exportPrefix string) *Handler {
	return &Handler{svc: svc, exportPrefix: exportPrefix}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/patients", h.List)
	api.GET("/patients/export.csv", h.Export)
	api.GET("/patients/stats", h.Stats)
	api.GET("/patients/:id", h.Get)
	api.POST("/patients", h.Submit)
	api.PUT("/patients/:id", h.Resubmit)
	api.DELETE("/patients/:id", h.Delete, auth.RequireAdmin())

	api.GET("/drafts", h.ListDrafts)
	api.GET("/drafts/:id", h.GetDraft)
	api.POST("/drafts", h.SaveDraft)
	api.DELETE("/drafts/:id", h.DeleteDraft)

	api.GET("/form/sections", h.FormSections)
}

// actor lifts the authenticated identity out of the request context.
func actor(c echo.Context) Actor {
	return Actor{
		UserID:   auth.UserID(c),
		Role:     auth.Role(c),
		CenterID: auth.CenterID(c),
	}
}

func pathID(c echo.Context) (int64, error) {
	return strconv.ParseInt(c.Param("id"), 10, 64)
}

// mapError translates service errors to HTTP status codes. Validation
// failures carry the per-field detail so the client can annotate the form.
func mapError(err error) error {
	var ve *intake.ValidationError
	switch {
	case errors.As(err, &ve):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, map[string]interface{}{
			"message":  ve.Error(),
			"failures": ve.Failures,
		})
	case errors.Is(err, intake.ErrSerialNumberRequired):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "not found")
	case errors.Is(err, ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, "forbidden")
	case errors.Is(err, ErrNoCenter):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		return err
	}
}

type formRequest struct {
	FormData intake.Bag `json:"form_data"`
}

// -- Patients --

func (h *Handler) Submit(c echo.Context) error {
	var req formRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p, err := h.svc.Submit(c.Request().Context(), actor(c), req.FormData)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) Resubmit(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	var req formRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p, err := h.svc.Resubmit(c.Request().Context(), actor(c), id, req.FormData)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	p, err := h.svc.Get(c.Request().Context(), actor(c), id)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	if err := h.svc.Delete(c.Request().Context(), actor(c), id); err != nil {
		return mapError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) List(c echo.Context) error {
	params := pagination.FromContext(c)
	f := ListFilter{Search: c.QueryParam("search")}
	if raw := c.QueryParam("center_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid center_id")
		}
		f.CenterID = &id
	}
	patients, total, err := h.svc.List(c.Request().Context(), actor(c), f, params.Limit, params.Offset)
	if err != nil {
		return mapError(err)
	}
	if patients == nil {
		patients = []*Patient{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(patients, total, params.Limit, params.Offset))
}

// Export streams every visible record as CSV, one column per form field.
func (h *Handler) Export(c echo.Context) error {
	f := ListFilter{Search: c.QueryParam("search")}
	if raw := c.QueryParam("center_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid center_id")
		}
		f.CenterID = &id
	}
	patients, err := h.svc.ListAll(c.Request().Context(), actor(c), f)
	if err != nil {
		return mapError(err)
	}

	rows := make([]export.Row, 0, len(patients))
	for _, p := range patients {
		rows = append(rows, export.Row{
			PatientID:  p.PatientID,
			Age:        p.Age,
			Sex:        p.Sex,
			CenterID:   p.CenterID,
			CenterName: p.CenterName,
			DateAdded:  p.DateAdded,
			Form:       p.FormData,
		})
	}

	filename := export.Filename(h.exportPrefix, time.Now())
	c.Response().Header().Set(echo.HeaderContentType, "text/csv; charset=utf-8")
	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf("attachment; filename=%q", filename))
	c.Response().WriteHeader(http.StatusOK)
	return export.WriteCSV(c.Response(), export.FieldOrder(h.svc.Sections()), rows)
}

func (h *Handler) Stats(c echo.Context) error {
	st, err := h.svc.Stats(c.Request().Context(), actor(c))
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, st)
}

// FormSections serves the intake form definition so the client renders the
// same sections the server validates against.
func (h *Handler) FormSections(c echo.Context) error {
	return c.JSON(http.StatusOK, h.svc.Sections())
}

// -- Drafts --

func (h *Handler) SaveDraft(c echo.Context) error {
	var req formRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	d, err := h.svc.SaveDraft(c.Request().Context(), actor(c), req.FormData)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) GetDraft(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid draft id")
	}
	d, err := h.svc.GetDraft(c.Request().Context(), actor(c), id)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) ListDrafts(c echo.Context) error {
	drafts, err := h.svc.ListDrafts(c.Request().Context(), actor(c))
	if err != nil {
		return mapError(err)
	}
	if drafts == nil {
		drafts = []*Draft{}
	}
	return c.JSON(http.StatusOK, drafts)
}

func (h *Handler) DeleteDraft(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid draft id")
	}
	if err := h.svc.DeleteDraft(c.Request().Context(), actor(c), id); err != nil {
		return mapError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
