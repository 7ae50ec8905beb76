package schedule

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"sessionbook/internal/api"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// @Summary      List weekly availability templates
// @Tags         admin,availability
// @Produce      json
// @Security     BearerAuth
// @Success      200 {array} schedule.Template
// @Router       /admin/availability/templates [get]
func (h *Handler) ListTemplates(c *gin.Context) {
	templates, err := h.service.Templates(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to fetch templates"})
		return
	}
	c.JSON(http.StatusOK, templates)
}

// @Summary      Add a weekly availability window
// @Tags         admin,availability
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body schedule.CreateTemplateRequest true "Template payload"
// @Success      201 {object} schedule.Template
// @Failure      409 {object} api.ErrorResponse
// @Router       /admin/availability/templates [post]
func (h *Handler) CreateTemplate(c *gin.Context) {
	var req CreateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		return
	}

	t, err := h.service.CreateTemplate(c.Request.Context(), req)
	if err != nil {
		writeError(c, err, "Failed to create template")
		return
	}
	c.JSON(http.StatusCreated, t)
}

func (h *Handler) DeleteTemplate(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid template ID"})
		return
	}
	if err := h.service.DeleteTemplate(c.Request.Context(), id); err != nil {
		writeError(c, err, "Failed to delete template")
		return
	}
	c.Status(http.StatusNoContent)
}

// @Summary      List date exceptions
// @Tags         admin,availability
// @Produce      json
// @Security     BearerAuth
// @Param        from query string false "YYYY-MM-DD, defaults to today"
// @Param        to   query string false "YYYY-MM-DD, defaults to from + 30 days"
// @Success      200 {array} schedule.Exception
// @Router       /admin/availability/exceptions [get]
func (h *Handler) ListExceptions(c *gin.Context) {
	today := time.Now().UTC()
	from := c.DefaultQuery("from", today.Format(dateLayout))
	to := c.DefaultQuery("to", today.AddDate(0, 0, 30).Format(dateLayout))

	exceptions, err := h.service.Exceptions(c.Request.Context(), from, to)
	if err != nil {
		writeError(c, err, "Failed to fetch exceptions")
		return
	}
	c.JSON(http.StatusOK, exceptions)
}

// @Summary      Create or replace the exception for a date
// @Tags         admin,availability
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body schedule.UpsertExceptionRequest true "Exception payload"
// @Success      200 {object} schedule.Exception
// @Router       /admin/availability/exceptions [post]
func (h *Handler) UpsertException(c *gin.Context) {
	var req UpsertExceptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		return
	}

	e, err := h.service.UpsertException(c.Request.Context(), req)
	if err != nil {
		writeError(c, err, "Failed to save exception")
		return
	}
	c.JSON(http.StatusOK, e)
}

func (h *Handler) DeleteException(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid exception ID"})
		return
	}
	if err := h.service.DeleteException(c.Request.Context(), id); err != nil {
		writeError(c, err, "Failed to delete exception")
		return
	}
	c.Status(http.StatusNoContent)
}

// @Summary      Get the scheduling policy
// @Tags         admin,policy
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} schedule.Policy
// @Router       /admin/policy [get]
func (h *Handler) GetPolicy(c *gin.Context) {
	p, err := h.service.Policy(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to fetch policy"})
		return
	}
	c.JSON(http.StatusOK, p)
}

// @Summary      Replace the scheduling policy
// @Tags         admin,policy
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body schedule.UpdatePolicyRequest true "Policy payload"
// @Success      200 {object} schedule.Policy
// @Router       /admin/policy [put]
func (h *Handler) UpdatePolicy(c *gin.Context) {
	var req UpdatePolicyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		return
	}

	p, err := h.service.UpdatePolicy(c.Request.Context(), req)
	if err != nil {
		writeError(c, err, "Failed to update policy")
		return
	}
	c.JSON(http.StatusOK, p)
}

func writeError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
	case errors.Is(err, ErrTemplateOverlap):
		c.JSON(http.StatusConflict, api.ErrorResponse{Error: err.Error()})
	case errors.Is(err, ErrNotFound):
		c.JSON(http.StatusNotFound, api.ErrorResponse{Error: err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: fallback})
	}
}
