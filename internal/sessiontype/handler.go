package sessiontype

import (
	"errors"
	"net/http"
	"strconv"

	"sessionbook/internal/api"
	"sessionbook/internal/auth"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// @Summary      List session types
// @Tags         session-types
// @Produce      json
// @Security     BearerAuth
// @Param        include_inactive query bool false "Staff only: include deactivated types"
// @Success      200 {array} sessiontype.SessionType
// @Router       /session-types [get]
func (h *Handler) List(c *gin.Context) {
	includeInactive := false
	if actor, ok := auth.GetActor(c); ok && actor.IsStaff() {
		includeInactive = c.Query("include_inactive") == "true"
	}

	types, err := h.service.List(c.Request.Context(), includeInactive)
	if err != nil {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to fetch session types"})
		return
	}
	c.JSON(http.StatusOK, types)
}

// @Summary      Create a session type
// @Tags         admin,session-types
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body sessiontype.CreateRequest true "Session type payload"
// @Success      201 {object} sessiontype.SessionType
// @Router       /admin/session-types [post]
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		return
	}

	st, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, ErrInvalidInput) {
			c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to create session type"})
		return
	}
	c.JSON(http.StatusCreated, st)
}

// @Summary      Update a session type
// @Description  Only description, price and active flag can change.
// @Tags         admin,session-types
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Session type ID"
// @Param        request body sessiontype.UpdateRequest true "Fields to change"
// @Success      200 {object} sessiontype.SessionType
// @Router       /admin/session-types/{id} [patch]
func (h *Handler) Update(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid session type ID"})
		return
	}

	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		return
	}

	st, err := h.service.Update(c.Request.Context(), id, req)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "Session type not found"})
		case errors.Is(err, ErrInvalidInput):
			c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to update session type"})
		}
		return
	}
	c.JSON(http.StatusOK, st)
}
