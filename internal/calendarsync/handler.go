package calendarsync

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"sessionbook/internal/api"
	"sessionbook/internal/logger"

	"github.com/gin-gonic/gin"
)

type integrationService interface {
	Status(ctx context.Context) (StatusResponse, error)
	ConnectURL(ctx context.Context) (string, error)
	Callback(ctx context.Context, state, code string) (*Integration, error)
	Disconnect(ctx context.Context) error
	ResyncBooking(ctx context.Context, bookingID int) error
	ResyncAll(ctx context.Context) (int, error)
}

type Handler struct {
	service integrationService
}

func NewHandler(s integrationService) *Handler {
	return &Handler{service: s}
}

// Status godoc
// @Summary      Calendar integration status
// @Tags         admin,calendar
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} calendarsync.StatusResponse
// @Router       /admin/calendar [get]
func (h *Handler) Status(c *gin.Context) {
	resp, err := h.service.Status(c.Request.Context())
	if err != nil {
		writeError(c, err, "Failed to load calendar status")
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) Connect(c *gin.Context) {
	url, err := h.service.ConnectURL(c.Request.Context())
	if err != nil {
		writeError(c, err, "Failed to start calendar authorization")
		return
	}
	c.JSON(http.StatusOK, ConnectResponse{AuthURL: url})
}

// Callback is the OAuth redirect target. It is reached by the browser
// without a bearer token; the single-use state authenticates it.
func (h *Handler) Callback(c *gin.Context) {
	if e := c.Query("error"); e != "" {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Authorization denied: " + e})
		return
	}

	integ, err := h.service.Callback(c.Request.Context(), c.Query("state"), c.Query("code"))
	if err != nil {
		writeError(c, err, "Failed to connect calendar")
		return
	}
	c.JSON(http.StatusOK, StatusResponse{Connected: true, Integration: integ})
}

func (h *Handler) Disconnect(c *gin.Context) {
	if err := h.service.Disconnect(c.Request.Context()); err != nil {
		writeError(c, err, "Failed to disconnect calendar")
		return
	}
	c.JSON(http.StatusOK, api.MessageResponse{Message: "Calendar disconnected"})
}

func (h *Handler) ResyncAll(c *gin.Context) {
	n, err := h.service.ResyncAll(c.Request.Context())
	if err != nil {
		writeError(c, err, "Failed to queue calendar resync")
		return
	}
	c.JSON(http.StatusAccepted, ResyncResponse{Queued: n})
}

func (h *Handler) ResyncBooking(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid booking ID"})
		return
	}

	if err := h.service.ResyncBooking(c.Request.Context(), id); err != nil {
		writeError(c, err, "Failed to queue calendar resync")
		return
	}
	c.JSON(http.StatusAccepted, ResyncResponse{Queued: 1})
}

func writeError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, ErrNotConnected):
		c.JSON(http.StatusNotFound, api.ErrorResponse{Error: err.Error(), Code: "not_connected"})
	case errors.Is(err, ErrBookingNotFound):
		c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "Booking not found"})
	case errors.Is(err, ErrInvalidState), errors.Is(err, ErrNoRefreshToken):
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
	default:
		logger.Error(fallback, "error", err, "path", c.FullPath())
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: fallback})
	}
}
