package booking

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"sessionbook/internal/api"
	"sessionbook/internal/auth"
	"sessionbook/internal/logger"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// CreateBooking godoc
// @Summary      Book a slot
// @Description  Books a session-type slot, paid by subscription quota, session credit or staff override.
// @Tags         bookings
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body booking.CreateRequest true "Booking payload"
// @Success      201 {object} booking.Booking
// @Failure      400 {object} api.ErrorResponse
// @Failure      402 {object} api.ErrorResponse
// @Failure      409 {object} api.ErrorResponse
// @Router       /bookings [post]
func (h *Handler) Create(c *gin.Context) {
	actor, ok := auth.GetActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "User not authenticated"})
		return
	}

	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		return
	}

	b, err := h.service.Create(c.Request.Context(), actor, req)
	if err != nil {
		writeError(c, err, "Failed to create booking")
		return
	}
	c.JSON(http.StatusCreated, b)
}

// ListBookings godoc
// @Summary      List bookings
// @Description  Customers see their own bookings. Staff may filter by customer.
// @Tags         bookings
// @Produce      json
// @Security     BearerAuth
// @Param        from        query string false "RFC3339 lower bound on start time"
// @Param        to          query string false "RFC3339 upper bound on start time"
// @Param        status      query string false "Status filter"
// @Param        customer_id query int    false "Staff only"
// @Success      200 {array} booking.Booking
// @Router       /bookings [get]
func (h *Handler) List(c *gin.Context) {
	actor, ok := auth.GetActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "User not authenticated"})
		return
	}

	f, err := parseFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		return
	}

	bookings, err := h.service.List(c.Request.Context(), actor, f)
	if err != nil {
		writeError(c, err, "Failed to fetch bookings")
		return
	}
	c.JSON(http.StatusOK, bookings)
}

func (h *Handler) Get(c *gin.Context) {
	actor, id, ok := actorAndID(c)
	if !ok {
		return
	}

	b, err := h.service.Get(c.Request.Context(), actor, id)
	if err != nil {
		writeError(c, err, "Failed to fetch booking")
		return
	}
	c.JSON(http.StatusOK, b)
}

// CancelBooking godoc
// @Summary      Cancel a booking
// @Description  Customers must cancel before the notice period; staff may cancel any time.
// @Tags         bookings
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id      path int                   true  "Booking ID"
// @Param        request body booking.CancelRequest false "Optional reason"
// @Success      200 {object} booking.Booking
// @Failure      403 {object} api.ErrorResponse
// @Failure      404 {object} api.ErrorResponse
// @Failure      409 {object} api.ErrorResponse
// @Router       /bookings/{id}/cancel [post]
func (h *Handler) Cancel(c *gin.Context) {
	actor, id, ok := actorAndID(c)
	if !ok {
		return
	}

	var req CancelRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
			return
		}
	}

	b, err := h.service.Cancel(c.Request.Context(), actor, id, req.Reason)
	if err != nil {
		writeError(c, err, "Failed to cancel booking")
		return
	}
	c.JSON(http.StatusOK, b)
}

func (h *Handler) Complete(c *gin.Context) {
	actor, id, ok := actorAndID(c)
	if !ok {
		return
	}

	b, err := h.service.MarkCompleted(c.Request.Context(), actor, id)
	if err != nil {
		writeError(c, err, "Failed to update booking")
		return
	}
	c.JSON(http.StatusOK, b)
}

func (h *Handler) NoShow(c *gin.Context) {
	actor, id, ok := actorAndID(c)
	if !ok {
		return
	}

	b, err := h.service.MarkNoShow(c.Request.Context(), actor, id)
	if err != nil {
		writeError(c, err, "Failed to update booking")
		return
	}
	c.JSON(http.StatusOK, b)
}

// RescheduleBooking godoc
// @Summary      Move a booking
// @Tags         admin,bookings
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id      path int                       true "Booking ID"
// @Param        request body booking.RescheduleRequest true "New times"
// @Success      200 {object} booking.Booking
// @Failure      409 {object} api.ErrorResponse
// @Router       /admin/bookings/{id}/reschedule [put]
func (h *Handler) Reschedule(c *gin.Context) {
	actor, id, ok := actorAndID(c)
	if !ok {
		return
	}

	var req RescheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		return
	}

	b, err := h.service.Reschedule(c.Request.Context(), actor, id, req)
	if err != nil {
		writeError(c, err, "Failed to reschedule booking")
		return
	}
	c.JSON(http.StatusOK, b)
}

// Availability godoc
// @Summary      Open slots with remaining capacity
// @Tags         bookings
// @Produce      json
// @Security     BearerAuth
// @Param        session_type_id query int    true  "Session type"
// @Param        from            query string false "YYYY-MM-DD, defaults to today"
// @Param        to              query string false "YYYY-MM-DD, defaults to from + 7 days"
// @Success      200 {array} booking.Slot
// @Router       /availability [get]
func (h *Handler) Availability(c *gin.Context) {
	sessionTypeID, err := strconv.Atoi(c.Query("session_type_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "session_type_id is required"})
		return
	}

	from := c.DefaultQuery("from", time.Now().Format(time.DateOnly))
	to := c.Query("to")
	if to == "" {
		start, err := time.Parse(time.DateOnly, from)
		if err != nil {
			c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "from must be YYYY-MM-DD"})
			return
		}
		to = start.AddDate(0, 0, 7).Format(time.DateOnly)
	}

	slots, err := h.service.Availability(c.Request.Context(), sessionTypeID, from, to)
	if err != nil {
		writeError(c, err, "Failed to compute availability")
		return
	}
	c.JSON(http.StatusOK, slots)
}

func actorAndID(c *gin.Context) (auth.Actor, int, bool) {
	actor, ok := auth.GetActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "User not authenticated"})
		return auth.Actor{}, 0, false
	}
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid booking ID"})
		return auth.Actor{}, 0, false
	}
	return actor, id, true
}

func parseFilter(c *gin.Context) (Filter, error) {
	var f Filter
	if v := c.Query("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return f, errors.New("from must be RFC3339")
		}
		f.From = &t
	}
	if v := c.Query("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return f, errors.New("to must be RFC3339")
		}
		f.To = &t
	}
	if v := c.Query("status"); v != "" {
		st := Status(v)
		switch st {
		case StatusPending, StatusConfirmed, StatusCompleted, StatusNoShow, StatusCancelled:
			f.Status = &st
		default:
			return f, errors.New("unknown status")
		}
	}
	if v := c.Query("customer_id"); v != "" {
		id, err := strconv.Atoi(v)
		if err != nil {
			return f, errors.New("invalid customer_id")
		}
		f.CustomerID = &id
	}
	f.Limit, _ = strconv.Atoi(c.Query("limit"))
	f.Offset, _ = strconv.Atoi(c.Query("offset"))
	return f, nil
}

func writeError(c *gin.Context, err error, fallback string) {
	var denial *DenialError
	switch {
	case errors.As(err, &denial):
		c.JSON(http.StatusPaymentRequired, api.ErrorResponse{Error: denial.Reason, Code: string(denial.Code)})
	case errors.Is(err, ErrInvalidInput),
		errors.Is(err, ErrUnknownSessionType),
		errors.Is(err, ErrOutsideBookingWindow),
		errors.Is(err, ErrSlotUnavailable):
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
	case errors.Is(err, ErrNotFound):
		c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "Booking not found"})
	case errors.Is(err, ErrForbidden):
		c.JSON(http.StatusForbidden, api.ErrorResponse{Error: err.Error()})
	case errors.Is(err, ErrCancellationWindow):
		c.JSON(http.StatusForbidden, api.ErrorResponse{Error: err.Error(), Code: "cancellation_window"})
	case errors.Is(err, ErrSlotFull):
		c.JSON(http.StatusConflict, api.ErrorResponse{Error: err.Error(), Code: "slot_full"})
	case errors.Is(err, ErrAlreadyBooked),
		errors.Is(err, ErrInvalidTransition),
		errors.Is(err, ErrSessionNotStarted):
		c.JSON(http.StatusConflict, api.ErrorResponse{Error: err.Error()})
	default:
		logger.Error(fallback, "error", err, "path", c.FullPath())
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: fallback})
	}
}
