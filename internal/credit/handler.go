package credit

import (
	"errors"
	"net/http"

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

// @Summary      Session credit balance of the caller
// @Tags         credits
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} credit.Balance
// @Router       /credits/me [get]
func (h *Handler) Me(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "unauthorized"})
		return
	}

	balance, err := h.service.Balance(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to load credits"})
		return
	}
	c.JSON(http.StatusOK, balance)
}

// @Summary      Grant session credits to a customer
// @Tags         admin,credits
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body credit.GrantRequest true "Grant payload"
// @Success      201 {object} credit.Credit
// @Router       /admin/credits [post]
func (h *Handler) Grant(c *gin.Context) {
	var req GrantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		return
	}

	credit, err := h.service.Grant(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, ErrInvalidGrant) {
			c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to grant credits"})
		return
	}
	c.JSON(http.StatusCreated, credit)
}

func (h *Handler) ListPacks(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.Packs())
}
