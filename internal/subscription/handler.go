package subscription

import (
	"net/http"

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

type CurrentResponse struct {
	Subscription *Subscription `json:"subscription"`
	Plan         *Plan         `json:"plan,omitempty"`
}

// @Summary      Current subscription of the caller
// @Tags         subscriptions
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} subscription.CurrentResponse
// @Router       /subscriptions/me [get]
func (h *Handler) Me(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "unauthorized"})
		return
	}

	sub, err := h.service.Current(c.Request.Context(), userID)
	if err != nil {
		logger.Errorf("Failed to load subscription for customer %d: %v", userID, err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to load subscription"})
		return
	}

	resp := CurrentResponse{Subscription: sub}
	if sub != nil {
		if plan, err := FindPlan(sub.Tier); err == nil {
			resp.Plan = &plan
		}
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary      Subscription tiers on offer
// @Tags         subscriptions
// @Produce      json
// @Success      200 {array} subscription.Plan
// @Router       /subscriptions/plans [get]
func (h *Handler) ListPlans(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.Plans())
}
