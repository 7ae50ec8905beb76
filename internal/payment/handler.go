package payment

import (
	"context"
	"errors"
	"io"
	"net/http"

	"sessionbook/internal/api"
	"sessionbook/internal/auth"
	"sessionbook/internal/credit"
	"sessionbook/internal/logger"
	"sessionbook/internal/subscription"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v76"
)

const maxWebhookBody = 65536

type eventApplier interface {
	Apply(ctx context.Context, ev stripe.Event) error
}

type checkoutCreator interface {
	Subscribe(ctx context.Context, customerID int, tier string) (*CheckoutResponse, error)
	BuyCredits(ctx context.Context, customerID int, packCode string) (*CheckoutResponse, error)
}

type Handler struct {
	verifier *Verifier
	applier  eventApplier
	checkout checkoutCreator
}

func NewHandler(verifier *Verifier, applier eventApplier, checkout checkoutCreator) *Handler {
	return &Handler{verifier: verifier, applier: applier, checkout: checkout}
}

// @Summary      Stripe webhook receiver
// @Tags         payments
// @Accept       json
// @Produce      json
// @Success      200 {object} payment.WebhookResponse
// @Router       /webhooks/stripe [post]
func (h *Handler) Webhook(c *gin.Context) {
	payload, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "unreadable payload"})
		return
	}

	ev, err := h.verifier.Verify(payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		logger.Warn("Rejected unverified webhook", "error", err)
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "invalid signature"})
		return
	}

	if err := h.applier.Apply(c.Request.Context(), ev); err != nil {
		if errors.Is(err, ErrMalformedEvent) {
			logger.Warn("Rejected malformed payment event", "event_id", ev.ID, "type", ev.Type, "error", err)
			c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
			return
		}
		logger.Error("Failed to apply payment event", "event_id", ev.ID, "type", ev.Type, "error", err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to process event"})
		return
	}
	c.JSON(http.StatusOK, WebhookResponse{Received: true})
}

// @Summary      Start a subscription checkout
// @Tags         payments
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body payment.SubscriptionCheckoutRequest true "Tier"
// @Success      201 {object} payment.CheckoutResponse
// @Router       /checkout/subscription [post]
func (h *Handler) CheckoutSubscription(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "unauthorized"})
		return
	}
	var req SubscriptionCheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		return
	}

	resp, err := h.checkout.Subscribe(c.Request.Context(), userID, req.Tier)
	h.respondCheckout(c, resp, err)
}

// @Summary      Start a credit pack checkout
// @Tags         payments
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body payment.CreditCheckoutRequest true "Pack"
// @Success      201 {object} payment.CheckoutResponse
// @Router       /checkout/credits [post]
func (h *Handler) CheckoutCredits(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "unauthorized"})
		return
	}
	var req CreditCheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		return
	}

	resp, err := h.checkout.BuyCredits(c.Request.Context(), userID, req.Pack)
	h.respondCheckout(c, resp, err)
}

func (h *Handler) respondCheckout(c *gin.Context, resp *CheckoutResponse, err error) {
	switch {
	case err == nil:
		c.JSON(http.StatusCreated, resp)
	case errors.Is(err, subscription.ErrUnknownTier), errors.Is(err, credit.ErrUnknownPack):
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
	default:
		logger.Error("Failed to create checkout session", "error", err)
		c.JSON(http.StatusBadGateway, api.ErrorResponse{Error: "payment processor unavailable"})
	}
}
