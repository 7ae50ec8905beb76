package payment

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"sessionbook/internal/credit"
	"sessionbook/internal/logger"
	"sessionbook/internal/subscription"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/checkout/session"
)

const currency = "usd"

// checkoutSessions is the part of the Stripe checkout session client used here.
type checkoutSessions interface {
	New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

type Checkout struct {
	sessions   checkoutSessions
	successURL string
	cancelURL  string
}

// NewStripeCheckout builds a checkout client whose HTTP calls time out after timeout.
func NewStripeCheckout(secretKey string, timeout time.Duration, successURL, cancelURL string) *Checkout {
	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		HTTPClient: &http.Client{Timeout: timeout},
	})
	return &Checkout{
		sessions:   &session.Client{B: backend, Key: secretKey},
		successURL: successURL,
		cancelURL:  cancelURL,
	}
}

// Subscribe opens a hosted checkout for a recurring plan. The customer id
// and tier travel in subscription metadata so later subscription events can
// be attributed.
func (c *Checkout) Subscribe(ctx context.Context, customerID int, tier string) (*CheckoutResponse, error) {
	plan, err := subscription.FindPlan(tier)
	if err != nil {
		return nil, err
	}

	meta := map[string]string{
		metaCustomerID: strconv.Itoa(customerID),
		metaTier:       plan.Tier,
	}
	params := c.baseParams(ctx, customerID, stripe.CheckoutSessionModeSubscription)
	params.LineItems = []*stripe.CheckoutSessionLineItemParams{{
		Quantity: stripe.Int64(1),
		PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
			Currency:   stripe.String(currency),
			UnitAmount: stripe.Int64(toCents(plan.MonthlyPrice)),
			Recurring: &stripe.CheckoutSessionLineItemPriceDataRecurringParams{
				Interval: stripe.String(string(stripe.PriceRecurringIntervalMonth)),
			},
			ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
				Name:        stripe.String(plan.Name),
				Description: stripe.String(plan.Description),
			},
		},
	}}
	params.SubscriptionData = &stripe.CheckoutSessionSubscriptionDataParams{Metadata: meta}
	for k, v := range meta {
		params.AddMetadata(k, v)
	}

	return c.create(params, "subscription", customerID)
}

// BuyCredits opens a hosted one-off checkout for a credit pack.
func (c *Checkout) BuyCredits(ctx context.Context, customerID int, packCode string) (*CheckoutResponse, error) {
	pack, err := credit.FindPack(packCode)
	if err != nil {
		return nil, err
	}

	params := c.baseParams(ctx, customerID, stripe.CheckoutSessionModePayment)
	params.LineItems = []*stripe.CheckoutSessionLineItemParams{{
		Quantity: stripe.Int64(1),
		PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
			Currency:   stripe.String(currency),
			UnitAmount: stripe.Int64(toCents(pack.Price)),
			ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
				Name: stripe.String(pack.Name),
			},
		},
	}}
	params.AddMetadata(metaCustomerID, strconv.Itoa(customerID))
	params.AddMetadata(metaCreditPack, pack.Code)

	return c.create(params, "credit_pack", customerID)
}

func (c *Checkout) baseParams(ctx context.Context, customerID int, mode stripe.CheckoutSessionMode) *stripe.CheckoutSessionParams {
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(mode)),
		SuccessURL:        stripe.String(c.successURL),
		CancelURL:         stripe.String(c.cancelURL),
		ClientReferenceID: stripe.String(strconv.Itoa(customerID)),
	}
	params.Context = ctx
	return params
}

func (c *Checkout) create(params *stripe.CheckoutSessionParams, kind string, customerID int) (*CheckoutResponse, error) {
	cs, err := c.sessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("create checkout session: %w", err)
	}
	logger.Info("Checkout session created", "kind", kind, "customer_id", customerID, "checkout_session", cs.ID)
	return &CheckoutResponse{SessionID: cs.ID, URL: cs.URL}, nil
}
