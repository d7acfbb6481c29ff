package stripe

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v84"
)

const PaymentStatusPaid = string(stripe.CheckoutSessionPaymentStatusPaid)

// CheckoutSessionInput is a single line item sold in payment mode.
type CheckoutSessionInput struct {
	CustomerEmail   string
	ProductName     string
	Description     string
	Currency        string
	UnitAmountCents int64
	SuccessURL      string
	CancelURL       string
	Metadata        map[string]string
}

// CheckoutSession carries the session fields payments reads back.
type CheckoutSession struct {
	ID              string
	URL             string
	PaymentStatus   string
	PaymentIntentID string
	CustomerEmail   string
	Currency        string
	AmountTotal     int64
	Metadata        map[string]string
}

func (s *CheckoutSession) IsPaid() bool {
	return s != nil && s.PaymentStatus == PaymentStatusPaid
}

func (c *Client) CreateCheckoutSession(ctx context.Context, input CheckoutSessionInput) (*CheckoutSession, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}
	params := input.params()
	params.Context = ctx

	created, err := c.sessions.create(params)
	if err != nil {
		return nil, fmt.Errorf("stripe: create checkout session: %w", err)
	}
	return fromStripe(created), nil
}

func (c *Client) GetCheckoutSession(ctx context.Context, sessionID string) (*CheckoutSession, error) {
	id := strings.TrimSpace(sessionID)
	if id == "" {
		return nil, errors.New("stripe: session id is required")
	}
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	found, err := c.sessions.get(id, params)
	if err != nil {
		return nil, fmt.Errorf("stripe: get checkout session %s: %w", id, err)
	}
	return fromStripe(found), nil
}

func (in CheckoutSessionInput) validate() error {
	switch {
	case in.UnitAmountCents <= 0:
		return errors.New("stripe: unit amount must be positive")
	case strings.TrimSpace(in.ProductName) == "":
		return errors.New("stripe: product name is required")
	case in.SuccessURL == "" || in.CancelURL == "":
		return errors.New("stripe: success and cancel urls are required")
	}
	return nil
}

func (in CheckoutSessionInput) params() *stripe.CheckoutSessionParams {
	currency := strings.ToLower(strings.TrimSpace(in.Currency))
	if currency == "" {
		currency = string(stripe.CurrencyUSD)
	}
	product := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{Name: stripe.String(in.ProductName)}
	if in.Description != "" {
		product.Description = stripe.String(in.Description)
	}

	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(in.SuccessURL),
		CancelURL:  stripe.String(in.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			Quantity: stripe.Int64(1),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripe.String(currency),
				UnitAmount:  stripe.Int64(in.UnitAmountCents),
				ProductData: product,
			},
		}},
	}
	if in.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(in.CustomerEmail)
	}
	for k, v := range in.Metadata {
		params.AddMetadata(k, v)
	}
	return params
}

func fromStripe(s *stripe.CheckoutSession) *CheckoutSession {
	if s == nil {
		return nil
	}
	out := &CheckoutSession{
		ID:            s.ID,
		URL:           s.URL,
		PaymentStatus: string(s.PaymentStatus),
		CustomerEmail: s.CustomerEmail,
		Currency:      string(s.Currency),
		AmountTotal:   s.AmountTotal,
		Metadata:      map[string]string{},
	}
	for k, v := range s.Metadata {
		out.Metadata[k] = v
	}
	if s.PaymentIntent != nil {
		out.PaymentIntentID = s.PaymentIntent.ID
	}
	return out
}
