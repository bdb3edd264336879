package payment

import (
	"context"
	"encoding/json"
	"fmt"

	stripe "github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"
	"github.com/stripe/stripe-go/v78/webhook"
)

// Stripe実装。
type StripeGateway struct {
	sc            *client.API
	webhookSecret string
	currency      string
}

func NewStripeGateway(secretKey, webhookSecret, currency string) *StripeGateway {
	sc := &client.API{}
	sc.Init(secretKey, nil)
	return &StripeGateway{sc: sc, webhookSecret: webhookSecret, currency: currency}
}

func (g *StripeGateway) CreateCharge(ctx context.Context, amount int64, currency string, metadata map[string]string) (Charge, error) {
	params := &stripe.PaymentIntentParams{
		Amount:             stripe.Int64(amount),
		Currency:           stripe.String(currency),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
	}
	params.Context = ctx
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}

	pi, err := g.sc.PaymentIntents.New(params)
	if err != nil {
		return Charge{}, fmt.Errorf("stripe: create payment intent: %w", err)
	}

	return Charge{ID: pi.ID, ClientSecret: pi.ClientSecret}, nil
}

func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, items []SessionLineItem, successURL, cancelURL string, metadata map[string]string) (CheckoutSession, error) {
	lineItems := make([]*stripe.CheckoutSessionLineItemParams, 0, len(items))
	for _, it := range items {
		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(g.currency),
				UnitAmount: stripe.Int64(it.UnitAmount),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(it.Name),
				},
			},
			Quantity: stripe.Int64(it.Quantity),
		})
	}

	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems:          lineItems,
		SuccessURL:         stripe.String(successURL),
		CancelURL:          stripe.String(cancelURL),
	}
	params.Context = ctx
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}

	s, err := g.sc.CheckoutSessions.New(params)
	if err != nil {
		return CheckoutSession{}, fmt.Errorf("stripe: create checkout session: %w", err)
	}

	return CheckoutSession{ID: s.ID, URL: s.URL}, nil
}

// セッションIDからPaymentIntent IDを引く
func (g *StripeGateway) ResolveCharge(ctx context.Context, sessionID string) (string, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	params.AddExpand("payment_intent")

	s, err := g.sc.CheckoutSessions.Get(sessionID, params)
	if err != nil {
		return "", fmt.Errorf("stripe: retrieve session: %w", err)
	}
	if s.PaymentIntent == nil {
		return "", fmt.Errorf("stripe: session %s has no payment intent", sessionID)
	}
	return s.PaymentIntent.ID, nil
}

func (g *StripeGateway) CreateRefund(ctx context.Context, chargeID string, amount int64) (RefundResult, error) {
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(chargeID),
		Amount:        stripe.Int64(amount),
	}
	params.Context = ctx

	ref, err := g.sc.Refunds.New(params)
	if err != nil {
		return RefundResult{}, fmt.Errorf("stripe: create refund: %w", err)
	}

	return RefundResult{
		ID:        ref.ID,
		Succeeded: ref.Status == stripe.RefundStatusSucceeded || ref.Status == stripe.RefundStatusPending,
	}, nil
}

// StripeのイベントをGateway共通のEventに変換する。
// 署名が合わなければErrInvalidSignature。
func (g *StripeGateway) VerifyEvent(payload []byte, signature string) (Event, error) {
	ev, err := webhook.ConstructEvent(payload, signature, g.webhookSecret)
	if err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	switch ev.Type {
	case "payment_intent.succeeded", "payment_intent.payment_failed":
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(ev.Data.Raw, &pi); err != nil {
			return Event{}, fmt.Errorf("stripe: parse payment intent event: %w", err)
		}
		t := EventPaymentSucceeded
		if ev.Type == "payment_intent.payment_failed" {
			t = EventPaymentFailed
		}
		return Event{Type: t, TransactionRef: pi.ID}, nil

	case "charge.refunded":
		var ch stripe.Charge
		if err := json.Unmarshal(ev.Data.Raw, &ch); err != nil {
			return Event{}, fmt.Errorf("stripe: parse charge event: %w", err)
		}
		ref := ""
		if ch.PaymentIntent != nil {
			ref = ch.PaymentIntent.ID
		}
		return Event{
			Type:           EventChargeRefunded,
			TransactionRef: ref,
			AmountRefunded: ch.AmountRefunded,
		}, nil
	}

	return Event{Type: EventUnknown}, nil
}
