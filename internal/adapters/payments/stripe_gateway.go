package payments

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/zatekoja/slotbooking/internal/domain/providers"
	"github.com/zatekoja/slotbooking/pkg/config"
	apperrors "github.com/zatekoja/slotbooking/pkg/errors"
)

const (
	// PayloadSessionID is the callback key carrying the Checkout Session id
	PayloadSessionID = "session_id"

	metadataTransactionID = "transaction_id"
	metadataBookingID     = "booking_id"
)

// checkoutSessions is the slice of the Stripe client the gateway uses
type checkoutSessions interface {
	New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	Get(id string, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

// StripeGateway collects appointment fees through Stripe Checkout
type StripeGateway struct {
	sessions   checkoutSessions
	breaker    *gobreaker.CircuitBreaker
	successURL string
	cancelURL  string
}

// NewStripeGateway creates a gateway backed by the Stripe API
func NewStripeGateway(cfg *config.PaymentConfig) *StripeGateway {
	sc := &client.API{}
	sc.Init(cfg.StripeSecretKey, nil)
	return newStripeGateway(sc.CheckoutSessions, cfg)
}

func newStripeGateway(sessions checkoutSessions, cfg *config.PaymentConfig) *StripeGateway {
	return &StripeGateway{
		sessions:   sessions,
		breaker:    newBreaker("stripe", 30*time.Second),
		successURL: cfg.SuccessURL,
		cancelURL:  cfg.CancelURL,
	}
}

var _ providers.PaymentGateway = (*StripeGateway)(nil)

// Initiate creates a Checkout Session for the booking's fee
func (g *StripeGateway) Initiate(ctx context.Context, req providers.PaymentRequest) (*providers.PaymentSession, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(withSessionPlaceholder(g.successURL)),
		CancelURL:         stripe.String(g.cancelURL),
		ClientReferenceID: stripe.String(req.TransactionID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(strings.ToLower(req.Currency)),
					UnitAmount: stripe.Int64(req.Amount),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(req.Description),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
	}
	if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}
	params.Context = ctx
	params.AddMetadata(metadataTransactionID, req.TransactionID)
	params.AddMetadata(metadataBookingID, req.BookingID)

	result, err := g.breaker.Execute(func() (interface{}, error) {
		return g.sessions.New(params)
	})
	if err != nil {
		return nil, gatewayError("failed to create checkout session", err)
	}

	session := result.(*stripe.CheckoutSession)
	return &providers.PaymentSession{
		TransactionID: req.TransactionID,
		RedirectURL:   session.URL,
		GatewayRef:    session.ID,
	}, nil
}

// Validate fetches the Checkout Session named in payload and reports whether it is paid
func (g *StripeGateway) Validate(ctx context.Context, payload map[string]string) (*providers.PaymentValidation, error) {
	sessionID := payload[PayloadSessionID]
	if sessionID == "" {
		return nil, apperrors.NewValidationError("session_id is required")
	}

	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	result, err := g.breaker.Execute(func() (interface{}, error) {
		return g.sessions.Get(sessionID, params)
	})
	if err != nil {
		return nil, gatewayError("failed to retrieve checkout session", err)
	}

	session := result.(*stripe.CheckoutSession)
	transactionID := session.ClientReferenceID
	if transactionID == "" {
		transactionID = session.Metadata[metadataTransactionID]
	}
	if transactionID == "" {
		return nil, apperrors.NewValidationError("checkout session carries no transaction reference")
	}

	meta := map[string]interface{}{
		"gateway":        config.GatewayStripe,
		"session_id":     session.ID,
		"payment_status": string(session.PaymentStatus),
		"amount_total":   session.AmountTotal,
		"currency":       string(session.Currency),
	}
	if session.PaymentIntent != nil {
		meta["payment_intent"] = session.PaymentIntent.ID
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to encode gateway metadata", err)
	}

	return &providers.PaymentValidation{
		TransactionID: transactionID,
		Paid:          session.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid,
		Metadata:      raw,
	}, nil
}

// withSessionPlaceholder lets Stripe substitute the session id into the return URL
func withSessionPlaceholder(url string) string {
	if strings.Contains(url, "{CHECKOUT_SESSION_ID}") {
		return url
	}
	sep := "?"
	if strings.Contains(url, "?") {
		sep = "&"
	}
	return url + sep + "session_id={CHECKOUT_SESSION_ID}"
}

func gatewayError(message string, err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return apperrors.NewTransientError("payment gateway temporarily unavailable", err)
	}
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) && stripeErr.Type == stripe.ErrorTypeInvalidRequest {
		return &apperrors.AppError{Type: apperrors.ErrorTypeValidation, Message: message, Err: err}
	}
	return apperrors.NewExternalError(message, err)
}
