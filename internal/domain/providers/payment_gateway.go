package providers

import (
	"context"
	"encoding/json"
)

// PaymentRequest is what the gateway needs to start collecting a payment
type PaymentRequest struct {
	BookingID     string
	TransactionID string
	Amount        int64
	Currency      string
	CustomerEmail string
	Description   string
}

// PaymentSession is the gateway's answer to an initiation
type PaymentSession struct {
	TransactionID string `json:"transaction_id"`
	RedirectURL   string `json:"redirect_url"`
	GatewayRef    string `json:"gateway_ref"`
}

// PaymentValidation is the gateway's verdict on a callback payload
type PaymentValidation struct {
	TransactionID string
	Paid          bool
	Metadata      json.RawMessage
}

// PaymentGateway defines the external payment collaborator (Stripe, manual, ...)
type PaymentGateway interface {
	// Initiate starts an external payment and returns where to send the payer
	Initiate(ctx context.Context, req PaymentRequest) (*PaymentSession, error)

	// Validate verifies a callback payload with the gateway
	Validate(ctx context.Context, payload map[string]string) (*PaymentValidation, error)
}
