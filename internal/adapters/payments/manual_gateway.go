package payments

import (
	"context"
	"net/url"

	"github.com/zatekoja/slotbooking/internal/domain/providers"
	"github.com/zatekoja/slotbooking/pkg/config"
	apperrors "github.com/zatekoja/slotbooking/pkg/errors"
)

// PayloadTransactionID is the query key carrying the transaction reference
const PayloadTransactionID = "transaction_id"

// ManualGateway is used for payments settled out of band, such as cash or bank
// transfer. Callbacks are never trusted.
type ManualGateway struct {
	successURL string
}

// NewManualGateway creates a manual gateway
func NewManualGateway(cfg *config.PaymentConfig) *ManualGateway {
	return &ManualGateway{successURL: cfg.SuccessURL}
}

var _ providers.PaymentGateway = (*ManualGateway)(nil)

// Initiate returns the success page with the transaction reference attached
func (g *ManualGateway) Initiate(_ context.Context, req providers.PaymentRequest) (*providers.PaymentSession, error) {
	redirect, err := url.Parse(g.successURL)
	if err != nil {
		return nil, apperrors.NewInternalError("invalid payment success url", err)
	}
	q := redirect.Query()
	q.Set(PayloadTransactionID, req.TransactionID)
	redirect.RawQuery = q.Encode()

	return &providers.PaymentSession{
		TransactionID: req.TransactionID,
		RedirectURL:   redirect.String(),
		GatewayRef:    req.TransactionID,
	}, nil
}

// Validate rejects every callback. A manual payment has no gateway to vouch for
// it, so it is settled only by an administrator through MarkPaid.
func (g *ManualGateway) Validate(_ context.Context, payload map[string]string) (*providers.PaymentValidation, error) {
	if payload[PayloadTransactionID] == "" {
		return nil, apperrors.NewValidationError("transaction_id is required")
	}
	return nil, apperrors.NewForbiddenError("manual payments are confirmed by an administrator")
}
