package entities

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// PaymentIntentStatus represents the state of a payment obligation
type PaymentIntentStatus string

const (
	PaymentIntentStatusPending PaymentIntentStatus = "PENDING"
	PaymentIntentStatusPaid    PaymentIntentStatus = "PAID"
)

// PaymentIntent tracks the payment owed for a booking. It is created in the same
// transaction as its booking and deleted with it.
type PaymentIntent struct {
	ID            string              `json:"id" db:"id"`
	BookingID     string              `json:"booking_id" db:"booking_id"`
	Amount        int64               `json:"amount" db:"amount"`
	Currency      string              `json:"currency" db:"currency"`
	TransactionID string              `json:"transaction_id" db:"transaction_id"`
	Status        PaymentIntentStatus `json:"status" db:"status"`
	GatewayData   json.RawMessage     `json:"gateway_data,omitempty" db:"gateway_data"`
	CreatedAt     time.Time           `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at" db:"updated_at"`
}

// NewTransactionID returns a globally unique transaction reference derived from
// the current time and 48 random bits.
func NewTransactionID(now time.Time) string {
	random := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	return fmt.Sprintf("SB-%s-%s", now.UTC().Format("20060102150405"), random)
}
