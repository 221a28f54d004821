package providers

import "context"

// Fee is an amount in the currency's minor unit
type Fee struct {
	Amount   int64
	Currency string
}

// FeeSchedule resolves what a provider charges per booking
type FeeSchedule interface {
	AppointmentFee(ctx context.Context, providerID string) (Fee, error)
}
