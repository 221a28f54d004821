package pricing

import (
	"context"
	"strings"

	"github.com/zatekoja/slotbooking/internal/domain/providers"
	"github.com/zatekoja/slotbooking/pkg/config"
)

// StaticFeeSchedule charges every provider the same configured fee, with
// optional per-provider overrides.
type StaticFeeSchedule struct {
	fee       providers.Fee
	overrides map[string]int64
}

// NewStaticFeeSchedule creates a fee schedule from booking config
func NewStaticFeeSchedule(cfg *config.BookingConfig, overrides map[string]int64) *StaticFeeSchedule {
	return &StaticFeeSchedule{
		fee:       providers.Fee{Amount: cfg.AppointmentFee, Currency: strings.ToLower(cfg.Currency)},
		overrides: overrides,
	}
}

var _ providers.FeeSchedule = (*StaticFeeSchedule)(nil)

// AppointmentFee returns the provider's override or the flat fee
func (s *StaticFeeSchedule) AppointmentFee(_ context.Context, providerID string) (providers.Fee, error) {
	if amount, ok := s.overrides[providerID]; ok {
		return providers.Fee{Amount: amount, Currency: s.fee.Currency}, nil
	}
	return s.fee, nil
}
