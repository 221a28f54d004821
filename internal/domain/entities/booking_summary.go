package entities

// BookingSummary aggregates bookings and their settled payments over one scope
type BookingSummary struct {
	BookingCount int64                   `json:"booking_count"`
	PaidCount    int64                   `json:"paid_count"`
	ByStatus     map[BookingStatus]int64 `json:"by_status"`
	// Revenue sums PAID intents per currency
	Revenue map[string]int64 `json:"revenue,omitempty"`
}

// NewBookingSummary returns an empty summary with every status present
func NewBookingSummary() *BookingSummary {
	s := &BookingSummary{
		ByStatus: make(map[BookingStatus]int64, len(bookingStatuses)),
		Revenue:  make(map[string]int64),
	}
	for _, status := range bookingStatuses {
		s.ByStatus[status] = 0
	}
	return s
}

// AddStatus counts n bookings in status
func (s *BookingSummary) AddStatus(status BookingStatus, n int64) {
	s.ByStatus[status] += n
	s.BookingCount += n
}

// AddPaid counts n paid intents totalling amount in currency
func (s *BookingSummary) AddPaid(currency string, n, amount int64) {
	s.PaidCount += n
	s.Revenue[currency] += amount
}
