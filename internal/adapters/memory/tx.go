package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/zatekoja/slotbooking/internal/domain/entities"
	apperrors "github.com/zatekoja/slotbooking/pkg/errors"
)

type tx struct {
	store *Store
	state *state
	done  bool
}

func (t *tx) active() error {
	if t.done {
		return apperrors.NewInternalError("transaction already finished", nil)
	}
	return nil
}

func (t *tx) LockBinding(_ context.Context, providerID, slotID string) (*entities.AvailabilityBinding, error) {
	if err := t.active(); err != nil {
		return nil, err
	}
	b := t.state.bindingFor(providerID, slotID)
	if b == nil {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("provider %s has no binding for slot %s", providerID, slotID))
	}
	return cloneBinding(b), nil
}

func (t *tx) ReserveBinding(_ context.Context, bindingID, bookingID string, at time.Time) error {
	if err := t.active(); err != nil {
		return err
	}
	b, ok := t.state.bindings[bindingID]
	if !ok {
		return apperrors.NewNotFoundError(fmt.Sprintf("binding with id %s not found", bindingID))
	}
	b.Reserve(bookingID, at)
	return nil
}

func (t *tx) ReleaseBinding(_ context.Context, bindingID string, at time.Time) error {
	if err := t.active(); err != nil {
		return err
	}
	b, ok := t.state.bindings[bindingID]
	if !ok {
		return apperrors.NewNotFoundError(fmt.Sprintf("binding with id %s not found", bindingID))
	}
	b.Release(at)
	return nil
}

func (t *tx) DeleteBinding(_ context.Context, bindingID string) error {
	if err := t.active(); err != nil {
		return err
	}
	b, ok := t.state.bindings[bindingID]
	if !ok || b.IsReserved {
		return apperrors.NewNotFoundError(fmt.Sprintf("unreserved binding with id %s not found", bindingID))
	}
	delete(t.state.bindings, bindingID)
	return nil
}

func (t *tx) InsertBooking(_ context.Context, booking *entities.Booking) error {
	if err := t.active(); err != nil {
		return err
	}
	if _, exists := t.state.bookings[booking.ID]; exists {
		return apperrors.NewConflictError(fmt.Sprintf("booking %s already exists", booking.ID))
	}
	for _, existing := range t.state.bookings {
		if existing.BindingID == booking.BindingID {
			return apperrors.NewConflictError(fmt.Sprintf("binding %s already has a booking", booking.BindingID))
		}
	}
	v := *booking
	t.state.bookings[booking.ID] = &v
	return nil
}

func (t *tx) LockBooking(_ context.Context, bookingID string) (*entities.Booking, error) {
	if err := t.active(); err != nil {
		return nil, err
	}
	b, ok := t.state.bookings[bookingID]
	if !ok {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("booking with id %s not found", bookingID))
	}
	v := *b
	return &v, nil
}

func (t *tx) UpdateBookingStatus(_ context.Context, bookingID string, status entities.BookingStatus, at time.Time) error {
	if err := t.active(); err != nil {
		return err
	}
	b, ok := t.state.bookings[bookingID]
	if !ok {
		return apperrors.NewNotFoundError(fmt.Sprintf("booking with id %s not found", bookingID))
	}
	b.Status = status
	b.UpdatedAt = at
	return nil
}

func (t *tx) MarkBookingPaid(_ context.Context, bookingID string, at time.Time) error {
	if err := t.active(); err != nil {
		return err
	}
	b, ok := t.state.bookings[bookingID]
	if !ok {
		return apperrors.NewNotFoundError(fmt.Sprintf("booking with id %s not found", bookingID))
	}
	b.PaymentStatus = entities.PaymentStatusPaid
	b.UpdatedAt = at
	return nil
}

func (t *tx) DeleteBooking(_ context.Context, bookingID string) error {
	if err := t.active(); err != nil {
		return err
	}
	if _, ok := t.state.bookings[bookingID]; !ok {
		return apperrors.NewNotFoundError(fmt.Sprintf("booking with id %s not found", bookingID))
	}
	delete(t.state.bookings, bookingID)
	for _, b := range t.state.bindings {
		if b.BookingID != nil && *b.BookingID == bookingID {
			b.BookingID = nil
		}
	}
	return nil
}

func (t *tx) InsertPaymentIntent(_ context.Context, payment *entities.PaymentIntent) error {
	if err := t.active(); err != nil {
		return err
	}
	if _, ok := t.state.bookings[payment.BookingID]; !ok {
		return apperrors.NewConflictError(fmt.Sprintf("booking %s does not exist", payment.BookingID))
	}
	for _, p := range t.state.payments {
		if p.TransactionID == payment.TransactionID || p.BookingID == payment.BookingID {
			return apperrors.NewConflictError("payment intent already exists")
		}
	}
	t.state.payments[payment.ID] = clonePayment(payment)
	return nil
}

func (t *tx) LockPaymentIntent(_ context.Context, bookingID string) (*entities.PaymentIntent, error) {
	if err := t.active(); err != nil {
		return nil, err
	}
	p := t.state.paymentFor(bookingID)
	if p == nil {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("payment intent for booking %s not found", bookingID))
	}
	return clonePayment(p), nil
}

func (t *tx) MarkPaymentPaid(_ context.Context, paymentID string, gatewayData json.RawMessage, at time.Time) error {
	if err := t.active(); err != nil {
		return err
	}
	p, ok := t.state.payments[paymentID]
	if !ok {
		return apperrors.NewNotFoundError(fmt.Sprintf("payment intent with id %s not found", paymentID))
	}
	p.Status = entities.PaymentIntentStatusPaid
	p.GatewayData = append([]byte(nil), gatewayData...)
	p.UpdatedAt = at
	return nil
}

func (t *tx) DeletePaymentIntents(_ context.Context, bookingID string) error {
	if err := t.active(); err != nil {
		return err
	}
	for id, p := range t.state.payments {
		if p.BookingID == bookingID {
			delete(t.state.payments, id)
		}
	}
	return nil
}

func (t *tx) Commit() error {
	if err := t.active(); err != nil {
		return err
	}
	t.done = true
	t.store.state = t.state
	t.store.mu.Unlock()
	return nil
}

func (t *tx) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	t.store.mu.Unlock()
	return nil
}
