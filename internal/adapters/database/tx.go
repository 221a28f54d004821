package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/jmoiron/sqlx"
	"github.com/zatekoja/slotbooking/internal/domain/entities"
	"github.com/zatekoja/slotbooking/internal/domain/repositories"
	apperrors "github.com/zatekoja/slotbooking/pkg/errors"
)

// Tx implements repositories.Tx on a PostgreSQL transaction. Lock* methods
// issue SELECT ... FOR UPDATE so the row stays locked until Commit or Rollback.
type Tx struct {
	tx *sqlx.Tx
}

var _ repositories.Tx = (*Tx)(nil)

// LockBinding loads and locks the provider's binding for a slot
func (t *Tx) LockBinding(ctx context.Context, providerID, slotID string) (*entities.AvailabilityBinding, error) {
	query, args, err := dialect.From(tableBindings).
		Select(bindingColumns...).
		Where(goqu.Ex{"provider_id": providerID, "slot_id": slotID}).
		ForUpdate(exp.Wait).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	binding := &entities.AvailabilityBinding{}
	if err := t.tx.GetContext(ctx, binding, query, args...); err != nil {
		return nil, storageError(fmt.Sprintf("provider %s has no binding for slot %s", providerID, slotID), err)
	}
	return binding, nil
}

// ReserveBinding marks a binding as held by bookingID
func (t *Tx) ReserveBinding(ctx context.Context, bindingID, bookingID string, at time.Time) error {
	query, args, err := dialect.Update(tableBindings).
		Set(goqu.Record{"is_reserved": true, "booking_id": bookingID, "updated_at": at}).
		Where(goqu.Ex{"id": bindingID}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build update query", err)
	}

	result, err := t.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return storageError("failed to reserve binding", err)
	}
	return expectAffected(result, fmt.Sprintf("binding with id %s not found", bindingID))
}

// ReleaseBinding returns a binding to the unbooked pool
func (t *Tx) ReleaseBinding(ctx context.Context, bindingID string, at time.Time) error {
	query, args, err := dialect.Update(tableBindings).
		Set(goqu.Record{"is_reserved": false, "booking_id": nil, "updated_at": at}).
		Where(goqu.Ex{"id": bindingID}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build update query", err)
	}

	result, err := t.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return storageError("failed to release binding", err)
	}
	return expectAffected(result, fmt.Sprintf("binding with id %s not found", bindingID))
}

// DeleteBinding removes a binding that is not reserved
func (t *Tx) DeleteBinding(ctx context.Context, bindingID string) error {
	query, args, err := dialect.Delete(tableBindings).
		Where(goqu.Ex{"id": bindingID, "is_reserved": false}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build delete query", err)
	}

	result, err := t.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return storageError("failed to delete binding", err)
	}
	return expectAffected(result, fmt.Sprintf("unreserved binding with id %s not found", bindingID))
}

// InsertBooking persists a new booking. A second booking for the same binding
// violates bookings_binding_key and surfaces as Conflict.
func (t *Tx) InsertBooking(ctx context.Context, booking *entities.Booking) error {
	query, args, err := dialect.Insert(tableBookings).Rows(goqu.Record{
		"id":              booking.ID,
		"requester_id":    booking.RequesterID,
		"requester_email": booking.RequesterEmail,
		"provider_id":     booking.ProviderID,
		"slot_id":         booking.SlotID,
		"binding_id":      booking.BindingID,
		"video_call_id":   booking.VideoCallID,
		"status":          string(booking.Status),
		"payment_status":  string(booking.PaymentStatus),
		"created_at":      booking.CreatedAt,
		"updated_at":      booking.UpdatedAt,
	}).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	if _, err := t.tx.ExecContext(ctx, query, args...); err != nil {
		return storageError("failed to create booking", err)
	}
	return nil
}

// LockBooking loads and locks a booking
func (t *Tx) LockBooking(ctx context.Context, bookingID string) (*entities.Booking, error) {
	query, args, err := dialect.From(tableBookings).
		Select(bookingColumns...).
		Where(goqu.Ex{"id": bookingID}).
		ForUpdate(exp.Wait).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	booking := &entities.Booking{}
	if err := t.tx.GetContext(ctx, booking, query, args...); err != nil {
		return nil, storageError(fmt.Sprintf("booking with id %s not found", bookingID), err)
	}
	return booking, nil
}

// UpdateBookingStatus sets the lifecycle status of a booking
func (t *Tx) UpdateBookingStatus(ctx context.Context, bookingID string, status entities.BookingStatus, at time.Time) error {
	return t.updateBooking(ctx, bookingID, goqu.Record{"status": string(status), "updated_at": at})
}

// MarkBookingPaid sets payment_status to PAID
func (t *Tx) MarkBookingPaid(ctx context.Context, bookingID string, at time.Time) error {
	return t.updateBooking(ctx, bookingID, goqu.Record{"payment_status": string(entities.PaymentStatusPaid), "updated_at": at})
}

func (t *Tx) updateBooking(ctx context.Context, bookingID string, record goqu.Record) error {
	query, args, err := dialect.Update(tableBookings).
		Set(record).
		Where(goqu.Ex{"id": bookingID}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build update query", err)
	}

	result, err := t.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return storageError("failed to update booking", err)
	}
	return expectAffected(result, fmt.Sprintf("booking with id %s not found", bookingID))
}

// DeleteBooking removes a booking
func (t *Tx) DeleteBooking(ctx context.Context, bookingID string) error {
	query, args, err := dialect.Delete(tableBookings).
		Where(goqu.Ex{"id": bookingID}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build delete query", err)
	}

	result, err := t.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return storageError("failed to delete booking", err)
	}
	return expectAffected(result, fmt.Sprintf("booking with id %s not found", bookingID))
}

// InsertPaymentIntent persists a new payment intent
func (t *Tx) InsertPaymentIntent(ctx context.Context, payment *entities.PaymentIntent) error {
	query, args, err := dialect.Insert(tablePayments).Rows(goqu.Record{
		"id":             payment.ID,
		"booking_id":     payment.BookingID,
		"amount":         payment.Amount,
		"currency":       payment.Currency,
		"transaction_id": payment.TransactionID,
		"status":         string(payment.Status),
		"gateway_data":   gatewayJSON(payment.GatewayData),
		"created_at":     payment.CreatedAt,
		"updated_at":     payment.UpdatedAt,
	}).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	if _, err := t.tx.ExecContext(ctx, query, args...); err != nil {
		return storageError("failed to create payment intent", err)
	}
	return nil
}

// LockPaymentIntent loads and locks the intent belonging to a booking
func (t *Tx) LockPaymentIntent(ctx context.Context, bookingID string) (*entities.PaymentIntent, error) {
	query, args, err := dialect.From(tablePayments).
		Select(paymentColumns...).
		Where(goqu.Ex{"booking_id": bookingID}).
		ForUpdate(exp.Wait).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	payment := &entities.PaymentIntent{}
	if err := t.tx.GetContext(ctx, payment, query, args...); err != nil {
		return nil, storageError(fmt.Sprintf("payment intent for booking %s not found", bookingID), err)
	}
	return payment, nil
}

// MarkPaymentPaid sets status PAID and stores the gateway metadata
func (t *Tx) MarkPaymentPaid(ctx context.Context, paymentID string, gatewayData json.RawMessage, at time.Time) error {
	query, args, err := dialect.Update(tablePayments).
		Set(goqu.Record{
			"status":       string(entities.PaymentIntentStatusPaid),
			"gateway_data": gatewayJSON(gatewayData),
			"updated_at":   at,
		}).
		Where(goqu.Ex{"id": paymentID}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build update query", err)
	}

	result, err := t.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return storageError("failed to mark payment paid", err)
	}
	return expectAffected(result, fmt.Sprintf("payment intent with id %s not found", paymentID))
}

// DeletePaymentIntents removes every intent belonging to a booking
func (t *Tx) DeletePaymentIntents(ctx context.Context, bookingID string) error {
	query, args, err := dialect.Delete(tablePayments).
		Where(goqu.Ex{"booking_id": bookingID}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build delete query", err)
	}

	if _, err := t.tx.ExecContext(ctx, query, args...); err != nil {
		return storageError("failed to delete payment intents", err)
	}
	return nil
}

// Commit commits the transaction
func (t *Tx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return apperrors.NewTransientError("failed to commit transaction", err)
	}
	return nil
}

// Rollback aborts the transaction. Calling it after Commit is a no-op.
func (t *Tx) Rollback() error {
	if err := t.tx.Rollback(); err != nil && err != sql.ErrTxDone {
		return apperrors.NewTransientError("failed to roll back transaction", err)
	}
	return nil
}

// gatewayJSON renders metadata as a JSON text literal; jsonb columns accept it directly
func gatewayJSON(data json.RawMessage) string {
	if len(data) == 0 {
		return "{}"
	}
	return string(data)
}
