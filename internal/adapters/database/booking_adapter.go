package database

import (
	"context"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/zatekoja/slotbooking/internal/domain/entities"
	"github.com/zatekoja/slotbooking/internal/domain/repositories"
	"github.com/zatekoja/slotbooking/internal/infrastructure/clients/postgres"
	apperrors "github.com/zatekoja/slotbooking/pkg/errors"
)

// BookingAdapter implements the BookingRepository interface
type BookingAdapter struct {
	client *postgres.Client
}

// GetByID retrieves a booking by ID
func (a *BookingAdapter) GetByID(ctx context.Context, id string) (*entities.Booking, error) {
	query, args, err := dialect.From(tableBookings).
		Select(bookingColumns...).
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	booking := &entities.Booking{}
	if err := a.client.DB().GetContext(ctx, booking, query, args...); err != nil {
		return nil, storageError(fmt.Sprintf("booking with id %s not found", id), err)
	}
	return booking, nil
}

// List retrieves bookings matching filter
func (a *BookingAdapter) List(ctx context.Context, filter repositories.BookingFilter) ([]*entities.Booking, error) {
	page := filter.Page.Normalize([]string{"created_at", "updated_at", "status"}, "created_at")

	ds := dialect.From(tableBookings).Select(bookingColumns...)
	if filter.RequesterID != "" {
		ds = ds.Where(goqu.Ex{"requester_id": filter.RequesterID})
	}
	if filter.ProviderID != "" {
		ds = ds.Where(goqu.Ex{"provider_id": filter.ProviderID})
	}
	if filter.Status != "" {
		ds = ds.Where(goqu.Ex{"status": string(filter.Status)})
	}
	if filter.PaymentStatus != "" {
		ds = ds.Where(goqu.Ex{"payment_status": string(filter.PaymentStatus)})
	}

	ds = orderBy(ds, page.SortBy, page)
	query, args, err := paginate(ds, page).ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	bookings := []*entities.Booking{}
	if err := a.client.DB().SelectContext(ctx, &bookings, query, args...); err != nil {
		return nil, storageError("failed to list bookings", err)
	}
	return bookings, nil
}

// ListStaleUnpaid returns the oldest UNPAID bookings created at or before cutoff
func (a *BookingAdapter) ListStaleUnpaid(ctx context.Context, cutoff time.Time, limit int) ([]*entities.Booking, error) {
	query, args, err := dialect.From(tableBookings).
		Select(bookingColumns...).
		Where(
			goqu.C("payment_status").Eq(string(entities.PaymentStatusUnpaid)),
			goqu.C("created_at").Lte(cutoff.UTC()),
		).
		Order(goqu.C("created_at").Asc()).
		Limit(uint(limit)).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	bookings := []*entities.Booking{}
	if err := a.client.DB().SelectContext(ctx, &bookings, query, args...); err != nil {
		return nil, storageError("failed to list stale bookings", err)
	}
	return bookings, nil
}

// GetPaymentIntent retrieves the payment intent of a booking
func (a *BookingAdapter) GetPaymentIntent(ctx context.Context, bookingID string) (*entities.PaymentIntent, error) {
	return a.getPaymentIntent(ctx, goqu.Ex{"booking_id": bookingID},
		fmt.Sprintf("payment intent for booking %s not found", bookingID))
}

// GetPaymentIntentByTransaction retrieves a payment intent by its transaction id
func (a *BookingAdapter) GetPaymentIntentByTransaction(ctx context.Context, transactionID string) (*entities.PaymentIntent, error) {
	return a.getPaymentIntent(ctx, goqu.Ex{"transaction_id": transactionID},
		fmt.Sprintf("payment intent with transaction id %s not found", transactionID))
}

type statusCount struct {
	Status string `db:"status"`
	Count  int64  `db:"count"`
}

type currencyTotal struct {
	Currency string `db:"currency"`
	Count    int64  `db:"count"`
	Total    int64  `db:"total"`
}

// Summarize counts bookings by status and totals PAID intents per currency
func (a *BookingAdapter) Summarize(ctx context.Context, filter repositories.SummaryFilter) (*entities.BookingSummary, error) {
	statusDS := dialect.From(tableBookings).
		Select(goqu.C("status"), goqu.COUNT(goqu.Star()).As("count")).
		GroupBy(goqu.C("status"))
	if filter.RequesterID != "" {
		statusDS = statusDS.Where(goqu.Ex{"requester_id": filter.RequesterID})
	}
	if filter.ProviderID != "" {
		statusDS = statusDS.Where(goqu.Ex{"provider_id": filter.ProviderID})
	}
	query, args, err := statusDS.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	var statuses []statusCount
	if err := a.client.DB().SelectContext(ctx, &statuses, query, args...); err != nil {
		return nil, storageError("failed to count bookings", err)
	}

	revenueDS := dialect.From(goqu.T(tablePayments).As("p")).
		Join(goqu.T(tableBookings).As("b"), goqu.On(goqu.I("b.id").Eq(goqu.I("p.booking_id")))).
		Select(
			goqu.I("p.currency").As("currency"),
			goqu.COUNT(goqu.Star()).As("count"),
			goqu.COALESCE(goqu.SUM(goqu.I("p.amount")), 0).As("total"),
		).
		Where(goqu.I("p.status").Eq(string(entities.PaymentIntentStatusPaid))).
		GroupBy(goqu.I("p.currency"))
	if filter.RequesterID != "" {
		revenueDS = revenueDS.Where(goqu.I("b.requester_id").Eq(filter.RequesterID))
	}
	if filter.ProviderID != "" {
		revenueDS = revenueDS.Where(goqu.I("b.provider_id").Eq(filter.ProviderID))
	}
	query, args, err = revenueDS.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	var totals []currencyTotal
	if err := a.client.DB().SelectContext(ctx, &totals, query, args...); err != nil {
		return nil, storageError("failed to total payments", err)
	}

	summary := entities.NewBookingSummary()
	for _, row := range statuses {
		summary.AddStatus(entities.BookingStatus(row.Status), row.Count)
	}
	for _, row := range totals {
		summary.AddPaid(row.Currency, row.Count, row.Total)
	}
	return summary, nil
}

func (a *BookingAdapter) getPaymentIntent(ctx context.Context, where goqu.Ex, notFound string) (*entities.PaymentIntent, error) {
	query, args, err := dialect.From(tablePayments).
		Select(paymentColumns...).
		Where(where).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	payment := &entities.PaymentIntent{}
	if err := a.client.DB().GetContext(ctx, payment, query, args...); err != nil {
		return nil, storageError(notFound, err)
	}
	return payment, nil
}
