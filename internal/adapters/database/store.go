package database

import (
	"context"
	"database/sql"
	"errors"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/lib/pq"
	"github.com/zatekoja/slotbooking/internal/domain/repositories"
	"github.com/zatekoja/slotbooking/internal/infrastructure/clients/postgres"
	apperrors "github.com/zatekoja/slotbooking/pkg/errors"
)

const (
	tableSlots    = "time_slots"
	tableBindings = "availability_bindings"
	tableBookings = "bookings"
	tablePayments = "payment_intents"

	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
	pqInvalidTextRep      = "22P02"
)

var dialect = goqu.Dialect("postgres")

var (
	slotColumns    = []interface{}{"id", "start_time", "end_time", "created_at"}
	bindingColumns = []interface{}{"id", "provider_id", "slot_id", "is_reserved", "booking_id", "created_at", "updated_at"}
	bookingColumns = []interface{}{
		"id", "requester_id", "requester_email", "provider_id", "slot_id", "binding_id",
		"video_call_id", "status", "payment_status", "created_at", "updated_at",
	}
	paymentColumns = []interface{}{
		"id", "booking_id", "amount", "currency", "transaction_id", "status", "gateway_data",
		"created_at", "updated_at",
	}
)

// Store implements repositories.Store on PostgreSQL
type Store struct {
	client   *postgres.Client
	slots    *SlotAdapter
	bindings *BindingAdapter
	bookings *BookingAdapter
}

// NewStore creates a new PostgreSQL-backed store
func NewStore(client *postgres.Client) *Store {
	return &Store{
		client:   client,
		slots:    &SlotAdapter{client: client},
		bindings: &BindingAdapter{client: client},
		bookings: &BookingAdapter{client: client},
	}
}

var _ repositories.Store = (*Store)(nil)

// Slots returns the slot repository
func (s *Store) Slots() repositories.SlotRepository { return s.slots }

// Bindings returns the binding repository
func (s *Store) Bindings() repositories.BindingRepository { return s.bindings }

// Bookings returns the booking repository
func (s *Store) Bookings() repositories.BookingRepository { return s.bookings }

// BeginTx opens a read-committed transaction
func (s *Store) BeginTx(ctx context.Context) (repositories.Tx, error) {
	tx, err := s.client.BeginTx(ctx)
	if err != nil {
		return nil, apperrors.NewTransientError("failed to begin transaction", err)
	}
	return &Tx{tx: tx}, nil
}

// storageError classifies a driver error into the application taxonomy
func storageError(message string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return apperrors.NewNotFoundError(message)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqUniqueViolation, pqForeignKeyViolation:
			return &apperrors.AppError{Type: apperrors.ErrorTypeConflict, Message: message, Err: err}
		case pqInvalidTextRep:
			return &apperrors.AppError{Type: apperrors.ErrorTypeValidation, Message: message, Err: err}
		}
	}
	return apperrors.NewTransientError(message, err)
}

func hasPQCode(err error, code string) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == code
}

// expectAffected turns a zero-row write into NotFound
func expectAffected(result sql.Result, notFound string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewTransientError("failed to get rows affected", err)
	}
	if n == 0 {
		return apperrors.NewNotFoundError(notFound)
	}
	return nil
}

func orderBy(ds *goqu.SelectDataset, column string, page repositories.Page) *goqu.SelectDataset {
	if page.Ascending() {
		return ds.Order(goqu.I(column).Asc())
	}
	return ds.Order(goqu.I(column).Desc())
}

func paginate(ds *goqu.SelectDataset, page repositories.Page) *goqu.SelectDataset {
	return ds.Limit(uint(page.Limit)).Offset(uint(page.Offset()))
}
