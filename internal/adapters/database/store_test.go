package database

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/slotbooking/internal/domain/entities"
	"github.com/zatekoja/slotbooking/internal/domain/repositories"
	"github.com/zatekoja/slotbooking/internal/infrastructure/clients/postgres"
	apperrors "github.com/zatekoja/slotbooking/pkg/errors"
)

func setupMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock database: %v", err)
	}
	t.Cleanup(func() { mockDB.Close() })
	return NewStore(postgres.NewClientFromDB(mockDB)), mock
}

var bindingRowColumns = []string{"id", "provider_id", "slot_id", "is_reserved", "booking_id", "created_at", "updated_at"}

func TestTx_CreateBookingSequence(t *testing.T) {
	store, mock := setupMockStore(t)
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .+ FROM "availability_bindings" WHERE .+ FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows(bindingRowColumns).
			AddRow("bind-1", "prov-1", "slot-1", false, nil, now, now))
	mock.ExpectExec(`INSERT INTO "bookings"`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE "availability_bindings" SET .*"is_reserved"=TRUE`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO "payment_intents"`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tx, err := store.BeginTx(ctx)
	require.NoError(t, err)

	binding, err := tx.LockBinding(ctx, "prov-1", "slot-1")
	require.NoError(t, err)
	assert.False(t, binding.IsReserved)
	assert.Nil(t, binding.BookingID)

	booking := &entities.Booking{
		ID: "book-1", RequesterID: "req-1", ProviderID: "prov-1", SlotID: "slot-1", BindingID: binding.ID,
		Status: entities.BookingStatusPending, PaymentStatus: entities.PaymentStatusUnpaid,
		CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, tx.InsertBooking(ctx, booking))
	require.NoError(t, tx.ReserveBinding(ctx, binding.ID, booking.ID, now))
	require.NoError(t, tx.InsertPaymentIntent(ctx, &entities.PaymentIntent{
		ID: "pay-1", BookingID: booking.ID, Amount: 5000, Currency: "usd",
		TransactionID: entities.NewTransactionID(now), Status: entities.PaymentIntentStatusPending,
		CreatedAt: now, UpdatedAt: now,
	}))
	require.NoError(t, tx.Commit())
	assert.NoError(t, tx.Rollback())

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTx_LockBindingNotFound(t *testing.T) {
	store, mock := setupMockStore(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM "availability_bindings"`).WillReturnRows(sqlmock.NewRows(bindingRowColumns))
	mock.ExpectRollback()

	tx, err := store.BeginTx(ctx)
	require.NoError(t, err)

	_, err = tx.LockBinding(ctx, "prov-1", "slot-1")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
	require.NoError(t, tx.Rollback())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTx_InsertBookingDuplicateBindingIsConflict(t *testing.T) {
	store, mock := setupMockStore(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "bookings"`).WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()

	tx, err := store.BeginTx(ctx)
	require.NoError(t, err)

	err = tx.InsertBooking(ctx, &entities.Booking{ID: "book-2", BindingID: "bind-1"})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConflict))
	require.NoError(t, tx.Rollback())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTx_ReleaseBindingMissingRow(t *testing.T) {
	store, mock := setupMockStore(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "availability_bindings" SET .*"booking_id"=NULL`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	tx, err := store.BeginTx(ctx)
	require.NoError(t, err)

	err = tx.ReleaseBinding(ctx, "bind-404", time.Now())
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
	require.NoError(t, tx.Rollback())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_BeginFailureIsTransient(t *testing.T) {
	store, mock := setupMockStore(t)
	mock.ExpectBegin().WillReturnError(assert.AnError)

	_, err := store.BeginTx(context.Background())
	assert.True(t, apperrors.IsRetryable(err))
}

func TestSlotAdapter_CreateIfAbsent(t *testing.T) {
	store, mock := setupMockStore(t)
	ctx := context.Background()
	start := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	slot := &entities.TimeSlot{ID: "slot-1", StartTime: start, EndTime: start.Add(30 * time.Minute), CreatedAt: start}

	mock.ExpectExec(`INSERT INTO "time_slots" .+ ON CONFLICT DO NOTHING`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO "time_slots" .+ ON CONFLICT DO NOTHING`).WillReturnResult(sqlmock.NewResult(0, 0))

	created, err := store.Slots().CreateIfAbsent(ctx, slot)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = store.Slots().CreateIfAbsent(ctx, slot)
	require.NoError(t, err)
	assert.False(t, created)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSlotAdapter_ListOpenExcludesReserved(t *testing.T) {
	store, mock := setupMockStore(t)
	start := time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC)
	booked := false

	mock.ExpectQuery(`SELECT .+ FROM "time_slots" AS "s" WHERE .*NOT IN \(SELECT "slot_id" FROM "availability_bindings"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "start_time", "end_time", "created_at"}).
			AddRow("slot-2", start, start.Add(30*time.Minute), start))

	slots, err := store.Slots().List(context.Background(), repositories.SlotFilter{Booked: &booked})
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, "slot-2", slots[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSlotAdapter_DeleteReferencedIsConflict(t *testing.T) {
	store, mock := setupMockStore(t)

	mock.ExpectExec(`DELETE FROM "time_slots"`).WillReturnError(&pq.Error{Code: "23503"})

	err := store.Slots().Delete(context.Background(), "slot-1")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConflict))
}

func TestBindingAdapter_BulkCreate(t *testing.T) {
	store, mock := setupMockStore(t)
	ctx := context.Background()

	mock.ExpectExec(`INSERT INTO "availability_bindings" .+ ON CONFLICT DO NOTHING`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO "availability_bindings"`).WillReturnError(&pq.Error{Code: "23503"})

	created, err := store.Bindings().BulkCreate(ctx, "prov-1", []string{"slot-1", "slot-2"})
	require.NoError(t, err)
	assert.Equal(t, 1, created)

	_, err = store.Bindings().BulkCreate(ctx, "prov-1", []string{"missing"})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))

	created, err = store.Bindings().BulkCreate(ctx, "prov-1", nil)
	require.NoError(t, err)
	assert.Zero(t, created)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBindingAdapter_ListPopulatesSlot(t *testing.T) {
	store, mock := setupMockStore(t)
	now := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	start := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	bookingID := "book-1"

	mock.ExpectQuery(`SELECT .+ FROM "availability_bindings" AS "b" INNER JOIN "time_slots" AS "t"`).
		WillReturnRows(sqlmock.NewRows(append(append([]string{}, bindingRowColumns...), "slot_start_time", "slot_end_time", "slot_created_at")).
			AddRow("bind-1", "prov-1", "slot-1", true, bookingID, now, now, start, start.Add(30*time.Minute), now))

	bindings, err := store.Bindings().List(context.Background(), repositories.BindingFilter{ProviderID: "prov-1"})
	require.NoError(t, err)
	require.Len(t, bindings, 1)

	b := bindings[0]
	assert.True(t, b.IsReserved)
	require.NotNil(t, b.BookingID)
	assert.Equal(t, bookingID, *b.BookingID)
	require.NotNil(t, b.Slot)
	assert.Equal(t, "slot-1", b.Slot.ID)
	assert.True(t, b.Slot.StartTime.Equal(start))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingAdapter_ListStaleUnpaid(t *testing.T) {
	store, mock := setupMockStore(t)
	created := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`FROM "bookings" WHERE .*"payment_status" = 'UNPAID'.* ORDER BY "created_at" ASC LIMIT 50`).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "requester_id", "requester_email", "provider_id", "slot_id", "binding_id",
			"video_call_id", "status", "payment_status", "created_at", "updated_at",
		}).AddRow("book-1", "req-1", "p@example.com", "prov-1", "slot-1", "bind-1", "call-1", "PENDING", "UNPAID", created, created))

	bookings, err := store.Bookings().ListStaleUnpaid(context.Background(), created.Add(time.Minute), 50)
	require.NoError(t, err)
	require.Len(t, bookings, 1)
	assert.Equal(t, entities.BookingStatusPending, bookings[0].Status)
	assert.Equal(t, entities.PaymentStatusUnpaid, bookings[0].PaymentStatus)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingAdapter_GetPaymentIntentByTransaction(t *testing.T) {
	store, mock := setupMockStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`FROM "payment_intents" WHERE \("transaction_id" = 'SB-1'\)`).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "booking_id", "amount", "currency", "transaction_id", "status", "gateway_data", "created_at", "updated_at",
		}).AddRow("pay-1", "book-1", int64(5000), "usd", "SB-1", "PENDING", []byte(`{}`), now, now))
	mock.ExpectQuery(`FROM "payment_intents"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	payment, err := store.Bookings().GetPaymentIntentByTransaction(context.Background(), "SB-1")
	require.NoError(t, err)
	assert.Equal(t, int64(5000), payment.Amount)
	assert.JSONEq(t, `{}`, string(payment.GatewayData))

	_, err = store.Bookings().GetPaymentIntentByTransaction(context.Background(), "SB-404")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingAdapter_Summarize(t *testing.T) {
	store, mock := setupMockStore(t)

	mock.ExpectQuery(`SELECT "status", COUNT\(\*\) AS "count" FROM "bookings" WHERE .*"provider_id" = 'prov-1'.* GROUP BY "status"`).
		WillReturnRows(sqlmock.NewRows([]string{"status", "count"}).
			AddRow("PENDING", 3).
			AddRow("COMPLETED", 2))
	mock.ExpectQuery(`COALESCE\(SUM\("p"\."amount"\), 0\) AS "total" FROM "payment_intents" AS "p" INNER JOIN "bookings" AS "b" .*"p"\."status" = 'PAID'.*"b"\."provider_id" = 'prov-1'.* GROUP BY "p"\."currency"`).
		WillReturnRows(sqlmock.NewRows([]string{"currency", "count", "total"}).
			AddRow("usd", 2, 10000))

	summary, err := store.Bookings().Summarize(context.Background(), repositories.SummaryFilter{ProviderID: "prov-1"})
	require.NoError(t, err)
	assert.Equal(t, int64(5), summary.BookingCount)
	assert.Equal(t, int64(2), summary.PaidCount)
	assert.Equal(t, int64(10000), summary.Revenue["usd"])
	assert.Equal(t, int64(3), summary.ByStatus[entities.BookingStatusPending])
	assert.Equal(t, int64(0), summary.ByStatus[entities.BookingStatusCancelled])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingAdapter_SummarizeStorageError(t *testing.T) {
	store, mock := setupMockStore(t)
	mock.ExpectQuery(`FROM "bookings"`).WillReturnError(assert.AnError)

	_, err := store.Bookings().Summarize(context.Background(), repositories.SummaryFilter{})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeTransient), "got %v", err)
}
