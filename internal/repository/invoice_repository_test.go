package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andesedu/cursos-api/internal/models"
)

func TestInvoiceRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewInvoiceRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM invoices WHERE inscription_id = $1 LIMIT 1")).
		WithArgs(int64(42)).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM invoices WHERE invoice_number = $1 LIMIT 1")).
		WithArgs("FAC-001").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM invoices WHERE income_number = $1 LIMIT 1")).
		WithArgs("ING-001").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery("INSERT INTO invoices").
		WithArgs(int64(42), int64(5), sqlmock.AnyArg(), false, "ING-001", "FAC-001", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectCommit()

	invoice := &models.Invoice{
		InscriptionID: 42,
		BillingID:     5,
		AmountPaid:    decimal.RequireFromString("150.00"),
		InvoiceNumber: "FAC-001",
		IncomeNumber:  "ING-001",
	}
	require.NoError(t, repo.Create(context.Background(), invoice))
	assert.Equal(t, int64(7), invoice.ID)
	assert.False(t, invoice.PaymentVerified)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInvoiceRepositoryCreateUnnumbered(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewInvoiceRepository(db)

	// empty numbers skip the uniqueness checks entirely
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM invoices WHERE inscription_id = $1 LIMIT 1")).
		WithArgs(int64(43)).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery("INSERT INTO invoices").
		WithArgs(int64(43), int64(5), sqlmock.AnyArg(), false, "", "", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(8))
	mock.ExpectCommit()

	invoice := &models.Invoice{InscriptionID: 43, BillingID: 5, AmountPaid: decimal.NewFromInt(80)}
	require.NoError(t, repo.Create(context.Background(), invoice))
	assert.Equal(t, int64(8), invoice.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInvoiceRepositoryCreateSecondInvoice(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewInvoiceRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM invoices WHERE inscription_id = $1 LIMIT 1")).
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectRollback()

	err := repo.Create(context.Background(), &models.Invoice{InscriptionID: 42, BillingID: 5})
	var dup *DuplicateInvoiceError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, int64(42), dup.InscriptionID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInvoiceRepositoryVerifyPayment(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewInvoiceRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT payment_verified FROM invoices WHERE id = $1 FOR UPDATE")).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"payment_verified"}).AddRow(false))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE invoices SET payment_verified = TRUE, updated_at = $2 WHERE id = $1")).
		WithArgs(int64(7), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.VerifyPayment(context.Background(), 7))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInvoiceRepositoryVerifyPaymentTwice(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewInvoiceRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT payment_verified FROM invoices WHERE id = $1 FOR UPDATE")).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"payment_verified"}).AddRow(true))
	mock.ExpectRollback()

	err := repo.VerifyPayment(context.Background(), 7)
	var already *AlreadyVerifiedError
	require.True(t, errors.As(err, &already))
	assert.Equal(t, int64(7), already.InvoiceID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInvoiceRepositoryDeleteVerifiedRowUntouched(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewInvoiceRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM invoices WHERE id = $1 AND payment_verified = FALSE")).
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	deleted, err := repo.Delete(context.Background(), 7)
	require.NoError(t, err)
	assert.False(t, deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInvoiceRepositoryFindByInvoiceNumber(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewInvoiceRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "inscription_id", "billing_id", "amount_paid", "payment_verified", "income_number", "invoice_number", "created_at", "updated_at"}).
		AddRow(7, 42, 5, "150.00", true, "ING-001", "FAC-001", now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, inscription_id, billing_id, amount_paid, payment_verified, income_number, invoice_number, created_at, updated_at FROM invoices WHERE invoice_number = $1")).
		WithArgs("FAC-001").
		WillReturnRows(rows)

	invoice, err := repo.FindByInvoiceNumber(context.Background(), "FAC-001")
	require.NoError(t, err)
	assert.Equal(t, int64(7), invoice.ID)
	assert.True(t, invoice.PaymentVerified)
	assert.True(t, invoice.AmountPaid.Equal(decimal.RequireFromString("150.00")))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInvoiceRepositoryUpdateNumbersPartial(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewInvoiceRepository(db)

	// only the supplied field lands in the SET clause
	mock.ExpectExec(regexp.QuoteMeta("UPDATE invoices SET invoice_number = $2, updated_at = $3 WHERE id = $1")).
		WithArgs(int64(7), "FAC-002", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	changes := models.InvoiceNumberChanges{InvoiceNumber: models.Some("FAC-002")}
	require.NoError(t, repo.UpdateNumbers(context.Background(), 7, changes))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInvoiceRepositoryUpdateNumbersMissingRow(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewInvoiceRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE invoices SET income_number = $2, updated_at = $3 WHERE id = $1")).
		WithArgs(int64(404), "ING-001", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateNumbers(context.Background(), 404, models.InvoiceNumberChanges{IncomeNumber: models.Some("ING-001")})
	assert.Equal(t, sql.ErrNoRows, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInvoiceRepositoryExistsByInvoiceNumberExcludesSelf(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewInvoiceRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM invoices WHERE invoice_number = $1 AND id <> $2 LIMIT 1")).
		WithArgs("FAC-001", int64(7)).
		WillReturnError(sql.ErrNoRows)

	exists, err := repo.ExistsByInvoiceNumber(context.Background(), "FAC-001", 7)
	require.NoError(t, err)
	assert.False(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}
