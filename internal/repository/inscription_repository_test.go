package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andesedu/cursos-api/internal/models"
	"github.com/andesedu/cursos-api/pkg/database"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestInscriptionRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewInscriptionRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM inscriptions WHERE course_id = $1 AND person_id = $2 LIMIT 1")).
		WithArgs(int64(3), int64(7)).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM inscriptions WHERE voucher_id = $1 LIMIT 1")).
		WithArgs(int64(11)).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery("INSERT INTO inscriptions").
		WithArgs(int64(3), int64(7), int64(5), int64(11), nil, false, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(42))
	mock.ExpectCommit()

	inscription := &models.Inscription{CourseID: 3, PersonID: 7, BillingID: 5, VoucherID: 11}
	require.NoError(t, repo.Create(context.Background(), inscription))
	assert.Equal(t, int64(42), inscription.ID)
	assert.False(t, inscription.Enrolled)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInscriptionRepositoryCreateDuplicatePair(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewInscriptionRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM inscriptions WHERE course_id = $1 AND person_id = $2 LIMIT 1")).
		WithArgs(int64(3), int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectRollback()

	err := repo.Create(context.Background(), &models.Inscription{CourseID: 3, PersonID: 7, BillingID: 5, VoucherID: 11})
	var dup *DuplicateInscriptionError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, int64(3), dup.CourseID)
	assert.Equal(t, int64(7), dup.PersonID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInscriptionRepositoryCreateVoucherTaken(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewInscriptionRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM inscriptions WHERE course_id = $1 AND person_id = $2 LIMIT 1")).
		WithArgs(int64(3), int64(7)).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM inscriptions WHERE voucher_id = $1 LIMIT 1")).
		WithArgs(int64(11)).
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectRollback()

	err := repo.Create(context.Background(), &models.Inscription{CourseID: 3, PersonID: 7, BillingID: 5, VoucherID: 11})
	var dup *DuplicateVoucherError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, int64(11), dup.VoucherID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInscriptionRepositoryList(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewInscriptionRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{
		"id", "course_id", "person_id", "billing_id", "voucher_id", "discount_id", "enrolled", "created_at",
		"status", "course_name", "course_short_code", "person_name", "person_email", "billing_name", "voucher_filename",
	}).AddRow(1, 3, 7, 5, 11, nil, true, now, "ENROLLED", "Go Basics", "GO-101", "Ada", "ada@example.com", "Ada Ltd", "receipt.pdf")

	mock.ExpectQuery("SELECT i.id, i.course_id").
		WithArgs(int64(3)).
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*)")).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	list, total, err := repo.List(context.Background(), models.InscriptionFilter{CourseID: 3})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 1, total)
	assert.Equal(t, models.InscriptionStatusEnrolled, list[0].DerivedStatus)
	assert.Equal(t, "GO-101", list[0].CourseShortCode)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInscriptionRepositoryApplyChanges(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewInscriptionRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE inscriptions SET billing_id = $2, discount_id = NULL, enrolled = $3 WHERE id = $1")).
		WithArgs(int64(9), int64(4), true).
		WillReturnResult(sqlmock.NewResult(0, 1))

	changes := models.InscriptionChanges{
		BillingID:  models.Some(int64(4)),
		DiscountID: models.Null[int64](),
		Enrolled:   models.Some(true),
	}
	current := &models.Inscription{ID: 9, CourseID: 3, PersonID: 10}
	require.NoError(t, repo.ApplyChanges(context.Background(), current, changes))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInscriptionRepositoryApplyChangesEmpty(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewInscriptionRepository(db)

	require.NoError(t, repo.ApplyChanges(context.Background(), &models.Inscription{ID: 9}, models.InscriptionChanges{}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInscriptionRepositoryApplyChangesMissingRow(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewInscriptionRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE inscriptions SET billing_id = $2 WHERE id = $1")).
		WithArgs(int64(9), int64(4)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.ApplyChanges(context.Background(), &models.Inscription{ID: 9}, models.InscriptionChanges{BillingID: models.Some(int64(4))})
	assert.Equal(t, sql.ErrNoRows, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInscriptionRepositoryApplyChangesCourseTaken(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewInscriptionRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE inscriptions SET course_id = $2 WHERE id = $1")).
		WithArgs(int64(9), int64(5)).
		WillReturnError(&database.UniqueViolation{Constraint: "inscriptions_course_id_person_id_key"})

	current := &models.Inscription{ID: 9, CourseID: 3, PersonID: 10}
	err := repo.ApplyChanges(context.Background(), current, models.InscriptionChanges{CourseID: models.Some(int64(5))})
	var dup *DuplicateInscriptionError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, int64(5), dup.CourseID)
	assert.Equal(t, int64(10), dup.PersonID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInscriptionRepositoryExistsByVoucher(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewInscriptionRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM inscriptions WHERE voucher_id = $1 AND id <> $2 LIMIT 1")).
		WithArgs(int64(11), int64(8)).
		WillReturnError(sql.ErrNoRows)

	exists, err := repo.ExistsByVoucher(context.Background(), 11, 8)
	require.NoError(t, err)
	assert.False(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}
