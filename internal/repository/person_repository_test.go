package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andesedu/cursos-api/internal/models"
	"github.com/andesedu/cursos-api/pkg/database"
)

func TestPersonRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPersonRepository(db)

	mock.ExpectQuery("INSERT INTO persons").
		WithArgs("ID-0010", "Ada", "ada@example.com", "", "", "", "", "", "", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(10))

	person := &models.Person{Identification: "ID-0010", FullName: "Ada", Email: "ada@example.com"}
	require.NoError(t, repo.Create(context.Background(), person))
	assert.Equal(t, int64(10), person.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPersonRepositoryCreateDuplicateEmail(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPersonRepository(db)

	mock.ExpectQuery("INSERT INTO persons").
		WillReturnError(&database.UniqueViolation{Constraint: "persons_email_key"})

	err := repo.Create(context.Background(), &models.Person{
		Identification: "ID-0011", FullName: "Ada Twin", Email: "ada@example.com",
	})
	var dup *DuplicatePersonFieldError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, "email", dup.Field)
	assert.Equal(t, "ada@example.com", dup.Value)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPersonRepositoryUpdateDuplicateIdentification(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPersonRepository(db)

	mock.ExpectExec("UPDATE persons SET").
		WillReturnError(&database.UniqueViolation{Constraint: "persons_identification_key"})

	err := repo.Update(context.Background(), &models.Person{
		ID: 10, Identification: "ID-0099", FullName: "Ada", Email: "ada@example.com",
	})
	var dup *DuplicatePersonFieldError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, "identification", dup.Field)
	assert.Equal(t, "ID-0099", dup.Value)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPersonRepositoryUpdateMissingRow(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPersonRepository(db)

	mock.ExpectExec("UPDATE persons SET").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), &models.Person{
		ID: 404, Identification: "ID-0404", FullName: "Ghost", Email: "ghost@example.com",
	})
	assert.Equal(t, sql.ErrNoRows, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPersonRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPersonRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "identification", "full_name", "email", "phone", "country", "region", "city", "profession", "institution", "created_at", "updated_at"}).
		AddRow(10, "ID-0010", "Ada", "ada@example.com", "", "", "", "", "", "", now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, identification, full_name, email, phone, country, region, city, profession, institution, created_at, updated_at FROM persons WHERE id = $1")).
		WithArgs(int64(10)).
		WillReturnRows(rows)

	person, err := repo.FindByID(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, "Ada", person.FullName)
	assert.NoError(t, mock.ExpectationsWereMet())
}
