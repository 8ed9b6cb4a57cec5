package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andesedu/cursos-api/internal/models"
)

func TestCourseRepositoryListWithModalityFilter(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "name", "short_code", "modality", "price", "start_date", "end_date", "created_at", "updated_at"}).
		AddRow(1, "Go Basics", "GO-101", "VIRTUAL", "250.00", now, now.Add(30*24*time.Hour), now, now)

	mock.ExpectQuery("SELECT c.id, c.name").
		WithArgs(models.CourseModalityVirtual).
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM courses c WHERE 1=1 AND c.modality = $1")).
		WithArgs(models.CourseModalityVirtual).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	courses, total, err := repo.List(context.Background(), models.CourseFilter{Modality: models.CourseModalityVirtual})
	require.NoError(t, err)
	require.Len(t, courses, 1)
	assert.Equal(t, 1, total)
	assert.True(t, courses[0].Price.Equal(decimal.RequireFromString("250.00")))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryCreateReturnsID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectQuery("INSERT INTO courses").
		WithArgs("Go Basics", "GO-101", models.CourseModalityVirtual, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(9))

	course := &models.Course{
		Name:      "Go Basics",
		ShortCode: "GO-101",
		Modality:  models.CourseModalityVirtual,
		Price:     decimal.RequireFromString("250.00"),
		StartDate: time.Now(),
		EndDate:   time.Now().Add(30 * 24 * time.Hour),
	}
	require.NoError(t, repo.Create(context.Background(), course))
	assert.Equal(t, int64(9), course.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryExistsByShortCode(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM courses WHERE short_code = $1 AND id <> $2 LIMIT 1")).
		WithArgs("GO-101", int64(9)).
		WillReturnError(sql.ErrNoRows)

	exists, err := repo.ExistsByShortCode(context.Background(), "GO-101", 9)
	require.NoError(t, err)
	assert.False(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}
