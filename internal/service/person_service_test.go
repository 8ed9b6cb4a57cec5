package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/andesedu/cursos-api/internal/models"
	"github.com/andesedu/cursos-api/internal/repository"
	appErrors "github.com/andesedu/cursos-api/pkg/errors"
)

type mockPersonRepo struct {
	persons map[int64]models.Person
	nextID  int64

	// failCreate and failUpdate force the write to fail after the guard's
	// pre-checks passed, the way a concurrent writer hitting the unique
	// index would.
	failCreate error
	failUpdate error
}

func (m *mockPersonRepo) List(ctx context.Context, filter models.PersonFilter) ([]models.Person, int, error) {
	var out []models.Person
	for _, p := range m.persons {
		out = append(out, p)
	}
	return out, len(out), nil
}

func (m *mockPersonRepo) FindByID(ctx context.Context, id int64) (*models.Person, error) {
	if p, ok := m.persons[id]; ok {
		return &p, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockPersonRepo) Create(ctx context.Context, person *models.Person) error {
	if m.failCreate != nil {
		return m.failCreate
	}
	if m.persons == nil {
		m.persons = make(map[int64]models.Person)
	}
	m.nextID++
	person.ID = m.nextID
	m.persons[person.ID] = *person
	return nil
}

func (m *mockPersonRepo) Update(ctx context.Context, person *models.Person) error {
	if m.failUpdate != nil {
		return m.failUpdate
	}
	if _, ok := m.persons[person.ID]; !ok {
		return sql.ErrNoRows
	}
	m.persons[person.ID] = *person
	return nil
}

func (m *mockPersonRepo) ExistsByIdentification(ctx context.Context, identification string, excludeID int64) (bool, error) {
	for id, p := range m.persons {
		if p.Identification == identification && id != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockPersonRepo) ExistsByEmail(ctx context.Context, email string, excludeID int64) (bool, error) {
	for id, p := range m.persons {
		if p.Email == email && id != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func newPersonFixture() (*PersonService, *mockPersonRepo) {
	repo := &mockPersonRepo{}
	guard := NewConflictGuard(nil, nil, repo, nil)
	return NewPersonService(repo, guard, nil, zap.NewNop()), repo
}

func TestPersonCreateNormalizes(t *testing.T) {
	svc, _ := newPersonFixture()

	person, err := svc.Create(context.Background(), CreatePersonRequest{
		Identification: " ID-0010 ",
		FullName:       "Ada Lovelace",
		Email:          "Ada@Example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "ID-0010", person.Identification)
	assert.Equal(t, "ada@example.com", person.Email)
}

func TestPersonCreateDuplicateEmailUpFront(t *testing.T) {
	svc, _ := newPersonFixture()

	_, err := svc.Create(context.Background(), CreatePersonRequest{
		Identification: "ID-0010", FullName: "Ada Lovelace", Email: "ada@example.com",
	})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), CreatePersonRequest{
		Identification: "ID-0011", FullName: "Ada Twin", Email: "ada@example.com",
	})
	require.Error(t, err)
	assert.True(t, appErrors.IsConflict(err))
	assert.Contains(t, err.Error(), "ada@example.com")
}

func TestPersonCreateUniqueIndexRace(t *testing.T) {
	svc, repo := newPersonFixture()
	repo.failCreate = &repository.DuplicatePersonFieldError{Field: "email", Value: "ada@example.com"}

	_, err := svc.Create(context.Background(), CreatePersonRequest{
		Identification: "ID-0010", FullName: "Ada Lovelace", Email: "ada@example.com",
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "already registered")
}

func TestPersonUpdateUniqueIndexRace(t *testing.T) {
	svc, repo := newPersonFixture()
	created, err := svc.Create(context.Background(), CreatePersonRequest{
		Identification: "ID-0010", FullName: "Ada Lovelace", Email: "ada@example.com",
	})
	require.NoError(t, err)

	repo.failUpdate = &repository.DuplicatePersonFieldError{Field: "identification", Value: "ID-0099"}
	_, err = svc.Update(context.Background(), created.ID, UpdatePersonRequest{
		Identification: "ID-0099", FullName: "Ada Lovelace", Email: "ada@example.com",
	})
	require.Error(t, err)
	assert.True(t, appErrors.IsConflict(err))
	assert.Contains(t, err.Error(), "ID-0099")
}

func TestPersonUpdateConcurrentlyDeleted(t *testing.T) {
	svc, repo := newPersonFixture()
	created, err := svc.Create(context.Background(), CreatePersonRequest{
		Identification: "ID-0010", FullName: "Ada Lovelace", Email: "ada@example.com",
	})
	require.NoError(t, err)

	repo.failUpdate = sql.ErrNoRows
	_, err = svc.Update(context.Background(), created.ID, UpdatePersonRequest{
		Identification: "ID-0010", FullName: "Ada Lovelace", Email: "ada@example.com",
	})
	require.Error(t, err)
	assert.True(t, appErrors.IsNotFound(err))
}
