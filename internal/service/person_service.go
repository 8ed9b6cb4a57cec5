package service

import (
	"context"
	"database/sql"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/andesedu/cursos-api/internal/models"
	appErrors "github.com/andesedu/cursos-api/pkg/errors"
)

type personRepository interface {
	List(ctx context.Context, filter models.PersonFilter) ([]models.Person, int, error)
	FindByID(ctx context.Context, id int64) (*models.Person, error)
	Create(ctx context.Context, person *models.Person) error
	Update(ctx context.Context, person *models.Person) error
}

// CreatePersonRequest represents payload for registering persons.
type CreatePersonRequest struct {
	Identification string `json:"identification" validate:"required,min=5,max=30"`
	FullName       string `json:"full_name" validate:"required,min=3,max=200"`
	Email          string `json:"email" validate:"required,email"`
	Phone          string `json:"phone" validate:"omitempty,max=30"`
	Country        string `json:"country" validate:"omitempty,max=80"`
	Region         string `json:"region" validate:"omitempty,max=80"`
	City           string `json:"city" validate:"omitempty,max=80"`
	Profession     string `json:"profession" validate:"omitempty,max=120"`
	Institution    string `json:"institution" validate:"omitempty,max=200"`
}

// UpdatePersonRequest represents payload for updating persons.
type UpdatePersonRequest = CreatePersonRequest

// PersonService orchestrates person operations.
type PersonService struct {
	repo      personRepository
	guard     *ConflictGuard
	validator *validator.Validate
	logger    *zap.Logger
}

// NewPersonService constructs a PersonService.
func NewPersonService(repo personRepository, guard *ConflictGuard, validate *validator.Validate, logger *zap.Logger) *PersonService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PersonService{repo: repo, guard: guard, validator: validate, logger: logger}
}

// List returns persons plus pagination data.
func (s *PersonService) List(ctx context.Context, filter models.PersonFilter) ([]models.Person, *models.Pagination, error) {
	persons, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internalf(err, "failed to list persons")
	}
	return persons, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// Get returns a person by id.
func (s *PersonService) Get(ctx context.Context, id int64) (*models.Person, error) {
	person, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, classifyLookup(err, "person", id)
	}
	return person, nil
}

// Create registers a new person.
func (s *PersonService) Create(ctx context.Context, req CreatePersonRequest) (*models.Person, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid person payload")
	}
	identification := strings.TrimSpace(req.Identification)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if err := s.guard.CheckPersonIdentity(ctx, identification, email, 0); err != nil {
		return nil, err
	}

	person := &models.Person{
		Identification: identification,
		FullName:       strings.TrimSpace(req.FullName),
		Email:          email,
		Phone:          strings.TrimSpace(req.Phone),
		Country:        strings.TrimSpace(req.Country),
		Region:         strings.TrimSpace(req.Region),
		City:           strings.TrimSpace(req.City),
		Profession:     strings.TrimSpace(req.Profession),
		Institution:    strings.TrimSpace(req.Institution),
	}
	if err := s.repo.Create(ctx, person); err != nil {
		if translated := s.guard.TranslateWrite(err); appErrors.IsConflict(translated) {
			return nil, appErrors.FromError(translated)
		}
		return nil, appErrors.Internalf(err, "failed to create person")
	}
	return person, nil
}

// Update rewrites an existing person. The record being updated is excluded
// from the uniqueness checks so resubmitting unchanged data never conflicts.
func (s *PersonService) Update(ctx context.Context, id int64, req UpdatePersonRequest) (*models.Person, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid person payload")
	}

	person, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, classifyLookup(err, "person", id)
	}
	identification := strings.TrimSpace(req.Identification)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if err := s.guard.CheckPersonIdentity(ctx, identification, email, id); err != nil {
		return nil, err
	}

	person.Identification = identification
	person.FullName = strings.TrimSpace(req.FullName)
	person.Email = email
	person.Phone = strings.TrimSpace(req.Phone)
	person.Country = strings.TrimSpace(req.Country)
	person.Region = strings.TrimSpace(req.Region)
	person.City = strings.TrimSpace(req.City)
	person.Profession = strings.TrimSpace(req.Profession)
	person.Institution = strings.TrimSpace(req.Institution)

	if err := s.repo.Update(ctx, person); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.NotFoundf("person", id)
		}
		if translated := s.guard.TranslateWrite(err); appErrors.IsConflict(translated) {
			return nil, appErrors.FromError(translated)
		}
		return nil, appErrors.Internalf(err, "failed to update person")
	}
	return person, nil
}
