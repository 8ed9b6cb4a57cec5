package service

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/andesedu/cursos-api/internal/models"
	appErrors "github.com/andesedu/cursos-api/pkg/errors"
)

type courseRepository interface {
	List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error)
	FindByID(ctx context.Context, id int64) (*models.Course, error)
	ExistsByShortCode(ctx context.Context, code string, excludeID int64) (bool, error)
	Create(ctx context.Context, course *models.Course) error
	Update(ctx context.Context, course *models.Course) error
	Delete(ctx context.Context, id int64) error
}

type courseInscriptionChecker interface {
	ExistsForCourse(ctx context.Context, courseID int64) (bool, error)
}

// CreateCourseRequest represents payload for creating courses.
type CreateCourseRequest struct {
	Name      string                `json:"name" validate:"required,min=3,max=200"`
	ShortCode string                `json:"short_code" validate:"required,min=2,max=30"`
	Modality  models.CourseModality `json:"modality" validate:"required,oneof=ONSITE VIRTUAL HYBRID"`
	Price     decimal.Decimal       `json:"price"`
	StartDate time.Time             `json:"start_date" validate:"required"`
	EndDate   time.Time             `json:"end_date" validate:"required"`
}

// UpdateCourseRequest represents payload for updating courses.
type UpdateCourseRequest = CreateCourseRequest

// CourseService orchestrates course operations.
type CourseService struct {
	repo         courseRepository
	inscriptions courseInscriptionChecker
	guard        *ConflictGuard
	validator    *validator.Validate
	logger       *zap.Logger
}

// NewCourseService constructs a CourseService.
func NewCourseService(repo courseRepository, inscriptions courseInscriptionChecker, guard *ConflictGuard, validate *validator.Validate, logger *zap.Logger) *CourseService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseService{repo: repo, inscriptions: inscriptions, guard: guard, validator: validate, logger: logger}
}

// List returns courses plus pagination data.
func (s *CourseService) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, *models.Pagination, error) {
	courses, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internalf(err, "failed to list courses")
	}
	return courses, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// Get returns a course by id.
func (s *CourseService) Get(ctx context.Context, id int64) (*models.Course, error) {
	course, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, classifyLookup(err, "course", id)
	}
	return course, nil
}

// Create registers a new course.
func (s *CourseService) Create(ctx context.Context, req CreateCourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	if !req.StartDate.Before(req.EndDate) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "start date must be before end date")
	}
	if req.Price.IsNegative() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "price must not be negative")
	}
	code := strings.TrimSpace(req.ShortCode)
	if err := s.guard.CheckCourseShortCode(ctx, code, 0); err != nil {
		return nil, err
	}

	course := &models.Course{
		Name:      strings.TrimSpace(req.Name),
		ShortCode: code,
		Modality:  req.Modality,
		Price:     req.Price,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
	}
	if err := s.repo.Create(ctx, course); err != nil {
		return nil, appErrors.Internalf(err, "failed to create course")
	}
	return course, nil
}

// Update rewrites an existing course.
func (s *CourseService) Update(ctx context.Context, id int64, req UpdateCourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	if !req.StartDate.Before(req.EndDate) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "start date must be before end date")
	}
	if req.Price.IsNegative() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "price must not be negative")
	}

	course, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, classifyLookup(err, "course", id)
	}
	code := strings.TrimSpace(req.ShortCode)
	if err := s.guard.CheckCourseShortCode(ctx, code, id); err != nil {
		return nil, err
	}

	course.Name = strings.TrimSpace(req.Name)
	course.ShortCode = code
	course.Modality = req.Modality
	course.Price = req.Price
	course.StartDate = req.StartDate
	course.EndDate = req.EndDate

	if err := s.repo.Update(ctx, course); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.NotFoundf("course", id)
		}
		return nil, appErrors.Internalf(err, "failed to update course")
	}
	return course, nil
}

// Delete removes a course without inscriptions. A course that any
// inscription references is kept to preserve enrollment history.
func (s *CourseService) Delete(ctx context.Context, id int64) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return classifyLookup(err, "course", id)
	}
	referenced, err := s.inscriptions.ExistsForCourse(ctx, id)
	if err != nil {
		return appErrors.Internalf(err, "failed to check course inscriptions")
	}
	if referenced {
		return appErrors.Conflictf("course %d has inscriptions and cannot be deleted", id)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.NotFoundf("course", id)
		}
		return appErrors.Internalf(err, "failed to delete course")
	}
	return nil
}
