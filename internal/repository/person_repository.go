package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/andesedu/cursos-api/internal/models"
	"github.com/andesedu/cursos-api/pkg/database"
)

// PersonRepository manages persistence for registrant records.
type PersonRepository struct {
	db *sqlx.DB
}

// NewPersonRepository constructs a PersonRepository.
func NewPersonRepository(db *sqlx.DB) *PersonRepository {
	return &PersonRepository{db: db}
}

const personColumns = `id, identification, full_name, email, phone, country, region, city, profession, institution, created_at, updated_at`

// Unique constraint names on the persons table.
const (
	constraintPersonIdentification = "persons_identification_key"
	constraintPersonEmail          = "persons_email_key"
)

// translateUnique maps a unique-violation on the persons table into the
// typed duplicate error the conflict rules expect, or returns err unchanged.
func (r *PersonRepository) translateUnique(err error, person *models.Person) error {
	constraint, ok := database.ViolatedConstraint(err)
	if !ok {
		return err
	}
	switch constraint {
	case constraintPersonIdentification:
		return &DuplicatePersonFieldError{Field: "identification", Value: person.Identification}
	case constraintPersonEmail:
		return &DuplicatePersonFieldError{Field: "email", Value: person.Email}
	default:
		return err
	}
}

// List returns persons matching the provided filters.
func (r *PersonRepository) List(ctx context.Context, filter models.PersonFilter) ([]models.Person, int, error) {
	base := "FROM persons p"
	args := []interface{}{}
	conditions := []string{"1=1"}

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(p.full_name) LIKE $%d OR LOWER(p.email) LIKE $%d OR p.identification LIKE $%d)", len(args)+1, len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	if filter.Country != "" {
		conditions = append(conditions, fmt.Sprintf("p.country = $%d", len(args)+1))
		args = append(args, filter.Country)
	}

	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))

	allowedSorts := map[string]string{
		"full_name":      "p.full_name",
		"identification": "p.identification",
		"created_at":     "p.created_at",
	}
	column, ok := allowedSorts[filter.SortBy]
	if !ok {
		column = "p.created_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT p.id, p.identification, p.full_name, p.email, p.phone, p.country, p.region, p.city, p.profession, p.institution, p.created_at, p.updated_at
        %s ORDER BY %s %s LIMIT %d OFFSET %d`, base, column, order, size, offset)

	var persons []models.Person
	if err := r.db.SelectContext(ctx, &persons, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list persons: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count persons: %w", err)
	}
	return persons, total, nil
}

// FindByID fetches a person by ID.
func (r *PersonRepository) FindByID(ctx context.Context, id int64) (*models.Person, error) {
	query := fmt.Sprintf("SELECT %s FROM persons WHERE id = $1", personColumns)
	var person models.Person
	if err := r.db.GetContext(ctx, &person, query, id); err != nil {
		return nil, err
	}
	return &person, nil
}

// ExistsByIdentification checks identification uniqueness optionally excluding an ID.
func (r *PersonRepository) ExistsByIdentification(ctx context.Context, identification string, excludeID int64) (bool, error) {
	return r.exists(ctx, "identification", identification, excludeID)
}

// ExistsByEmail checks email uniqueness optionally excluding an ID.
func (r *PersonRepository) ExistsByEmail(ctx context.Context, email string, excludeID int64) (bool, error) {
	return r.exists(ctx, "email", email, excludeID)
}

func (r *PersonRepository) exists(ctx context.Context, field, value string, excludeID int64) (bool, error) {
	query := fmt.Sprintf("SELECT 1 FROM persons WHERE %s = $1", field)
	args := []interface{}{value}
	if excludeID > 0 {
		query += " AND id <> $2"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check person %s: %w", field, err)
	}
	return true, nil
}

// Create persists a new person returning its generated ID.
func (r *PersonRepository) Create(ctx context.Context, person *models.Person) error {
	now := time.Now().UTC()
	person.CreatedAt = now
	person.UpdatedAt = now
	const query = `INSERT INTO persons (identification, full_name, email, phone, country, region, city, profession, institution, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11) RETURNING id`
	if err := r.db.GetContext(ctx, &person.ID, query,
		person.Identification, person.FullName, person.Email, person.Phone, person.Country, person.Region,
		person.City, person.Profession, person.Institution, person.CreatedAt, person.UpdatedAt); err != nil {
		return r.translateUnique(fmt.Errorf("create person: %w", err), person)
	}
	return nil
}

// Update rewrites mutable person attributes.
func (r *PersonRepository) Update(ctx context.Context, person *models.Person) error {
	person.UpdatedAt = time.Now().UTC()
	const query = `UPDATE persons SET identification = $2, full_name = $3, email = $4, phone = $5, country = $6, region = $7, city = $8, profession = $9, institution = $10, updated_at = $11 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query,
		person.ID, person.Identification, person.FullName, person.Email, person.Phone, person.Country,
		person.Region, person.City, person.Profession, person.Institution, person.UpdatedAt)
	if err != nil {
		return r.translateUnique(fmt.Errorf("update person: %w", err), person)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update person result: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
