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

// InscriptionRepository handles persistence of inscriptions.
type InscriptionRepository struct {
	db *sqlx.DB
}

// NewInscriptionRepository constructs the repository.
func NewInscriptionRepository(db *sqlx.DB) *InscriptionRepository {
	return &InscriptionRepository{db: db}
}

// Unique constraint names on the inscriptions table, the storage-level
// backstop behind the pre-emptive duplicate checks.
const (
	constraintInscriptionPair    = "inscriptions_course_id_person_id_key"
	constraintInscriptionVoucher = "inscriptions_voucher_id_key"
)

func (r *InscriptionRepository) translateUnique(err error, inscription *models.Inscription) error {
	constraint, ok := database.ViolatedConstraint(err)
	if !ok {
		return err
	}
	switch constraint {
	case constraintInscriptionPair:
		return &DuplicateInscriptionError{CourseID: inscription.CourseID, PersonID: inscription.PersonID}
	case constraintInscriptionVoucher:
		return &DuplicateVoucherError{VoucherID: inscription.VoucherID}
	default:
		return err
	}
}

const inscriptionDetailColumns = `i.id, i.course_id, i.person_id, i.billing_id, i.voucher_id, i.discount_id, i.enrolled, i.created_at,
        CASE WHEN i.enrolled THEN 'ENROLLED' ELSE 'PENDING' END AS status,
        c.name AS course_name, c.short_code AS course_short_code,
        p.full_name AS person_name, p.email AS person_email,
        b.legal_name AS billing_name, v.original_filename AS voucher_filename`

const inscriptionDetailJoins = `FROM inscriptions i
LEFT JOIN courses c ON c.id = i.course_id
LEFT JOIN persons p ON p.id = i.person_id
LEFT JOIN billing_profiles b ON b.id = i.billing_id
LEFT JOIN vouchers v ON v.id = i.voucher_id`

// List returns inscriptions filtered by the provided criteria.
func (r *InscriptionRepository) List(ctx context.Context, filter models.InscriptionFilter) ([]models.InscriptionDetail, int, error) {
	var conditions []string
	var args []interface{}

	if filter.CourseID > 0 {
		conditions = append(conditions, fmt.Sprintf("i.course_id = $%d", len(args)+1))
		args = append(args, filter.CourseID)
	}
	if filter.PersonID > 0 {
		conditions = append(conditions, fmt.Sprintf("i.person_id = $%d", len(args)+1))
		args = append(args, filter.PersonID)
	}
	if filter.Enrolled != nil {
		conditions = append(conditions, fmt.Sprintf("i.enrolled = $%d", len(args)+1))
		args = append(args, *filter.Enrolled)
	}
	if filter.From != nil {
		conditions = append(conditions, fmt.Sprintf("i.created_at >= $%d", len(args)+1))
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		conditions = append(conditions, fmt.Sprintf("i.created_at <= $%d", len(args)+1))
		args = append(args, *filter.To)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"created_at":  "i.created_at",
		"person_name": "p.full_name",
		"course_name": "c.name",
	}
	orderBy := allowedSorts[filter.SortBy]
	if orderBy == "" {
		orderBy = "i.created_at"
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

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d",
		inscriptionDetailColumns, inscriptionDetailJoins+clause, orderBy, order, size, offset)

	var inscriptions []models.InscriptionDetail
	if err := r.db.SelectContext(ctx, &inscriptions, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list inscriptions: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", inscriptionDetailJoins+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count inscriptions: %w", err)
	}
	return inscriptions, total, nil
}

// FindByID returns an inscription by its ID.
func (r *InscriptionRepository) FindByID(ctx context.Context, id int64) (*models.Inscription, error) {
	const query = `SELECT id, course_id, person_id, billing_id, voucher_id, discount_id, enrolled, created_at FROM inscriptions WHERE id = $1`
	var inscription models.Inscription
	if err := r.db.GetContext(ctx, &inscription, query, id); err != nil {
		return nil, err
	}
	return &inscription, nil
}

// FindDetailByID returns an inscription with contextual info.
func (r *InscriptionRepository) FindDetailByID(ctx context.Context, id int64) (*models.InscriptionDetail, error) {
	query := fmt.Sprintf("SELECT %s %s WHERE i.id = $1", inscriptionDetailColumns, inscriptionDetailJoins)
	var detail models.InscriptionDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// ExistsByCourseAndPerson checks whether the (course, person) pair already
// has an inscription, optionally excluding one record.
func (r *InscriptionRepository) ExistsByCourseAndPerson(ctx context.Context, courseID, personID, excludeID int64) (bool, error) {
	query := "SELECT 1 FROM inscriptions WHERE course_id = $1 AND person_id = $2"
	args := []interface{}{courseID, personID}
	if excludeID > 0 {
		query += fmt.Sprintf(" AND id <> $%d", len(args)+1)
		args = append(args, excludeID)
	}
	return r.existsQuery(ctx, query+" LIMIT 1", args, "check course-person inscription")
}

// ExistsByVoucher checks whether another inscription already references the
// voucher. Voucher exclusivity is a business rule, not a database constraint
// alone.
func (r *InscriptionRepository) ExistsByVoucher(ctx context.Context, voucherID, excludeID int64) (bool, error) {
	query := "SELECT 1 FROM inscriptions WHERE voucher_id = $1"
	args := []interface{}{voucherID}
	if excludeID > 0 {
		query += fmt.Sprintf(" AND id <> $%d", len(args)+1)
		args = append(args, excludeID)
	}
	return r.existsQuery(ctx, query+" LIMIT 1", args, "check voucher usage")
}

// ExistsForCourse reports whether any inscription references the course.
func (r *InscriptionRepository) ExistsForCourse(ctx context.Context, courseID int64) (bool, error) {
	return r.existsQuery(ctx, "SELECT 1 FROM inscriptions WHERE course_id = $1 LIMIT 1", []interface{}{courseID}, "check course inscriptions")
}

func (r *InscriptionRepository) existsQuery(ctx context.Context, query string, args []interface{}, op string) (bool, error) {
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return true, nil
}

// Create persists a new inscription inside a single transaction: the
// duplicate checks and the insert cannot be interleaved by a concurrent
// request, and the unique indexes on (course_id, person_id) and voucher_id
// remain the final backstop. Constraint violations surface wrapped so the
// caller can translate them.
func (r *InscriptionRepository) Create(ctx context.Context, inscription *models.Inscription) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin inscription transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var exists int
	err = tx.GetContext(ctx, &exists,
		"SELECT 1 FROM inscriptions WHERE course_id = $1 AND person_id = $2 LIMIT 1",
		inscription.CourseID, inscription.PersonID)
	if err == nil {
		return &DuplicateInscriptionError{CourseID: inscription.CourseID, PersonID: inscription.PersonID}
	}
	if err != sql.ErrNoRows {
		return fmt.Errorf("check duplicate inscription: %w", err)
	}

	err = tx.GetContext(ctx, &exists,
		"SELECT 1 FROM inscriptions WHERE voucher_id = $1 LIMIT 1", inscription.VoucherID)
	if err == nil {
		return &DuplicateVoucherError{VoucherID: inscription.VoucherID}
	}
	if err != sql.ErrNoRows {
		return fmt.Errorf("check voucher exclusivity: %w", err)
	}

	if inscription.CreatedAt.IsZero() {
		inscription.CreatedAt = time.Now().UTC()
	}
	inscription.Enrolled = false

	const insertQuery = `INSERT INTO inscriptions (course_id, person_id, billing_id, voucher_id, discount_id, enrolled, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`
	if err = tx.GetContext(ctx, &inscription.ID, insertQuery,
		inscription.CourseID, inscription.PersonID, inscription.BillingID, inscription.VoucherID,
		inscription.DiscountID, inscription.Enrolled, inscription.CreatedAt); err != nil {
		return r.translateUnique(fmt.Errorf("insert inscription: %w", err), inscription)
	}

	if err = tx.Commit(); err != nil {
		return r.translateUnique(fmt.Errorf("commit inscription: %w", err), inscription)
	}
	return nil
}

// ApplyChanges updates only the supplied fields of an inscription. The
// current row is passed in so constraint violations can be translated into
// the typed duplicate errors. Returns sql.ErrNoRows when the row is gone.
func (r *InscriptionRepository) ApplyChanges(ctx context.Context, current *models.Inscription, changes models.InscriptionChanges) error {
	var sets []string
	var args []interface{}
	args = append(args, current.ID)

	if changes.CourseID.Set && changes.CourseID.Valid {
		sets = append(sets, fmt.Sprintf("course_id = $%d", len(args)+1))
		args = append(args, changes.CourseID.Value)
	}
	if changes.BillingID.Set && changes.BillingID.Valid {
		sets = append(sets, fmt.Sprintf("billing_id = $%d", len(args)+1))
		args = append(args, changes.BillingID.Value)
	}
	if changes.DiscountID.Set {
		if changes.DiscountID.Valid {
			sets = append(sets, fmt.Sprintf("discount_id = $%d", len(args)+1))
			args = append(args, changes.DiscountID.Value)
		} else {
			sets = append(sets, "discount_id = NULL")
		}
	}
	if changes.Enrolled.Set && changes.Enrolled.Valid {
		sets = append(sets, fmt.Sprintf("enrolled = $%d", len(args)+1))
		args = append(args, changes.Enrolled.Value)
	}
	if len(sets) == 0 {
		return nil
	}

	query := fmt.Sprintf("UPDATE inscriptions SET %s WHERE id = $1", strings.Join(sets, ", "))
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		target := *current
		if changes.CourseID.Set && changes.CourseID.Valid {
			target.CourseID = changes.CourseID.Value
		}
		return r.translateUnique(fmt.Errorf("update inscription: %w", err), &target)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update inscription result: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes an inscription row.
func (r *InscriptionRepository) Delete(ctx context.Context, id int64) error {
	const query = `DELETE FROM inscriptions WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete inscription: %w", err)
	}
	return nil
}
