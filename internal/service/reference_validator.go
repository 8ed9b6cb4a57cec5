package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/andesedu/cursos-api/internal/models"
	appErrors "github.com/andesedu/cursos-api/pkg/errors"
)

type courseReader interface {
	FindByID(ctx context.Context, id int64) (*models.Course, error)
}

type personReader interface {
	FindByID(ctx context.Context, id int64) (*models.Person, error)
}

type billingReader interface {
	FindByID(ctx context.Context, id int64) (*models.BillingProfile, error)
}

type voucherReader interface {
	FindByID(ctx context.Context, id int64) (*models.Voucher, error)
}

type discountReader interface {
	FindByID(ctx context.Context, id int64) (*models.Discount, error)
}

// ResolvedReferences carries every entity an inscription request points at.
type ResolvedReferences struct {
	Course   *models.Course
	Person   *models.Person
	Billing  *models.BillingProfile
	Voucher  *models.Voucher
	Discount *models.Discount
}

// ReferenceValidator resolves foreign keys before any write is attempted.
// References are checked in a fixed order (course, person, billing, voucher,
// discount) so error messages stay deterministic. It is strictly read-only.
type ReferenceValidator struct {
	courses   courseReader
	persons   personReader
	billings  billingReader
	vouchers  voucherReader
	discounts discountReader
}

// NewReferenceValidator constructs a ReferenceValidator.
func NewReferenceValidator(courses courseReader, persons personReader, billings billingReader, vouchers voucherReader, discounts discountReader) *ReferenceValidator {
	return &ReferenceValidator{courses: courses, persons: persons, billings: billings, vouchers: vouchers, discounts: discounts}
}

// ResolveInscription resolves every reference required to create an
// inscription, failing fast on the first missing one with an error naming
// the entity kind and key.
func (v *ReferenceValidator) ResolveInscription(ctx context.Context, courseID, personID, billingID, voucherID int64, discountID *int64) (*ResolvedReferences, error) {
	refs := &ResolvedReferences{}
	var err error

	if refs.Course, err = v.courses.FindByID(ctx, courseID); err != nil {
		return nil, classifyLookup(err, "course", courseID)
	}
	if refs.Person, err = v.persons.FindByID(ctx, personID); err != nil {
		return nil, classifyLookup(err, "person", personID)
	}
	if refs.Billing, err = v.billings.FindByID(ctx, billingID); err != nil {
		return nil, classifyLookup(err, "billing profile", billingID)
	}
	if refs.Voucher, err = v.vouchers.FindByID(ctx, voucherID); err != nil {
		return nil, classifyLookup(err, "voucher", voucherID)
	}
	if discountID != nil {
		if refs.Discount, err = v.discounts.FindByID(ctx, *discountID); err != nil {
			return nil, classifyLookup(err, "discount", *discountID)
		}
	}
	return refs, nil
}

// ResolveCourse resolves a single course reference.
func (v *ReferenceValidator) ResolveCourse(ctx context.Context, id int64) (*models.Course, error) {
	course, err := v.courses.FindByID(ctx, id)
	if err != nil {
		return nil, classifyLookup(err, "course", id)
	}
	return course, nil
}

// ResolveBilling resolves a single billing profile reference.
func (v *ReferenceValidator) ResolveBilling(ctx context.Context, id int64) (*models.BillingProfile, error) {
	billing, err := v.billings.FindByID(ctx, id)
	if err != nil {
		return nil, classifyLookup(err, "billing profile", id)
	}
	return billing, nil
}

// ResolveDiscount resolves a single discount reference.
func (v *ReferenceValidator) ResolveDiscount(ctx context.Context, id int64) (*models.Discount, error) {
	discount, err := v.discounts.FindByID(ctx, id)
	if err != nil {
		return nil, classifyLookup(err, "discount", id)
	}
	return discount, nil
}

// classifyLookup turns a missing row into NOT_FOUND naming the kind and key
// and wraps anything else as INTERNAL_ERROR.
func classifyLookup(err error, kind string, key interface{}) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.NotFoundf(kind, key)
	}
	return appErrors.Internalf(err, "failed to load %s", kind)
}
