package service

import (
	"context"
	"errors"

	"github.com/andesedu/cursos-api/internal/repository"
	appErrors "github.com/andesedu/cursos-api/pkg/errors"
)

type inscriptionConflictChecker interface {
	ExistsByCourseAndPerson(ctx context.Context, courseID, personID, excludeID int64) (bool, error)
	ExistsByVoucher(ctx context.Context, voucherID, excludeID int64) (bool, error)
}

type invoiceConflictChecker interface {
	ExistsByInscription(ctx context.Context, inscriptionID int64) (bool, error)
	ExistsByInvoiceNumber(ctx context.Context, number string, excludeID int64) (bool, error)
	ExistsByIncomeNumber(ctx context.Context, number string, excludeID int64) (bool, error)
}

type personConflictChecker interface {
	ExistsByIdentification(ctx context.Context, identification string, excludeID int64) (bool, error)
	ExistsByEmail(ctx context.Context, email string, excludeID int64) (bool, error)
}

type courseConflictChecker interface {
	ExistsByShortCode(ctx context.Context, code string, excludeID int64) (bool, error)
}

// ConflictGuard centralizes the uniqueness rules that protect writes. Every
// check takes an excludeID so update paths never collide with the row being
// updated. The guard gives friendly errors up front; the database unique
// indexes remain the last line of defense against races, and TranslateWrite
// maps their violations onto the same conflict messages.
type ConflictGuard struct {
	inscriptions inscriptionConflictChecker
	invoices     invoiceConflictChecker
	persons      personConflictChecker
	courses      courseConflictChecker
}

// NewConflictGuard constructs a ConflictGuard.
func NewConflictGuard(inscriptions inscriptionConflictChecker, invoices invoiceConflictChecker, persons personConflictChecker, courses courseConflictChecker) *ConflictGuard {
	return &ConflictGuard{inscriptions: inscriptions, invoices: invoices, persons: persons, courses: courses}
}

// CheckInscriptionPair rejects a second inscription of the same person in
// the same course.
func (g *ConflictGuard) CheckInscriptionPair(ctx context.Context, courseID, personID, excludeID int64) error {
	exists, err := g.inscriptions.ExistsByCourseAndPerson(ctx, courseID, personID, excludeID)
	if err != nil {
		return appErrors.Internalf(err, "failed to check inscription uniqueness")
	}
	if exists {
		return appErrors.Conflictf("person %d is already inscribed in course %d", personID, courseID)
	}
	return nil
}

// CheckVoucherUnused rejects reuse of a payment voucher across inscriptions.
func (g *ConflictGuard) CheckVoucherUnused(ctx context.Context, voucherID, excludeID int64) error {
	exists, err := g.inscriptions.ExistsByVoucher(ctx, voucherID, excludeID)
	if err != nil {
		return appErrors.Internalf(err, "failed to check voucher usage")
	}
	if exists {
		return appErrors.Conflictf("voucher %d is already attached to another inscription", voucherID)
	}
	return nil
}

// CheckSingleInvoice rejects a second invoice for the same inscription.
func (g *ConflictGuard) CheckSingleInvoice(ctx context.Context, inscriptionID int64) error {
	exists, err := g.invoices.ExistsByInscription(ctx, inscriptionID)
	if err != nil {
		return appErrors.Internalf(err, "failed to check invoice uniqueness")
	}
	if exists {
		return appErrors.Conflictf("inscription %d already has an invoice", inscriptionID)
	}
	return nil
}

// CheckInvoiceNumbers rejects duplicated invoice or income numbers. Empty
// numbers are skipped; only assigned numbers participate in uniqueness.
func (g *ConflictGuard) CheckInvoiceNumbers(ctx context.Context, invoiceNumber, incomeNumber string, excludeID int64) error {
	if invoiceNumber != "" {
		exists, err := g.invoices.ExistsByInvoiceNumber(ctx, invoiceNumber, excludeID)
		if err != nil {
			return appErrors.Internalf(err, "failed to check invoice number")
		}
		if exists {
			return appErrors.Conflictf("invoice number %q is already in use", invoiceNumber)
		}
	}
	if incomeNumber != "" {
		exists, err := g.invoices.ExistsByIncomeNumber(ctx, incomeNumber, excludeID)
		if err != nil {
			return appErrors.Internalf(err, "failed to check income number")
		}
		if exists {
			return appErrors.Conflictf("income number %q is already in use", incomeNumber)
		}
	}
	return nil
}

// CheckPersonIdentity rejects duplicated identification numbers or emails.
func (g *ConflictGuard) CheckPersonIdentity(ctx context.Context, identification, email string, excludeID int64) error {
	exists, err := g.persons.ExistsByIdentification(ctx, identification, excludeID)
	if err != nil {
		return appErrors.Internalf(err, "failed to check identification uniqueness")
	}
	if exists {
		return appErrors.Conflictf("identification %q is already registered", identification)
	}
	exists, err = g.persons.ExistsByEmail(ctx, email, excludeID)
	if err != nil {
		return appErrors.Internalf(err, "failed to check email uniqueness")
	}
	if exists {
		return appErrors.Conflictf("email %q is already registered", email)
	}
	return nil
}

// CheckCourseShortCode rejects duplicated course short codes.
func (g *ConflictGuard) CheckCourseShortCode(ctx context.Context, code string, excludeID int64) error {
	exists, err := g.courses.ExistsByShortCode(ctx, code, excludeID)
	if err != nil {
		return appErrors.Internalf(err, "failed to check short code uniqueness")
	}
	if exists {
		return appErrors.Conflictf("short code %q is already in use", code)
	}
	return nil
}

// TranslateWrite maps the typed errors raised by repository transactions
// when a concurrent writer wins the race onto the guard's conflict messages.
// Errors it does not recognize pass through unchanged.
func (g *ConflictGuard) TranslateWrite(err error) error {
	if err == nil {
		return nil
	}
	var dupPair *repository.DuplicateInscriptionError
	if errors.As(err, &dupPair) {
		return appErrors.Conflictf("person %d is already inscribed in course %d", dupPair.PersonID, dupPair.CourseID)
	}
	var dupVoucher *repository.DuplicateVoucherError
	if errors.As(err, &dupVoucher) {
		return appErrors.Conflictf("voucher %d is already attached to another inscription", dupVoucher.VoucherID)
	}
	var dupInvoice *repository.DuplicateInvoiceError
	if errors.As(err, &dupInvoice) {
		return appErrors.Conflictf("inscription %d already has an invoice", dupInvoice.InscriptionID)
	}
	var dupNumber *repository.DuplicateNumberError
	if errors.As(err, &dupNumber) {
		return appErrors.Conflictf("%s %q is already in use", dupNumber.Field, dupNumber.Value)
	}
	var dupPerson *repository.DuplicatePersonFieldError
	if errors.As(err, &dupPerson) {
		return appErrors.Conflictf("%s %q is already registered", dupPerson.Field, dupPerson.Value)
	}
	var verified *repository.AlreadyVerifiedError
	if errors.As(err, &verified) {
		return appErrors.Conflictf("invoice %d is already verified", verified.InvoiceID)
	}
	return err
}
